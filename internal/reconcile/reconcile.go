// Package reconcile owns the in-memory order and bay collections and
// keeps them converged with the database. Mutations apply to the local
// collection first, then persist; a successful persist triggers a full
// refetch-and-replace so server-side derived fields are absorbed. A
// failed persist keeps the optimistic state and logs the error. Remote
// change notifications are coalesced through a single debounce timer
// before forcing a refetch.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/models"
)

// DefaultDebounce is how long a burst of change notifications settles
// before one refetch runs.
const DefaultDebounce = 600 * time.Millisecond

// ErrDenied reports a mutation attempted by a role without the required
// capability.
var ErrDenied = errors.New("reconcile: role lacks permission")

// BayOccupiedError reports a bay move blocked by a different order
// already holding the bay. The caller resolves it by settling the
// occupant out through ResolveBayConflict.
type BayOccupiedError struct {
	Bay      models.Bay
	Occupant models.RepairOrder
}

func (e *BayOccupiedError) Error() string {
	return fmt.Sprintf("reconcile: %s is occupied by %s", e.Bay.Name, e.Occupant.ID)
}

// Store is the slice of the persistence layer the reconciler drives.
// *db.Store satisfies it.
type Store interface {
	ListOrders() ([]models.RepairOrder, error)
	ListBays() ([]models.Bay, db.BayKeys, error)
	CreateOrder(o *models.RepairOrder) error
	UpdateOrder(id string, fields map[string]interface{}) error
	RenameOrder(oldID, newID string) error
	AssignBay(orderID string, bayID *int, totalMs int64, lastEntered *time.Time) error
	AppendLog(entry models.LogEntry) (models.LogEntry, error)
	ListEvents() ([]models.CalendarEvent, error)
	SaveEvent(ev models.CalendarEvent) error
	LoadColumnOrder(audience string) ([]string, error)
	SaveColumnOrder(audience string, columns []string) error
}

// Reconciler is the single writer for the shop's live state. All reads
// hand out copies; the backing slices never escape the lock.
type Reconciler struct {
	store    Store
	debounce time.Duration
	now      func() time.Time
	onChange func()

	mu     sync.Mutex
	orders []models.RepairOrder
	bays   []models.Bay
	keys   db.BayKeys
}

func New(store Store) *Reconciler {
	return &Reconciler{
		store:    store,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
}

// OnChange registers a callback fired after every state replacement or
// optimistic mutation. Set it before Run; it is invoked without the
// reconciler lock held.
func (r *Reconciler) OnChange(fn func()) { r.onChange = fn }

func (r *Reconciler) fireChange() {
	if r.onChange != nil {
		r.onChange()
	}
}

// Refetch replaces the in-memory collections from the store. The bay key
// table is rebuilt on every fetch.
func (r *Reconciler) Refetch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refetchLocked()
}

func (r *Reconciler) refetchLocked() error {
	orders, err := r.store.ListOrders()
	if err != nil {
		return fmt.Errorf("reconcile: refetch orders: %w", err)
	}
	bays, keys, err := r.store.ListBays()
	if err != nil {
		return fmt.Errorf("reconcile: refetch bays: %w", err)
	}
	r.orders = orders
	r.bays = bays
	r.keys = keys
	return nil
}

// Run consumes remote change notifications until ctx ends. Each
// notification restarts the debounce timer; the refetch fires once per
// burst after the timer lapses.
func (r *Reconciler) Run(ctx context.Context, changes <-chan struct{}) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-changes:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(r.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := r.Refetch(); err != nil {
				log.Printf("reconcile: refetch on remote change: %v", err)
				continue
			}
			r.fireChange()
		}
	}
}

// Orders returns a snapshot copy of the order collection.
func (r *Reconciler) Orders() []models.RepairOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RepairOrder, len(r.orders))
	copy(out, r.orders)
	return out
}

// Order returns a copy of one order by id.
func (r *Reconciler) Order(id string) (models.RepairOrder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.findLocked(id); o != nil {
		return *o, true
	}
	return models.RepairOrder{}, false
}

// Bays returns the bay list and the id-to-row-key table rebuilt at the
// last fetch.
func (r *Reconciler) Bays() ([]models.Bay, db.BayKeys) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Bay, len(r.bays))
	copy(out, r.bays)
	return out, r.keys
}

// Search filters orders by a case-insensitive substring match over id,
// model, customer, phone, and VIN. Phone numbers also match on digits
// alone, so "055 123" finds "055-123-4567". An empty query returns
// everything.
func (r *Reconciler) Search(query string) []models.RepairOrder {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return r.Orders()
	}
	var queryDigits string
	if isPhoneQuery(query) {
		queryDigits = digitsOnly(query)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RepairOrder
	for _, o := range r.orders {
		haystack := strings.ToLower(o.ID + " " + o.Model + " " + o.CustomerName + " " + o.Phone + " " + o.VIN)
		if strings.Contains(haystack, query) {
			out = append(out, o)
			continue
		}
		if queryDigits != "" && strings.Contains(digitsOnly(o.Phone), queryDigits) {
			out = append(out, o)
		}
	}
	return out
}

// isPhoneQuery reports whether the query looks like a phone fragment:
// digits with optional separators, at least one digit.
func isPhoneQuery(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return hasDigit
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (r *Reconciler) findLocked(id string) *models.RepairOrder {
	for i := range r.orders {
		if r.orders[i].ID == id {
			return &r.orders[i]
		}
	}
	return nil
}

func (r *Reconciler) findByEventLocked(eventID string) *models.RepairOrder {
	for i := range r.orders {
		if r.orders[i].CalendarEventID != nil && *r.orders[i].CalendarEventID == eventID {
			return &r.orders[i]
		}
	}
	return nil
}

func (r *Reconciler) ptrsLocked() []*models.RepairOrder {
	ptrs := make([]*models.RepairOrder, len(r.orders))
	for i := range r.orders {
		ptrs[i] = &r.orders[i]
	}
	return ptrs
}

func (r *Reconciler) bayLocked(bayID int) (models.Bay, bool) {
	for _, b := range r.bays {
		if b.ID == bayID {
			return b, true
		}
	}
	return models.Bay{}, false
}

// persist runs the store calls for a mutation already applied locally.
// Failure keeps the optimistic state; success pulls the authoritative
// state back in.
func (r *Reconciler) persist(op string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("reconcile: %s: %v (keeping local state)", op, err)
	} else if err := r.Refetch(); err != nil {
		log.Printf("reconcile: refetch after %s: %v", op, err)
	}
	r.fireChange()
}

// appendLocked mirrors what Store.AppendLog does server-side onto the
// optimistic copy: the entry lands on the timeline and every other role
// goes unread.
func (r *Reconciler) appendLocked(o *models.RepairOrder, user string, lines ...string) {
	now := r.now()
	for _, text := range lines {
		o.Logs = append(o.Logs, models.LogEntry{
			OrderID:   o.ID,
			User:      user,
			Kind:      models.LogSystem,
			Category:  models.CategoryActivity,
			Text:      text,
			CreatedAt: now,
		})
	}
	if len(lines) == 0 {
		return
	}
	for _, role := range models.AllRoles {
		if role != user {
			o.MarkUnreadFor(role)
		}
	}
}

func (r *Reconciler) appendRemote(orderID, user string, lines []string) error {
	for _, text := range lines {
		_, err := r.store.AppendLog(models.LogEntry{
			OrderID: orderID,
			User:    user,
			Kind:    models.LogSystem,
			Text:    text,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
