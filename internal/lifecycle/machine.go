// Package lifecycle implements the repair-order state machine: status
// transitions, bay entry and exit with time accounting, settlement, and
// restoration. Every function mutates the order in place and returns the
// SYSTEM log lines the change produced; persistence and permission checks
// belong to the caller.
package lifecycle

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/timeutil"
)

var (
	// ErrNotDone rejects settlement of an order that is not in DONE.
	ErrNotDone = errors.New("lifecycle: order is not done")
	// ErrNotArchived rejects restoration of an order that is not archived.
	ErrNotArchived = errors.New("lifecycle: order is not archived")
	// ErrBadPayment rejects a settlement method outside CASH, CHEQUE,
	// and ABANDONED.
	ErrBadPayment = errors.New("lifecycle: unknown payment method")
)

// ChangeStatus moves the order to next. When the order occupies a bay the
// change routes through ExitBay instead: leaving a bay is itself a
// status-changing event with time-accounting side effects, and it always
// takes precedence over a plain status write.
func ChangeStatus(o *models.RepairOrder, next string, now time.Time) []string {
	if next == o.Status {
		return nil
	}
	if o.InBay() {
		return ExitBay(o, next, now)
	}
	old := o.Status
	o.Status = next
	return []string{fmt.Sprintf("Workflow updated: %s → %s", Label(o.WorkType, old), Label(o.WorkType, next))}
}

// EnterBay rolls the order into bay. Any running session is folded into
// the lifetime total before the new session starts, the status is forced
// to the bay's entry status, and the card gives up its grid slot.
func EnterBay(o *models.RepairOrder, bay models.Bay, now time.Time) []string {
	if o.LastEnteredBayAt != nil {
		o.TotalTimeInBay += now.Sub(*o.LastEnteredBayAt).Milliseconds()
	}
	entered := now
	o.BayID = &bay.ID
	o.LastEnteredBayAt = &entered
	o.Status = bay.EntryStatusOr()
	o.GridPosition = nil
	return []string{fmt.Sprintf("Vehicle moved into %s", bay.Name)}
}

// ExitBay ends the current bay session: elapsed time folds into the
// lifetime total, the bay link clears, and the order takes next as its
// status. The log line records both the session duration and the new
// lifetime total.
func ExitBay(o *models.RepairOrder, next string, now time.Time) []string {
	var session int64
	if o.LastEnteredBayAt != nil {
		session = now.Sub(*o.LastEnteredBayAt).Milliseconds()
		if session < 0 {
			session = 0
		}
	}
	o.TotalTimeInBay += session
	o.BayID = nil
	o.LastEnteredBayAt = nil
	o.Status = next
	return []string{fmt.Sprintf(
		"Vehicle exited Bay. Session Time: %s | Total Bay Time: %s",
		timeutil.FormatDuration(session),
		timeutil.FormatDuration(o.TotalTimeInBay),
	)}
}

// Settle records payment on a DONE order, which is what reads back as
// ARCHIVED. The method must be one of the known payment methods.
func Settle(o *models.RepairOrder, method string, amount float64, now time.Time) ([]string, error) {
	switch method {
	case models.PaymentCash, models.PaymentCheque, models.PaymentAbandoned:
	default:
		return nil, ErrBadPayment
	}
	if o.Status != models.StatusDone || o.Settled() {
		return nil, ErrNotDone
	}
	settled := now
	o.PaymentMethod = &method
	o.PaymentAmount = &amount
	o.SettledAt = &settled
	if method == models.PaymentAbandoned {
		return []string{"Settle: NO REPAIR (Abandoned)"}, nil
	}
	return []string{fmt.Sprintf("Payment Processed: %s ($%s)", method,
		strconv.FormatFloat(amount, 'f', -1, 64))}, nil
}

// VoidNoRepair archives the order as abandoned with no charge.
func VoidNoRepair(o *models.RepairOrder, now time.Time) ([]string, error) {
	return Settle(o, models.PaymentAbandoned, 0, now)
}

// Restore pulls an archived order back into the workflow: settlement
// fields clear and the order re-enters TODO.
func Restore(o *models.RepairOrder, now time.Time) ([]string, error) {
	if !o.Archived() {
		return nil, ErrNotArchived
	}
	o.PaymentMethod = nil
	o.PaymentAmount = nil
	o.SettledAt = nil
	o.Status = models.StatusTodo
	return []string{"Vehicle restored to workflow from History."}, nil
}

// Edits carries optional field changes; nil fields are untouched.
type Edits struct {
	NewID         *string
	Model         *string
	VIN           *string
	CustomerName  *string
	Phone         *string
	Urgent        *bool
	Mileage       *int
	DeliveryDate  *time.Time
	Info          *string
	InsuranceCase *bool
}

// ApplyEdits writes the changed fields onto the order. Each field that
// actually differs gets its own log line, emitted in a fixed field order.
// Info, delivery date, and the insurance flag change without a line.
func ApplyEdits(o *models.RepairOrder, e Edits) []string {
	var lines []string
	if e.NewID != nil && *e.NewID != o.ID {
		lines = append(lines, fmt.Sprintf("RO changed: %s → %s", o.ID, *e.NewID))
		o.ID = *e.NewID
	}
	if e.Model != nil && *e.Model != o.Model {
		lines = append(lines, fmt.Sprintf("Model updated: %s", *e.Model))
		o.Model = *e.Model
	}
	if e.VIN != nil && *e.VIN != o.VIN {
		lines = append(lines, fmt.Sprintf("VIN updated: %s", *e.VIN))
		o.VIN = *e.VIN
	}
	if e.CustomerName != nil && *e.CustomerName != o.CustomerName {
		lines = append(lines, fmt.Sprintf("Customer: %s", *e.CustomerName))
		o.CustomerName = *e.CustomerName
	}
	if e.Phone != nil && *e.Phone != o.Phone {
		lines = append(lines, fmt.Sprintf("Phone: %s", *e.Phone))
		o.Phone = *e.Phone
	}
	if e.Urgent != nil && *e.Urgent != o.Urgent {
		if *e.Urgent {
			lines = append(lines, "Priority: URGENT")
		} else {
			lines = append(lines, "Priority: NORMAL")
		}
		o.Urgent = *e.Urgent
	}
	if e.Mileage != nil && (o.Mileage == nil || *e.Mileage != *o.Mileage) {
		lines = append(lines, fmt.Sprintf("Odometer updated: %d km", *e.Mileage))
		m := *e.Mileage
		o.Mileage = &m
	}
	if e.Info != nil {
		o.Info = *e.Info
	}
	if e.DeliveryDate != nil {
		d := *e.DeliveryDate
		o.DeliveryDate = &d
	}
	if e.InsuranceCase != nil {
		o.InsuranceCase = *e.InsuranceCase
	}
	return lines
}

// MarkRead clears role's unread flag and snapshots the current info so
// future unread bullet lines diff against it.
func MarkRead(o *models.RepairOrder, role string) {
	o.ClearUnread(role)
	lastRead := o.LastRead()
	lastRead[role] = o.Info
	o.SetLastRead(lastRead)
}

// NewOrder builds a freshly registered repair order: TODO, order index =
// current collection size, seeded with the registration log line. The
// returned log line is appended by the caller alongside persistence.
func NewOrder(id, workType string, orderIndex int) (*models.RepairOrder, string) {
	o := &models.RepairOrder{
		ID:         id,
		WorkType:   workType,
		Status:     models.StatusTodo,
		OrderIndex: orderIndex,
	}
	o.SetUnreadRoles(nil)
	o.SetLastRead(map[string]string{})
	return o, "Vehicle registered."
}
