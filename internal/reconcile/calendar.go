package reconcile

import (
	"fmt"

	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/timeutil"
)

// SystemUser is the log author for automated entries. Marking it as the
// writer leaves every human role unread.
const SystemUser = "SYSTEM"

const zeroTouchLine = "Zero-Touch: Auto-synced from Calendar for today."

// Placeholder fields for orders materialized from the calendar.
const (
	calendarCustomer = "Schedule Entry"
	calendarPhone    = "N/A"
	calendarInfo     = "Synced from Calendar"
)

// calendarOrderID derives a stable order id from a calendar event id.
func calendarOrderID(eventID string) string {
	if len(eventID) > 28 {
		eventID = eventID[:28]
	}
	return "CAL-" + eventID
}

// Events lists the calendar collection.
func (r *Reconciler) Events() ([]models.CalendarEvent, error) {
	return r.store.ListEvents()
}

// SaveEvent upserts a calendar event, then re-runs the zero-touch sync
// so a same-day edit propagates into its materialized order immediately.
func (r *Reconciler) SaveEvent(ev models.CalendarEvent) error {
	if err := r.store.SaveEvent(ev); err != nil {
		return fmt.Errorf("reconcile: save event: %w", err)
	}
	return r.SyncCalendar()
}

// SyncCalendar materializes one order per calendar event starting today.
// A missing order is created as TODO with the event title as model, the
// description as info, placeholder customer fields, and every role
// unread; an existing order whose model or info drifted from the event
// is overwritten to match. Running it twice over an unchanged event set
// changes nothing.
func (r *Reconciler) SyncCalendar() error {
	events, err := r.store.ListEvents()
	if err != nil {
		return fmt.Errorf("reconcile: list events: %w", err)
	}
	now := r.now()

	type createOp struct {
		order models.RepairOrder
	}
	type updateOp struct {
		id     string
		fields map[string]interface{}
	}
	var creates []createOp
	var updates []updateOp

	r.mu.Lock()
	for _, ev := range events {
		if !timeutil.SameDay(ev.Start, now) {
			continue
		}
		existing := r.findByEventLocked(ev.ID)
		if existing == nil {
			o, _ := lifecycle.NewOrder(calendarOrderID(ev.ID), models.WorkTypeMechanic, len(r.orders))
			eventID := ev.ID
			o.Model = ev.Title
			o.VIN = models.CalendarVIN
			o.CustomerName = calendarCustomer
			o.Phone = calendarPhone
			o.Info = ev.Description
			if o.Info == "" {
				o.Info = calendarInfo
			}
			o.CalendarEventID = &eventID
			o.SetUnreadRoles(models.AllRoles)
			r.appendLocked(o, SystemUser, zeroTouchLine)
			r.orders = append(r.orders, *o)
			creates = append(creates, createOp{order: *o})
			continue
		}
		if existing.Model != ev.Title || existing.Info != ev.Description {
			existing.Model = ev.Title
			existing.Info = ev.Description
			updates = append(updates, updateOp{
				id:     existing.ID,
				fields: map[string]interface{}{"model": ev.Title, "info": ev.Description},
			})
		}
	}
	r.mu.Unlock()

	if len(creates) == 0 && len(updates) == 0 {
		return nil
	}
	r.persist("calendar sync", func() error {
		for _, op := range creates {
			o := op.order
			o.Logs = nil
			if err := r.store.CreateOrder(&o); err != nil {
				return err
			}
			if err := r.appendRemote(o.ID, SystemUser, []string{zeroTouchLine}); err != nil {
				return err
			}
		}
		for _, op := range updates {
			if err := r.store.UpdateOrder(op.id, op.fields); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}
