package reconcile

import (
	"errors"
	"fmt"
	"log"

	"github.com/ckshop/shopflow/internal/board"
	"github.com/ckshop/shopflow/internal/capability"
	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/occupancy"
)

// ErrBadResolution rejects a bay conflict resolution that is neither
// DONE nor PENDING.
var ErrBadResolution = errors.New("reconcile: occupant must resolve to DONE or PENDING")

// CreateOrder registers a fresh order at the end of the board.
func (r *Reconciler) CreateOrder(role, id, workType string) (models.RepairOrder, error) {
	if !capability.CanCreateOrder(role) {
		log.Printf("reconcile: create order denied for role %s", role)
		return models.RepairOrder{}, ErrDenied
	}
	r.mu.Lock()
	if r.findLocked(id) != nil {
		r.mu.Unlock()
		return models.RepairOrder{}, fmt.Errorf("reconcile: order %s already exists", id)
	}
	o, line := lifecycle.NewOrder(id, workType, len(r.orders))
	r.appendLocked(o, role, line)
	r.orders = append(r.orders, *o)
	created := *o
	r.mu.Unlock()

	r.persist("create order", func() error {
		clean, _ := lifecycle.NewOrder(id, workType, created.OrderIndex)
		if err := r.store.CreateOrder(clean); err != nil {
			return err
		}
		return r.appendRemote(id, role, []string{line})
	})
	return created, nil
}

// ChangeStatus moves an order to next. When the order holds a bay the
// lifecycle routes the change through a bay exit, so the bay fields are
// persisted along with the status and the caller also needs the
// bay-assignment capability; without it the change is a no-op.
func (r *Reconciler) ChangeStatus(role, id, next string) error {
	if !capability.CanChangeStatus(role) {
		log.Printf("reconcile: change status denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	if o.InBay() && !capability.CanAssignBay(role) {
		r.mu.Unlock()
		log.Printf("reconcile: status change on in-bay order %s denied for role %s", id, role)
		return nil
	}
	wasInBay := o.InBay()
	lines := lifecycle.ChangeStatus(o, next, r.now())
	if len(lines) == 0 {
		r.mu.Unlock()
		return nil
	}
	r.appendLocked(o, role, lines...)
	status, total := o.Status, o.TotalTimeInBay
	r.mu.Unlock()

	r.persist("change status", func() error {
		if wasInBay {
			if err := r.store.AssignBay(id, nil, total, nil); err != nil {
				return err
			}
		}
		if err := r.store.UpdateOrder(id, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// MoveToSlot drops an order into an explicit grid slot of a column. An
// order already claiming that exact slot is demoted to auto-placement
// rather than the drop being rejected.
func (r *Reconciler) MoveToSlot(role, id, status string, gridPosition int) error {
	if !capability.CanChangeStatus(role) {
		log.Printf("reconcile: move to slot denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	if o.InBay() {
		// A drop out of a bay is a bay exit. The requested slot is
		// discarded and the card returns to automatic placement.
		if !capability.CanAssignBay(role) {
			r.mu.Unlock()
			log.Printf("reconcile: slot drop on in-bay order %s denied for role %s", id, role)
			return nil
		}
		lines := lifecycle.ExitBay(o, status, r.now())
		r.appendLocked(o, role, lines...)
		newStatus, total := o.Status, o.TotalTimeInBay
		r.mu.Unlock()

		r.persist("move to slot", func() error {
			if err := r.store.AssignBay(id, nil, total, nil); err != nil {
				return err
			}
			if err := r.store.UpdateOrder(id, map[string]interface{}{"status": newStatus}); err != nil {
				return err
			}
			return r.appendRemote(id, role, lines)
		})
		return nil
	}
	evicted := board.FindEviction(r.ptrsLocked(), o, status, gridPosition)
	lines := lifecycle.ChangeStatus(o, status, r.now())
	pos := gridPosition
	o.GridPosition = &pos
	if evicted != "" {
		if ev := r.findLocked(evicted); ev != nil {
			ev.GridPosition = nil
		}
	}
	r.appendLocked(o, role, lines...)
	newStatus := o.Status
	r.mu.Unlock()

	r.persist("move to slot", func() error {
		if evicted != "" {
			if err := r.store.UpdateOrder(evicted, map[string]interface{}{"grid_position": nil}); err != nil {
				return err
			}
		}
		fields := map[string]interface{}{"status": newStatus, "grid_position": pos}
		if err := r.store.UpdateOrder(id, fields); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// MoveToBay rolls an order into a bay. A bay held by a different order
// is never silently evicted: the caller gets a BayOccupiedError and must
// resolve the occupant through ResolveBayConflict first.
func (r *Reconciler) MoveToBay(role, id string, bayID int) error {
	if !capability.CanAssignBay(role) {
		log.Printf("reconcile: bay assignment denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	bay, ok := r.bayLocked(bayID)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("reconcile: unknown bay %d", bayID)
	}
	if occ := occupancy.Occupant(r.ptrsLocked(), bayID); occ != nil && occ.ID != id {
		err := &BayOccupiedError{Bay: bay, Occupant: *occ}
		r.mu.Unlock()
		return err
	}
	lines := lifecycle.EnterBay(o, bay, r.now())
	r.appendLocked(o, role, lines...)
	status, total := o.Status, o.TotalTimeInBay
	entered := *o.LastEnteredBayAt
	r.mu.Unlock()

	r.persist("move to bay", func() error {
		if err := r.store.AssignBay(id, &bayID, total, &entered); err != nil {
			return err
		}
		if err := r.store.UpdateOrder(id, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// ResolveBayConflict settles a blocked bay move: the current occupant
// exits under the chosen status, then the waiting order enters.
func (r *Reconciler) ResolveBayConflict(role, id string, bayID int, resolution string) error {
	if resolution != models.StatusDone && resolution != models.StatusPending {
		return ErrBadResolution
	}
	if !capability.CanAssignBay(role) {
		log.Printf("reconcile: bay assignment denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	occ := occupancy.Occupant(r.ptrsLocked(), bayID)
	if occ != nil && occ.ID != id {
		occID := occ.ID
		lines := lifecycle.ExitBay(occ, resolution, r.now())
		r.appendLocked(occ, role, lines...)
		status, total := occ.Status, occ.TotalTimeInBay
		r.mu.Unlock()

		r.persist("resolve bay conflict", func() error {
			if err := r.store.AssignBay(occID, nil, total, nil); err != nil {
				return err
			}
			if err := r.store.UpdateOrder(occID, map[string]interface{}{"status": status}); err != nil {
				return err
			}
			return r.appendRemote(occID, role, lines)
		})
	} else {
		r.mu.Unlock()
	}
	return r.MoveToBay(role, id, bayID)
}

// ExitBay ends an order's bay session under the given next status.
func (r *Reconciler) ExitBay(role, id, next string) error {
	if !capability.CanAssignBay(role) {
		log.Printf("reconcile: bay exit denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil || !o.InBay() {
		r.mu.Unlock()
		return nil
	}
	lines := lifecycle.ExitBay(o, next, r.now())
	r.appendLocked(o, role, lines...)
	status, total := o.Status, o.TotalTimeInBay
	r.mu.Unlock()

	r.persist("exit bay", func() error {
		if err := r.store.AssignBay(id, nil, total, nil); err != nil {
			return err
		}
		if err := r.store.UpdateOrder(id, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// Settle records payment on a DONE order, archiving it.
func (r *Reconciler) Settle(role, id, method string, amount float64) error {
	if !capability.CanChangePayment(role) {
		log.Printf("reconcile: settlement denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	lines, err := lifecycle.Settle(o, method, amount, r.now())
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.appendLocked(o, role, lines...)
	fields := map[string]interface{}{
		"payment_method": o.PaymentMethod,
		"payment_amount": o.PaymentAmount,
		"settled_at":     o.SettledAt,
	}
	r.mu.Unlock()

	r.persist("settle", func() error {
		if err := r.store.UpdateOrder(id, fields); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// VoidNoRepair archives an order as abandoned with no charge.
func (r *Reconciler) VoidNoRepair(role, id string) error {
	return r.Settle(role, id, models.PaymentAbandoned, 0)
}

// Restore pulls an archived order back into the workflow.
func (r *Reconciler) Restore(role, id string) error {
	if !capability.CanChangePayment(role) {
		log.Printf("reconcile: restore denied for role %s", role)
		return ErrDenied
	}
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	lines, err := lifecycle.Restore(o, r.now())
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.appendLocked(o, role, lines...)
	r.mu.Unlock()

	r.persist("restore", func() error {
		fields := map[string]interface{}{
			"payment_method": nil,
			"payment_amount": nil,
			"settled_at":     nil,
			"status":         models.StatusTodo,
		}
		if err := r.store.UpdateOrder(id, fields); err != nil {
			return err
		}
		return r.appendRemote(id, role, lines)
	})
	return nil
}

// UpdateOrder applies field edits to an order. Each changed field logs
// its own line; an id rename carries the timeline and attachments along.
func (r *Reconciler) UpdateOrder(role, id string, e lifecycle.Edits) error {
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	lines := lifecycle.ApplyEdits(o, e)
	r.appendLocked(o, role, lines...)
	newID := o.ID
	fields := editFields(o, e)
	r.mu.Unlock()

	r.persist("update order", func() error {
		if newID != id {
			if err := r.store.RenameOrder(id, newID); err != nil {
				return err
			}
		}
		if len(fields) > 0 {
			if err := r.store.UpdateOrder(newID, fields); err != nil {
				return err
			}
		}
		return r.appendRemote(newID, role, lines)
	})
	return nil
}

// editFields maps the non-nil edits onto their columns, reading the
// post-apply values off the order.
func editFields(o *models.RepairOrder, e lifecycle.Edits) map[string]interface{} {
	fields := map[string]interface{}{}
	if e.Model != nil {
		fields["model"] = o.Model
	}
	if e.VIN != nil {
		fields["vin"] = o.VIN
	}
	if e.CustomerName != nil {
		fields["customer_name"] = o.CustomerName
	}
	if e.Phone != nil {
		fields["phone"] = o.Phone
	}
	if e.Urgent != nil {
		fields["urgent"] = o.Urgent
	}
	if e.Mileage != nil {
		fields["mileage"] = o.Mileage
	}
	if e.DeliveryDate != nil {
		fields["delivery_date"] = o.DeliveryDate
	}
	if e.Info != nil {
		fields["info"] = o.Info
	}
	if e.InsuranceCase != nil {
		fields["insurance_case"] = o.InsuranceCase
	}
	return fields
}

// MarkRead clears role's unread flag on an order and snapshots the info
// text it has now seen.
func (r *Reconciler) MarkRead(role, id string) error {
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	lifecycle.MarkRead(o, role)
	fields := map[string]interface{}{
		"unread_by":      o.UnreadBy,
		"last_read_info": o.LastReadInfo,
	}
	r.mu.Unlock()

	r.persist("mark read", func() error {
		return r.store.UpdateOrder(id, fields)
	})
	return nil
}
