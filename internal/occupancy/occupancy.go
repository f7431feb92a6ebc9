// Package occupancy is the read-side projection of bay usage: which order
// holds which bay, and the running session clocks. It owns no state and is
// recomputed from the order collection on every tick.
package occupancy

import (
	"time"

	"github.com/ckshop/shopflow/internal/models"
)

// Occupant returns the order currently referencing bayID, or nil.
func Occupant(orders []*models.RepairOrder, bayID int) *models.RepairOrder {
	for _, o := range orders {
		if o.BayID != nil && *o.BayID == bayID {
			return o
		}
	}
	return nil
}

// Snapshot pairs a bay with its current occupant and live clocks.
type Snapshot struct {
	Bay            models.Bay
	Order          *models.RepairOrder
	SessionElapsed time.Duration
	LifetimeTotal  time.Duration
}

// Project derives the occupancy view for every bay at the given instant.
// Bays come back in seed order.
func Project(bays []models.Bay, orders []*models.RepairOrder, now time.Time) []Snapshot {
	out := make([]Snapshot, 0, len(bays))
	for _, b := range bays {
		snap := Snapshot{Bay: b}
		if o := Occupant(orders, b.ID); o != nil {
			snap.Order = o
			snap.SessionElapsed = SessionElapsed(o, now)
			snap.LifetimeTotal = LifetimeTotal(o, now)
		}
		out = append(out, snap)
	}
	return out
}

// SessionElapsed is the time spent in the current bay session, zero when
// the order is not in a bay.
func SessionElapsed(o *models.RepairOrder, now time.Time) time.Duration {
	if o.LastEnteredBayAt == nil {
		return 0
	}
	d := now.Sub(*o.LastEnteredBayAt)
	if d < 0 {
		return 0
	}
	return d
}

// LifetimeTotal is the accumulated bay time plus the running session.
func LifetimeTotal(o *models.RepairOrder, now time.Time) time.Duration {
	return time.Duration(o.TotalTimeInBay)*time.Millisecond + SessionElapsed(o, now)
}
