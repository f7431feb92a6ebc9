package board

import (
	"reflect"
	"testing"

	"github.com/ckshop/shopflow/internal/models"
)

func intp(v int) *int { return &v }

func ro(id string, orderIndex int, gridPos *int) *models.RepairOrder {
	return &models.RepairOrder{
		ID:           id,
		WorkType:     models.WorkTypeMechanic,
		Status:       models.StatusTodo,
		OrderIndex:   orderIndex,
		GridPosition: gridPos,
	}
}

func slotIDs(slots []*models.RepairOrder) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		if s != nil {
			out[i] = s.ID
		}
	}
	return out
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 8}, {1, 8}, {8, 8}, {9, 16}, {16, 16}, {17, 24}, {100, 104},
	}
	for _, tt := range tests {
		if got := Capacity(tt.n); got != tt.want {
			t.Errorf("Capacity(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestAssignSlots_ExplicitPositions(t *testing.T) {
	orders := []*models.RepairOrder{
		ro("RO-1", 0, intp(3)),
		ro("RO-2", 1, nil),
		ro("RO-3", 2, intp(0)),
	}
	got := slotIDs(AssignSlots(orders, 8))
	want := []string{"RO-3", "RO-2", "", "RO-1", "", "", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssignSlots = %v, want %v", got, want)
	}
}

func TestAssignSlots_CollisionFirstWriterWins(t *testing.T) {
	// Both claim slot 2. RO-A has the lower order index so it sorts first
	// and keeps the slot; RO-B falls through to the first free slot.
	orders := []*models.RepairOrder{
		ro("RO-B", 5, intp(2)),
		ro("RO-A", 1, intp(2)),
	}
	got := slotIDs(AssignSlots(orders, 8))
	want := []string{"RO-B", "", "RO-A", "", "", "", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssignSlots = %v, want %v", got, want)
	}
}

func TestAssignSlots_OutOfRangePositionGoesAuto(t *testing.T) {
	orders := []*models.RepairOrder{
		ro("RO-1", 0, intp(40)),
		ro("RO-2", 1, intp(-2)),
	}
	slots := AssignSlots(orders, 8)
	got := slotIDs(slots)
	want := []string{"RO-2", "RO-1", "", "", "", "", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssignSlots = %v, want %v", got, want)
	}
}

func TestAssignSlots_NoOrderDropped(t *testing.T) {
	// 9 orders, two colliding explicit claims, capacity sized to fit.
	var orders []*models.RepairOrder
	for i := 0; i < 9; i++ {
		orders = append(orders, ro("RO-"+string(rune('A'+i)), i, nil))
	}
	orders[3].GridPosition = intp(5)
	orders[7].GridPosition = intp(5)

	slots := AssignSlots(orders, Capacity(len(orders)))
	placed := make(map[string]bool)
	for _, s := range slots {
		if s != nil {
			if placed[s.ID] {
				t.Fatalf("order %s placed twice", s.ID)
			}
			placed[s.ID] = true
		}
	}
	if len(placed) != len(orders) {
		t.Errorf("placed %d of %d orders", len(placed), len(orders))
	}
}

func TestAssignSlots_Deterministic(t *testing.T) {
	orders := []*models.RepairOrder{
		ro("RO-3", 2, intp(1)),
		ro("RO-1", 2, nil),
		ro("RO-2", 2, nil),
		ro("RO-4", 0, intp(1)),
	}
	first := slotIDs(AssignSlots(orders, 8))
	for i := 0; i < 20; i++ {
		if got := slotIDs(AssignSlots(orders, 8)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestAssignSlots_TieBreakByID(t *testing.T) {
	// Same order index, no positions: id decides.
	orders := []*models.RepairOrder{
		ro("RO-B", 0, nil),
		ro("RO-A", 0, nil),
	}
	got := slotIDs(AssignSlots(orders, 8))
	if got[0] != "RO-A" || got[1] != "RO-B" {
		t.Errorf("tie break wrong: %v", got)
	}
}

func TestFindEviction(t *testing.T) {
	occupant := ro("RO-A", 0, intp(4))
	dropped := ro("RO-B", 1, nil)
	otherBoard := ro("RO-C", 2, intp(4))
	otherBoard.WorkType = models.WorkTypeBody
	orders := []*models.RepairOrder{occupant, dropped, otherBoard}

	if got := FindEviction(orders, dropped, models.StatusTodo, 4); got != "RO-A" {
		t.Errorf("FindEviction = %q, want RO-A", got)
	}
	if got := FindEviction(orders, dropped, models.StatusTodo, 5); got != "" {
		t.Errorf("free slot should evict nobody, got %q", got)
	}
	if got := FindEviction(orders, dropped, models.StatusDone, 4); got != "" {
		t.Errorf("different column should evict nobody, got %q", got)
	}
	// Dropping the occupant onto its own slot is not an eviction.
	if got := FindEviction(orders, occupant, models.StatusTodo, 4); got != "" {
		t.Errorf("self-drop should evict nobody, got %q", got)
	}
}
