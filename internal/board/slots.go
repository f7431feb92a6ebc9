// Package board derives the rendered kanban layout from the order
// collection: slot assignment within a column and the column ordering
// itself. Everything here is a pure function of its inputs so re-running
// on unchanged data never moves a card the user didn't touch.
package board

import (
	"sort"

	"github.com/ckshop/shopflow/internal/models"
)

// RowSize is the card count per visual row; capacity grows in whole rows.
const RowSize = 8

// Capacity returns the grid size for a column holding n cards: the
// smallest multiple of RowSize that fits them, never less than one row.
func Capacity(n int) int {
	if n <= RowSize {
		return RowSize
	}
	return (n + RowSize - 1) / RowSize * RowSize
}

// AssignSlots places the orders of one column into a grid of the given
// capacity. Orders with an explicit in-range GridPosition get that exact
// slot, first writer wins; everything else (no position, out of range, or
// lost a collision) fills the lowest empty slots in stable order. Every
// input order lands in some slot as long as capacity >= len(orders).
func AssignSlots(orders []*models.RepairOrder, capacity int) []*models.RepairOrder {
	sorted := make([]*models.RepairOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return slotLess(sorted[i], sorted[j])
	})

	result := make([]*models.RepairOrder, capacity)
	placed := make(map[string]bool, len(sorted))

	for _, o := range sorted {
		p := o.GridPosition
		if p != nil && *p >= 0 && *p < capacity && result[*p] == nil {
			result[*p] = o
			placed[o.ID] = true
		}
	}

	slot := 0
	for _, o := range sorted {
		if placed[o.ID] {
			continue
		}
		for slot < capacity && result[slot] != nil {
			slot++
		}
		if slot < capacity {
			result[slot] = o
			placed[o.ID] = true
			slot++
		}
	}
	return result
}

// slotLess is the stable placement order: explicit position ascending
// (absent sorts last), then the creation-time order index, then id.
func slotLess(a, b *models.RepairOrder) bool {
	ap, bp := posOrMax(a), posOrMax(b)
	if ap != bp {
		return ap < bp
	}
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex < b.OrderIndex
	}
	return a.ID < b.ID
}

func posOrMax(o *models.RepairOrder) int {
	if o.GridPosition == nil {
		return int(^uint(0) >> 1)
	}
	return *o.GridPosition
}

// FindEviction returns the id of the order currently holding the explicit
// (status, gridPosition) slot that dropped is claiming, on dropped's board.
// The occupant is demoted to automatic placement rather than the drop being
// rejected; empty string means the slot is free.
func FindEviction(orders []*models.RepairOrder, dropped *models.RepairOrder, status string, gridPosition int) string {
	for _, o := range orders {
		if o.ID == dropped.ID || o.WorkType != dropped.WorkType {
			continue
		}
		if o.Status == status && o.GridPosition != nil && *o.GridPosition == gridPosition {
			return o.ID
		}
	}
	return ""
}
