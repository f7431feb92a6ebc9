package reconcile

import (
	"log"

	"github.com/ckshop/shopflow/internal/board"
)

// Columns returns the sanitized column order for a role within a module.
// A load failure or an emptied list falls back to the built-in default.
func (r *Reconciler) Columns(role, workType string) []string {
	audience := board.AudienceFor(role, workType)
	fallback := board.DefaultColumns(audience)
	loaded, err := r.store.LoadColumnOrder(audience)
	if err != nil {
		log.Printf("reconcile: load column order for %s: %v (using defaults)", audience, err)
		return fallback
	}
	return board.SanitizeColumns(loaded, fallback)
}

// ReorderColumns moves dragged immediately before target and saves the
// result. The reordered list is returned either way; a failed save keeps
// the local result and logs.
func (r *Reconciler) ReorderColumns(role, workType, dragged, target string) []string {
	audience := board.AudienceFor(role, workType)
	next := board.Reorder(r.Columns(role, workType), dragged, target)
	if err := r.store.SaveColumnOrder(audience, next); err != nil {
		log.Printf("reconcile: save column order for %s: %v (keeping local order)", audience, err)
	}
	r.fireChange()
	return next
}
