package reconcile

import (
	"github.com/ckshop/shopflow/internal/models"
)

// SetDecoded caches a VIN decode result on the order.
func (r *Reconciler) SetDecoded(id string, specs *models.VehicleSpecs) error {
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	o.SetDecoded(specs)
	decoded := o.DecodedData
	r.mu.Unlock()

	r.persist("cache vin decode", func() error {
		return r.store.UpdateOrder(id, map[string]interface{}{"decoded_data": decoded})
	})
	return nil
}

// AppendDiagnostic records one question-and-answer exchange on the
// order's diagnostic timeline, kept apart from the activity log.
func (r *Reconciler) AppendDiagnostic(role, id, question, answer string) error {
	r.mu.Lock()
	o := r.findLocked(id)
	if o == nil {
		r.mu.Unlock()
		return nil
	}
	now := r.now()
	entries := []models.LogEntry{
		{OrderID: o.ID, User: role, Kind: models.LogUser, Category: models.CategoryDiagnostic, Text: question, CreatedAt: now},
		{OrderID: o.ID, User: "AI", Kind: models.LogAI, Category: models.CategoryDiagnostic, Text: answer, CreatedAt: now},
	}
	o.Logs = append(o.Logs, entries...)
	r.mu.Unlock()

	r.persist("append diagnostic", func() error {
		for _, e := range entries {
			if _, err := r.store.AppendLog(e); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}
