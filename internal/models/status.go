package models

// Stored statuses, persisted verbatim in repair_orders.status.
const (
	StatusTodo         = "TODO"
	StatusPending      = "PENDING"
	StatusInProgress   = "IN_PROGRESS"
	StatusDone         = "DONE"
	StatusBodyWork     = "BODY_WORK"
	StatusPainting     = "PAINTING"
	StatusFinishingUp  = "FINISHING_UP"
	StatusMechanicWork = "MECHANIC_WORK"
)

// Display-only statuses. Never written to the status column: ARCHIVED is
// DONE plus a settlement, INSURANCE is a legacy value folded into the
// insurance flag on write.
const (
	StatusArchived  = "ARCHIVED"
	StatusInsurance = "INSURANCE"
)

// StoredStatuses lists every status the database may hold, in canonical order.
var StoredStatuses = []string{
	StatusTodo,
	StatusPending,
	StatusInProgress,
	StatusDone,
	StatusBodyWork,
	StatusPainting,
	StatusFinishingUp,
	StatusMechanicWork,
}

// IsStored reports whether s is a status that may be persisted verbatim.
func IsStored(s string) bool {
	for _, v := range StoredStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// StorageForm is the persisted rendering of a display status.
type StorageForm struct {
	Status        string
	InsuranceCase bool
}

// ToStorageForm maps a display status onto its persisted form. ARCHIVED
// stores as DONE (the settlement fields carry the rest), the legacy
// INSURANCE value stores as TODO with the insurance flag raised, and any
// unknown value falls back to TODO.
func ToStorageForm(display string) StorageForm {
	switch display {
	case StatusArchived:
		return StorageForm{Status: StatusDone}
	case StatusInsurance:
		return StorageForm{Status: StatusTodo, InsuranceCase: true}
	default:
		if IsStored(display) {
			return StorageForm{Status: display}
		}
		return StorageForm{Status: StatusTodo}
	}
}

// FromStorageForm reconstructs the display status from persisted fields:
// DONE with a settlement reads back as ARCHIVED.
func FromStorageForm(stored string, settled bool) string {
	if stored == StatusDone && settled {
		return StatusArchived
	}
	if IsStored(stored) {
		return stored
	}
	return StatusTodo
}

// DisplayStatus returns the status the board shows for o.
func (o *RepairOrder) DisplayStatus() string {
	return FromStorageForm(o.Status, o.SettledAt != nil)
}

// Archived reports whether o is done and financially settled (or voided).
func (o *RepairOrder) Archived() bool {
	return o.DisplayStatus() == StatusArchived
}
