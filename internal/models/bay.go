package models

// Bay is a physical work location an order can occupy. EntryStatus is the
// workflow status forced on an order when it rolls in: IN_PROGRESS for
// mechanic bays, and the fixed per-bay mapping for the body shop.
type Bay struct {
	ID          int    `gorm:"primaryKey"`
	RowKey      string `gorm:"size:64;uniqueIndex"`
	Name        string `gorm:"size:64;not null"`
	WorkType    string `gorm:"size:16;default:MECHANIC;index"`
	EntryStatus string `gorm:"size:16"`
	SortOrder   int    `gorm:"default:0"`
}

// EntryStatusOr returns the status an order takes on entering the bay,
// defaulting to IN_PROGRESS when no explicit mapping is seeded.
func (b *Bay) EntryStatusOr() string {
	if b.EntryStatus != "" {
		return b.EntryStatus
	}
	return StatusInProgress
}
