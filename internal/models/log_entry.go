package models

import "time"

// Log entry kinds.
const (
	LogSystem = "SYSTEM"
	LogUser   = "USER"
	LogAI     = "AI"
)

// Log entry categories. The activity timeline and the AI diagnostic chat
// are stored in the same table, split by category on read.
const (
	CategoryActivity   = "activity"
	CategoryDiagnostic = "diagnostic"
)

// LogEntry is one line of an order's append-only timeline.
type LogEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	OrderID   string `gorm:"size:32;index"`
	User      string `gorm:"size:32"`
	Kind      string `gorm:"size:8;default:USER"`
	Category  string `gorm:"size:16;default:activity;index"`
	Text      string `gorm:"type:text"`
	ImageRef  string `gorm:"size:256"`
	CreatedAt time.Time
}

// Attachment is file metadata linked to an order; the bytes live in
// external storage behind StorageRef.
type Attachment struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	OrderID     string `gorm:"size:32;index"`
	Name        string `gorm:"size:256"`
	ContentType string `gorm:"size:64"`
	StorageRef  string `gorm:"size:256"`
	CreatedAt   time.Time
}
