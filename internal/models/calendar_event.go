package models

import "time"

// CalendarEvent is a scheduled appointment. Events starting today drive
// zero-touch order creation.
type CalendarEvent struct {
	ID          string `gorm:"primaryKey;size:64"`
	Title       string `gorm:"size:256"`
	Description string `gorm:"type:text"`
	Start       time.Time
	End         time.Time
}

// ColumnOrder persists a kanban column ordering for one audience: the
// advisor, foreman, or owner view of the mechanic board, or the shared
// body-shop board.
type ColumnOrder struct {
	Audience  string `gorm:"primaryKey;size:16"`
	Columns   string `gorm:"type:json"`
	UpdatedAt time.Time
}

// Column-order audiences.
const (
	AudienceAdvisor = "advisor"
	AudienceForeman = "foreman"
	AudienceOwner   = "owner"
	AudienceBody    = "body"
)
