package models

import (
	"encoding/json"
	"time"
)

// CalendarVIN marks an order materialized from a calendar event; VIN
// decoding treats it the same as a missing VIN.
const CalendarVIN = "CALENDAR_SYNC"

// RepairOrder is the core work item in Shopflow.
type RepairOrder struct {
	ID           string `gorm:"primaryKey;size:32"`
	WorkType     string `gorm:"size:16;default:MECHANIC;index"`
	Status       string `gorm:"size:16;default:TODO;index"`
	Model        string `gorm:"size:128"`
	VIN          string `gorm:"size:32"`
	CustomerName string `gorm:"size:128"`
	Phone        string `gorm:"size:32"`
	Info         string `gorm:"type:text"`
	Urgent       bool   `gorm:"default:false"`
	Mileage      *int
	DeliveryDate *time.Time

	// Board placement. OrderIndex is the stable fallback sort key assigned
	// at creation; GridPosition is the user-chosen slot within the status
	// column, nil for automatic placement.
	OrderIndex   int `gorm:"default:0"`
	GridPosition *int

	// Bay occupancy. BayID and LastEnteredBayAt are set together or not at
	// all; TotalTimeInBay accumulates milliseconds across past sessions and
	// only grows when a session ends.
	BayID            *int `gorm:"index"`
	LastEnteredBayAt *time.Time
	TotalTimeInBay   int64 `gorm:"default:0"`

	// Settlement. All absent until the order is settled; DONE plus a
	// non-nil SettledAt is what reads back as ARCHIVED.
	PaymentMethod *string `gorm:"size:16"`
	PaymentAmount *float64
	SettledAt     *time.Time

	InsuranceCase   bool    `gorm:"default:false"`
	CalendarEventID *string `gorm:"size:64;index"`
	DecodedData     string  `gorm:"type:json"`
	UnreadBy        string  `gorm:"type:json"`
	LastReadInfo    string  `gorm:"type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Logs        []LogEntry   `gorm:"foreignKey:OrderID"`
	Attachments []Attachment `gorm:"foreignKey:OrderID"`
}

// TableName keeps the historical table name.
func (RepairOrder) TableName() string { return "repair_orders" }

// InBay reports whether the order currently occupies a bay.
func (o *RepairOrder) InBay() bool { return o.BayID != nil }

// Settled reports whether settlement fields are present.
func (o *RepairOrder) Settled() bool { return o.SettledAt != nil }

// UnreadRoles decodes the set of roles with unviewed changes.
func (o *RepairOrder) UnreadRoles() []string {
	return decodeStringSlice(o.UnreadBy)
}

// SetUnreadRoles replaces the unread-role set.
func (o *RepairOrder) SetUnreadRoles(roles []string) {
	o.UnreadBy = encodeJSON(roles)
}

// MarkUnreadFor adds roles to the unread set, keeping entries unique.
func (o *RepairOrder) MarkUnreadFor(roles ...string) {
	current := o.UnreadRoles()
	for _, r := range roles {
		seen := false
		for _, c := range current {
			if c == r {
				seen = true
				break
			}
		}
		if !seen {
			current = append(current, r)
		}
	}
	o.SetUnreadRoles(current)
}

// ClearUnread removes a role from the unread set.
func (o *RepairOrder) ClearUnread(role string) {
	current := o.UnreadRoles()
	next := current[:0]
	for _, c := range current {
		if c != role {
			next = append(next, c)
		}
	}
	o.SetUnreadRoles(next)
}

// UnreadFor reports whether role has unviewed changes on this order.
func (o *RepairOrder) UnreadFor(role string) bool {
	for _, r := range o.UnreadRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// LastRead decodes the per-role snapshot of Info taken at last read.
func (o *RepairOrder) LastRead() map[string]string {
	if o.LastReadInfo == "" {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(o.LastReadInfo), &m); err != nil || m == nil {
		return map[string]string{}
	}
	return m
}

// SetLastRead replaces the per-role last-read snapshot.
func (o *RepairOrder) SetLastRead(m map[string]string) {
	o.LastReadInfo = encodeJSON(m)
}

// VehicleSpecs is the structured result of a VIN decode, cached on the order.
type VehicleSpecs struct {
	Year         string `json:"year,omitempty"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Engine       string `json:"engine,omitempty"`
	Trim         string `json:"trim,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Drivetrain   string `json:"drivetrain,omitempty"`
	BodyStyle    string `json:"body_style,omitempty"`
	Plant        string `json:"plant,omitempty"`
	DecodedAt    string `json:"decoded_at,omitempty"`
}

// Decoded returns the cached VIN decode, or nil when none is stored.
func (o *RepairOrder) Decoded() *VehicleSpecs {
	if o.DecodedData == "" {
		return nil
	}
	var v VehicleSpecs
	if err := json.Unmarshal([]byte(o.DecodedData), &v); err != nil {
		return nil
	}
	return &v
}

// SetDecoded caches a VIN decode on the order.
func (o *RepairOrder) SetDecoded(v *VehicleSpecs) {
	if v == nil {
		o.DecodedData = ""
		return
	}
	o.DecodedData = encodeJSON(v)
}

func decodeStringSlice(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func encodeJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
