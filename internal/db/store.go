package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ckshop/shopflow/internal/models"
)

// ErrNotFound reports an id absent from the backend.
var ErrNotFound = errors.New("db: not found")

// BayKeys translates between the shop's numeric bay ids and the backend's
// opaque row keys. It is rebuilt on every bay list fetch and passed
// explicitly to whoever needs the translation.
type BayKeys struct {
	byID  map[int]string
	byKey map[string]int
}

// NewBayKeys builds the translation table from a bay list. Rows without
// a backend key are skipped.
func NewBayKeys(bays []models.Bay) BayKeys {
	keys := BayKeys{byID: make(map[int]string, len(bays)), byKey: make(map[string]int, len(bays))}
	for _, b := range bays {
		if b.RowKey != "" {
			keys.byID[b.ID] = b.RowKey
			keys.byKey[b.RowKey] = b.ID
		}
	}
	return keys
}

// Key returns the backend row key for a numeric bay id.
func (k BayKeys) Key(id int) (string, bool) {
	key, ok := k.byID[id]
	return key, ok
}

// ID returns the numeric bay id for a backend row key.
func (k BayKeys) ID(key string) (int, bool) {
	id, ok := k.byKey[key]
	return id, ok
}

// Store is the gorm-backed system of record.
type Store struct {
	gdb *gorm.DB
}

// NewStore wraps an open database connection.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{gdb: gdb}
}

// ListOrders returns every repair order with its timelines attached,
// ordered by creation index.
func (s *Store) ListOrders() ([]models.RepairOrder, error) {
	var orders []models.RepairOrder
	err := s.gdb.
		Preload("Logs", func(g *gorm.DB) *gorm.DB { return g.Order("log_entries.id ASC") }).
		Preload("Attachments").
		Order("order_index ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("db: list orders: %w", err)
	}
	return orders, nil
}

// ListBays returns the bay rows in seed order along with a freshly built
// key translation table.
func (s *Store) ListBays() ([]models.Bay, BayKeys, error) {
	var bays []models.Bay
	if err := s.gdb.Order("sort_order ASC, id ASC").Find(&bays).Error; err != nil {
		return nil, BayKeys{}, fmt.Errorf("db: list bays: %w", err)
	}
	return bays, NewBayKeys(bays), nil
}

// CreateOrder inserts a new repair order row.
func (s *Store) CreateOrder(o *models.RepairOrder) error {
	if err := s.gdb.Create(o).Error; err != nil {
		return fmt.Errorf("db: create order %s: %w", o.ID, err)
	}
	return nil
}

// UpdateOrder writes the given column values on one order.
func (s *Store) UpdateOrder(id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.gdb.Model(&models.RepairOrder{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("db: update order %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("db: update order %s: %w", id, ErrNotFound)
	}
	return nil
}

// RenameOrder changes an order's id, carrying its timeline rows along.
func (s *Store) RenameOrder(oldID, newID string) error {
	err := s.gdb.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RepairOrder{}).Where("id = ?", oldID).Update("id", newID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.LogEntry{}).Where("order_id = ?", oldID).Update("order_id", newID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Attachment{}).Where("order_id = ?", oldID).Update("order_id", newID).Error
	})
	if err != nil {
		return fmt.Errorf("db: rename order %s to %s: %w", oldID, newID, err)
	}
	return nil
}

// AssignBay writes the bay linkage and time accounting in one update.
// A nil bayID is a bay exit: the session start clears with the link.
func (s *Store) AssignBay(orderID string, bayID *int, totalMs int64, lastEntered *time.Time) error {
	fields := map[string]interface{}{
		"bay_id":              bayID,
		"last_entered_bay_at": lastEntered,
		"total_time_in_bay":   totalMs,
	}
	if bayID != nil {
		// Entering a bay releases the card's grid slot.
		fields["grid_position"] = nil
	}
	return s.UpdateOrder(orderID, fields)
}

// AppendLog inserts one timeline entry and marks the other roles unread.
func (s *Store) AppendLog(entry models.LogEntry) (models.LogEntry, error) {
	if entry.Category == "" {
		entry.Category = models.CategoryActivity
	}
	err := s.gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		var o models.RepairOrder
		if err := tx.Select("id", "unread_by").Where("id = ?", entry.OrderID).First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		for _, role := range models.AllRoles {
			if role != entry.User {
				o.MarkUnreadFor(role)
			}
		}
		return tx.Model(&models.RepairOrder{}).Where("id = ?", entry.OrderID).Update("unread_by", o.UnreadBy).Error
	})
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("db: append log for %s: %w", entry.OrderID, err)
	}
	return entry, nil
}

// ListEvents returns all calendar events ordered by start time.
func (s *Store) ListEvents() ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := s.gdb.Order("start ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("db: list events: %w", err)
	}
	return events, nil
}

// SaveEvent upserts a calendar event.
func (s *Store) SaveEvent(ev models.CalendarEvent) error {
	if err := s.gdb.Save(&ev).Error; err != nil {
		return fmt.Errorf("db: save event %s: %w", ev.ID, err)
	}
	return nil
}

// LoadColumnOrder returns the persisted ordering for an audience, nil
// when none has been saved yet.
func (s *Store) LoadColumnOrder(audience string) ([]string, error) {
	var row models.ColumnOrder
	err := s.gdb.Where("audience = ?", audience).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: load column order %s: %w", audience, err)
	}
	return decodeColumns(row.Columns), nil
}

// SaveColumnOrder persists the ordering for an audience.
func (s *Store) SaveColumnOrder(audience string, columns []string) error {
	row := models.ColumnOrder{Audience: audience, Columns: encodeColumns(columns)}
	if err := s.gdb.Save(&row).Error; err != nil {
		return fmt.Errorf("db: save column order %s: %w", audience, err)
	}
	return nil
}

func encodeColumns(columns []string) string {
	data, err := json.Marshal(columns)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeColumns(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
