package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ckshop/shopflow/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.RepairOrder{},
		&models.Bay{},
		&models.LogEntry{},
		&models.Attachment{},
		&models.CalendarEvent{},
		&models.ColumnOrder{},
	}
}

// AutoMigrate creates or updates all tables, then rewrites legacy status
// values left by older writers.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	if err := migrateLegacyStatuses(gdb); err != nil {
		return err
	}
	return nil
}

// migrateLegacyStatuses folds the retired INSURANCE status into the
// insurance flag and retires ORDER_LIST rows to DONE.
func migrateLegacyStatuses(gdb *gorm.DB) error {
	if err := gdb.Model(&models.RepairOrder{}).
		Where("status = ?", models.StatusInsurance).
		Updates(map[string]interface{}{"status": models.StatusTodo, "insurance_case": true}).Error; err != nil {
		return fmt.Errorf("db: migrate insurance rows: %w", err)
	}
	if err := gdb.Model(&models.RepairOrder{}).
		Where("status = ?", "ORDER_LIST").
		Update("status", models.StatusDone).Error; err != nil {
		return fmt.Errorf("db: migrate order-list rows: %w", err)
	}
	return nil
}

// DefaultBays is the physical layout of the shop: six mechanic bays and
// the three body-shop stations with their fixed entry statuses.
var DefaultBays = []models.Bay{
	{ID: 1, RowKey: "bay-0001", Name: "Bay 1", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 0},
	{ID: 2, RowKey: "bay-0002", Name: "Bay 2", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 1},
	{ID: 3, RowKey: "bay-0003", Name: "Bay 3", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 2},
	{ID: 4, RowKey: "bay-0004", Name: "Bay 4", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 3},
	{ID: 5, RowKey: "bay-0005", Name: "Bay 5", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 4},
	{ID: 6, RowKey: "bay-0006", Name: "Oil Changer", WorkType: models.WorkTypeMechanic, EntryStatus: models.StatusInProgress, SortOrder: 5},
	{ID: 7, RowKey: "bay-0007", Name: "Body Work", WorkType: models.WorkTypeBody, EntryStatus: models.StatusBodyWork, SortOrder: 6},
	{ID: 8, RowKey: "bay-0008", Name: "Painting and Prep", WorkType: models.WorkTypeBody, EntryStatus: models.StatusPainting, SortOrder: 7},
	{ID: 9, RowKey: "bay-0009", Name: "Mechanic Shop To-do", WorkType: models.WorkTypeBody, EntryStatus: models.StatusMechanicWork, SortOrder: 8},
}

// SeedBays upserts the default bay rows, preserving any renames.
func SeedBays(gdb *gorm.DB) error {
	for _, bay := range DefaultBays {
		result := gdb.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"work_type", "entry_status", "sort_order"}),
		}).Create(&bay)
		if result.Error != nil {
			return fmt.Errorf("db: seed bay %d: %w", bay.ID, result.Error)
		}
	}
	return nil
}
