package db

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ckshop/shopflow/internal/models"
)

// DefaultWatchInterval is how often the watcher polls for remote changes.
const DefaultWatchInterval = 2 * time.Second

// Watcher polls the order and log tables and signals when another writer
// changed something. MySQL carries no push notifications, so change
// detection is a snapshot diff over the update stamps and log row ids.
type Watcher struct {
	gdb      *gorm.DB
	interval time.Duration
	notify   chan struct{}

	lastOrderStamp string
	lastOrderCount int64
	lastLogID      uint
	primed         bool
}

// NewWatcher creates a Watcher with the given poll interval (zero means
// DefaultWatchInterval).
func NewWatcher(gdb *gorm.DB, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{
		gdb:      gdb,
		interval: interval,
		notify:   make(chan struct{}, 1),
	}
}

// Notify returns the change channel. Sends are non-blocking: a slow
// consumer sees at most one pending signal, which is all a
// refetch-and-replace needs.
func (w *Watcher) Notify() <-chan struct{} { return w.notify }

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := w.poll()
			if err != nil {
				log.Printf("db: watch poll: %v", err)
				continue
			}
			if changed {
				select {
				case w.notify <- struct{}{}:
				default:
				}
			}
		}
	}
}

// poll compares the current table snapshot against the last one. The
// first poll only primes the snapshot. The stamp is compared as the raw
// string the driver hands back: an aggregate over a datetime column
// loses the column type, so sqlite returns text and mysql a time value,
// and the string form is the common denominator.
func (w *Watcher) poll() (bool, error) {
	var stamp struct {
		MaxStamp string
		Count    int64
	}
	err := w.gdb.Model(&models.RepairOrder{}).
		Select("COALESCE(MAX(updated_at), '') AS max_stamp, COUNT(*) AS count").
		Scan(&stamp).Error
	if err != nil {
		return false, err
	}
	var maxLog struct{ MaxID uint }
	err = w.gdb.Model(&models.LogEntry{}).
		Select("COALESCE(MAX(id), 0) AS max_id").
		Scan(&maxLog).Error
	if err != nil {
		return false, err
	}

	changed := w.primed &&
		(stamp.MaxStamp != w.lastOrderStamp ||
			stamp.Count != w.lastOrderCount ||
			maxLog.MaxID != w.lastLogID)

	w.lastOrderStamp = stamp.MaxStamp
	w.lastOrderCount = stamp.Count
	w.lastLogID = maxLog.MaxID
	w.primed = true
	return changed, nil
}
