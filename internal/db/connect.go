// Package db owns persistence for Shopflow: connections, migrations, and
// the gorm-backed store the reconciler writes through. The remote system
// of record is MySQL; a local sqlite file serves as the durable fallback
// when no remote backend is configured.
package db

import (
	"fmt"

	sqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ckshop/shopflow/internal/config"
)

// DSN builds the MySQL DSN for the remote backend.
func DSN(cfg config.DatabaseConfig) string {
	mc := sqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Connect opens the configured database: MySQL when a remote host is set,
// the sqlite fallback file otherwise.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gc := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Remote() {
		gdb, err := gorm.Open(mysql.Open(DSN(cfg)), gc)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
		return gdb, nil
	}
	gdb, err := gorm.Open(sqlite.Open(cfg.Path), gc)
	if err != nil {
		return nil, fmt.Errorf("db: open local store %s: %w", cfg.Path, err)
	}
	return gdb, nil
}
