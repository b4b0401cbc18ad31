package database

import (
	"net/url"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/ctreport/pkg/logger"
)

// SQLiteDriver implements the Driver interface for CherryTree .ctb files
type SQLiteDriver struct{}

// Name returns the driver name
func (d *SQLiteDriver) Name() string {
	return "sqlite"
}

// Open builds a file: URI so mode=ro reaches SQLite untouched.
func (d *SQLiteDriver) Open(path string, readOnly bool) (gorm.Dialector, error) {
	return sqlite.Open(d.dsn(path, readOnly)), nil
}

func (d *SQLiteDriver) dsn(path string, readOnly bool) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if readOnly {
		u.RawQuery = "mode=ro"
	}
	return u.String()
}

// Configure pins the pool to one connection so every query of a run goes
// through the same SQLite handle, and forbids writes on read-only stores.
func (d *SQLiteDriver) Configure(db *gorm.DB, readOnly bool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if readOnly {
		if err := db.Exec("PRAGMA query_only = ON").Error; err != nil {
			logger.Warn("Failed to enable query_only", zap.Error(err))
		}
	}

	logger.Debug("SQLite connection configured",
		zap.Bool("read_only", readOnly),
		zap.Int("max_open_conns", 1),
	)
	return nil
}
