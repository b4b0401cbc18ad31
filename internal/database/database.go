// Package database opens CherryTree notebook stores through GORM.
// Callers own the returned handle and pass it explicitly to the store layer;
// there is no package-level connection.
package database

import (
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// Options control how a store is opened
type Options struct {
	// ReadOnly opens the notebook with mode=ro and query_only
	ReadOnly bool
	// Create allows opening a path that does not exist yet (fixtures, tests)
	Create bool
}

// Open opens the notebook at path with the SQLite driver.
func Open(path string, opts Options) (*gorm.DB, error) {
	return OpenWithDriver(&SQLiteDriver{}, path, opts)
}

// OpenWithDriver opens the notebook at path using the given driver.
func OpenWithDriver(driver Driver, path string, opts Options) (*gorm.DB, error) {
	logger.Debug("Opening notebook store", zap.String("path", path), zap.String("driver", driver.Name()))

	if !opts.Create {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.ErrNotFound("notebook " + path)
			}
			return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to stat notebook", err)
		}
		if info.IsDir() {
			return nil, errors.New(errors.ErrCodeInvalidInput, path+" is a directory, not a notebook")
		}
	}

	dialector, err := driver.Open(path, opts.ReadOnly)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open notebook", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to notebook", err)
	}

	if err := driver.Configure(db, opts.ReadOnly); err != nil {
		Close(db)
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure connection", err)
	}

	return db, nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the store
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
