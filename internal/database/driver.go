package database

import "gorm.io/gorm"

// Driver opens a notebook store. Only SQLite notebooks exist today; the
// interface keeps the open/configure steps testable in isolation.
type Driver interface {
	// Name returns the driver name (e.g., "sqlite")
	Name() string

	// Open returns a GORM dialector for the store at path
	Open(path string, readOnly bool) (gorm.Dialector, error)

	// Configure applies connection settings after the connection is established
	Configure(db *gorm.DB, readOnly bool) error
}
