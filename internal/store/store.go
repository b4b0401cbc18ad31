// Package store provides the data access layer over a CherryTree notebook.
// It turns node, children, image and codebox rows into normalized model
// values and hides the SQL behind small interfaces.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/pkg/errors"
)

// Store aggregates all data store interfaces.
type Store interface {
	Nodes() NodeStore

	// DB returns the underlying database connection for advanced operations.
	DB() *gorm.DB

	// Snapshot runs fn inside one read transaction so every query it makes
	// observes the same state of the notebook.
	Snapshot(ctx context.Context, fn func(Store) error) error

	// CheckSchema verifies the notebook tables exist.
	CheckSchema() error
}

type gormStore struct {
	db        *gorm.DB
	nodeStore NodeStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:        db,
		nodeStore: newNodeStore(db),
	}
}

func (s *gormStore) Nodes() NodeStore {
	return s.nodeStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Snapshot(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{
			db:        tx,
			nodeStore: newNodeStore(tx),
		})
	})
}

func (s *gormStore) CheckSchema() error {
	var missing []string
	for _, table := range model.NotebookTables() {
		if !s.db.Migrator().HasTable(table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeDBSchema, "notebook is missing required tables").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
