package store

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/verustcode/ctreport/internal/database"
	"github.com/verustcode/ctreport/internal/model"
)

// Fixture builds a throwaway notebook for tests. Node IDs are assigned in
// insertion order starting at 1; siblings get increasing sequence numbers.
type Fixture struct {
	t      *testing.T
	path   string
	db     *gorm.DB
	nextID int64
	seq    map[int64]int
}

// NewFixture creates an empty notebook with the CherryTree tables in a temp dir.
// The connection is closed automatically when the test ends.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.ctb")
	db, err := database.Open(path, database.Options{Create: true})
	if err != nil {
		t.Fatalf("Failed to create fixture notebook: %v", err)
	}
	if err := db.AutoMigrate(model.NotebookModels()...); err != nil {
		database.Close(db)
		t.Fatalf("Failed to migrate fixture notebook: %v", err)
	}

	f := &Fixture{t: t, path: path, db: db, nextID: 1, seq: map[int64]int{}}
	t.Cleanup(func() { database.Close(f.db) })
	return f
}

// Path returns the notebook file path
func (f *Fixture) Path() string { return f.path }

// DB returns the writable fixture connection
func (f *Fixture) DB() *gorm.DB { return f.db }

// Store returns a Store over the fixture connection
func (f *Fixture) Store() Store { return NewStore(f.db) }

// AddNode inserts a node under parent (0 for a top-level node) and returns its ID.
func (f *Fixture) AddNode(parent int64, name, text string) int64 {
	f.t.Helper()

	id := f.nextID
	f.nextID++

	if err := f.db.Create(&model.NodeRow{NodeID: id, Name: name, Txt: text}).Error; err != nil {
		f.t.Fatalf("Failed to insert node %q: %v", name, err)
	}

	f.seq[parent]++
	child := &model.ChildRow{NodeID: id, FatherID: parent, Sequence: f.seq[parent]}
	if err := f.db.Create(child).Error; err != nil {
		f.t.Fatalf("Failed to link node %q: %v", name, err)
	}
	return id
}

// AddImage anchors an image in a node at the given character offset
func (f *Fixture) AddImage(nodeID int64, offset int, png []byte) {
	f.t.Helper()
	if err := f.db.Create(&model.ImageRow{NodeID: nodeID, Offset: offset, PNG: png}).Error; err != nil {
		f.t.Fatalf("Failed to insert image: %v", err)
	}
}

// AddCodebox anchors a code box in a node at the given character offset
func (f *Fixture) AddCodebox(nodeID int64, offset int, text string) {
	f.t.Helper()
	row := &model.CodeboxRow{NodeID: nodeID, Offset: offset, Txt: text, Syntax: "sh"}
	if err := f.db.Create(row).Error; err != nil {
		f.t.Fatalf("Failed to insert code box: %v", err)
	}
}

// Close releases the fixture connection so the file can be reopened read-only
func (f *Fixture) Close() {
	database.Close(f.db)
}
