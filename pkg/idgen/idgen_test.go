package idgen

import (
	"regexp"
	"testing"
	"time"
)

// TestNewID tests the NewID function
func TestNewID(t *testing.T) {
	t.Run("returns 20 character ID", func(t *testing.T) {
		id := NewID()
		if len(id) != 20 {
			t.Errorf("NewID() returned ID with length %d, want 20", len(id))
		}
	})

	t.Run("generates unique IDs", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := NewRunID()
			if ids[id] {
				t.Errorf("NewRunID() generated duplicate ID: %s", id)
			}
			ids[id] = true
		}
	})

	t.Run("generates URL-safe IDs", func(t *testing.T) {
		urlSafe := regexp.MustCompile(`^[a-z0-9]+$`)
		for i := 0; i < 100; i++ {
			if id := NewID(); !urlSafe.MatchString(id) {
				t.Errorf("NewID() returned non-URL-safe ID: %s", id)
			}
		}
	})
}

// TestRunTime tests timestamp extraction
func TestRunTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, ok := RunTime(NewRunID())
	if !ok {
		t.Fatal("RunTime() should parse a fresh run ID")
	}
	if ts.Before(before.Truncate(time.Second)) {
		t.Errorf("RunTime() = %v, want after %v", ts, before)
	}

	if _, ok := RunTime("not-an-id"); ok {
		t.Error("RunTime() should reject invalid IDs")
	}
}
