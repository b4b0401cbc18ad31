// Package idgen provides ID generation utilities for the application.
// It encapsulates the ID generation implementation, making it easy to change
// the underlying ID generation strategy in the future.
package idgen

import (
	"time"

	"github.com/rs/xid"
)

// NewID generates a new globally unique, sortable identifier.
// Returns a 20-character lowercase base32 string in xid format.
func NewID() string {
	return xid.New().String()
}

// NewRunID generates the identifier attached to every log line and span
// of a single report run.
func NewRunID() string {
	return NewID()
}

// RunTime extracts the creation time embedded in a run ID.
// The second return value is false when id is not a valid xid.
func RunTime(id string) (time.Time, bool) {
	parsed, err := xid.FromString(id)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.Time(), true
}
