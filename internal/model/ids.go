package model

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces record identifiers.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock returns the current time. Services never call time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
