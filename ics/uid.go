package ics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewEventUID returns a collision-resistant identifier for a new event:
// a millisecond timestamp, a short random component, and an application
// namespace suffix. The result is safe both as a bare iCalendar token
// and as a filename stem.
func NewEventUID() string {
	return fmt.Sprintf("%d-%.8s@jmap-mcp", time.Now().UnixMilli(), uuid.NewString())
}

// Filename derives the storage filename for an event UID.
func Filename(uid string) string {
	return uid + ".ics"
}
