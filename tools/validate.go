package tools

import (
	"fmt"
	"strings"

	"github.com/obra/jmap-mcp/ics"
)

const (
	maxBodySize    = 10 * 1024 * 1024 // 10 MB
	maxSubjectSize = 998              // RFC 2822 line length limit
)

var validWeekdays = map[string]bool{
	"MO": true, "TU": true, "WE": true, "TH": true,
	"FR": true, "SA": true, "SU": true,
}

// validateEmailID checks that an email ID is usable in a JMAP call.
func validateEmailID(id string) error {
	if id == "" {
		return fmt.Errorf("email_id is required")
	}

	// Reject null bytes and control characters
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("email_id contains invalid characters")
		}
	}

	return nil
}

// validateEventUID checks that an event UID is safe to embed in an object path.
func validateEventUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("event_uid is required")
	}

	// Reject null bytes and control characters
	for _, r := range uid {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("event_uid contains invalid characters")
		}
	}

	// Reject path separators and traversal
	if strings.ContainsAny(uid, "/\\") {
		return fmt.Errorf("event_uid must not contain path separators")
	}
	if strings.Contains(uid, "..") {
		return fmt.Errorf("event_uid must not contain '..'")
	}

	return nil
}

// validateCalendarName rejects calendar names with dangerous characters.
// An empty name is allowed and selects the default calendar.
func validateCalendarName(name string) error {
	if name == "" {
		return nil
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("calendar name must not contain null bytes")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("calendar name must not contain '..'")
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("calendar name must not contain control characters")
		}
	}

	return nil
}

// validateBodySize checks that body content doesn't exceed limits.
func validateBodySize(body string) error {
	if len(body) > maxBodySize {
		return fmt.Errorf("body exceeds maximum size of %d bytes", maxBodySize)
	}
	return nil
}

// validateSubjectSize checks that subject doesn't exceed limits.
func validateSubjectSize(subject string) error {
	if len(subject) > maxSubjectSize {
		return fmt.Errorf("subject exceeds maximum length of %d characters", maxSubjectSize)
	}
	return nil
}

// validateStatus accepts the event status vocabulary.
func validateStatus(status string) error {
	switch status {
	case ics.StatusConfirmed, ics.StatusTentative, ics.StatusCancelled:
		return nil
	}
	return fmt.Errorf("status must be one of confirmed, tentative, cancelled; got %q", status)
}

// validateTransparency accepts the busy/free vocabulary.
func validateTransparency(transp string) error {
	switch transp {
	case ics.TranspOpaque, ics.TranspTransparent:
		return nil
	}
	return fmt.Errorf("transparency must be opaque or transparent; got %q", transp)
}

// validateRole accepts the attendee role vocabulary.
func validateRole(role string) error {
	switch role {
	case ics.RoleRequired, ics.RoleOptional, ics.RoleNonParticipant, ics.RoleChair:
		return nil
	}
	return fmt.Errorf("attendee role must be one of required, optional, non-participant, chair; got %q", role)
}

// validateFrequency accepts the recurrence frequency vocabulary.
func validateFrequency(freq string) error {
	switch freq {
	case "daily", "weekly", "monthly", "yearly":
		return nil
	}
	return fmt.Errorf("recurrence frequency must be one of daily, weekly, monthly, yearly; got %q", freq)
}

// validateWeekday accepts two-letter iCalendar weekday codes.
func validateWeekday(day string) error {
	if !validWeekdays[day] {
		return fmt.Errorf("weekday must be one of MO, TU, WE, TH, FR, SA, SU; got %q", day)
	}
	return nil
}

// validatePriority accepts the 1-9 iCalendar priority range; 0 clears.
func validatePriority(priority int) error {
	if priority < 0 || priority > 9 {
		return fmt.Errorf("priority must be between 1 (highest) and 9 (lowest), or 0 to clear")
	}
	return nil
}
