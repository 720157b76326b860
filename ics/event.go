// Package ics implements the calendar event record model and its
// bidirectional iCalendar codec: serializing an event into a VCALENDAR
// document with a single VEVENT, parsing such a document back, deriving
// and describing recurrence rules, and applying sparse field patches to
// an existing serialized document.
//
// All functions are pure transformations over in-memory values with no
// shared mutable state; they are safe to call concurrently.
package ics

import "time"

// Event statuses.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"
)

// Time transparency (busy vs. free).
const (
	TranspOpaque      = "opaque"
	TranspTransparent = "transparent"
)

// Attendee roles.
const (
	RoleRequired       = "required"
	RoleOptional       = "optional"
	RoleNonParticipant = "non-participant"
	RoleChair          = "chair"
)

// Instant is a point in time at either day or second granularity.
// When TZID is set, Time's wall-clock fields are interpreted in that
// named zone and carried through serialization without conversion;
// otherwise the time is UTC.
type Instant struct {
	Time     time.Time
	DateOnly bool
	TZID     string
}

// NewInstant returns a date-time Instant in UTC.
func NewInstant(t time.Time) Instant {
	return Instant{Time: t.UTC()}
}

// NewDate returns a date-only Instant.
func NewDate(year int, month time.Month, day int) Instant {
	return Instant{
		Time:     time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		DateOnly: true,
	}
}

// Event is the structured form of a single calendar event.
type Event struct {
	UID          string      `json:"uid"`
	Summary      string      `json:"summary"`
	Start        Instant     `json:"start"`
	End          *Instant    `json:"end,omitempty"`
	AllDay       bool        `json:"allDay"`
	Location     string      `json:"location,omitempty"`
	Description  string      `json:"description,omitempty"`
	Recurrence   *Recurrence `json:"recurrence,omitempty"`
	Attendees    []Attendee  `json:"attendees,omitempty"`
	Organizer    *Organizer  `json:"organizer,omitempty"`
	Status       string      `json:"status,omitempty"`
	URL          string      `json:"url,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Priority     int         `json:"priority,omitempty"` // 1-9, 0 means unset
	Transparency string      `json:"transparency,omitempty"`
	Reminders    []Reminder  `json:"reminders,omitempty"`
}

// Recurrence describes how an event repeats. Interval, Count and the
// zero values of Until/ByDay mean "not set". When both Count and Until
// are supplied only Until is serialized.
type Recurrence struct {
	Frequency string   `json:"frequency"` // daily, weekly, monthly, yearly
	Interval  int      `json:"interval,omitempty"`
	Count     int      `json:"count,omitempty"`
	Until     *Instant `json:"until,omitempty"`
	ByDay     []string `json:"byDay,omitempty"` // MO,TU,WE,TH,FR,SA,SU; order preserved
}

// Attendee is a single event participant. RSVP nil means true.
// PartStat is only populated when decoding; on encode every attendee
// starts out as NEEDS-ACTION.
type Attendee struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	RSVP     *bool  `json:"rsvp,omitempty"`
	Role     string `json:"role,omitempty"`
	PartStat string `json:"participationStatus,omitempty"`
}

// Organizer identifies the event organizer.
type Organizer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Reminder is a pre-event alarm. Exactly one of the *Before fields is
// honored, in minutes, hours, days priority order; when none is set a
// 15-minute default applies.
type Reminder struct {
	MinutesBefore int    `json:"minutesBefore,omitempty"`
	HoursBefore   int    `json:"hoursBefore,omitempty"`
	DaysBefore    int    `json:"daysBefore,omitempty"`
	Action        string `json:"action,omitempty"` // display (default) or email
}
