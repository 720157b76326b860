package ics

import (
	"strings"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

// unfold joins iCalendar continuation lines so tests can match whole
// properties regardless of 75-octet folding.
func unfold(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\r\n") {
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(out) > 0 {
			out[len(out)-1] += line[1:]
			continue
		}
		out = append(out, line)
	}
	return out
}

func containsLine(t *testing.T, raw, want string) {
	t.Helper()
	for _, line := range unfold(raw) {
		if line == want {
			return
		}
	}
	t.Errorf("document missing line %q\n%s", want, raw)
}

func mustEncode(t *testing.T, ev *Event) string {
	t.Helper()
	raw, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return raw
}

func mustDecode(t *testing.T, raw string) *Event {
	t.Helper()
	ev := Decode(raw)
	if ev == nil {
		t.Fatalf("Decode returned nil for:\n%s", raw)
	}
	return ev
}

func TestEncodeBasicEvent(t *testing.T) {
	start := NewInstant(time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC))
	end := NewInstant(time.Date(2025, 12, 15, 11, 0, 0, 0, time.UTC))
	ev := &Event{
		UID:      "test-1@jmap-mcp",
		Summary:  "Team Meeting",
		Start:    start,
		End:      &end,
		Location: "Conference Room A",
	}

	raw := mustEncode(t, ev)

	containsLine(t, raw, "SUMMARY:Team Meeting")
	containsLine(t, raw, "LOCATION:Conference Room A")
	containsLine(t, raw, "DTSTART:20251215T100000Z")
	containsLine(t, raw, "DTEND:20251215T110000Z")
	if strings.Contains(raw, "METHOD") {
		t.Error("no attendees, METHOD must not be set")
	}

	got := mustDecode(t, raw)
	if got.AllDay {
		t.Error("AllDay = true, want false")
	}
	if got.Summary != "Team Meeting" || got.Location != "Conference Room A" {
		t.Errorf("summary/location = %q/%q", got.Summary, got.Location)
	}
	if !got.Start.Time.Equal(start.Time) {
		t.Errorf("start = %v, want %v", got.Start.Time, start.Time)
	}
	if got.End == nil || !got.End.Time.Equal(end.Time) {
		t.Errorf("end = %v, want %v", got.End, end.Time)
	}
	if got.UID != "test-1@jmap-mcp" {
		t.Errorf("uid = %q", got.UID)
	}
}

func TestEncodeAllDayEvent(t *testing.T) {
	ev := &Event{
		UID:     "allday-1@jmap-mcp",
		Summary: "Christmas",
		Start:   NewDate(2025, time.December, 25),
		AllDay:  true,
	}

	raw := mustEncode(t, ev)
	containsLine(t, raw, "DTSTART;VALUE=DATE:20251225")

	got := mustDecode(t, raw)
	if !got.AllDay {
		t.Error("AllDay = false, want true")
	}
	if got.End != nil {
		t.Error("end was synthesized on decode")
	}
}

func TestEncodeNamedZonePassThrough(t *testing.T) {
	ev := &Event{
		UID:     "tz-1@jmap-mcp",
		Summary: "Standup",
		Start: Instant{
			Time: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
			TZID: "Europe/Amsterdam",
		},
	}

	raw := mustEncode(t, ev)
	containsLine(t, raw, "DTSTART;TZID=Europe/Amsterdam:20250602T093000")

	got := mustDecode(t, raw)
	if got.Start.TZID != "Europe/Amsterdam" {
		t.Errorf("tzid = %q", got.Start.TZID)
	}
	if got.Start.Time.Hour() != 9 || got.Start.Time.Minute() != 30 {
		t.Errorf("wall clock changed: %v", got.Start.Time)
	}
}

func TestRoundTripAllFields(t *testing.T) {
	start := NewInstant(time.Date(2026, 1, 12, 14, 0, 0, 0, time.UTC))
	end := NewInstant(time.Date(2026, 1, 12, 15, 0, 0, 0, time.UTC))
	ev := &Event{
		UID:          "full-1@jmap-mcp",
		Summary:      "Planning; with edge, cases\\ and\nnewlines",
		Start:        start,
		End:          &end,
		Location:     "Room 1, Floor 2",
		Description:  "Agenda:\n- item one; item two",
		Status:       StatusTentative,
		URL:          "https://example.com/meet/123",
		Categories:   []string{"work", "planning, q1"},
		Priority:     2,
		Transparency: TranspOpaque,
		Organizer:    &Organizer{Email: "boss@example.com", Name: "The Boss"},
		Attendees: []Attendee{
			{Email: "alice@example.com", Name: "Alice", Role: RoleRequired},
			{Email: "bob@example.com", RSVP: boolPtr(false), Role: RoleOptional},
		},
		Reminders: []Reminder{
			{MinutesBefore: 30},
			{HoursBefore: 1, Action: "email"},
		},
		Recurrence: &Recurrence{Frequency: "weekly", Interval: 2, ByDay: []string{"MO", "WE"}},
	}

	raw := mustEncode(t, ev)
	containsLine(t, raw, "METHOD:REQUEST")
	containsLine(t, raw, "RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE")

	got := mustDecode(t, raw)

	if got.Summary != ev.Summary {
		t.Errorf("summary = %q, want %q", got.Summary, ev.Summary)
	}
	if got.Location != ev.Location {
		t.Errorf("location = %q, want %q", got.Location, ev.Location)
	}
	if got.Description != ev.Description {
		t.Errorf("description = %q, want %q", got.Description, ev.Description)
	}
	if got.Status != StatusTentative {
		t.Errorf("status = %q", got.Status)
	}
	if got.URL != ev.URL {
		t.Errorf("url = %q", got.URL)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "work" || got.Categories[1] != "planning, q1" {
		t.Errorf("categories = %v", got.Categories)
	}
	if got.Priority != 2 {
		t.Errorf("priority = %d", got.Priority)
	}
	if got.Transparency != TranspOpaque {
		t.Errorf("transparency = %q", got.Transparency)
	}
	if got.Organizer == nil || got.Organizer.Email != "boss@example.com" || got.Organizer.Name != "The Boss" {
		t.Errorf("organizer = %+v", got.Organizer)
	}
	if len(got.Attendees) != 2 {
		t.Fatalf("attendees = %d, want 2", len(got.Attendees))
	}
	if got.Attendees[0].Email != "alice@example.com" || got.Attendees[0].Name != "Alice" {
		t.Errorf("attendee[0] = %+v", got.Attendees[0])
	}
	if got.Attendees[0].Role != RoleRequired {
		t.Errorf("attendee[0].Role = %q", got.Attendees[0].Role)
	}
	if got.Attendees[0].PartStat != "needs-action" {
		t.Errorf("attendee[0].PartStat = %q", got.Attendees[0].PartStat)
	}
	if got.Attendees[1].RSVP == nil || *got.Attendees[1].RSVP {
		t.Errorf("attendee[1].RSVP = %v, want false", got.Attendees[1].RSVP)
	}
	if len(got.Reminders) != 2 {
		t.Fatalf("reminders = %d, want 2", len(got.Reminders))
	}
	if got.Reminders[0].MinutesBefore != 30 || got.Reminders[0].Action != "display" {
		t.Errorf("reminder[0] = %+v", got.Reminders[0])
	}
	if got.Reminders[1].HoursBefore != 1 || got.Reminders[1].Action != "email" {
		t.Errorf("reminder[1] = %+v", got.Reminders[1])
	}
	if got.Recurrence == nil {
		t.Fatal("recurrence lost")
	}
	if got.Recurrence.Frequency != "weekly" || got.Recurrence.Interval != 2 {
		t.Errorf("recurrence = %+v", got.Recurrence)
	}
	if len(got.Recurrence.ByDay) != 2 || got.Recurrence.ByDay[0] != "MO" || got.Recurrence.ByDay[1] != "WE" {
		t.Errorf("byday = %v", got.Recurrence.ByDay)
	}
}

func TestEscapingRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"comma", "a,b"},
		{"semicolon", "a;b"},
		{"backslash", `a\b`},
		{"newline", "line one\nline two"},
		{"mixed", "a,b;c\\d\ne"},
		{"repeated", `\\,,;;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{
				UID:         "esc-1@jmap-mcp",
				Summary:     tt.text,
				Description: tt.text,
				Location:    tt.text,
				Start:       NewInstant(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
			}
			got := mustDecode(t, mustEncode(t, ev))
			if got.Summary != tt.text {
				t.Errorf("summary = %q, want %q", got.Summary, tt.text)
			}
			if got.Description != tt.text {
				t.Errorf("description = %q, want %q", got.Description, tt.text)
			}
			if got.Location != tt.text {
				t.Errorf("location = %q, want %q", got.Location, tt.text)
			}
		})
	}
}

func TestEncodeRejectsIncompleteEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
	}{
		{"missing summary", &Event{Start: NewInstant(time.Now())}},
		{"missing start", &Event{Summary: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.ev); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeDropsOutOfRangePriority(t *testing.T) {
	ev := &Event{
		UID:      "prio-1@jmap-mcp",
		Summary:  "x",
		Start:    NewInstant(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
		Priority: 12,
	}
	raw := mustEncode(t, ev)
	if strings.Contains(raw, "PRIORITY") {
		t.Error("out-of-range priority was serialized")
	}
}

func TestEncodeReminderTriggers(t *testing.T) {
	tests := []struct {
		name     string
		reminder Reminder
		want     string
	}{
		{"minutes", Reminder{MinutesBefore: 30}, "TRIGGER:-PT30M"},
		{"hours", Reminder{HoursBefore: 2}, "TRIGGER:-PT2H"},
		{"days", Reminder{DaysBefore: 1}, "TRIGGER:-P1D"},
		{"minutes win over hours", Reminder{MinutesBefore: 10, HoursBefore: 2}, "TRIGGER:-PT10M"},
		{"no offset falls back to 15 minutes", Reminder{}, "TRIGGER:-PT15M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{
				UID:       "rem-1@jmap-mcp",
				Summary:   "Standup",
				Start:     NewInstant(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
				Reminders: []Reminder{tt.reminder},
			}
			containsLine(t, mustEncode(t, ev), tt.want)
		})
	}
}

func TestEncodeReminderDescription(t *testing.T) {
	ev := &Event{
		UID:     "rem-2@jmap-mcp",
		Summary: "Dentist",
		Start:   NewInstant(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
		Reminders: []Reminder{
			{MinutesBefore: 15},
			{MinutesBefore: 60, Action: "email"},
		},
	}
	raw := mustEncode(t, ev)

	// DISPLAY alarms mirror the event summary as their description.
	containsLine(t, raw, "ACTION:DISPLAY")
	containsLine(t, raw, "DESCRIPTION:Dentist")
	containsLine(t, raw, "ACTION:EMAIL")
	if strings.Count(raw, "DESCRIPTION:Dentist") != 1 {
		t.Errorf("want exactly one alarm description, got:\n%s", raw)
	}

	got := mustDecode(t, raw)
	if len(got.Reminders) != 2 {
		t.Fatalf("reminders = %+v", got.Reminders)
	}
	if got.Reminders[0].MinutesBefore != 15 || got.Reminders[0].Action != "display" {
		t.Errorf("first reminder = %+v", got.Reminders[0])
	}
	if got.Reminders[1].MinutesBefore != 60 || got.Reminders[1].Action != "email" {
		t.Errorf("second reminder = %+v", got.Reminders[1])
	}
}

func TestEncodeAssignsUID(t *testing.T) {
	ev := &Event{
		Summary: "x",
		Start:   NewInstant(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
	}
	got := mustDecode(t, mustEncode(t, ev))
	if got.UID == "" {
		t.Fatal("no uid assigned")
	}
	if !strings.HasSuffix(got.UID, "@jmap-mcp") {
		t.Errorf("uid = %q, want @jmap-mcp suffix", got.UID)
	}
}

func TestDecodeFailures(t *testing.T) {
	crlf := func(lines ...string) string { return strings.Join(lines, "\r\n") + "\r\n" }

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "this is not a calendar"},
		{"empty", ""},
		{
			"no vevent",
			crlf("BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//x//EN", "END:VCALENDAR"),
		},
		{
			"missing uid",
			crlf("BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//x//EN",
				"BEGIN:VEVENT", "SUMMARY:x", "DTSTART:20250301T080000Z", "END:VEVENT",
				"END:VCALENDAR"),
		},
		{
			"missing start",
			crlf("BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//x//EN",
				"BEGIN:VEVENT", "UID:u1", "SUMMARY:x", "END:VEVENT",
				"END:VCALENDAR"),
		},
		{
			"unparseable start",
			crlf("BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//x//EN",
				"BEGIN:VEVENT", "UID:u1", "DTSTART:tomorrow", "END:VEVENT",
				"END:VCALENDAR"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ev := Decode(tt.raw); ev != nil {
				t.Errorf("Decode = %+v, want nil", ev)
			}
		})
	}
}

func TestDecodeToleratesForeignProperties(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//other-client//EN",
		"BEGIN:VEVENT",
		"UID:foreign-1",
		"DTSTART:20250301T080000Z",
		"SUMMARY:Imported",
		"X-APPLE-TRAVEL-ADVISORY-BEHAVIOR:AUTOMATIC",
		"SEQUENCE:3",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n") + "\r\n"

	got := mustDecode(t, raw)
	if got.Summary != "Imported" || got.UID != "foreign-1" {
		t.Errorf("got %+v", got)
	}
}
