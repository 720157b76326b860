package tools

import (
	"strings"
	"testing"
)

func TestValidateEventUID(t *testing.T) {
	tests := []struct {
		name    string
		uid     string
		wantErr bool
	}{
		{"valid uid", "1700000000000-ab12cd34@jmap-mcp", false},
		{"empty", "", true},
		{"control character", "uid\x01", true},
		{"forward slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"traversal", "..secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEventUID(tt.uid)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEventUID(%q) error = %v, wantErr %v", tt.uid, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCalendarName(t *testing.T) {
	tests := []struct {
		name     string
		calendar string
		wantErr  bool
	}{
		{"empty selects default", "", false},
		{"plain name", "Personal", false},
		{"name with space", "Family Events", false},
		{"null byte", "bad\x00name", true},
		{"traversal", "../other", true},
		{"newline", "bad\nname", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCalendarName(tt.calendar)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCalendarName(%q) error = %v, wantErr %v", tt.calendar, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnums(t *testing.T) {
	if err := validateStatus("confirmed"); err != nil {
		t.Errorf("confirmed rejected: %v", err)
	}
	if err := validateStatus("CONFIRMED"); err == nil {
		t.Error("uppercase status accepted; vocabulary is lowercase")
	}
	if err := validateTransparency("transparent"); err != nil {
		t.Errorf("transparent rejected: %v", err)
	}
	if err := validateTransparency("busy"); err == nil {
		t.Error("'busy' accepted")
	}
	if err := validateRole("non-participant"); err != nil {
		t.Errorf("non-participant rejected: %v", err)
	}
	if err := validateFrequency("weekly"); err != nil {
		t.Errorf("weekly rejected: %v", err)
	}
	if err := validateFrequency("fortnightly"); err == nil {
		t.Error("'fortnightly' accepted")
	}
	if err := validateWeekday("MO"); err != nil {
		t.Errorf("MO rejected: %v", err)
	}
	if err := validateWeekday("MON"); err == nil {
		t.Error("'MON' accepted; codes are two letters")
	}
}

func TestValidatePriority(t *testing.T) {
	for _, p := range []int{0, 1, 5, 9} {
		if err := validatePriority(p); err != nil {
			t.Errorf("priority %d rejected: %v", p, err)
		}
	}
	for _, p := range []int{-1, 10, 100} {
		if err := validatePriority(p); err == nil {
			t.Errorf("priority %d accepted", p)
		}
	}
}

func TestValidateSizes(t *testing.T) {
	if err := validateBodySize(strings.Repeat("a", maxBodySize)); err != nil {
		t.Errorf("body at limit rejected: %v", err)
	}
	if err := validateBodySize(strings.Repeat("a", maxBodySize+1)); err == nil {
		t.Error("oversized body accepted")
	}
	if err := validateSubjectSize(strings.Repeat("s", maxSubjectSize+1)); err == nil {
		t.Error("oversized subject accepted")
	}
}

func TestParseInstant(t *testing.T) {
	t.Run("bare date", func(t *testing.T) {
		inst, err := parseInstant("2025-12-25", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inst.DateOnly {
			t.Error("expected date-only instant")
		}
		if inst.Time.Year() != 2025 || inst.Time.Month() != 12 || inst.Time.Day() != 25 {
			t.Errorf("date = %v", inst.Time)
		}
	})

	t.Run("rfc3339", func(t *testing.T) {
		inst, err := parseInstant("2025-12-15T10:30:00Z", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inst.DateOnly || inst.TZID != "" {
			t.Errorf("instant = %+v", inst)
		}
		if inst.Time.Hour() != 10 || inst.Time.Minute() != 30 {
			t.Errorf("time = %v", inst.Time)
		}
	})

	t.Run("local time with zone", func(t *testing.T) {
		inst, err := parseInstant("2025-06-02T09:30:00", "Europe/Amsterdam")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inst.TZID != "Europe/Amsterdam" {
			t.Errorf("tzid = %q", inst.TZID)
		}
		if inst.Time.Hour() != 9 {
			t.Errorf("hour = %d, wall clock must be preserved", inst.Time.Hour())
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, bad := range []string{"", "tomorrow", "15-12-2025", "2025-12-15T10:00:00"} {
			if _, err := parseInstant(bad, ""); err == nil {
				t.Errorf("parseInstant(%q) accepted", bad)
			}
		}
	})
}

func TestParseAttendees(t *testing.T) {
	t.Run("mixed shapes", func(t *testing.T) {
		attendees, err := parseAttendees([]interface{}{
			"bob@example.com",
			map[string]interface{}{
				"email": "carol@example.com",
				"name":  "Carol",
				"role":  "chair",
				"rsvp":  false,
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(attendees) != 2 {
			t.Fatalf("got %d attendees", len(attendees))
		}
		if attendees[0].Email != "bob@example.com" || attendees[0].RSVP != nil {
			t.Errorf("attendee 0 = %+v", attendees[0])
		}
		if attendees[1].Name != "Carol" || attendees[1].Role != "chair" {
			t.Errorf("attendee 1 = %+v", attendees[1])
		}
		if attendees[1].RSVP == nil || *attendees[1].RSVP {
			t.Error("rsvp=false not carried")
		}
	})

	t.Run("rejects bad shapes", func(t *testing.T) {
		cases := []interface{}{
			"not-an-array",
			[]interface{}{42},
			[]interface{}{map[string]interface{}{"name": "No Email"}},
			[]interface{}{map[string]interface{}{"email": "carol@example.com", "role": "boss"}},
		}
		for i, c := range cases {
			if _, err := parseAttendees(c); err == nil {
				t.Errorf("case %d accepted", i)
			}
		}
	})
}

func TestParseReminders(t *testing.T) {
	reminders, err := parseReminders([]interface{}{
		float64(15),
		map[string]interface{}{"hours_before": float64(2), "action": "email"},
		map[string]interface{}{"days_before": float64(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reminders[0].MinutesBefore != 15 {
		t.Errorf("reminder 0 = %+v", reminders[0])
	}
	if reminders[1].HoursBefore != 2 || reminders[1].Action != "email" {
		t.Errorf("reminder 1 = %+v", reminders[1])
	}
	if reminders[2].DaysBefore != 1 {
		t.Errorf("reminder 2 = %+v", reminders[2])
	}

	if _, err := parseReminders([]interface{}{float64(-5)}); err == nil {
		t.Error("negative minutes accepted")
	}
	if _, err := parseReminders([]interface{}{map[string]interface{}{"action": "carrier-pigeon"}}); err == nil {
		t.Error("unknown action accepted")
	}
}

func TestParseRecurrence(t *testing.T) {
	rec, err := parseRecurrence(map[string]interface{}{
		"frequency": "weekly",
		"interval":  float64(2),
		"count":     float64(8),
		"by_day":    []interface{}{"TU", "TH"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Frequency != "weekly" || rec.Interval != 2 || rec.Count != 8 {
		t.Errorf("recurrence = %+v", rec)
	}
	if len(rec.ByDay) != 2 || rec.ByDay[0] != "TU" {
		t.Errorf("by_day = %v", rec.ByDay)
	}

	t.Run("until as date", func(t *testing.T) {
		rec, err := parseRecurrence(map[string]interface{}{
			"frequency": "daily",
			"until":     "2025-12-31",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Until == nil || !rec.Until.DateOnly {
			t.Errorf("until = %+v", rec.Until)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		cases := []interface{}{
			"daily",
			map[string]interface{}{},
			map[string]interface{}{"frequency": "hourly"},
			map[string]interface{}{"frequency": "daily", "interval": float64(0)},
			map[string]interface{}{"frequency": "weekly", "by_day": []interface{}{"XX"}},
		}
		for i, c := range cases {
			if _, err := parseRecurrence(c); err == nil {
				t.Errorf("case %d accepted", i)
			}
		}
	})
}
