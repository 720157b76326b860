package tools

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/obra/jmap-mcp/ics"
)

// parseAddressList extracts a string or []interface{} argument into a validated email address list.
// Returns a non-nil error if the value is present but invalid.
func parseAddressList(args map[string]interface{}, key string) ([]string, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return nil, nil
	}

	raw, err := stringList(val, key)
	if err != nil {
		return nil, err
	}

	// Validate each address
	for _, addr := range raw {
		if _, err := mail.ParseAddress(addr); err != nil {
			return nil, fmt.Errorf("invalid %s email address '%s': %v", key, addr, err)
		}
	}

	return raw, nil
}

// requireAddressList is like parseAddressList but returns an error if the result is empty.
func requireAddressList(args map[string]interface{}, key string) ([]string, error) {
	addrs, err := parseAddressList(args, key)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s is required", key)
	}
	return addrs, nil
}

// stringList normalizes a string or array-of-strings argument value.
func stringList(val interface{}, key string) ([]string, error) {
	var raw []string
	switch v := val.(type) {
	case string:
		if v != "" {
			raw = []string{v}
		}
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				raw = append(raw, str)
			}
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", key)
	}
	return raw, nil
}

// parseInstant parses an event time argument. A bare date ("2025-12-15")
// becomes a date-only instant; a datetime is accepted in RFC 3339 form or,
// when tzid names a zone, as a local wall-clock time ("2025-12-15T10:00:00")
// carried through in that zone unconverted.
func parseInstant(value, tzid string) (*ics.Instant, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("time value is empty")
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		inst := ics.NewDate(t.Year(), t.Month(), t.Day())
		return &inst, nil
	}

	if tzid != "" {
		t, err := time.Parse("2006-01-02T15:04:05", value)
		if err != nil {
			return nil, fmt.Errorf("invalid local time %q for timezone %s (use '2006-01-02T15:04:05')", value, tzid)
		}
		return &ics.Instant{Time: t, TZID: tzid}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q (use a date '2006-01-02' or RFC 3339 like '2006-01-02T15:04:05Z')", value)
	}
	inst := ics.NewInstant(t)
	return &inst, nil
}

// parseAttendees decodes the attendees argument: an array of objects with
// email (required), name, role, and rsvp fields, or plain email strings.
func parseAttendees(val interface{}) ([]ics.Attendee, error) {
	items, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("attendees must be an array")
	}

	attendees := make([]ics.Attendee, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if _, err := mail.ParseAddress(v); err != nil {
				return nil, fmt.Errorf("invalid attendee email '%s': %v", v, err)
			}
			attendees = append(attendees, ics.Attendee{Email: v})
		case map[string]interface{}:
			email, _ := v["email"].(string)
			if email == "" {
				return nil, fmt.Errorf("attendee %d is missing an email", i)
			}
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, fmt.Errorf("invalid attendee email '%s': %v", email, err)
			}
			att := ics.Attendee{Email: email}
			att.Name, _ = v["name"].(string)
			if role, ok := v["role"].(string); ok && role != "" {
				if err := validateRole(role); err != nil {
					return nil, err
				}
				att.Role = role
			}
			if rsvp, ok := v["rsvp"].(bool); ok {
				att.RSVP = &rsvp
			}
			attendees = append(attendees, att)
		default:
			return nil, fmt.Errorf("attendee %d must be an email string or an object", i)
		}
	}
	return attendees, nil
}

// parseReminders decodes the reminders argument: an array of objects with
// minutes_before/hours_before/days_before and an optional action, or plain
// numbers meaning minutes before the event.
func parseReminders(val interface{}) ([]ics.Reminder, error) {
	items, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("reminders must be an array")
	}

	reminders := make([]ics.Reminder, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case float64:
			if v < 0 {
				return nil, fmt.Errorf("reminder %d must not be negative", i)
			}
			reminders = append(reminders, ics.Reminder{MinutesBefore: int(v)})
		case map[string]interface{}:
			rem := ics.Reminder{}
			if minutes, ok := v["minutes_before"].(float64); ok {
				rem.MinutesBefore = int(minutes)
			}
			if hours, ok := v["hours_before"].(float64); ok {
				rem.HoursBefore = int(hours)
			}
			if days, ok := v["days_before"].(float64); ok {
				rem.DaysBefore = int(days)
			}
			if action, ok := v["action"].(string); ok && action != "" {
				if action != "display" && action != "email" {
					return nil, fmt.Errorf("reminder action must be 'display' or 'email', got %q", action)
				}
				rem.Action = action
			}
			reminders = append(reminders, rem)
		default:
			return nil, fmt.Errorf("reminder %d must be a number of minutes or an object", i)
		}
	}
	return reminders, nil
}

// parseRecurrence decodes the recurrence argument object.
func parseRecurrence(val interface{}) (*ics.Recurrence, error) {
	obj, ok := val.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("recurrence must be an object")
	}

	freq, _ := obj["frequency"].(string)
	if err := validateFrequency(freq); err != nil {
		return nil, err
	}

	rec := &ics.Recurrence{Frequency: freq}
	if interval, ok := obj["interval"].(float64); ok {
		if interval < 1 {
			return nil, fmt.Errorf("recurrence interval must be at least 1")
		}
		rec.Interval = int(interval)
	}
	if count, ok := obj["count"].(float64); ok {
		if count < 1 {
			return nil, fmt.Errorf("recurrence count must be at least 1")
		}
		rec.Count = int(count)
	}
	if until, ok := obj["until"].(string); ok && until != "" {
		inst, err := parseInstant(until, "")
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence until: %v", err)
		}
		rec.Until = inst
	}
	if byDay, ok := obj["by_day"]; ok && byDay != nil {
		days, err := stringList(byDay, "by_day")
		if err != nil {
			return nil, err
		}
		for _, day := range days {
			if err := validateWeekday(day); err != nil {
				return nil, err
			}
		}
		rec.ByDay = days
	}

	return rec, nil
}
