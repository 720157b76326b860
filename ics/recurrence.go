package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const defaultMaxOccurrences = 100

var weekdayNames = map[string]string{
	"MO": "Monday",
	"TU": "Tuesday",
	"WE": "Wednesday",
	"TH": "Thursday",
	"FR": "Friday",
	"SA": "Saturday",
	"SU": "Sunday",
}

// "every 2 weeks", not "every 2 weeklys"
var frequencyUnits = map[string]string{
	"daily":   "day",
	"weekly":  "week",
	"monthly": "month",
	"yearly":  "year",
}

// Rule renders the recurrence as a canonical RRULE value. Field order is
// FREQ, INTERVAL, BYDAY, then a single bound: UNTIL when set, COUNT
// otherwise. An interval of 1 is never emitted, so it cannot be told
// apart from "unset" after a round trip.
func (r *Recurrence) Rule() string {
	parts := []string{"FREQ=" + strings.ToUpper(r.Frequency)}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if len(r.ByDay) > 0 {
		parts = append(parts, "BYDAY="+strings.Join(r.ByDay, ","))
	}
	switch {
	case r.Until != nil:
		parts = append(parts, "UNTIL="+formatUntil(*r.Until))
	case r.Count > 0:
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	return strings.Join(parts, ";")
}

func formatUntil(in Instant) string {
	if in.DateOnly {
		return in.Time.Format("20060102")
	}
	return in.Time.UTC().Format("20060102T150405Z")
}

// Describe builds a human-readable phrase for the recurrence, e.g.
// "weekly on Monday, Wednesday, Friday" or "every 2 weeks (5 times)".
func (r *Recurrence) Describe() string {
	freq := strings.ToLower(r.Frequency)
	var parts []string
	if r.Interval > 1 {
		unit, ok := frequencyUnits[freq]
		if !ok {
			unit = freq
		}
		parts = append(parts, fmt.Sprintf("every %d %ss", r.Interval, unit))
	} else {
		parts = append(parts, freq)
	}
	if len(r.ByDay) > 0 {
		names := make([]string, 0, len(r.ByDay))
		for _, code := range r.ByDay {
			name, ok := weekdayNames[strings.ToUpper(code)]
			if !ok {
				name = code
			}
			names = append(names, name)
		}
		parts = append(parts, "on "+strings.Join(names, ", "))
	}
	switch {
	case r.Count > 0:
		parts = append(parts, fmt.Sprintf("(%d times)", r.Count))
	case r.Until != nil:
		parts = append(parts, "until "+r.Until.Time.Format("2006-01-02"))
	}
	return strings.Join(parts, " ")
}

// ParseRule is the inverse of Rule. Fields absent from the text are left
// at their zero values; in particular an omitted INTERVAL parses as 0
// even if the rule was derived from an explicit interval of 1. Returns
// nil when the text has no FREQ part.
func ParseRule(s string) *Recurrence {
	r := &Recurrence{}
	for _, tok := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			r.Frequency = strings.ToLower(value)
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				r.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				r.Count = n
			}
		case "UNTIL":
			if until, ok := parseUntil(value); ok {
				r.Until = &until
			}
		case "BYDAY":
			for _, day := range strings.Split(value, ",") {
				if day != "" {
					r.ByDay = append(r.ByDay, strings.ToUpper(day))
				}
			}
		}
	}
	if r.Frequency == "" {
		return nil
	}
	return r
}

func parseUntil(v string) (Instant, bool) {
	if t, err := time.Parse("20060102T150405Z", v); err == nil {
		return Instant{Time: t}, true
	}
	if t, err := time.Parse("20060102T150405", v); err == nil {
		return Instant{Time: t.UTC()}, true
	}
	if t, err := time.Parse("20060102", v); err == nil {
		return Instant{Time: t, DateOnly: true}, true
	}
	return Instant{}, false
}

// Occurrences expands an event into concrete start times within
// [from, to]. Non-recurring events yield at most their own start. The
// result is capped at max (or a default when max <= 0) to keep unbounded
// rules from expanding forever.
func Occurrences(ev *Event, from, to time.Time, max int) []time.Time {
	if max <= 0 {
		max = defaultMaxOccurrences
	}
	start := ev.Start.Time
	if ev.Recurrence == nil {
		if start.Before(from) || start.After(to) {
			return nil
		}
		return []time.Time{start}
	}

	r, err := rrule.StrToRRule(ev.Recurrence.Rule())
	if err != nil {
		return nil
	}
	r.DTStart(start)

	times := r.Between(from, to, true)
	if len(times) > max {
		times = times[:max]
	}
	return times
}
