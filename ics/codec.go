package ics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const prodID = "-//jmap-mcp//calendar//EN"

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

var roleParams = map[string]string{
	RoleRequired:       "REQ-PARTICIPANT",
	RoleOptional:       "OPT-PARTICIPANT",
	RoleNonParticipant: "NON-PARTICIPANT",
	RoleChair:          "CHAIR",
}

var roleNames = map[string]string{
	"REQ-PARTICIPANT": RoleRequired,
	"OPT-PARTICIPANT": RoleOptional,
	"NON-PARTICIPANT": RoleNonParticipant,
	"CHAIR":           RoleChair,
}

// Encode serializes an event into an iCalendar document containing a
// single VEVENT. A missing UID is assigned here; DTSTAMP is set to the
// time of serialization. When the event has attendees the envelope
// carries METHOD:REQUEST so downstream mail delivery treats the
// document as an invitation.
func Encode(ev *Event) (string, error) {
	if ev.Summary == "" {
		return "", fmt.Errorf("event summary is required")
	}
	if ev.Start.Time.IsZero() {
		return "", fmt.Errorf("event start is required")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	if len(ev.Attendees) > 0 {
		cal.Props.SetText(ical.PropMethod, "REQUEST")
	}

	vevent := ical.NewComponent(ical.CompEvent)

	uid := ev.UID
	if uid == "" {
		uid = NewEventUID()
	}
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	vevent.Props.SetText(ical.PropSummary, ev.Summary)

	setInstant(vevent.Props, ical.PropDateTimeStart, ev.Start, ev.AllDay)
	if ev.End != nil {
		setInstant(vevent.Props, ical.PropDateTimeEnd, *ev.End, ev.AllDay)
	}

	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Status != "" {
		vevent.Props.SetText(ical.PropStatus, strings.ToUpper(ev.Status))
	}
	if ev.URL != "" {
		vevent.Props.SetText(ical.PropURL, ev.URL)
	}
	if ev.Priority >= 1 && ev.Priority <= 9 {
		vevent.Props.SetText(ical.PropPriority, strconv.Itoa(ev.Priority))
	}
	if ev.Transparency != "" {
		vevent.Props.SetText(ical.PropTransparency, strings.ToUpper(ev.Transparency))
	}
	if len(ev.Categories) > 0 {
		p := ical.NewProp(ical.PropCategories)
		p.SetTextList(ev.Categories)
		vevent.Props.Set(p)
	}
	if ev.Organizer != nil {
		vevent.Props.Set(organizerProp(ev.Organizer))
	}
	for _, a := range ev.Attendees {
		vevent.Props.Add(attendeeProp(a))
	}
	for _, rem := range ev.Reminders {
		vevent.Children = append(vevent.Children, alarmComponent(rem, ev.Summary))
	}
	if ev.Recurrence != nil {
		// RRULE values are RECUR, not TEXT: no escaping of ; and ,
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = ev.Recurrence.Rule()
		vevent.Props.Set(p)
	}

	cal.Children = append(cal.Children, vevent)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode event %s: %w", uid, err)
	}
	return buf.String(), nil
}

// Decode parses an iCalendar document back into an Event. It returns
// nil when the document is structurally unusable: no VEVENT inside a
// VCALENDAR, no UID, or no parseable DTSTART. Every optional field is
// recovered independently, so a single malformed property never fails
// the whole parse. Only the first VEVENT is read.
func Decode(raw string) *Event {
	cal, err := ical.NewDecoder(strings.NewReader(raw)).Decode()
	if err != nil {
		return nil
	}
	vevent := findEvent(cal)
	if vevent == nil {
		return nil
	}
	return decodeEvent(vevent)
}

func findEvent(cal *ical.Calendar) *ical.Component {
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			return child
		}
	}
	return nil
}

func decodeEvent(comp *ical.Component) *Event {
	ev := &Event{}

	if p := comp.Props.Get(ical.PropUID); p != nil {
		ev.UID = p.Value
	}
	if ev.UID == "" {
		return nil
	}

	start, ok := getInstant(comp.Props, ical.PropDateTimeStart)
	if !ok {
		return nil
	}
	ev.Start = start
	ev.AllDay = start.DateOnly
	if end, ok := getInstant(comp.Props, ical.PropDateTimeEnd); ok {
		ev.End = &end
	}

	ev.Summary = textProp(comp.Props, ical.PropSummary)
	ev.Location = textProp(comp.Props, ical.PropLocation)
	ev.Description = textProp(comp.Props, ical.PropDescription)
	ev.URL = textProp(comp.Props, ical.PropURL)
	ev.Status = strings.ToLower(textProp(comp.Props, ical.PropStatus))
	ev.Transparency = strings.ToLower(textProp(comp.Props, ical.PropTransparency))

	if p := comp.Props.Get(ical.PropPriority); p != nil {
		if n, err := strconv.Atoi(p.Value); err == nil && n >= 1 && n <= 9 {
			ev.Priority = n
		}
	}
	if p := comp.Props.Get(ical.PropCategories); p != nil {
		if list, err := p.TextList(); err == nil {
			ev.Categories = list
		}
	}
	if p := comp.Props.Get(ical.PropOrganizer); p != nil {
		ev.Organizer = &Organizer{
			Email: trimMailto(p.Value),
			Name:  p.Params.Get(ical.ParamCommonName),
		}
	}
	for _, p := range comp.Props.Values(ical.PropAttendee) {
		ev.Attendees = append(ev.Attendees, decodeAttendee(&p))
	}
	for _, child := range comp.Children {
		if child.Name == ical.CompAlarm {
			ev.Reminders = append(ev.Reminders, decodeAlarm(child))
		}
	}
	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.Recurrence = ParseRule(p.Value)
	}

	return ev
}

func setInstant(props ical.Props, name string, in Instant, dateOnly bool) {
	props.Del(name)
	p := ical.NewProp(name)
	switch {
	case dateOnly || in.DateOnly:
		p.Params.Set(ical.ParamValue, string(ical.ValueDate))
		p.Value = in.Time.Format(dateLayout)
	case in.TZID != "":
		// Named zone passes through untouched: local wall time plus the
		// zone identifier, no conversion.
		p.Params.Set(ical.ParamTimezoneID, in.TZID)
		p.Value = in.Time.Format(dateTimeLayout)
	default:
		p.Value = in.Time.UTC().Format(dateTimeLayout) + "Z"
	}
	props.Set(p)
}

func getInstant(props ical.Props, name string) (Instant, bool) {
	p := props.Get(name)
	if p == nil {
		return Instant{}, false
	}
	if strings.EqualFold(p.Params.Get(ical.ParamValue), string(ical.ValueDate)) {
		t, err := time.Parse(dateLayout, p.Value)
		if err != nil {
			return Instant{}, false
		}
		return Instant{Time: t, DateOnly: true}, true
	}
	value := strings.TrimSuffix(p.Value, "Z")
	t, err := time.Parse(dateTimeLayout, value)
	if err != nil {
		return Instant{}, false
	}
	if tzid := p.Params.Get(ical.ParamTimezoneID); tzid != "" {
		return Instant{Time: t, TZID: tzid}, true
	}
	return Instant{Time: t}, true
}

func textProp(props ical.Props, name string) string {
	p := props.Get(name)
	if p == nil {
		return ""
	}
	text, err := p.Text()
	if err != nil {
		return p.Value
	}
	return text
}

func organizerProp(o *Organizer) *ical.Prop {
	p := ical.NewProp(ical.PropOrganizer)
	p.Value = "mailto:" + o.Email
	if o.Name != "" {
		p.Params.Set(ical.ParamCommonName, o.Name)
	}
	return p
}

func attendeeProp(a Attendee) *ical.Prop {
	p := ical.NewProp(ical.PropAttendee)
	p.Value = "mailto:" + a.Email
	if a.Name != "" {
		p.Params.Set(ical.ParamCommonName, a.Name)
	}
	rsvp := "TRUE"
	if a.RSVP != nil && !*a.RSVP {
		rsvp = "FALSE"
	}
	p.Params.Set(ical.ParamRSVP, rsvp)
	p.Params.Set(ical.ParamParticipationStatus, "NEEDS-ACTION")
	if role, ok := roleParams[strings.ToLower(a.Role)]; ok {
		p.Params.Set(ical.ParamRole, role)
	}
	return p
}

func decodeAttendee(p *ical.Prop) Attendee {
	a := Attendee{
		Email: trimMailto(p.Value),
		Name:  p.Params.Get(ical.ParamCommonName),
	}
	if strings.EqualFold(p.Params.Get(ical.ParamRSVP), "FALSE") {
		rsvp := false
		a.RSVP = &rsvp
	}
	if ps := p.Params.Get(ical.ParamParticipationStatus); ps != "" {
		a.PartStat = strings.ToLower(ps)
	}
	if role, ok := roleNames[strings.ToUpper(p.Params.Get(ical.ParamRole))]; ok {
		a.Role = role
	}
	return a
}

func alarmComponent(r Reminder, summary string) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	action := strings.ToUpper(r.Action)
	if action == "" {
		action = "DISPLAY"
	}
	alarm.Props.SetText(ical.PropAction, action)

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = triggerValue(r)
	alarm.Props.Set(trigger)

	if action == "DISPLAY" {
		alarm.Props.SetText(ical.PropDescription, summary)
	}
	return alarm
}

// triggerValue picks the reminder offset with minutes, hours, days
// priority and a hardcoded 15-minute fallback.
func triggerValue(r Reminder) string {
	switch {
	case r.MinutesBefore > 0:
		return fmt.Sprintf("-PT%dM", r.MinutesBefore)
	case r.HoursBefore > 0:
		return fmt.Sprintf("-PT%dH", r.HoursBefore)
	case r.DaysBefore > 0:
		return fmt.Sprintf("-P%dD", r.DaysBefore)
	default:
		return "-PT15M"
	}
}

func decodeAlarm(comp *ical.Component) Reminder {
	rem := Reminder{Action: "display"}
	if p := comp.Props.Get(ical.PropAction); p != nil && p.Value != "" {
		rem.Action = strings.ToLower(p.Value)
	}
	if p := comp.Props.Get(ical.PropTrigger); p != nil {
		parseTrigger(p.Value, &rem)
	}
	return rem
}

func parseTrigger(v string, rem *Reminder) {
	v = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(v)), "-")
	switch {
	case strings.HasPrefix(v, "PT") && strings.HasSuffix(v, "M"):
		if n, err := strconv.Atoi(v[2 : len(v)-1]); err == nil {
			rem.MinutesBefore = n
		}
	case strings.HasPrefix(v, "PT") && strings.HasSuffix(v, "H"):
		if n, err := strconv.Atoi(v[2 : len(v)-1]); err == nil {
			rem.HoursBefore = n
		}
	case strings.HasPrefix(v, "P") && strings.HasSuffix(v, "D"):
		if n, err := strconv.Atoi(v[1 : len(v)-1]); err == nil {
			rem.DaysBefore = n
		}
	}
}

func trimMailto(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}
