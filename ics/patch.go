package ics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// Patch is a sparse event update. Every field is three-state: a nil
// pointer leaves the serialized field untouched, a pointer to a value
// replaces it, and for text and slice fields a pointer to an empty
// value removes the field entirely. Priority follows the same contract
// with any value outside 1-9 acting as the clear marker. The event UID
// is not patchable.
type Patch struct {
	Summary      *string
	Start        *Instant
	End          *Instant
	AllDay       *bool
	Location     *string
	Description  *string
	Status       *string
	URL          *string
	Transparency *string
	Priority     *int
	Categories   *[]string
	Attendees    *[]Attendee
	Reminders    *[]Reminder
	Organizer    *Organizer
	Recurrence   *Recurrence
}

// ApplyPatch applies a sparse patch to a previously serialized event
// document and returns the new document. Properties the patch does not
// name keep their values (property order within the document may change);
// DTSTAMP is always refreshed. Unlike Decode, a document that does not
// hold a valid event is a hard error here: there is nothing meaningful
// to patch.
func ApplyPatch(raw string, p *Patch) (string, error) {
	cal, err := ical.NewDecoder(strings.NewReader(raw)).Decode()
	if err != nil {
		return "", fmt.Errorf("parse event document: %w", err)
	}
	vevent := findEvent(cal)
	if vevent == nil {
		return "", fmt.Errorf("document contains no VEVENT")
	}
	if decodeEvent(vevent) == nil {
		return "", fmt.Errorf("document does not hold a valid event")
	}

	patchTimes(vevent, p)

	if p.Summary != nil {
		vevent.Props.SetText(ical.PropSummary, *p.Summary)
	}
	patchText(vevent.Props, ical.PropLocation, p.Location, false)
	patchText(vevent.Props, ical.PropDescription, p.Description, false)
	patchText(vevent.Props, ical.PropStatus, p.Status, true)
	patchText(vevent.Props, ical.PropURL, p.URL, false)
	patchText(vevent.Props, ical.PropTransparency, p.Transparency, true)

	if p.Priority != nil {
		if *p.Priority >= 1 && *p.Priority <= 9 {
			vevent.Props.SetText(ical.PropPriority, strconv.Itoa(*p.Priority))
		} else {
			vevent.Props.Del(ical.PropPriority)
		}
	}
	if p.Categories != nil {
		if len(*p.Categories) == 0 {
			vevent.Props.Del(ical.PropCategories)
		} else {
			prop := ical.NewProp(ical.PropCategories)
			prop.SetTextList(*p.Categories)
			vevent.Props.Set(prop)
		}
	}
	if p.Organizer != nil {
		vevent.Props.Set(organizerProp(p.Organizer))
	}
	if p.Attendees != nil {
		vevent.Props.Del(ical.PropAttendee)
		for _, a := range *p.Attendees {
			vevent.Props.Add(attendeeProp(a))
		}
	}
	if p.Reminders != nil {
		// Alarms are never matched up individually: drop them all,
		// then append the replacement set fresh.
		kept := vevent.Children[:0]
		for _, child := range vevent.Children {
			if child.Name != ical.CompAlarm {
				kept = append(kept, child)
			}
		}
		vevent.Children = kept
		summary := textProp(vevent.Props, ical.PropSummary)
		for _, rem := range *p.Reminders {
			vevent.Children = append(vevent.Children, alarmComponent(rem, summary))
		}
	}
	if p.Recurrence != nil {
		if p.Recurrence.Frequency == "" {
			vevent.Props.Del(ical.PropRecurrenceRule)
		} else {
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = p.Recurrence.Rule()
			vevent.Props.Set(prop)
		}
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode patched event: %w", err)
	}
	return buf.String(), nil
}

// patchTimes rewrites DTSTART/DTEND per the patch. When only the AllDay
// flag changes, the existing tokens are re-emitted at the new
// granularity without altering their clock values.
func patchTimes(vevent *ical.Component, p *Patch) {
	cur, _ := getInstant(vevent.Props, ical.PropDateTimeStart)
	allDay := cur.DateOnly
	if p.AllDay != nil {
		allDay = *p.AllDay
	}
	flipped := p.AllDay != nil && *p.AllDay != cur.DateOnly

	if p.Start != nil {
		setInstant(vevent.Props, ical.PropDateTimeStart, *p.Start, allDay)
	} else if flipped {
		setInstant(vevent.Props, ical.PropDateTimeStart,
			Instant{Time: cur.Time, TZID: cur.TZID}, allDay)
	}

	if p.End != nil {
		setInstant(vevent.Props, ical.PropDateTimeEnd, *p.End, allDay)
	} else if flipped {
		if end, ok := getInstant(vevent.Props, ical.PropDateTimeEnd); ok {
			setInstant(vevent.Props, ical.PropDateTimeEnd,
				Instant{Time: end.Time, TZID: end.TZID}, allDay)
		}
	}
}

// patchText applies three-state semantics to a text property: empty
// string deletes, non-empty replaces. Enumerated fields (STATUS, TRANSP)
// are uppercased on the way out.
func patchText(props ical.Props, name string, v *string, upper bool) {
	if v == nil {
		return
	}
	if *v == "" {
		props.Del(name)
		return
	}
	value := *v
	if upper {
		value = strings.ToUpper(value)
	}
	props.SetText(name, value)
}
