package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/ics"
)

// UpdateEventHandler creates a handler for sparse event updates. Arguments
// are three-state: an omitted field is left untouched, a provided value
// replaces it, and an empty string or array clears it.
func UpdateEventHandler(client CalendarService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		calendar, _ := args["calendar"].(string)
		if err := validateCalendarName(calendar); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		uid, ok := args["event_uid"].(string)
		if !ok || uid == "" {
			return mcp.NewToolResultError("event_uid is required"), nil
		}
		if err := validateEventUID(uid); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		patch, errResult := buildPatch(args)
		if errResult != nil {
			return errResult, nil
		}

		raw, _, err := client.GetEventData(ctx, calendar, uid)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch event: %v", err)), nil
		}

		patched, err := ics.ApplyPatch(raw, patch)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to apply update: %v", err)), nil
		}

		stored, err := client.PutEventData(ctx, calendar, patched)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to store event: %v", err)), nil
		}

		jsonData, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// buildPatch maps tool arguments onto a sparse patch, keeping the
// present/empty/absent distinction of the raw argument map.
func buildPatch(args map[string]interface{}) (*ics.Patch, *mcp.CallToolResult) {
	patch := &ics.Patch{}
	tzid, _ := args["timezone"].(string)

	if val, present := args["summary"]; present {
		summary, ok := val.(string)
		if !ok || summary == "" {
			return nil, mcp.NewToolResultError("summary cannot be cleared; provide a new value")
		}
		patch.Summary = &summary
	}

	if val, present := args["start"]; present {
		startStr, _ := val.(string)
		start, err := parseInstant(startStr, tzid)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid start: %v", err))
		}
		patch.Start = start
	}

	if val, present := args["end"]; present {
		endStr, _ := val.(string)
		end, err := parseInstant(endStr, tzid)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid end: %v", err))
		}
		patch.End = end
	}

	if val, present := args["all_day"]; present {
		allDay, ok := val.(bool)
		if !ok {
			return nil, mcp.NewToolResultError("all_day must be a boolean")
		}
		patch.AllDay = &allDay
	}

	for key, field := range map[string]**string{
		"location":    &patch.Location,
		"description": &patch.Description,
		"url":         &patch.URL,
	} {
		if val, present := args[key]; present {
			s, ok := val.(string)
			if !ok {
				return nil, mcp.NewToolResultError(fmt.Sprintf("%s must be a string", key))
			}
			*field = &s
		}
	}

	if val, present := args["status"]; present {
		status, _ := val.(string)
		if status != "" {
			if err := validateStatus(status); err != nil {
				return nil, mcp.NewToolResultError(err.Error())
			}
		}
		patch.Status = &status
	}

	if val, present := args["transparency"]; present {
		transp, _ := val.(string)
		if transp != "" {
			if err := validateTransparency(transp); err != nil {
				return nil, mcp.NewToolResultError(err.Error())
			}
		}
		patch.Transparency = &transp
	}

	if val, present := args["priority"]; present {
		num, ok := val.(float64)
		if !ok {
			return nil, mcp.NewToolResultError("priority must be a number")
		}
		priority := int(num)
		if err := validatePriority(priority); err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
		patch.Priority = &priority
	}

	if val, present := args["categories"]; present {
		cats, err := stringList(val, "categories")
		if err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
		if cats == nil {
			cats = []string{}
		}
		patch.Categories = &cats
	}

	if val, present := args["attendees"]; present {
		attendees, err := parseAttendees(val)
		if err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
		patch.Attendees = &attendees
	}

	if val, present := args["reminders"]; present {
		reminders, err := parseReminders(val)
		if err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
		patch.Reminders = &reminders
	}

	if val, present := args["recurrence"]; present {
		if obj, ok := val.(map[string]interface{}); ok && len(obj) == 0 {
			// Empty object clears the recurrence rule
			patch.Recurrence = &ics.Recurrence{}
		} else {
			rec, err := parseRecurrence(val)
			if err != nil {
				return nil, mcp.NewToolResultError(err.Error())
			}
			patch.Recurrence = rec
		}
	}

	return patch, nil
}
