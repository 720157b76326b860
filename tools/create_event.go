package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/ics"
)

// CreateEventHandler creates a handler for creating calendar events
func CreateEventHandler(client CalendarService, organizerEmail string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		calendar, _ := args["calendar"].(string)
		if err := validateCalendarName(calendar); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		summary, ok := args["summary"].(string)
		if !ok || summary == "" {
			return mcp.NewToolResultError("summary is required"), nil
		}

		startStr, ok := args["start"].(string)
		if !ok || startStr == "" {
			return mcp.NewToolResultError("start is required"), nil
		}

		tzid, _ := args["timezone"].(string)

		start, err := parseInstant(startStr, tzid)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start: %v", err)), nil
		}

		event := &ics.Event{
			Summary: summary,
			Start:   *start,
			AllDay:  start.DateOnly,
		}

		if endStr, ok := args["end"].(string); ok && endStr != "" {
			end, err := parseInstant(endStr, tzid)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid end: %v", err)), nil
			}
			if end.DateOnly != start.DateOnly {
				return mcp.NewToolResultError("start and end must both be dates or both be times"), nil
			}
			event.End = end
		}

		event.Location, _ = args["location"].(string)
		event.Description, _ = args["description"].(string)
		event.URL, _ = args["url"].(string)

		if status, ok := args["status"].(string); ok && status != "" {
			if err := validateStatus(status); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			event.Status = status
		}

		if transp, ok := args["transparency"].(string); ok && transp != "" {
			if err := validateTransparency(transp); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			event.Transparency = transp
		}

		if priority, ok := args["priority"].(float64); ok {
			if err := validatePriority(int(priority)); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			event.Priority = int(priority)
		}

		if cats, ok := args["categories"]; ok && cats != nil {
			event.Categories, err = stringList(cats, "categories")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		if val, ok := args["attendees"]; ok && val != nil {
			event.Attendees, err = parseAttendees(val)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		if val, ok := args["reminders"]; ok && val != nil {
			event.Reminders, err = parseReminders(val)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		if val, ok := args["recurrence"]; ok && val != nil {
			event.Recurrence, err = parseRecurrence(val)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		// Invitations need an organizer to be meaningful
		if len(event.Attendees) > 0 && organizerEmail != "" {
			event.Organizer = &ics.Organizer{Email: organizerEmail}
		}

		raw, err := ics.Encode(event)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to build event: %v", err)), nil
		}

		stored, err := client.PutEventData(ctx, calendar, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create event: %v", err)), nil
		}

		jsonData, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
