package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/ics"
)

const defaultListWindowDays = 30

// ListEventsHandler creates a handler for listing calendar events
func ListEventsHandler(client CalendarService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		calendar, _ := args["calendar"].(string)
		if err := validateCalendarName(calendar); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		// Default window: now through the next 30 days
		from := time.Now()
		to := from.AddDate(0, 0, defaultListWindowDays)

		if fromStr, ok := args["from"].(string); ok && fromStr != "" {
			t, err := parseWindowTime(fromStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid from: %v", err)), nil
			}
			from = t
			to = from.AddDate(0, 0, defaultListWindowDays)
		}
		if toStr, ok := args["to"].(string); ok && toStr != "" {
			t, err := parseWindowTime(toStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid to: %v", err)), nil
			}
			to = t
		}
		if !to.After(from) {
			return mcp.NewToolResultError("'to' must be after 'from'"), nil
		}

		events, err := client.ListEvents(ctx, calendar, from, to)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list events: %v", err)), nil
		}

		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			recurrence := ""
			next := ""
			if ev.Recurrence != nil {
				recurrence = ev.Recurrence.Describe()
				if occ := ics.Occurrences(ev, from, to, 3); len(occ) > 0 {
					times := make([]string, 0, len(occ))
					for _, t := range occ {
						times = append(times, t.Format(time.RFC3339))
					}
					next = strings.Join(times, "; ")
				}
			}
			rows = append(rows, []string{
				ev.UID,
				ev.Summary,
				formatInstant(&ev.Start),
				formatInstant(ev.End),
				fmt.Sprintf("%t", ev.AllDay),
				ev.Location,
				ev.Status,
				recurrence,
				next,
			})
		}

		doc, err := csvDocument(
			[]string{"uid", "summary", "start", "end", "all_day", "location", "status", "repeats", "next_occurrences"},
			rows,
		)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("%d events between %s and %s\n%s",
			len(events), from.Format("2006-01-02"), to.Format("2006-01-02"), doc)), nil
	}
}

// parseWindowTime accepts a bare date or an RFC 3339 timestamp.
func parseWindowTime(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date or RFC 3339 timestamp", value)
	}
	return t, nil
}
