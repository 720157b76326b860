package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListCalendarsHandler creates a handler for listing calendars
func ListCalendarsHandler(client CalendarService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		calendars, err := client.ListCalendars(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list calendars: %v", err)), nil
		}

		rows := make([][]string, 0, len(calendars))
		for _, cal := range calendars {
			rows = append(rows, []string{cal.Name, cal.Description})
		}

		doc, err := csvDocument([]string{"name", "description"}, rows)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(doc), nil
	}
}
