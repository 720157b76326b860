package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// DeleteEventHandler creates a handler for deleting calendar events
func DeleteEventHandler(client CalendarService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

		if err := client.DeleteEvent(ctx, calendar, uid); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete event: %v", err)), nil
		}

		response := map[string]interface{}{
			"success":   true,
			"message":   fmt.Sprintf("Event %s deleted", uid),
			"event_uid": uid,
		}

		jsonData, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
