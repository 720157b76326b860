package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListMailboxesHandler creates a handler for listing mailboxes
func ListMailboxesHandler(client MailService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mailboxes, err := client.ListMailboxes(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list mailboxes: %v", err)), nil
		}

		rows := make([][]string, 0, len(mailboxes))
		for _, mb := range mailboxes {
			rows = append(rows, []string{
				mb.Name,
				mb.Role,
				strconv.Itoa(mb.Total),
				strconv.Itoa(mb.Unread),
			})
		}

		doc, err := csvDocument([]string{"name", "role", "total", "unread"}, rows)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(doc), nil
	}
}
