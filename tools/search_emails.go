package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/jmap"
)

// SearchEmailsHandler creates a handler for searching emails
func SearchEmailsHandler(client MailService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		// Get mailbox (default to Inbox)
		mailbox, _ := args["mailbox"].(string)
		if mailbox == "" {
			mailbox = "Inbox"
		}

		// Get search query (optional)
		query, _ := args["query"].(string)

		// Build filters
		filters := jmap.EmailFilters{
			Limit: 50, // Default limit
		}
		lastDays := 30 // Default to 30 days

		// Parse last_days
		if days, ok := args["last_days"].(float64); ok && days > 0 {
			lastDays = int(days)
		}

		// Parse limit
		if limit, ok := args["limit"].(float64); ok && limit > 0 {
			filters.Limit = int(limit)
			if filters.Limit > 200 {
				filters.Limit = 200 // Max limit
			}
		}

		// Parse unread_only
		if unreadOnly, ok := args["unread_only"].(bool); ok {
			filters.UnreadOnly = unreadOnly
		}

		// Parse since (overrides last_days if provided)
		if sinceStr, ok := args["since"].(string); ok && sinceStr != "" {
			t, err := time.Parse(time.RFC3339, sinceStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid since format: %v (use ISO 8601 format like '2024-01-15T14:30:00Z')", err)), nil
			}
			filters.Since = &t
			lastDays = 0 // Clear last_days when since is provided
		}

		// Parse before
		if beforeStr, ok := args["before"].(string); ok && beforeStr != "" {
			t, err := time.Parse(time.RFC3339, beforeStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid before format: %v (use ISO 8601 format like '2024-01-15T14:30:00Z')", err)), nil
			}
			filters.Before = &t
		}

		if lastDays > 0 {
			since := time.Now().AddDate(0, 0, -lastDays)
			filters.Since = &since
		}

		// Search emails
		emails, err := client.SearchEmails(ctx, mailbox, query, filters)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search emails: %v", err)), nil
		}

		// Format response as CSV
		rows := make([][]string, 0, len(emails))
		for _, email := range emails {
			unread := ""
			if email.Unread {
				unread = "unread"
			}
			rows = append(rows, []string{
				email.ID,
				formatAddresses(email.From),
				email.Subject,
				email.ReceivedAt.Format(time.RFC3339),
				unread,
				email.Preview,
			})
		}

		doc, err := csvDocument([]string{"id", "from", "subject", "received", "unread", "preview"}, rows)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("%d emails in %s\n%s", len(emails), mailbox, doc)), nil
	}
}
