package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/jmap"
)

// GetEmailHandler creates a handler for getting full email content
func GetEmailHandler(client MailService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		// Get required email_id
		emailID, ok := args["email_id"].(string)
		if !ok || emailID == "" {
			return mcp.NewToolResultError("email_id is required"), nil
		}
		if err := validateEmailID(emailID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		email, err := client.GetEmail(ctx, emailID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get email: %v", err)), nil
		}

		return mcp.NewToolResultText(formatEmail(email)), nil
	}
}

// formatEmail renders a fetched email as message-style header lines followed
// by the plain text body.
func formatEmail(email *jmap.Email) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\n", formatAddresses(email.From))
	fmt.Fprintf(&sb, "To: %s\n", formatAddresses(email.To))
	if len(email.CC) > 0 {
		fmt.Fprintf(&sb, "Cc: %s\n", formatAddresses(email.CC))
	}
	fmt.Fprintf(&sb, "Date: %s\n", email.ReceivedAt.Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "Subject: %s\n", email.Subject)
	if email.Unread {
		sb.WriteString("Status: unread\n")
	}
	sb.WriteString("\n")
	sb.WriteString(email.Body)
	return sb.String()
}
