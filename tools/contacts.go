package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/obra/jmap-mcp/carddav"
)

// ListContactsHandler creates a handler for listing all contacts
func ListContactsHandler(client ContactService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contacts, err := client.ListContacts(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list contacts: %v", err)), nil
		}
		return contactsResult(contacts)
	}
}

// SearchContactsHandler creates a handler for searching contacts
func SearchContactsHandler(client ContactService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		query, ok := args["query"].(string)
		if !ok || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		contacts, err := client.SearchContacts(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search contacts: %v", err)), nil
		}
		return contactsResult(contacts)
	}
}

func contactsResult(contacts []carddav.Contact) (*mcp.CallToolResult, error) {
	rows := make([][]string, 0, len(contacts))
	for _, contact := range contacts {
		rows = append(rows, []string{
			contact.Name,
			strings.Join(contact.Emails, "; "),
			strings.Join(contact.Phones, "; "),
			contact.Organization,
		})
	}

	doc, err := csvDocument([]string{"name", "emails", "phones", "organization"}, rows)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%d contacts\n%s", len(rows), doc)), nil
}
