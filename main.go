package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/obra/jmap-mcp/caldav"
	"github.com/obra/jmap-mcp/carddav"
	"github.com/obra/jmap-mcp/config"
	"github.com/obra/jmap-mcp/jmap"
	"github.com/obra/jmap-mcp/tools"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	// Initialize structured logging
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		switch strings.ToUpper(lvl) {
		case "DEBUG":
			logLevel.Set(slog.LevelDebug)
		case "WARN":
			logLevel.Set(slog.LevelWarn)
		case "ERROR":
			logLevel.Set(slog.LevelError)
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Create protocol clients
	mailClient := jmap.NewClient(cfg.JMAPSessionURL, cfg.JMAPToken)
	calClient := caldav.NewClient(cfg.CalDAVURL, cfg.DAVUsername, cfg.DAVPassword)
	contactClient := carddav.NewClient(cfg.CardDAVURL, cfg.DAVUsername, cfg.DAVPassword)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Test JMAP connection by listing mailboxes
	if _, err := mailClient.ListMailboxes(ctx); err != nil {
		slog.Error("failed to connect to JMAP server (check credentials)", "error", err)
		os.Exit(1)
	}

	// Create MCP server with middleware (applied in reverse: logging wraps timeout wraps handler)
	s := server.NewMCPServer(
		"JMAP Mail & Calendar Server",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(timeoutMiddleware(60*time.Second)),
		server.WithToolHandlerMiddleware(loggingMiddleware()),
	)

	// Register search_emails tool
	searchEmailsTool := mcp.NewTool("search_emails",
		mcp.WithDescription("Search and list emails with optional filters. Use list_mailboxes first to discover valid mailbox names. Returns CSV with each email's id (use with get_email), from, subject, received date, unread status, and preview."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Search term to find in subject and body text"),
		),
		mcp.WithString("mailbox",
			mcp.Description("Mailbox to search in. Use list_mailboxes to discover valid names."),
			mcp.DefaultString("Inbox"),
		),
		mcp.WithNumber("last_days",
			mcp.Description("Only return emails from the last N days. Ignored if 'since' is provided."),
			mcp.DefaultNumber(30),
			mcp.Min(1),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of emails to return. Most recent emails are returned first."),
			mcp.DefaultNumber(50),
			mcp.Min(1),
			mcp.Max(200),
		),
		mcp.WithBoolean("unread_only",
			mcp.Description("Only return unread emails."),
			mcp.DefaultBool(false),
		),
		mcp.WithString("since",
			mcp.Description("Start date filter in RFC 3339 format (e.g., '2024-01-15T14:30:00Z'). Overrides last_days."),
		),
		mcp.WithString("before",
			mcp.Description("End date filter in RFC 3339 format (e.g., '2024-01-15T14:30:00Z')."),
		),
	)
	s.AddTool(searchEmailsTool, tools.SearchEmailsHandler(mailClient))

	// Register get_email tool
	getEmailTool := mcp.NewTool("get_email",
		mcp.WithDescription("Fetch full email content by ID. Use search_emails first to find email IDs. Returns message headers (from, to, cc, date, subject) followed by the plain text body."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("email_id",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Email ID from search_emails results."),
		),
	)
	s.AddTool(getEmailTool, tools.GetEmailHandler(mailClient))

	// Register send_email tool
	sendEmailTool := mcp.NewTool("send_email",
		mcp.WithDescription("Compose and send a new email. Returns success status and subject. Calling twice will send duplicate emails."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("to",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Recipient email address (string) or JSON array of addresses."),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Email subject line."),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Email body content. Plain text by default; set html=true for HTML."),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address (string) or JSON array of addresses."),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address (string) or JSON array of addresses."),
		),
		mcp.WithBoolean("html",
			mcp.Description("Set true if body contains HTML."),
			mcp.DefaultBool(false),
		),
	)
	s.AddTool(sendEmailTool, tools.SendEmailHandler(mailClient, cfg.AccountEmail))

	// Register list_mailboxes tool
	listMailboxesTool := mcp.NewTool("list_mailboxes",
		mcp.WithDescription("List all mailboxes with message counts. Returns names that can be used as the 'mailbox' parameter in search_emails. Call this first to discover valid mailbox names."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(listMailboxesTool, tools.ListMailboxesHandler(mailClient))

	// Register list_calendars tool
	listCalendarsTool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List all calendars. Returns names that can be used as the 'calendar' parameter in event tools. The first calendar is the default when 'calendar' is omitted."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(listCalendarsTool, tools.ListCalendarsHandler(calClient))

	// Register list_events tool
	listEventsTool := mcp.NewTool("list_events",
		mcp.WithDescription("List calendar events in a time window (default: the next 30 days). Returns CSV with each event's uid (use with update_event/delete_event), summary, times, location, status, a plain-language recurrence description, and upcoming occurrence times for repeating events."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (from list_calendars). Omit for the default calendar."),
		),
		mcp.WithString("from",
			mcp.Description("Window start as a date ('2025-12-01') or RFC 3339 timestamp. Defaults to now."),
		),
		mcp.WithString("to",
			mcp.Description("Window end as a date or RFC 3339 timestamp. Defaults to 30 days after 'from'."),
		),
	)
	s.AddTool(listEventsTool, tools.ListEventsHandler(calClient))

	// Register create_event tool
	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Create a calendar event. A bare date start ('2025-12-25') creates an all-day event; a timestamp creates a timed one. Adding attendees turns the event into an invitation. Returns the stored event including its generated uid."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (from list_calendars). Omit for the default calendar."),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Event title."),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Start as a date ('2025-12-25', all-day), an RFC 3339 timestamp, or a local time ('2025-12-25T10:00:00') when 'timezone' is set."),
		),
		mcp.WithString("end",
			mcp.Description("End time in the same form as start."),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone name (e.g. 'Europe/Amsterdam') for interpreting local start/end times."),
		),
		mcp.WithString("location",
			mcp.Description("Event location."),
		),
		mcp.WithString("description",
			mcp.Description("Longer event description."),
		),
		mcp.WithString("status",
			mcp.Enum("confirmed", "tentative", "cancelled"),
			mcp.Description("Event status."),
		),
		mcp.WithString("transparency",
			mcp.Enum("opaque", "transparent"),
			mcp.Description("Whether the event blocks time ('opaque') or not ('transparent')."),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority from 1 (highest) to 9 (lowest)."),
			mcp.Min(1),
			mcp.Max(9),
		),
		mcp.WithString("url",
			mcp.Description("URL associated with the event."),
		),
		mcp.WithArray("categories",
			mcp.Description("Category tags."),
		),
		mcp.WithArray("attendees",
			mcp.Description("Attendees: email strings or objects with email, name, role (required/optional/non-participant/chair), and rsvp fields."),
		),
		mcp.WithArray("reminders",
			mcp.Description("Reminders: numbers (minutes before) or objects with minutes_before/hours_before/days_before and action (display/email)."),
		),
		mcp.WithObject("recurrence",
			mcp.Description("Repeat rule: {frequency (daily/weekly/monthly/yearly), interval, count, until, by_day (e.g. ['MO','WE'])}."),
		),
	)
	s.AddTool(createEventTool, tools.CreateEventHandler(calClient, cfg.AccountEmail))

	// Register update_event tool
	updateEventTool := mcp.NewTool("update_event",
		mcp.WithDescription("Update fields of an existing event. Omitted fields keep their current values; an empty string or empty array clears a field (location, description, status, url, transparency, categories, attendees, reminders; priority 0 and recurrence {} also clear). Use list_events to find event uids."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (from list_calendars). Omit for the default calendar."),
		),
		mcp.WithString("event_uid",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Event uid (from list_events or create_event)."),
		),
		mcp.WithString("summary",
			mcp.Description("New event title."),
		),
		mcp.WithString("start",
			mcp.Description("New start time (same forms as create_event)."),
		),
		mcp.WithString("end",
			mcp.Description("New end time."),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone name for interpreting local start/end times."),
		),
		mcp.WithBoolean("all_day",
			mcp.Description("Convert the event to all-day (true) or timed (false)."),
		),
		mcp.WithString("location",
			mcp.Description("New location. Empty string clears it."),
		),
		mcp.WithString("description",
			mcp.Description("New description. Empty string clears it."),
		),
		mcp.WithString("status",
			mcp.Description("New status (confirmed/tentative/cancelled). Empty string clears it."),
		),
		mcp.WithString("transparency",
			mcp.Description("New transparency (opaque/transparent). Empty string clears it."),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority 1-9, or 0 to clear."),
			mcp.Min(0),
			mcp.Max(9),
		),
		mcp.WithString("url",
			mcp.Description("New URL. Empty string clears it."),
		),
		mcp.WithArray("categories",
			mcp.Description("Replacement category tags. Empty array clears them."),
		),
		mcp.WithArray("attendees",
			mcp.Description("Replacement attendee list. Empty array clears it."),
		),
		mcp.WithArray("reminders",
			mcp.Description("Replacement reminder list. Empty array clears it."),
		),
		mcp.WithObject("recurrence",
			mcp.Description("Replacement repeat rule. Empty object clears it."),
		),
	)
	s.AddTool(updateEventTool, tools.UpdateEventHandler(calClient))

	// Register delete_event tool
	deleteEventTool := mcp.NewTool("delete_event",
		mcp.WithDescription("Delete a calendar event by uid. This cannot be undone. Use list_events to find event uids."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (from list_calendars). Omit for the default calendar."),
		),
		mcp.WithString("event_uid",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Event uid to delete (from list_events)."),
		),
	)
	s.AddTool(deleteEventTool, tools.DeleteEventHandler(calClient))

	// Register list_contacts tool
	listContactsTool := mcp.NewTool("list_contacts",
		mcp.WithDescription("List all contacts from the address book. Returns CSV with name, email addresses, phone numbers, and organization."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(listContactsTool, tools.ListContactsHandler(contactClient))

	// Register search_contacts tool
	searchContactsTool := mcp.NewTool("search_contacts",
		mcp.WithDescription("Search contacts by name, email address, or organization. Matching is case-insensitive substring."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Search term matched against contact names, emails, and organizations."),
		),
	)
	s.AddTool(searchContactsTool, tools.SearchContactsHandler(contactClient))

	// Log startup
	slog.Info("server starting",
		"version", version,
		"jmap_session_url", cfg.JMAPSessionURL,
		"caldav_url", cfg.CalDAVURL,
		"carddav_url", cfg.CardDAVURL,
	)

	// Start the stdio server with cancellable context
	stdioServer := server.NewStdioServer(s)
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// timeoutMiddleware wraps each tool handler with a context deadline.
func timeoutMiddleware(timeout time.Duration) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// loggingMiddleware logs each tool call with a unique request ID, tool name, duration, and outcome.
func loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			requestID := uuid.New().String()
			tool := req.Params.Name
			logger := slog.With("request_id", requestID, "tool", tool)

			logger.Debug("tool call started")
			start := time.Now()

			result, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				logger.Error("tool call failed", "duration_ms", duration.Milliseconds(), "error", err)
			} else if result != nil && result.IsError {
				logger.Warn("tool call returned error", "duration_ms", duration.Milliseconds())
			} else {
				logger.Info("tool call completed", "duration_ms", duration.Milliseconds())
			}

			return result, err
		}
	}
}
