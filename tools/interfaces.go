package tools

import (
	"context"
	"time"

	"github.com/obra/jmap-mcp/caldav"
	"github.com/obra/jmap-mcp/carddav"
	"github.com/obra/jmap-mcp/ics"
	"github.com/obra/jmap-mcp/jmap"
)

// MailService defines the JMAP operations the tools need. The concrete
// *jmap.Client satisfies this.
type MailService interface {
	ListMailboxes(ctx context.Context) ([]jmap.Mailbox, error)
	SearchEmails(ctx context.Context, mailbox, query string, filters jmap.EmailFilters) ([]jmap.Email, error)
	GetEmail(ctx context.Context, id string) (*jmap.Email, error)
	SendEmail(ctx context.Context, from string, to []string, subject, body string, opts jmap.SendOptions) error
}

// CalendarService defines the CalDAV operations. The concrete
// *caldav.Client satisfies this.
type CalendarService interface {
	ListCalendars(ctx context.Context) ([]caldav.Calendar, error)
	ListEvents(ctx context.Context, calendarName string, from, to time.Time) ([]*ics.Event, error)
	GetEventData(ctx context.Context, calendarName, uid string) (raw, etag string, err error)
	PutEventData(ctx context.Context, calendarName, raw string) (*ics.Event, error)
	DeleteEvent(ctx context.Context, calendarName, uid string) error
}

// ContactService defines the CardDAV operations. The concrete
// *carddav.Client satisfies this.
type ContactService interface {
	ListContacts(ctx context.Context) ([]carddav.Contact, error)
	SearchContacts(ctx context.Context, query string) ([]carddav.Contact, error)
}
