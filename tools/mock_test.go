package tools

import (
	"context"
	"time"

	"github.com/obra/jmap-mcp/caldav"
	"github.com/obra/jmap-mcp/carddav"
	"github.com/obra/jmap-mcp/ics"
	"github.com/obra/jmap-mcp/jmap"
)

// MockMailService implements MailService for testing.
type MockMailService struct {
	// Return values
	Mailboxes []jmap.Mailbox
	Emails    []jmap.Email
	Email     *jmap.Email

	// Error injection
	Err error

	// Call tracking
	LastMethod  string
	LastMailbox string
	LastQuery   string
	LastFilters jmap.EmailFilters
	LastEmailID string
	LastFrom    string
	LastTo      []string
	LastSubject string
	LastBody    string
	LastOpts    jmap.SendOptions
	CallCount   int
}

func (m *MockMailService) ListMailboxes(ctx context.Context) ([]jmap.Mailbox, error) {
	m.LastMethod = "ListMailboxes"
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Mailboxes, nil
}

func (m *MockMailService) SearchEmails(ctx context.Context, mailbox, query string, filters jmap.EmailFilters) ([]jmap.Email, error) {
	m.LastMethod = "SearchEmails"
	m.LastMailbox = mailbox
	m.LastQuery = query
	m.LastFilters = filters
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Emails, nil
}

func (m *MockMailService) GetEmail(ctx context.Context, id string) (*jmap.Email, error) {
	m.LastMethod = "GetEmail"
	m.LastEmailID = id
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Email, nil
}

func (m *MockMailService) SendEmail(ctx context.Context, from string, to []string, subject, body string, opts jmap.SendOptions) error {
	m.LastMethod = "SendEmail"
	m.LastFrom = from
	m.LastTo = to
	m.LastSubject = subject
	m.LastBody = body
	m.LastOpts = opts
	m.CallCount++
	return m.Err
}

// MockCalendarService implements CalendarService for testing.
type MockCalendarService struct {
	// Return values
	Calendars   []caldav.Calendar
	Events      []*ics.Event
	RawEvent    string
	ETag        string
	StoredEvent *ics.Event

	// Error injection
	Err    error
	GetErr error

	// Call tracking
	LastMethod   string
	LastCalendar string
	LastUID      string
	LastFrom     time.Time
	LastTo       time.Time
	LastRaw      string
	CallCount    int
}

func (m *MockCalendarService) ListCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	m.LastMethod = "ListCalendars"
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Calendars, nil
}

func (m *MockCalendarService) ListEvents(ctx context.Context, calendarName string, from, to time.Time) ([]*ics.Event, error) {
	m.LastMethod = "ListEvents"
	m.LastCalendar = calendarName
	m.LastFrom = from
	m.LastTo = to
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Events, nil
}

func (m *MockCalendarService) GetEventData(ctx context.Context, calendarName, uid string) (string, string, error) {
	m.LastMethod = "GetEventData"
	m.LastCalendar = calendarName
	m.LastUID = uid
	m.CallCount++
	if m.GetErr != nil {
		return "", "", m.GetErr
	}
	if m.Err != nil {
		return "", "", m.Err
	}
	return m.RawEvent, m.ETag, nil
}

func (m *MockCalendarService) PutEventData(ctx context.Context, calendarName, raw string) (*ics.Event, error) {
	m.LastMethod = "PutEventData"
	m.LastCalendar = calendarName
	m.LastRaw = raw
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.StoredEvent != nil {
		return m.StoredEvent, nil
	}
	// Behave like the real client: echo back the decoded document.
	return ics.Decode(raw), nil
}

func (m *MockCalendarService) DeleteEvent(ctx context.Context, calendarName, uid string) error {
	m.LastMethod = "DeleteEvent"
	m.LastCalendar = calendarName
	m.LastUID = uid
	m.CallCount++
	return m.Err
}

// MockContactService implements ContactService for testing.
type MockContactService struct {
	Contacts []carddav.Contact

	Err error

	LastMethod string
	LastQuery  string
	CallCount  int
}

func (m *MockContactService) ListContacts(ctx context.Context) ([]carddav.Contact, error) {
	m.LastMethod = "ListContacts"
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Contacts, nil
}

func (m *MockContactService) SearchContacts(ctx context.Context, query string) ([]carddav.Contact, error) {
	m.LastMethod = "SearchContacts"
	m.LastQuery = query
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Contacts, nil
}
