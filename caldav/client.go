// Package caldav provides a CalDAV client for calendar access.
package caldav

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/obra/jmap-mcp/ics"
)

// Calendar is a calendar collection on the server.
type Calendar struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// Client wraps a CalDAV connection with calendar discovery caching.
type Client struct {
	baseURL  string
	username string
	password string

	mu        sync.Mutex
	dav       *caldav.Client
	calendars []Calendar
}

// NewClient creates a CalDAV client for the given endpoint. Discovery happens
// lazily on first use.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// basicAuthTransport adds Basic Auth to every request.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// InvalidateCache clears the cached calendar list. The next call re-discovers.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendars = nil
}

func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dav != nil {
		return c.dav, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{username: c.username, password: c.password},
		Timeout:   30 * time.Second,
	}

	dav, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CalDAV server: %w", err)
	}

	c.dav = dav
	return dav, nil
}

// ListCalendars returns all calendars for the authenticated user.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	c.mu.Lock()
	cached := c.calendars
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	dav, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	found, err := dav.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]Calendar, 0, len(found))
	for _, cal := range found {
		calendars = append(calendars, Calendar{
			Name:        cal.Name,
			Path:        cal.Path,
			Description: cal.Description,
		})
	}

	c.mu.Lock()
	c.calendars = calendars
	c.mu.Unlock()
	return calendars, nil
}

// calendarPath resolves a calendar name to its collection path. An empty name
// selects the first calendar.
func (c *Client) calendarPath(ctx context.Context, name string) (string, error) {
	calendars, err := c.ListCalendars(ctx)
	if err != nil {
		return "", err
	}
	if len(calendars) == 0 {
		return "", fmt.Errorf("no calendars found on server")
	}
	if name == "" {
		return calendars[0].Path, nil
	}
	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", name)
}

// ListEvents returns all events in the calendar that overlap [from, to).
// Objects that fail to parse are skipped.
func (c *Client) ListEvents(ctx context.Context, calendarName string, from, to time.Time) ([]*ics.Event, error) {
	dav, err := c.connect()
	if err != nil {
		return nil, err
	}

	path, err := c.calendarPath(ctx, calendarName)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := dav.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	events := make([]*ics.Event, 0, len(objects))
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		event := ics.Decode(serializeCalendar(obj.Data))
		if event == nil {
			slog.Warn("skipping unparseable calendar object", "path", obj.Path)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// GetEventData fetches the raw iCalendar document for an event along with its
// ETag. The raw form is what patch updates operate on.
func (c *Client) GetEventData(ctx context.Context, calendarName, uid string) (string, string, error) {
	dav, err := c.connect()
	if err != nil {
		return "", "", err
	}

	path, err := c.eventPath(ctx, calendarName, uid)
	if err != nil {
		return "", "", err
	}

	obj, err := dav.GetCalendarObject(ctx, path)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch event %s: %w", uid, err)
	}
	if obj.Data == nil {
		return "", "", fmt.Errorf("event %s has no calendar data", uid)
	}

	return serializeCalendar(obj.Data), obj.ETag, nil
}

// PutEventData stores an iCalendar document under the event's UID. An existing
// object at the same path is replaced.
func (c *Client) PutEventData(ctx context.Context, calendarName, raw string) (*ics.Event, error) {
	event := ics.Decode(raw)
	if event == nil {
		return nil, fmt.Errorf("calendar data is not a valid event")
	}

	dav, err := c.connect()
	if err != nil {
		return nil, err
	}

	path, err := c.eventPath(ctx, calendarName, event.UID)
	if err != nil {
		return nil, err
	}

	cal, err := ical.NewDecoder(strings.NewReader(raw)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar data: %w", err)
	}

	if _, err := dav.PutCalendarObject(ctx, path, cal); err != nil {
		return nil, fmt.Errorf("failed to store event %s: %w", event.UID, err)
	}

	return event, nil
}

// DeleteEvent removes an event by UID.
func (c *Client) DeleteEvent(ctx context.Context, calendarName, uid string) error {
	dav, err := c.connect()
	if err != nil {
		return err
	}

	path, err := c.eventPath(ctx, calendarName, uid)
	if err != nil {
		return err
	}

	if err := dav.RemoveAll(ctx, path); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", uid, err)
	}
	return nil
}

func (c *Client) eventPath(ctx context.Context, calendarName, uid string) (string, error) {
	path, err := c.calendarPath(ctx, calendarName)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + ics.Filename(uid), nil
}

func serializeCalendar(cal *ical.Calendar) string {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return ""
	}
	return buf.String()
}
