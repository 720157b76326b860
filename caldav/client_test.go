package caldav

import (
	"context"
	"strings"
	"testing"
)

func testClient(calendars ...Calendar) *Client {
	c := NewClient("https://caldav.example.com", "user", "pass")
	c.calendars = calendars
	return c
}

func TestCalendarPath(t *testing.T) {
	c := testClient(
		Calendar{Name: "Personal", Path: "/dav/calendars/user/personal/"},
		Calendar{Name: "Work", Path: "/dav/calendars/user/work/"},
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		lookup  string
		want    string
		wantErr bool
	}{
		{"empty name picks first", "", "/dav/calendars/user/personal/", false},
		{"exact match", "Work", "/dav/calendars/user/work/", false},
		{"case insensitive", "wOrK", "/dav/calendars/user/work/", false},
		{"unknown calendar", "Holidays", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.calendarPath(ctx, tt.lookup)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("calendarPath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalendarPathNoCalendars(t *testing.T) {
	c := testClient()
	c.calendars = []Calendar{}
	if _, err := c.calendarPath(context.Background(), ""); err == nil {
		t.Fatal("expected error when server has no calendars")
	}
}

func TestEventPath(t *testing.T) {
	c := testClient(Calendar{Name: "Personal", Path: "/dav/calendars/user/personal"})

	got, err := c.eventPath(context.Background(), "Personal", "1700000000000-abc@jmap-mcp")
	if err != nil {
		t.Fatalf("eventPath failed: %v", err)
	}
	want := "/dav/calendars/user/personal/1700000000000-abc@jmap-mcp.ics"
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestInvalidateCache(t *testing.T) {
	c := testClient(Calendar{Name: "Personal", Path: "/p/"})
	c.InvalidateCache()
	if c.calendars != nil {
		t.Error("cache not cleared")
	}
}

func TestPutEventDataRejectsGarbage(t *testing.T) {
	c := testClient(Calendar{Name: "Personal", Path: "/p/"})
	if _, err := c.PutEventData(context.Background(), "Personal", "not a calendar"); err == nil {
		t.Fatal("expected error for invalid calendar data")
	}
	if _, err := c.PutEventData(context.Background(), "Personal", strings.Repeat("X-FOO:bar\r\n", 3)); err == nil {
		t.Fatal("expected error for data without a VEVENT")
	}
}
