package tools

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/obra/jmap-mcp/ics"
	"github.com/obra/jmap-mcp/jmap"
)

// csvDocument renders a header plus rows as CSV text.
func csvDocument(header []string, rows [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// formatAddress renders a mail address for display.
func formatAddress(addr jmap.EmailAddress) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Email)
	}
	return addr.Email
}

func formatAddresses(addrs []jmap.EmailAddress) string {
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, formatAddress(addr))
	}
	return strings.Join(parts, ", ")
}

// formatInstant renders an event time for display: a bare date for all-day
// values, local time plus zone name for zoned values, RFC 3339 otherwise.
func formatInstant(inst *ics.Instant) string {
	if inst == nil {
		return ""
	}
	if inst.DateOnly {
		return inst.Time.Format("2006-01-02")
	}
	if inst.TZID != "" {
		return inst.Time.Format("2006-01-02T15:04:05") + " " + inst.TZID
	}
	return inst.Time.Format(time.RFC3339)
}
