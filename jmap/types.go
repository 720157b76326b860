package jmap

import "time"

// JMAP capability URNs this client uses.
const (
	capCore       = "urn:ietf:params:jmap:core"
	capMail       = "urn:ietf:params:jmap:mail"
	capSubmission = "urn:ietf:params:jmap:submission"
)

// Mailbox is a JMAP mailbox (folder).
type Mailbox struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Total  int    `json:"totalEmails"`
	Unread int    `json:"unreadEmails"`
}

// EmailAddress is a name/address pair as JMAP represents it.
type EmailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Email is a mail message as returned by Email/get.
type Email struct {
	ID         string         `json:"id"`
	BlobID     string         `json:"blobId,omitempty"`
	From       []EmailAddress `json:"from,omitempty"`
	To         []EmailAddress `json:"to,omitempty"`
	CC         []EmailAddress `json:"cc,omitempty"`
	Subject    string         `json:"subject"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Preview    string         `json:"preview,omitempty"`
	Unread     bool           `json:"unread"`
	Body       string         `json:"body,omitempty"`
}

// EmailFilters narrows an Email/query.
type EmailFilters struct {
	Since      *time.Time
	Before     *time.Time
	UnreadOnly bool
	Limit      int
}

// SendOptions carries the optional parts of an outgoing message.
type SendOptions struct {
	CC   []string
	BCC  []string
	HTML bool
}

// session is the JMAP session object fetched from the well-known URL.
type session struct {
	APIURL          string            `json:"apiUrl"`
	UploadURL       string            `json:"uploadUrl"`
	PrimaryAccounts map[string]string `json:"primaryAccounts"`
}

// jmapEmail is the raw Email/get shape before conversion to Email.
type jmapEmail struct {
	ID         string          `json:"id"`
	BlobID     string          `json:"blobId"`
	Keywords   map[string]bool `json:"keywords"`
	From       []EmailAddress  `json:"from"`
	To         []EmailAddress  `json:"to"`
	CC         []EmailAddress  `json:"cc"`
	Subject    string          `json:"subject"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Preview    string          `json:"preview"`
	TextBody   []struct {
		PartID string `json:"partId"`
	} `json:"textBody"`
	BodyValues map[string]struct {
		Value string `json:"value"`
	} `json:"bodyValues"`
}

func (e *jmapEmail) toEmail() Email {
	out := Email{
		ID:         e.ID,
		BlobID:     e.BlobID,
		From:       e.From,
		To:         e.To,
		CC:         e.CC,
		Subject:    e.Subject,
		ReceivedAt: e.ReceivedAt,
		Preview:    e.Preview,
		Unread:     !e.Keywords["$seen"],
	}
	for _, part := range e.TextBody {
		if bv, ok := e.BodyValues[part.PartID]; ok {
			out.Body += bv.Value
		}
	}
	return out
}

// identity is a JMAP sending identity.
type identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
