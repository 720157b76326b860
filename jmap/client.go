// Package jmap implements the JMAP mail transport: session discovery,
// mailbox and email reads, and message submission, per RFC 8620/8621.
package jmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"
)

const requestTimeout = 30 * time.Second

// Client talks to a JMAP server with Bearer-token auth. Mailbox and
// identity lookups are cached on the client; InvalidateCache drops the
// cached state so the next call re-discovers it.
type Client struct {
	sessionURL string
	token      string
	httpClient *http.Client

	mu         sync.Mutex
	sess       *session
	mailboxes  []Mailbox
	identities []identity
}

// NewClient creates a JMAP client. sessionURL is the well-known session
// endpoint (e.g. https://api.fastmail.com/jmap/session).
func NewClient(sessionURL, token string) *Client {
	return &Client{
		sessionURL: sessionURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// InvalidateCache drops the cached session, mailbox, and identity state.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = nil
	c.mailboxes = nil
	c.identities = nil
}

// ensureSession fetches and caches the JMAP session object.
func (c *Client) ensureSession(ctx context.Context) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return c.sess, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JMAP session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("authentication failed (401): check your JMAP API token")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("session request failed with status %d", resp.StatusCode)
	}

	var sess session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	if sess.PrimaryAccounts[capMail] == "" {
		return nil, fmt.Errorf("JMAP server exposes no mail account")
	}

	c.sess = &sess
	return c.sess, nil
}

type methodCall struct {
	Name string
	Args interface{}
	Tag  string
}

func (m methodCall) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{m.Name, m.Args, m.Tag})
}

type methodResponse struct {
	Name string
	Args json.RawMessage
	Tag  string
}

func (m *methodResponse) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("method response has %d elements, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &m.Name); err != nil {
		return err
	}
	m.Args = parts[1]
	return json.Unmarshal(parts[2], &m.Tag)
}

// call posts a JMAP API request and returns the method responses.
func (c *Client) call(ctx context.Context, using []string, calls []methodCall) ([]methodResponse, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"using":       using,
		"methodCalls": calls,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling JMAP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing JMAP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading JMAP response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("JMAP API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		MethodResponses []methodResponse `json:"methodResponses"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding JMAP response: %w", err)
	}

	for _, mr := range parsed.MethodResponses {
		if mr.Name == "error" {
			var detail struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			_ = json.Unmarshal(mr.Args, &detail)
			return nil, fmt.Errorf("JMAP method error (%s): %s %s", mr.Tag, detail.Type, detail.Description)
		}
	}
	return parsed.MethodResponses, nil
}

func (c *Client) accountID(ctx context.Context) (string, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	return sess.PrimaryAccounts[capMail], nil
}

// ListMailboxes returns all mailboxes, from cache when warm.
func (c *Client) ListMailboxes(ctx context.Context) ([]Mailbox, error) {
	c.mu.Lock()
	cached := c.mailboxes
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	accountID, err := c.accountID(ctx)
	if err != nil {
		return nil, err
	}

	resps, err := c.call(ctx, []string{capCore, capMail}, []methodCall{{
		Name: "Mailbox/get",
		Args: map[string]interface{}{"accountId": accountID, "ids": nil},
		Tag:  "0",
	}})
	if err != nil {
		return nil, err
	}

	args := findResponse(resps, "0")
	if args == nil {
		return nil, fmt.Errorf("JMAP response missing Mailbox/get result")
	}
	var result struct {
		List []Mailbox `json:"list"`
	}
	if err := json.Unmarshal(args, &result); err != nil {
		return nil, fmt.Errorf("decoding Mailbox/get response: %w", err)
	}

	c.mu.Lock()
	c.mailboxes = result.List
	c.mu.Unlock()
	return result.List, nil
}

// mailboxID resolves a mailbox by name (case-insensitive) or by role.
func (c *Client) mailboxID(ctx context.Context, name string) (string, error) {
	boxes, err := c.ListMailboxes(ctx)
	if err != nil {
		return "", err
	}
	for _, mb := range boxes {
		if strings.EqualFold(mb.Name, name) {
			return mb.ID, nil
		}
	}
	for _, mb := range boxes {
		if strings.EqualFold(mb.Role, name) {
			return mb.ID, nil
		}
	}
	return "", fmt.Errorf("mailbox %q not found", name)
}

func (c *Client) mailboxIDByRole(ctx context.Context, role string) (string, error) {
	boxes, err := c.ListMailboxes(ctx)
	if err != nil {
		return "", err
	}
	for _, mb := range boxes {
		if strings.EqualFold(mb.Role, role) {
			return mb.ID, nil
		}
	}
	return "", fmt.Errorf("no mailbox with role %q", role)
}

var listProperties = []string{
	"id", "blobId", "keywords", "from", "to", "cc",
	"subject", "receivedAt", "preview",
}

// SearchEmails runs Email/query + Email/get in one request and returns
// matching messages, most recent first.
func (c *Client) SearchEmails(ctx context.Context, mailbox, query string, filters EmailFilters) ([]Email, error) {
	accountID, err := c.accountID(ctx)
	if err != nil {
		return nil, err
	}

	filter := map[string]interface{}{}
	if mailbox != "" {
		id, err := c.mailboxID(ctx, mailbox)
		if err != nil {
			return nil, err
		}
		filter["inMailbox"] = id
	}
	if query != "" {
		filter["text"] = query
	}
	if filters.Since != nil {
		filter["after"] = filters.Since.UTC().Format(time.RFC3339)
	}
	if filters.Before != nil {
		filter["before"] = filters.Before.UTC().Format(time.RFC3339)
	}
	if filters.UnreadOnly {
		filter["notKeyword"] = "$seen"
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	resps, err := c.call(ctx, []string{capCore, capMail}, []methodCall{
		{
			Name: "Email/query",
			Args: map[string]interface{}{
				"accountId": accountID,
				"filter":    filter,
				"sort": []map[string]interface{}{
					{"property": "receivedAt", "isAscending": false},
				},
				"limit": limit,
			},
			Tag: "0",
		},
		{
			Name: "Email/get",
			Args: map[string]interface{}{
				"accountId": accountID,
				"#ids": map[string]string{
					"resultOf": "0",
					"name":     "Email/query",
					"path":     "/ids",
				},
				"properties": listProperties,
			},
			Tag: "1",
		},
	})
	if err != nil {
		return nil, err
	}

	emails, err := decodeEmailGet(findResponse(resps, "1"))
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// GetEmail fetches a single message with its text body.
func (c *Client) GetEmail(ctx context.Context, id string) (*Email, error) {
	accountID, err := c.accountID(ctx)
	if err != nil {
		return nil, err
	}

	resps, err := c.call(ctx, []string{capCore, capMail}, []methodCall{{
		Name: "Email/get",
		Args: map[string]interface{}{
			"accountId":           accountID,
			"ids":                 []string{id},
			"properties":          append(listProperties, "textBody", "bodyValues"),
			"fetchTextBodyValues": true,
		},
		Tag: "0",
	}})
	if err != nil {
		return nil, err
	}

	emails, err := decodeEmailGet(findResponse(resps, "0"))
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("email %q not found", id)
	}
	return &emails[0], nil
}

// SendEmail builds an RFC 5322 message, uploads it as a blob, imports
// it into the sent mailbox, and submits it for delivery.
func (c *Client) SendEmail(ctx context.Context, from string, to []string, subject, body string, opts SendOptions) error {
	accountID, err := c.accountID(ctx)
	if err != nil {
		return err
	}

	identityID, err := c.identityFor(ctx, from)
	if err != nil {
		return err
	}

	msg, err := buildMessage(from, to, subject, body, opts)
	if err != nil {
		return err
	}

	blobID, err := c.uploadBlob(ctx, accountID, msg)
	if err != nil {
		return err
	}

	sentID, err := c.mailboxIDByRole(ctx, "sent")
	if err != nil {
		return err
	}

	recipients := make([]map[string]string, 0, len(to)+len(opts.CC)+len(opts.BCC))
	for _, addr := range to {
		recipients = append(recipients, map[string]string{"email": addr})
	}
	for _, addr := range opts.CC {
		recipients = append(recipients, map[string]string{"email": addr})
	}
	for _, addr := range opts.BCC {
		recipients = append(recipients, map[string]string{"email": addr})
	}

	resps, err := c.call(ctx, []string{capCore, capMail, capSubmission}, []methodCall{
		{
			Name: "Email/import",
			Args: map[string]interface{}{
				"accountId": accountID,
				"emails": map[string]interface{}{
					"msg": map[string]interface{}{
						"blobId":     blobID,
						"mailboxIds": map[string]bool{sentID: true},
						"keywords":   map[string]bool{"$seen": true},
					},
				},
			},
			Tag: "0",
		},
		{
			Name: "EmailSubmission/set",
			Args: map[string]interface{}{
				"accountId": accountID,
				"create": map[string]interface{}{
					"sub": map[string]interface{}{
						"identityId": identityID,
						"emailId":    "#msg",
						"envelope": map[string]interface{}{
							"mailFrom": map[string]string{"email": from},
							"rcptTo":   recipients,
						},
					},
				},
			},
			Tag: "1",
		},
	})
	if err != nil {
		return err
	}

	// Set-style methods report per-item rejections in notCreated rather
	// than as a method-level error, so a clean HTTP exchange can still
	// mean the message went nowhere.
	if err := notCreatedError(findResponse(resps, "0"), "msg"); err != nil {
		return fmt.Errorf("importing message: %w", err)
	}
	if err := notCreatedError(findResponse(resps, "1"), "sub"); err != nil {
		return fmt.Errorf("submitting message: %w", err)
	}
	return nil
}

// notCreatedError extracts the rejection recorded for a creation id in a
// /set or /import response, if any.
func notCreatedError(args json.RawMessage, id string) error {
	if args == nil {
		return fmt.Errorf("response is missing")
	}
	var result struct {
		NotCreated map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"notCreated"`
	}
	if err := json.Unmarshal(args, &result); err != nil {
		return fmt.Errorf("decoding set response: %w", err)
	}
	detail, ok := result.NotCreated[id]
	if !ok {
		return nil
	}
	if detail.Description != "" {
		return fmt.Errorf("%s: %s", detail.Type, detail.Description)
	}
	return fmt.Errorf("%s", detail.Type)
}

// identityFor resolves the sending identity for a from address, cached.
func (c *Client) identityFor(ctx context.Context, from string) (string, error) {
	c.mu.Lock()
	cached := c.identities
	c.mu.Unlock()

	if cached == nil {
		accountID, err := c.accountID(ctx)
		if err != nil {
			return "", err
		}
		resps, err := c.call(ctx, []string{capCore, capSubmission}, []methodCall{{
			Name: "Identity/get",
			Args: map[string]interface{}{"accountId": accountID, "ids": nil},
			Tag:  "0",
		}})
		if err != nil {
			return "", err
		}
		args := findResponse(resps, "0")
		if args == nil {
			return "", fmt.Errorf("JMAP response missing Identity/get result")
		}
		var result struct {
			List []identity `json:"list"`
		}
		if err := json.Unmarshal(args, &result); err != nil {
			return "", fmt.Errorf("decoding Identity/get response: %w", err)
		}
		c.mu.Lock()
		c.identities = result.List
		cached = result.List
		c.mu.Unlock()
	}

	for _, id := range cached {
		if strings.EqualFold(id.Email, from) {
			return id.ID, nil
		}
	}
	if len(cached) > 0 {
		return cached[0].ID, nil
	}
	return "", fmt.Errorf("no sending identity available for %s", from)
}

// uploadBlob posts raw message bytes to the JMAP upload endpoint.
func (c *Client) uploadBlob(ctx context.Context, accountID string, data []byte) (string, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	url := strings.ReplaceAll(sess.UploadURL, "{accountId}", accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "message/rfc822")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading message blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("blob upload failed with status %d", resp.StatusCode)
	}

	var uploaded struct {
		BlobID string `json:"blobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.BlobID == "" {
		return "", fmt.Errorf("upload response carried no blobId")
	}
	return uploaded.BlobID, nil
}

// findResponse returns the args of the method response with the given
// tag, or nil when absent.
func findResponse(resps []methodResponse, tag string) json.RawMessage {
	for _, mr := range resps {
		if mr.Tag == tag {
			return mr.Args
		}
	}
	return nil
}

func decodeEmailGet(args json.RawMessage) ([]Email, error) {
	if args == nil {
		return nil, fmt.Errorf("JMAP response missing Email/get result")
	}
	var result struct {
		List []jmapEmail `json:"list"`
	}
	if err := json.Unmarshal(args, &result); err != nil {
		return nil, fmt.Errorf("decoding Email/get response: %w", err)
	}
	emails := make([]Email, 0, len(result.List))
	for _, raw := range result.List {
		emails = append(emails, raw.toEmail())
	}
	return emails, nil
}

// buildMessage renders an outgoing message as RFC 5322 bytes.
func buildMessage(from string, to []string, subject, body string, opts SendOptions) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})

	toAddrs := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		toAddrs = append(toAddrs, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", toAddrs)

	if len(opts.CC) > 0 {
		ccAddrs := make([]*mail.Address, 0, len(opts.CC))
		for _, addr := range opts.CC {
			ccAddrs = append(ccAddrs, &mail.Address{Address: addr})
		}
		h.SetAddressList("Cc", ccAddrs)
	}
	// BCC recipients stay in the envelope only.

	h.SetSubject(subject)

	contentType := "text/plain"
	if opts.HTML {
		contentType = "text/html"
	}
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	var partHeader mail.InlineHeader
	partHeader.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	part, err := mw.CreateSingleInline(partHeader)
	if err != nil {
		mw.Close()
		return nil, fmt.Errorf("creating body part: %w", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		mw.Close()
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	part.Close()
	mw.Close()

	return buf.Bytes(), nil
}
