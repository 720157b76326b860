// Package carddav provides a CardDAV client for contact access.
package carddav

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/emersion/go-webdav/carddav"
)

// Contact is a simplified view of a vCard.
type Contact struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Emails       []string `json:"emails,omitempty"`
	Phones       []string `json:"phones,omitempty"`
	Organization string   `json:"organization,omitempty"`
}

// Client wraps a CardDAV connection with address book discovery caching.
type Client struct {
	baseURL  string
	username string
	password string

	mu    sync.Mutex
	dav   *carddav.Client
	books []carddav.AddressBook
}

// NewClient creates a CardDAV client for the given endpoint.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// InvalidateCache clears the cached address book list.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books = nil
}

func (c *Client) connect() (*carddav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dav != nil {
		return c.dav, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{username: c.username, password: c.password},
		Timeout:   30 * time.Second,
	}

	dav, err := carddav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CardDAV server: %w", err)
	}

	c.dav = dav
	return dav, nil
}

func (c *Client) addressBooks(ctx context.Context) ([]carddav.AddressBook, error) {
	c.mu.Lock()
	cached := c.books
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

	homeSet, err := dav.FindAddressBookHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find address book home set: %w", err)
	}

	books, err := dav.FindAddressBooks(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list address books: %w", err)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("no address books found on server")
	}

	c.mu.Lock()
	c.books = books
	c.mu.Unlock()
	return books, nil
}

// ListContacts returns all contacts across the user's address books.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	dav, err := c.connect()
	if err != nil {
		return nil, err
	}

	books, err := c.addressBooks(ctx)
	if err != nil {
		return nil, err
	}

	query := &carddav.AddressBookQuery{
		DataRequest: carddav.AddressDataRequest{AllProp: true},
	}

	var contacts []Contact
	for _, book := range books {
		objects, err := dav.QueryAddressBook(ctx, book.Path, query)
		if err != nil {
			return nil, fmt.Errorf("failed to query address book %s: %w", book.Path, err)
		}
		for _, obj := range objects {
			contact := contactFromCard(obj.Path, obj.Card)
			if contact.Name == "" && len(contact.Emails) == 0 {
				continue
			}
			contacts = append(contacts, contact)
		}
	}

	return contacts, nil
}

// SearchContacts returns contacts whose name, email, or organization contains
// the query, case-insensitively.
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	contacts, err := c.ListContacts(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return contacts, nil
	}

	var matched []Contact
	for _, contact := range contacts {
		if contactMatches(contact, needle) {
			matched = append(matched, contact)
		}
	}
	return matched, nil
}

func contactMatches(contact Contact, needle string) bool {
	if strings.Contains(strings.ToLower(contact.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(contact.Organization), needle) {
		return true
	}
	for _, email := range contact.Emails {
		if strings.Contains(strings.ToLower(email), needle) {
			return true
		}
	}
	return false
}

func contactFromCard(objPath string, card vcard.Card) Contact {
	contact := Contact{
		Name:         card.PreferredValue(vcard.FieldFormattedName),
		Emails:       card.Values(vcard.FieldEmail),
		Phones:       card.Values(vcard.FieldTelephone),
		Organization: card.PreferredValue(vcard.FieldOrganization),
	}

	if uid := card.Value(vcard.FieldUID); uid != "" {
		contact.ID = uid
	} else {
		contact.ID = strings.TrimSuffix(path.Base(objPath), ".vcf")
	}

	return contact
}
