// Package mailbox reads purchase emails straight from an IMAP mailbox.
package mailbox

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Config holds IMAP connection settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS selects implicit TLS; otherwise STARTTLS is used
	TLS     bool
	Mailbox string
	// SinceDays limits the search to messages received in the last N days;
	// zero searches the whole mailbox
	SinceDays int
	// Limit keeps only the most recent N messages; zero keeps all
	Limit int
}

// Message is a raw RFC 822 message and its UID in the mailbox
type Message struct {
	UID uint32
	Raw []byte
}

// Client fetches messages from one mailbox
type Client struct {
	cfg Config
	now func() time.Time
}

// NewClient creates a client. An empty mailbox name means INBOX.
func NewClient(cfg Config) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{cfg: cfg, now: time.Now}
}

// Mailbox returns the selected mailbox name
func (c *Client) Mailbox() string {
	return c.cfg.Mailbox
}

// SourceKey returns the stable key identifying a message in this mailbox
func (c *Client) SourceKey(uid uint32) string {
	return SourceKey(c.cfg.Mailbox, uid)
}

// SourceKey returns the stable key identifying message uid in mailbox
func SourceKey(mailbox string, uid uint32) string {
	return fmt.Sprintf("imap:%s:%d", mailbox, uid)
}

func (c *Client) connect() (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	var client *imapclient.Client
	var err error
	if c.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", c.cfg.Username, err)
	}
	return client, nil
}

// ListUIDs returns the UIDs matching the configured search window, most
// recent last
func (c *Client) ListUIDs(ctx context.Context) ([]uint32, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	uids, err := c.search(ctx, client)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[i] = uint32(uid)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, client *imapclient.Client) ([]imap.UID, error) {
	if _, err := client.Select(c.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{}
	if c.cfg.SinceDays > 0 {
		criteria.Since = sinceDate(c.now(), c.cfg.SinceDays)
	}

	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	return mostRecent(data.AllUIDs(), c.cfg.Limit), nil
}

// Fetch downloads the full bodies of the messages in the search window.
// Messages are read with BODY.PEEK so their \Seen flag is untouched.
// Already known UIDs can be skipped with skip; it may be nil.
func (c *Client) Fetch(ctx context.Context, skip func(uid uint32) bool) ([]Message, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	uids, err := c.search(ctx, client)
	if err != nil {
		return nil, err
	}

	wanted := uids[:0]
	for _, uid := range uids {
		if skip == nil || !skip(uint32(uid)) {
			wanted = append(wanted, uid)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(wanted...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	var messages []Message
	for {
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		raw := buf.FindBodySection(section)
		if raw == nil {
			continue
		}
		messages = append(messages, Message{UID: uint32(buf.UID), Raw: raw})
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}
	return messages, nil
}

// sinceDate is the SEARCH SINCE date for a window of days ending at now
func sinceDate(now time.Time, days int) time.Time {
	y, m, d := now.AddDate(0, 0, -days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mostRecent keeps the last limit UIDs; UIDs grow with arrival order
func mostRecent(uids []imap.UID, limit int) []imap.UID {
	if limit > 0 && len(uids) > limit {
		return uids[len(uids)-limit:]
	}
	return uids
}
