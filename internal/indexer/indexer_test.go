package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/mailbox"
	"github.com/felo/warranty-tracker/internal/parser"
	"github.com/felo/warranty-tracker/internal/purchase"
)

const orderEmail = "From: \"Amazon.com\" <auto-confirm@amazon.com>\r\n" +
	"To: buyer@example.com\r\n" +
	"Subject: Your Amazon.com order has shipped\r\n" +
	"Date: Mon, 15 Jan 2024 10:30:00 +0000\r\n" +
	"Message-ID: <order-1@amazon.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"You ordered Sony WH-1000XM5 Wireless Headphones.\r\n" +
	"Total: $349.99\r\n" +
	"Order #112-3344556\r\n"

const newsletterEmail = "From: friend@example.org\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Weekend plans\r\n" +
	"Date: Tue, 16 Jan 2024 09:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"See you on Saturday.\r\n"

func writeEML(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestIndexer(t *testing.T) (*Indexer, *db.DB) {
	t.Helper()
	database := db.SetupTestDB(t)
	clock := func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }
	return NewIndexer(database, purchase.New(purchase.WithClock(clock))).WithConcurrency(4), database
}

// TestIndex_Files indexes every file once and records purchase candidates
func TestIndex_Files(t *testing.T) {
	root := t.TempDir()
	writeEML(t, root, "2024/order.eml", orderEmail)
	writeEML(t, root, "personal/plans.eml", newsletterEmail)

	idx, database := newTestIndexer(t)
	ctx := context.Background()
	src := NewFileSource(root)

	var mu sync.Mutex
	var progressed []string
	result, err := idx.Index(ctx, src, func(current, total int, key string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, total)
		progressed = append(progressed, key)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 2, result.NewIndexed)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 0, result.Failed)
	assert.ElementsMatch(t, []string{"2024/order.eml", "personal/plans.eml"}, progressed)

	candidates, err := database.ListCandidates(ctx, db.CandidatePending, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Amazon", candidates[0].Vendor)
	assert.Equal(t, 100, candidates[0].Confidence)
	require.NotNil(t, candidates[0].OrderNumber)
	assert.Equal(t, "112-3344556", *candidates[0].OrderNumber)

	total, purchases, err := database.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, purchases)

	again, err := idx.Index(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped, "Second run should skip indexed files")
	assert.Equal(t, 0, again.NewIndexed)
}

// fakeSource serves fixed items
type fakeSource struct {
	items []Item
	err   error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Items(context.Context, KnownFunc) ([]Item, error) {
	return s.items, s.err
}

// TestIndex_LoadFailure counts unreadable messages as failed
func TestIndex_LoadFailure(t *testing.T) {
	idx, _ := newTestIndexer(t)

	src := &fakeSource{items: []Item{{
		Key:  "broken.eml",
		Load: func() (*parser.ParsedEmail, error) { return nil, errors.New("truncated") },
	}}}

	result, err := idx.Index(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"broken.eml"}, result.FailedFiles)
}

// TestIndexAll_ContinuesAfterSourceError sums results of healthy sources
func TestIndexAll_ContinuesAfterSourceError(t *testing.T) {
	root := t.TempDir()
	writeEML(t, root, "order.eml", orderEmail)

	idx, database := newTestIndexer(t)
	ctx := context.Background()

	result, err := idx.IndexAll(ctx, []Source{
		&fakeSource{err: errors.New("mailbox offline")},
		NewFileSource(root),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewIndexed)
	assert.Equal(t, 1, result.Candidates)

	lastScan, err := database.GetSetting(ctx, db.SettingLastScan)
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, lastScan)
	assert.NoError(t, err, "IndexAll should record the scan time")
}

// TestIndex_Cancelled stops early when the context is done
func TestIndex_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeEML(t, root, "order.eml", orderEmail)

	idx, _ := newTestIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Index(ctx, NewFileSource(root), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeMailbox serves messages keyed by UID
type fakeMailbox struct {
	messages map[uint32]string
	fetched  []uint32
}

func (m *fakeMailbox) SourceKey(uid uint32) string { return mailbox.SourceKey("INBOX", uid) }

func (m *fakeMailbox) ListUIDs(context.Context) ([]uint32, error) {
	var uids []uint32
	for uid := uint32(1); uid <= uint32(len(m.messages)); uid++ {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (m *fakeMailbox) Fetch(_ context.Context, skip func(uint32) bool) ([]mailbox.Message, error) {
	uids, _ := m.ListUIDs(context.Background())
	var out []mailbox.Message
	for _, uid := range uids {
		if skip != nil && skip(uid) {
			continue
		}
		m.fetched = append(m.fetched, uid)
		out = append(out, mailbox.Message{UID: uid, Raw: []byte(m.messages[uid])})
	}
	return out, nil
}

// TestIndex_IMAP downloads only messages that are not yet indexed
func TestIndex_IMAP(t *testing.T) {
	idx, database := newTestIndexer(t)
	ctx := context.Background()

	_, err := database.InsertEmail(ctx, &db.Email{SourceKey: "imap:INBOX:1", Subject: "old"})
	require.NoError(t, err)

	mb := &fakeMailbox{messages: map[uint32]string{1: newsletterEmail, 2: orderEmail}}
	src := &IMAPSource{client: mb, name: "imap:INBOX"}

	result, err := idx.Index(ctx, src, nil)
	require.NoError(t, err)

	assert.Equal(t, []uint32{2}, mb.fetched)
	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Candidates)

	exists, err := database.EmailExists(ctx, "imap:INBOX:2")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestIndex_IMAPAllKnown skips the fetch entirely
func TestIndex_IMAPAllKnown(t *testing.T) {
	idx, database := newTestIndexer(t)
	ctx := context.Background()

	_, err := database.InsertEmail(ctx, &db.Email{SourceKey: "imap:INBOX:1"})
	require.NoError(t, err)

	mb := &fakeMailbox{messages: map[uint32]string{1: orderEmail}}
	result, err := idx.Index(ctx, &IMAPSource{client: mb, name: "imap:INBOX"}, nil)
	require.NoError(t, err)
	assert.Empty(t, mb.fetched)
	assert.Equal(t, 1, result.Skipped)
}
