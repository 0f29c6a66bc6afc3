package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/notify"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// recordingProvider keeps every message it is asked to send
type recordingProvider struct {
	mu   sync.Mutex
	sent []*notify.Message
	err  error
}

func (p *recordingProvider) Send(_ context.Context, msg *notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// TestBuildDigest renders a sorted digest with an urgent count
func TestBuildDigest(t *testing.T) {
	products := []*db.Product{
		{Name: "Laptop", Vendor: "Dell", WarrantyEndDate: now.AddDate(0, 0, 6)},
		{Name: "Phone <Pro>", Vendor: "Apple", WarrantyEndDate: now.AddDate(0, 0, 2)},
	}

	msg, err := BuildDigest(products, now, []string{"me@example.com"})
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "Warranty Alert: 2 products expiring soon", msg.Subject)
	assert.Equal(t, []string{"me@example.com"}, msg.To)
	assert.Contains(t, msg.TextBody, "1 product is expiring within 3 days!")
	assert.Less(t, strings.Index(msg.TextBody, "Phone <Pro>"), strings.Index(msg.TextBody, "Laptop"), "Soonest expiry first")
	assert.Contains(t, msg.TextBody, "- Laptop (Dell): expires Jun 7, 2024, 6 days left")

	assert.Contains(t, msg.HTMLBody, "Phone &lt;Pro&gt;", "Names must be escaped in HTML")
	assert.Contains(t, msg.HTMLBody, "#d32f2f")
	assert.Contains(t, msg.HTMLBody, "6 days")

	assert.Equal(t, "Laptop", products[0].Name, "Input order must not change")
}

// TestBuildDigest_Single uses the singular subject
func TestBuildDigest_Single(t *testing.T) {
	msg, err := BuildDigest([]*db.Product{{Name: "TV", Vendor: "LG", WarrantyEndDate: now.AddDate(0, 0, 5)}}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, "Warranty Alert: 1 product expiring soon", msg.Subject)
	assert.NotContains(t, msg.TextBody, "expiring within")
}

// TestBuildDigest_Empty returns no message
func TestBuildDigest_Empty(t *testing.T) {
	msg, err := BuildDigest(nil, now, nil)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

// TestRun sends one digest and marks products reminded
func TestRun(t *testing.T) {
	database := db.SetupTestDB(t)
	ctx := context.Background()

	db.CreateTestProduct(t, database, "Laptop", now.AddDate(0, 0, 3))
	db.CreateTestProduct(t, database, "Camera", now.AddDate(0, 0, 6))
	db.CreateTestProduct(t, database, "Desk", now.AddDate(0, 2, 0))

	provider := &recordingProvider{}
	svc := New(database, provider, Config{DaysBefore: 7, Recipients: []string{"me@example.com"}})

	n, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Equal(t, 1, provider.count())
	assert.Equal(t, "Warranty Alert: 2 products expiring soon", provider.sent[0].Subject)

	n, err = svc.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "Products are reminded only once")
	assert.Equal(t, 1, provider.count())
}

// TestRun_SendFailure leaves products due for the next run
func TestRun_SendFailure(t *testing.T) {
	database := db.SetupTestDB(t)
	ctx := context.Background()

	db.CreateTestProduct(t, database, "Laptop", now.AddDate(0, 0, 3))

	provider := &recordingProvider{err: errors.New("smtp down")}
	svc := New(database, provider, Config{})

	_, err := svc.Run(ctx, now)
	require.Error(t, err)

	due, err := database.DueReminders(ctx, now, 7)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

// TestStart runs until the context is cancelled
func TestStart(t *testing.T) {
	database := db.SetupTestDB(t)
	db.CreateTestProduct(t, database, "Laptop", now.AddDate(0, 0, 3))

	provider := &recordingProvider{}
	svc := New(database, provider, Config{Interval: 10 * time.Millisecond})
	svc.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return provider.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, 1, provider.count())
}
