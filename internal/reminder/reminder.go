// Package reminder sends digest notifications for warranties about to
// expire.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/notify"
	"github.com/felo/warranty-tracker/internal/warranty"
)

// Store is the persistence the reminder loop needs
type Store interface {
	DueReminders(ctx context.Context, now time.Time, leadDays int) ([]*db.Product, error)
	MarkReminderSent(ctx context.Context, ids []string, at time.Time) error
}

// Config controls which products are reminded and how often
type Config struct {
	// DaysBefore is the reminder lead time in days
	DaysBefore int
	// Interval is the time between runs in Start
	Interval time.Duration
	// Recipients receive the digest
	Recipients []string
}

// Service finds due reminders and delivers them as one digest
type Service struct {
	store    Store
	provider notify.Provider
	cfg      Config
	now      func() time.Time
}

// New creates a Service. Zero config values fall back to the defaults.
func New(store Store, provider notify.Provider, cfg Config) *Service {
	if cfg.DaysBefore <= 0 {
		cfg.DaysBefore = warranty.DefaultReminderDays
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Service{store: store, provider: provider, cfg: cfg, now: time.Now}
}

// Run sends one digest for every product due a reminder at now and marks
// them reminded. It returns how many products were included.
func (s *Service) Run(ctx context.Context, now time.Time) (int, error) {
	products, err := s.store.DueReminders(ctx, now, s.cfg.DaysBefore)
	if err != nil {
		return 0, err
	}

	msg, err := BuildDigest(products, now, s.cfg.Recipients)
	if err != nil || msg == nil {
		return 0, err
	}

	if err := s.provider.Send(ctx, msg); err != nil {
		return 0, fmt.Errorf("failed to send reminder via %s: %w", s.provider.Name(), err)
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	if err := s.store.MarkReminderSent(ctx, ids, now); err != nil {
		return 0, err
	}

	slog.Info("warranty reminder sent",
		"provider", s.provider.Name(),
		"products", len(products),
	)
	return len(products), nil
}

// Start runs immediately and then on every interval until ctx is done
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, s.now()); err != nil {
			slog.Error("warranty reminder run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
