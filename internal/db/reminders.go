package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/felo/warranty-tracker/internal/warranty"
)

// UpcomingExpiries returns active products whose warranty ends between now
// and days from now, soonest first
func (db *DB) UpcomingExpiries(ctx context.Context, now time.Time, days int) ([]*Product, error) {
	var products []*Product
	err := db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = 1 AND warranty_end_date >= ? AND warranty_end_date <= ?
		ORDER BY warranty_end_date ASC
	`, dbTime(now), dbTime(warranty.Horizon(now, days)))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming expiries: %w", err)
	}
	return products, nil
}

// ExpiredProducts returns active products whose warranty has ended, most
// recently expired first
func (db *DB) ExpiredProducts(ctx context.Context, now time.Time) ([]*Product, error) {
	var products []*Product
	err := db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = 1 AND warranty_end_date < ?
		ORDER BY warranty_end_date DESC
	`, dbTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired products: %w", err)
	}
	return products, nil
}

// DueReminders returns active products that should get a reminder now:
// not yet reminded and ending within leadDays
func (db *DB) DueReminders(ctx context.Context, now time.Time, leadDays int) ([]*Product, error) {
	var candidates []*Product
	err := db.SelectContext(ctx, &candidates, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = 1 AND reminder_sent = 0
		  AND warranty_end_date > ? AND warranty_end_date <= ?
		ORDER BY warranty_end_date ASC
	`, dbTime(now), dbTime(warranty.Horizon(now, leadDays)))
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	due := candidates[:0]
	for _, p := range candidates {
		if p.ShouldSendReminder(now, leadDays) {
			due = append(due, p)
		}
	}
	return due, nil
}

// MarkReminderSent records that a reminder went out for the given products
func (db *DB) MarkReminderSent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE products
		SET reminder_sent = 1, last_reminder_at = ?, updated_at = ?
		WHERE id IN (?)
	`, dbTime(at), db.timestamp(), ids)
	if err != nil {
		return fmt.Errorf("failed to build reminder update: %w", err)
	}

	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark reminders sent: %w", err)
	}
	return nil
}

// ResetReminder clears the sent flag so the product is reminded again
func (db *DB) ResetReminder(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE products
		SET reminder_sent = 0, last_reminder_at = NULL, updated_at = ?
		WHERE id = ?
	`, db.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to reset reminder for product %s: %w", id, err)
	}
	return requireAffected(result, "product", id)
}
