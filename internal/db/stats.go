package db

import (
	"context"
	"fmt"
	"time"

	"github.com/felo/warranty-tracker/internal/warranty"
)

// SettingLastScan holds the RFC 3339 time of the last completed scan
const SettingLastScan = "last_scan_at"

// Stats summarizes the tracker for the dashboard
type Stats struct {
	Products          int    `json:"total"`
	Active            int    `json:"active"`
	ExpiringSoon      int    `json:"expiringSoon"`
	Expired           int    `json:"expired"`
	RemindersSent     int    `json:"remindersSent"`
	PendingCandidates int    `json:"pendingCandidates"`
	EmailsIndexed     int    `json:"emailsIndexed"`
	PurchaseEmails    int    `json:"purchaseEmails"`
	LastScanAt        string `json:"lastScanAt,omitempty"`
}

// GetStats counts products by warranty status relative to now, together
// with indexing and review totals
func (db *DB) GetStats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{}
	soon := dbTime(warranty.Horizon(now, warranty.ExpiringWindowDays))

	row := db.QueryRowxContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN warranty_end_date > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN warranty_end_date >= ? AND warranty_end_date <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN warranty_end_date < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN reminder_sent = 1 THEN 1 ELSE 0 END), 0)
		FROM products
	`, soon, dbTime(now), soon, dbTime(now))
	if err := row.Scan(&stats.Products, &stats.Active, &stats.ExpiringSoon, &stats.Expired, &stats.RemindersSent); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var err error
	if stats.PendingCandidates, err = db.CountCandidates(ctx, CandidatePending); err != nil {
		return nil, err
	}
	if stats.EmailsIndexed, stats.PurchaseEmails, err = db.CountEmails(ctx); err != nil {
		return nil, err
	}
	if stats.LastScanAt, err = db.GetSetting(ctx, SettingLastScan); err != nil {
		return nil, err
	}

	return stats, nil
}
