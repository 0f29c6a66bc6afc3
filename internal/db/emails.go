package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// BodyPreviewLimit caps how much body text is kept per email row
const BodyPreviewLimit = 10240

// Email is an indexed message (metadata only). The full content stays in
// the .eml file or the mailbox it came from.
type Email struct {
	ID              int64      `db:"id" json:"id"`
	SourceKey       string     `db:"source_key" json:"sourceKey"`
	MessageID       string     `db:"message_id" json:"messageId"`
	Subject         string     `db:"subject" json:"subject"`
	Sender          string     `db:"sender" json:"sender"`
	SenderName      string     `db:"sender_name" json:"senderName"`
	Date            *time.Time `db:"date" json:"date"`
	BodyPreview     string     `db:"body_preview" json:"-"`
	IsPurchase      bool       `db:"is_purchase" json:"isPurchase"`
	AttachmentCount int        `db:"attachment_count" json:"attachmentCount"`
	IndexedAt       time.Time  `db:"indexed_at" json:"indexedAt"`
}

const emailColumns = `id, source_key, message_id, subject, sender, sender_name, date,
	body_preview, is_purchase, attachment_count, indexed_at`

// InsertEmail inserts a new email and returns its ID
func (db *DB) InsertEmail(ctx context.Context, email *Email) (int64, error) {
	return insertEmail(ctx, db.DB, email, db.timestamp())
}

func insertEmail(ctx context.Context, ex sqlx.ExtContext, email *Email, now time.Time) (int64, error) {
	var date *time.Time
	if email.Date != nil {
		d := dbTime(*email.Date)
		date = &d
	}
	email.IndexedAt = now

	result, err := ex.ExecContext(ctx, `
		INSERT INTO emails (
			source_key, message_id, subject, sender, sender_name, date,
			body_preview, is_purchase, attachment_count, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		email.SourceKey, email.MessageID, email.Subject, email.Sender, email.SenderName, date,
		truncateText(email.BodyPreview, BodyPreviewLimit), email.IsPurchase, email.AttachmentCount, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert email %s: %w", email.SourceKey, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	email.ID = id
	return id, nil
}

// InsertIndexedEmail stores an email and, when the parser produced one, its
// candidate in a single transaction
func (db *DB) InsertIndexedEmail(ctx context.Context, email *Email, candidate *Candidate) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := db.timestamp()
	emailID, err := insertEmail(ctx, tx, email, now)
	if err != nil {
		return err
	}

	if candidate != nil {
		candidate.EmailID = emailID
		if err := insertCandidate(ctx, tx, candidate, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EmailExists checks if an email with the given source key already exists
func (db *DB) EmailExists(ctx context.Context, sourceKey string) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM emails WHERE source_key = ?)", sourceKey)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// EmailsExistBatch reports which of the given source keys are already
// indexed. Keys that are not indexed are absent from the map.
func (db *DB) EmailsExistBatch(ctx context.Context, sourceKeys []string) (map[string]bool, error) {
	result := make(map[string]bool, len(sourceKeys))

	// SQLite limits the number of bound variables per statement
	const chunkSize = 500
	for i := 0; i < len(sourceKeys); i += chunkSize {
		chunk := sourceKeys[i:min(i+chunkSize, len(sourceKeys))]

		query, args, err := sqlx.In("SELECT source_key FROM emails WHERE source_key IN (?)", chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to build existence query: %w", err)
		}

		var found []string
		if err := db.SelectContext(ctx, &found, db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to check email existence: %w", err)
		}
		for _, key := range found {
			result[key] = true
		}
	}

	return result, nil
}

// GetEmailByID retrieves an email by its ID
func (db *DB) GetEmailByID(ctx context.Context, id int64) (*Email, error) {
	email := &Email{}
	err := db.GetContext(ctx, email, "SELECT "+emailColumns+" FROM emails WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return email, nil
}

// ListEmails retrieves the most recent emails with pagination
func (db *DB) ListEmails(ctx context.Context, limit, offset int) ([]*Email, error) {
	var emails []*Email
	err := db.SelectContext(ctx, &emails, `
		SELECT `+emailColumns+`
		FROM emails
		ORDER BY date DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// CountEmails returns the number of indexed emails and how many of them
// were classified as purchase emails
func (db *DB) CountEmails(ctx context.Context) (total, purchases int, err error) {
	row := db.QueryRowxContext(ctx, "SELECT COUNT(*), COALESCE(SUM(is_purchase), 0) FROM emails")
	if err := row.Scan(&total, &purchases); err != nil {
		return 0, 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return total, purchases, nil
}

// truncateText truncates text to maxLen bytes without splitting a UTF-8
// sequence
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
