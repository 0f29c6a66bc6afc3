package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/felo/warranty-tracker/internal/purchase"
	"github.com/felo/warranty-tracker/internal/warranty"
)

// CandidateStatus is the review state of a parsed candidate
type CandidateStatus string

const (
	CandidatePending   CandidateStatus = "pending"
	CandidateImported  CandidateStatus = "imported"
	CandidateDismissed CandidateStatus = "dismissed"
)

// Valid reports whether s is a known review state
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidatePending, CandidateImported, CandidateDismissed:
		return true
	}
	return false
}

// Candidate is a persisted parser result awaiting review. Name and Vendor
// hold the presentation sentinels when the parser could not resolve them.
type Candidate struct {
	ID                 string          `db:"id" json:"id"`
	EmailID            int64           `db:"email_id" json:"emailId"`
	Name               string          `db:"name" json:"name"`
	Category           string          `db:"category" json:"category"`
	Vendor             string          `db:"vendor" json:"vendor"`
	PurchaseDate       time.Time       `db:"purchase_date" json:"purchaseDate"`
	PurchaseDateSource string          `db:"purchase_date_source" json:"purchaseDateSource"`
	WarrantyEndDate    time.Time       `db:"warranty_end_date" json:"warrantyEndDate"`
	Price              *float64        `db:"price" json:"price"`
	Currency           string          `db:"currency" json:"currency"`
	OrderNumber        *string         `db:"order_number" json:"orderNumber"`
	WarrantyInfo       *string         `db:"warranty_info" json:"warrantyInfo"`
	WarrantyHintMonths *int            `db:"warranty_hint_months" json:"warrantyHintMonths"`
	Description        string          `db:"description" json:"description"`
	Confidence         int             `db:"confidence" json:"confidence"`
	Status             CandidateStatus `db:"status" json:"status"`
	ProductID          *string         `db:"product_id" json:"productId"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// NewCandidate converts parser output into a pending candidate row
func NewCandidate(c *purchase.Candidate) *Candidate {
	return &Candidate{
		Name:               c.DisplayName(),
		Category:           string(c.Category),
		Vendor:             c.DisplayVendor(),
		PurchaseDate:       c.PurchaseDate,
		PurchaseDateSource: string(c.PurchaseDateSource),
		WarrantyEndDate:    c.WarrantyEndDate,
		Price:              c.Price,
		Currency:           c.Currency,
		OrderNumber:        c.OrderNumber,
		WarrantyInfo:       c.WarrantyInfo,
		WarrantyHintMonths: c.WarrantyHintMonths,
		Description:        c.Description(),
		Confidence:         c.Confidence,
		Status:             CandidatePending,
	}
}

const candidateColumns = `id, email_id, name, category, vendor, purchase_date, purchase_date_source,
	warranty_end_date, price, currency, order_number, warranty_info, warranty_hint_months,
	description, confidence, status, product_id, created_at, updated_at`

// InsertCandidate stores a candidate, assigning an ID when empty
func (db *DB) InsertCandidate(ctx context.Context, c *Candidate) error {
	return insertCandidate(ctx, db.DB, c, db.timestamp())
}

func insertCandidate(ctx context.Context, ex sqlx.ExtContext, c *Candidate, now time.Time) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = CandidatePending
	}
	c.PurchaseDate = dbTime(c.PurchaseDate)
	c.WarrantyEndDate = dbTime(c.WarrantyEndDate)
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := sqlx.NamedExecContext(ctx, ex, `
		INSERT INTO candidates (`+candidateColumns+`) VALUES (
			:id, :email_id, :name, :category, :vendor, :purchase_date, :purchase_date_source,
			:warranty_end_date, :price, :currency, :order_number, :warranty_info, :warranty_hint_months,
			:description, :confidence, :status, :product_id, :created_at, :updated_at
		)`, c)
	if err != nil {
		return fmt.Errorf("failed to insert candidate for email %d: %w", c.EmailID, err)
	}
	return nil
}

// GetCandidate retrieves a candidate by ID
func (db *DB) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	return getCandidate(ctx, db.DB, id)
}

func getCandidate(ctx context.Context, q sqlx.QueryerContext, id string) (*Candidate, error) {
	c := &Candidate{}
	err := sqlx.GetContext(ctx, q, c, "SELECT "+candidateColumns+" FROM candidates WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// ListCandidates returns candidates with the given status (all when empty),
// most confident first
func (db *DB) ListCandidates(ctx context.Context, status CandidateStatus, limit int) ([]*Candidate, error) {
	query := "SELECT " + candidateColumns + " FROM candidates"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY confidence DESC, purchase_date DESC LIMIT ?"
	args = append(args, limit)

	var candidates []*Candidate
	if err := db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// CountCandidates counts candidates with the given status (all when empty)
func (db *DB) CountCandidates(ctx context.Context, status CandidateStatus) (int, error) {
	query := "SELECT COUNT(*) FROM candidates"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	var count int
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return count, nil
}

// DismissCandidate marks a pending candidate as not worth importing
func (db *DB) DismissCandidate(ctx context.Context, id string) error {
	return db.setCandidateStatus(ctx, id, CandidateDismissed)
}

// RestoreCandidate moves a dismissed candidate back to pending
func (db *DB) RestoreCandidate(ctx context.Context, id string) error {
	return db.setCandidateStatus(ctx, id, CandidatePending)
}

func (db *DB) setCandidateStatus(ctx context.Context, id string, status CandidateStatus) error {
	c, err := db.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == CandidateImported {
		return fmt.Errorf("candidate %s: %w", id, ErrAlreadyImported)
	}

	_, err = db.ExecContext(ctx,
		"UPDATE candidates SET status = ?, updated_at = ? WHERE id = ?",
		status, db.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update candidate %s: %w", id, err)
	}
	return nil
}

// ImportOverrides are reviewer corrections applied when a candidate becomes
// a product. Zero values keep the parsed data.
type ImportOverrides struct {
	Name           string `json:"name,omitempty"`
	Category       string `json:"category,omitempty"`
	Vendor         string `json:"vendor,omitempty"`
	SerialNumber   string `json:"serialNumber,omitempty"`
	WarrantyMonths int    `json:"warrantyMonths,omitempty"`
}

// ImportCandidate creates a product from a candidate and marks the
// candidate imported. A second import of the same email fails with
// ErrAlreadyImported.
func (db *DB) ImportCandidate(ctx context.Context, candidateID string, o ImportOverrides) (*Product, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := getCandidate(ctx, tx, candidateID)
	if err != nil {
		return nil, err
	}
	if c.Status == CandidateImported {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrAlreadyImported)
	}

	var taken bool
	if err := tx.GetContext(ctx, &taken,
		"SELECT EXISTS(SELECT 1 FROM products WHERE email_id = ?)", c.EmailID); err != nil {
		return nil, fmt.Errorf("failed to check existing product: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("email %d: %w", c.EmailID, ErrAlreadyImported)
	}

	emailID := c.EmailID
	p := &Product{
		Name:            firstNonEmpty(o.Name, c.Name),
		Category:        firstNonEmpty(o.Category, c.Category),
		Vendor:          firstNonEmpty(o.Vendor, c.Vendor),
		SerialNumber:    strings.TrimSpace(o.SerialNumber),
		Description:     c.Description,
		PurchaseDate:    c.PurchaseDate,
		WarrantyEndDate: c.WarrantyEndDate,
		Price:           c.Price,
		Currency:        c.Currency,
		OrderNumber:     c.OrderNumber,
		Source:          SourceEmail,
		EmailID:         &emailID,
		CandidateID:     &c.ID,
	}
	if o.WarrantyMonths > 0 {
		p.WarrantyEndDate = warranty.EndAfterMonths(c.PurchaseDate, o.WarrantyMonths)
	}

	now := db.timestamp()
	if err := insertProduct(ctx, tx, p, now); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE candidates SET status = ?, product_id = ?, updated_at = ? WHERE id = ?",
		CandidateImported, p.ID, now, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark candidate %s imported: %w", c.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
