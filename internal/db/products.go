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

// Product sources
const (
	SourceEmail  = "email"
	SourceManual = "manual"
)

// Product is a warranty-tracked item
type Product struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Category        string     `db:"category" json:"category"`
	Vendor          string     `db:"vendor" json:"vendor"`
	SerialNumber    string     `db:"serial_number" json:"serialNumber,omitempty"`
	Description     string     `db:"description" json:"description"`
	PurchaseDate    time.Time  `db:"purchase_date" json:"purchaseDate"`
	WarrantyEndDate time.Time  `db:"warranty_end_date" json:"warrantyEndDate"`
	Price           *float64   `db:"price" json:"price"`
	Currency        string     `db:"currency" json:"currency"`
	OrderNumber     *string    `db:"order_number" json:"orderNumber"`
	Source          string     `db:"source" json:"source"`
	EmailID         *int64     `db:"email_id" json:"emailId"`
	CandidateID     *string    `db:"candidate_id" json:"candidateId"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	ReminderSent    bool       `db:"reminder_sent" json:"reminderSent"`
	LastReminderAt  *time.Time `db:"last_reminder_at" json:"lastReminderAt"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// DaysUntilExpiry returns the days left on the warranty, rounded up
func (p *Product) DaysUntilExpiry(now time.Time) int {
	return warranty.DaysUntil(p.WarrantyEndDate, now)
}

// WarrantyStatus classifies the warranty relative to now
func (p *Product) WarrantyStatus(now time.Time) warranty.Status {
	return warranty.StatusOf(p.WarrantyEndDate, now)
}

// ShouldSendReminder reports whether a reminder is due within leadDays
func (p *Product) ShouldSendReminder(now time.Time, leadDays int) bool {
	return warranty.ShouldRemind(p.WarrantyEndDate, now, leadDays, p.ReminderSent)
}

// ProductView is a product with its status computed for a point in time
type ProductView struct {
	*Product
	DaysUntilExpiry int             `json:"daysUntilExpiry"`
	WarrantyStatus  warranty.Status `json:"warrantyStatus"`
}

// View computes the time-dependent fields for now
func (p *Product) View(now time.Time) ProductView {
	return ProductView{
		Product:         p,
		DaysUntilExpiry: p.DaysUntilExpiry(now),
		WarrantyStatus:  p.WarrantyStatus(now),
	}
}

// Views maps View over products
func Views(products []*Product, now time.Time) []ProductView {
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = p.View(now)
	}
	return views
}

const productColumns = `id, name, category, vendor, serial_number, description, purchase_date,
	warranty_end_date, price, currency, order_number, source, email_id, candidate_id,
	is_active, reminder_sent, last_reminder_at, created_at, updated_at`

// validate normalizes p and checks the fields every product needs
func (p *Product) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Vendor = strings.TrimSpace(p.Vendor)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Vendor == "" {
		return fmt.Errorf("%w: vendor is required", ErrInvalidProduct)
	}
	if p.Category == "" {
		p.Category = string(purchase.CategoryOther)
	}
	if !purchase.Category(p.Category).Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.Category)
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrInvalidProduct)
	}
	if !dbTime(p.WarrantyEndDate).After(dbTime(p.PurchaseDate)) {
		return ErrInvalidWarrantyWindow
	}
	return nil
}

// CreateProduct inserts a manually entered product
func (db *DB) CreateProduct(ctx context.Context, p *Product) error {
	if p.Source == "" {
		p.Source = SourceManual
	}
	return insertProduct(ctx, db.DB, p, db.timestamp())
}

func insertProduct(ctx context.Context, ex sqlx.ExtContext, p *Product, now time.Time) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.PurchaseDate = dbTime(p.PurchaseDate)
	p.WarrantyEndDate = dbTime(p.WarrantyEndDate)
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := sqlx.NamedExecContext(ctx, ex, `
		INSERT INTO products (`+productColumns+`) VALUES (
			:id, :name, :category, :vendor, :serial_number, :description, :purchase_date,
			:warranty_end_date, :price, :currency, :order_number, :source, :email_id, :candidate_id,
			:is_active, :reminder_sent, :last_reminder_at, :created_at, :updated_at
		)`, p)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by ID
func (db *DB) GetProduct(ctx context.Context, id string) (*Product, error) {
	p := &Product{}
	err := db.GetContext(ctx, p, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ProductFilter narrows ListProducts. Status filtering is relative to Now.
type ProductFilter struct {
	Category string
	Status   warranty.Status
	Now      time.Time
	Limit    int
	Offset   int
}

// ListProducts returns products ordered by warranty end date
func (db *DB) ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error) {
	var conditions []string
	var args []any

	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}

	if f.Status != "" {
		now := dbTime(f.Now)
		soon := dbTime(warranty.Horizon(f.Now, warranty.ExpiringWindowDays))
		switch f.Status {
		case warranty.StatusExpired:
			conditions = append(conditions, "warranty_end_date < ?")
			args = append(args, now)
		case warranty.StatusExpiring:
			conditions = append(conditions, "warranty_end_date >= ? AND warranty_end_date <= ?")
			args = append(args, now, soon)
		case warranty.StatusActive:
			conditions = append(conditions, "warranty_end_date > ?")
			args = append(args, soon)
		default:
			return nil, fmt.Errorf("unknown warranty status %q", f.Status)
		}
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY warranty_end_date ASC, name ASC"

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	var products []*Product
	if err := db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SetProductActive toggles whether a product is tracked for reminders
func (db *DB) SetProductActive(ctx context.Context, id string, active bool) error {
	return db.UpdateProduct(ctx, id, ProductUpdate{IsActive: &active})
}

// ProductUpdate holds the mutable fields of a product. Nil fields are left
// unchanged.
type ProductUpdate struct {
	IsActive        *bool
	WarrantyEndDate *time.Time
}

// UpdateProduct applies u in one transaction. A new end date re-arms the
// reminder.
func (db *DB) UpdateProduct(ctx context.Context, id string, u ProductUpdate) error {
	return db.withProduct(ctx, id, func(tx *sqlx.Tx, p *Product, now time.Time) error {
		if u.IsActive != nil {
			if _, err := tx.ExecContext(ctx,
				"UPDATE products SET is_active = ?, updated_at = ? WHERE id = ?",
				*u.IsActive, now, id); err != nil {
				return fmt.Errorf("failed to update product %s: %w", id, err)
			}
		}
		if u.WarrantyEndDate != nil {
			return setWarrantyEnd(ctx, tx, p, *u.WarrantyEndDate, now)
		}
		return nil
	})
}

// UpdateWarrantyEnd changes a product's coverage end and re-arms its
// reminder
func (db *DB) UpdateWarrantyEnd(ctx context.Context, id string, end time.Time) error {
	return db.UpdateProduct(ctx, id, ProductUpdate{WarrantyEndDate: &end})
}

// ExtendWarranty moves the current end date months later and re-arms the
// reminder
func (db *DB) ExtendWarranty(ctx context.Context, id string, months int) error {
	if months <= 0 {
		return fmt.Errorf("%w: additional months must be positive", ErrInvalidProduct)
	}
	return db.withProduct(ctx, id, func(tx *sqlx.Tx, p *Product, now time.Time) error {
		return setWarrantyEnd(ctx, tx, p, warranty.EndAfterMonths(p.WarrantyEndDate, months), now)
	})
}

// SetWarrantyPeriod sets the end date to months after start, or after the
// purchase date when start is zero
func (db *DB) SetWarrantyPeriod(ctx context.Context, id string, months int, start time.Time) error {
	if months <= 0 {
		return fmt.Errorf("%w: warranty period must be positive", ErrInvalidProduct)
	}
	return db.withProduct(ctx, id, func(tx *sqlx.Tx, p *Product, now time.Time) error {
		from := start
		if from.IsZero() {
			from = p.PurchaseDate
		}
		return setWarrantyEnd(ctx, tx, p, warranty.EndAfterMonths(from, months), now)
	})
}

// withProduct loads product id inside a transaction, runs fn and commits
// when fn succeeds
func (db *DB) withProduct(ctx context.Context, id string, fn func(tx *sqlx.Tx, p *Product, now time.Time) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := &Product{}
	err = tx.GetContext(ctx, p, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}

	if err := fn(tx, p, db.timestamp()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func setWarrantyEnd(ctx context.Context, tx *sqlx.Tx, p *Product, end, now time.Time) error {
	if !dbTime(end).After(p.PurchaseDate) {
		return ErrInvalidWarrantyWindow
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET warranty_end_date = ?, reminder_sent = 0, last_reminder_at = NULL, updated_at = ?
		WHERE id = ?
	`, dbTime(end), now, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update warranty for product %s: %w", p.ID, err)
	}
	return nil
}

// DeleteProduct removes a product. An imported candidate returns to
// pending so it can be imported again.
func (db *DB) DeleteProduct(ctx context.Context, id string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	if err := requireAffected(result, "product", id); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE candidates SET status = ?, product_id = NULL, updated_at = ? WHERE product_id = ?",
		CandidatePending, db.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to release candidate for product %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
