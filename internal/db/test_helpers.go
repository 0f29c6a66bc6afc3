package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/felo/warranty-tracker/internal/purchase"
)

// SetupTestDB creates an in-memory SQLite database for testing. The
// database is closed when the test completes.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return db
}

// CreateTestEmail creates a test email with default values
func CreateTestEmail(subject, sender string) *Email {
	date := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	return &Email{
		SourceKey:   fmt.Sprintf("test/%s.eml", subject),
		MessageID:   fmt.Sprintf("<%s@test.com>", subject),
		Subject:     subject,
		Sender:      sender,
		SenderName:  "Test Sender",
		Date:        &date,
		BodyPreview: "Total: $10.00",
	}
}

// CreateTestCandidate creates a pending candidate for a purchase made on
// purchased
func CreateTestCandidate(name, vendor string, purchased time.Time, confidence int) *Candidate {
	price := 99.99
	return &Candidate{
		Name:               name,
		Category:           string(purchase.Categorize(name)),
		Vendor:             vendor,
		PurchaseDate:       purchased,
		PurchaseDateSource: string(purchase.DateFromHeader),
		WarrantyEndDate:    purchase.WarrantyEnd(purchased),
		Price:              &price,
		Currency:           "USD",
		Description:        fmt.Sprintf("Imported from %s email.", vendor),
		Confidence:         confidence,
	}
}

// InsertTestCandidate stores an email and a candidate for it
func InsertTestCandidate(t *testing.T, db *DB, subject string, c *Candidate) *Candidate {
	t.Helper()

	email := CreateTestEmail(subject, "orders@shop.example")
	email.IsPurchase = true
	if err := db.InsertIndexedEmail(context.Background(), email, c); err != nil {
		t.Fatalf("Failed to insert test candidate %s: %v", subject, err)
	}
	return c
}

// CreateTestProduct inserts a manual product whose warranty ends at end
func CreateTestProduct(t *testing.T, db *DB, name string, end time.Time) *Product {
	t.Helper()

	p := &Product{
		Name:            name,
		Category:        string(purchase.Categorize(name)),
		Vendor:          "Test Vendor",
		PurchaseDate:    end.AddDate(-1, 0, 0),
		WarrantyEndDate: end,
	}
	if err := db.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test product %s: %v", name, err)
	}
	return p
}
