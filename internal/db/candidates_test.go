package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/warranty-tracker/internal/purchase"
)

var purchasedAt = time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)

// TestNewCandidate keeps sentinels for unresolved fields
func TestNewCandidate(t *testing.T) {
	parsed := purchase.New(purchase.WithClock(func() time.Time { return purchasedAt })).
		Parse(purchase.RawEmail{ID: "x", Body: "payment received"})
	require.NotNil(t, parsed)

	c := NewCandidate(parsed)
	assert.Equal(t, purchase.UnknownProduct, c.Name)
	assert.Equal(t, purchase.UnknownVendor, c.Vendor)
	assert.Equal(t, "Other", c.Category)
	assert.Equal(t, "now", c.PurchaseDateSource)
	assert.Equal(t, CandidatePending, c.Status)
	assert.Equal(t, "Imported from Unknown Vendor email.", c.Description)
}

// TestInsertAndGetCandidate round-trips a candidate through the database
func TestInsertAndGetCandidate(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	order := "112-3344556"
	c := CreateTestCandidate("Wireless Headphones", "Amazon", purchasedAt, 85)
	c.OrderNumber = &order
	InsertTestCandidate(t, db, "headphones", c)

	require.NotEmpty(t, c.ID)
	got, err := db.GetCandidate(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, "Wireless Headphones", got.Name)
	assert.Equal(t, "Electronics", got.Category)
	assert.Equal(t, CandidatePending, got.Status)
	assert.True(t, got.PurchaseDate.Equal(purchasedAt))
	assert.True(t, got.WarrantyEndDate.Equal(purchasedAt.AddDate(1, 0, 0)))
	require.NotNil(t, got.OrderNumber)
	assert.Equal(t, order, *got.OrderNumber)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 99.99, *got.Price, 0.001)
	assert.Nil(t, got.WarrantyInfo)
	assert.Nil(t, got.ProductID)
}

// TestGetCandidate_NotFound returns ErrNotFound
func TestGetCandidate_NotFound(t *testing.T) {
	db := SetupTestDB(t)

	_, err := db.GetCandidate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestListCandidates orders by confidence and filters by status
func TestListCandidates(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	low := InsertTestCandidate(t, db, "low", CreateTestCandidate("Desk", "Ikea", purchasedAt, 30))
	InsertTestCandidate(t, db, "high", CreateTestCandidate("Laptop", "Dell", purchasedAt, 100))
	InsertTestCandidate(t, db, "mid", CreateTestCandidate("Drill", "Bosch", purchasedAt, 70))

	all, err := db.ListCandidates(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{100, 70, 30}, []int{all[0].Confidence, all[1].Confidence, all[2].Confidence})

	require.NoError(t, db.DismissCandidate(ctx, low.ID))

	pending, err := db.ListCandidates(ctx, CandidatePending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	dismissed, err := db.ListCandidates(ctx, CandidateDismissed, 10)
	require.NoError(t, err)
	require.Len(t, dismissed, 1)
	assert.Equal(t, low.ID, dismissed[0].ID)

	count, err := db.CountCandidates(ctx, CandidatePending)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestImportCandidate creates a product and marks the candidate imported
func TestImportCandidate(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "laptop", CreateTestCandidate("Laptop", "Dell", purchasedAt, 85))

	p, err := db.ImportCandidate(ctx, c.ID, ImportOverrides{})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, "Dell", p.Vendor)
	assert.Equal(t, SourceEmail, p.Source)
	assert.True(t, p.IsActive)
	assert.True(t, p.WarrantyEndDate.Equal(purchasedAt.AddDate(1, 0, 0)))
	require.NotNil(t, p.EmailID)
	assert.Equal(t, c.EmailID, *p.EmailID)

	got, err := db.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CandidateImported, got.Status)
	require.NotNil(t, got.ProductID)
	assert.Equal(t, p.ID, *got.ProductID)

	stored, err := db.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, stored.Name)
}

// TestImportCandidate_Overrides applies reviewer corrections
func TestImportCandidate_Overrides(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "unknown", CreateTestCandidate(purchase.UnknownProduct, "Amazon", purchasedAt, 55))

	p, err := db.ImportCandidate(ctx, c.ID, ImportOverrides{
		Name:           "Office Chair",
		Category:       "Furniture",
		WarrantyMonths: 24,
		SerialNumber:   " SN-1 ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Office Chair", p.Name)
	assert.Equal(t, "Furniture", p.Category)
	assert.Equal(t, "Amazon", p.Vendor)
	assert.Equal(t, "SN-1", p.SerialNumber)
	assert.True(t, p.WarrantyEndDate.Equal(purchasedAt.AddDate(2, 0, 0)))
}

// TestImportCandidate_Twice refuses a second import of the same email
func TestImportCandidate_Twice(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "tv", CreateTestCandidate("Television", "Best Buy", purchasedAt, 85))

	_, err := db.ImportCandidate(ctx, c.ID, ImportOverrides{})
	require.NoError(t, err)

	_, err = db.ImportCandidate(ctx, c.ID, ImportOverrides{})
	assert.ErrorIs(t, err, ErrAlreadyImported)

	assert.ErrorIs(t, db.DismissCandidate(ctx, c.ID), ErrAlreadyImported)
}

// TestImportCandidate_InvalidCategory rejects unknown categories
func TestImportCandidate_InvalidCategory(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "x", CreateTestCandidate("Laptop", "Dell", purchasedAt, 85))

	_, err := db.ImportCandidate(ctx, c.ID, ImportOverrides{Category: "Groceries"})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	got, err := db.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CandidatePending, got.Status, "Failed import must not change the candidate")
}

// TestImportCandidate_NotFound returns ErrNotFound
func TestImportCandidate_NotFound(t *testing.T) {
	db := SetupTestDB(t)

	_, err := db.ImportCandidate(context.Background(), "missing", ImportOverrides{})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestRestoreCandidate moves a dismissed candidate back to pending
func TestRestoreCandidate(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "x", CreateTestCandidate("Laptop", "Dell", purchasedAt, 85))
	require.NoError(t, db.DismissCandidate(ctx, c.ID))
	require.NoError(t, db.RestoreCandidate(ctx, c.ID))

	got, err := db.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CandidatePending, got.Status)
}

// TestDeleteProduct_ReleasesCandidate allows re-import after deletion
func TestDeleteProduct_ReleasesCandidate(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	c := InsertTestCandidate(t, db, "x", CreateTestCandidate("Laptop", "Dell", purchasedAt, 85))
	p, err := db.ImportCandidate(ctx, c.ID, ImportOverrides{})
	require.NoError(t, err)

	require.NoError(t, db.DeleteProduct(ctx, p.ID))

	got, err := db.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CandidatePending, got.Status)
	assert.Nil(t, got.ProductID)

	_, err = db.ImportCandidate(ctx, c.ID, ImportOverrides{})
	assert.NoError(t, err)
}
