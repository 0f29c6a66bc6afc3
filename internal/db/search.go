package db

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// ProductSearchResult is a product matched by full-text search
type ProductSearchResult struct {
	Product
	Snippet string `db:"snippet" json:"snippet"`
}

// SearchProducts performs a prefix full-text search over product name,
// vendor, category, description and serial number. An empty query lists
// products by warranty end date.
func (db *DB) SearchProducts(ctx context.Context, query string, limit int) ([]*ProductSearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		products, err := db.ListProducts(ctx, ProductFilter{Limit: limit})
		if err != nil {
			return nil, err
		}
		results := make([]*ProductSearchResult, len(products))
		for i, p := range products {
			results[i] = &ProductSearchResult{Product: *p, Snippet: truncateText(p.Description, 200)}
		}
		return results, nil
	}

	var results []*ProductSearchResult
	err := db.SelectContext(ctx, &results, `
		SELECT
			p.id, p.name, p.category, p.vendor, p.serial_number, p.description, p.purchase_date,
			p.warranty_end_date, p.price, p.currency, p.order_number, p.source, p.email_id,
			p.candidate_id, p.is_active, p.reminder_sent, p.last_reminder_at, p.created_at, p.updated_at,
			snippet(products_fts, 3, '<mark>', '</mark>', '...', 16) AS snippet
		FROM products p
		JOIN products_fts ON p.rowid = products_fts.rowid
		WHERE products_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return results, nil
}

// ftsQuery turns free text into an FTS5 prefix query: "sony head" becomes
// "sony"* "head"*. Each term is quoted so FTS5 operators in user input are
// treated as text; terms without a letter or digit are dropped.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if strings.IndexFunc(term, isWordRune) < 0 {
			continue
		}
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"*`)
	}
	return strings.Join(quoted, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
