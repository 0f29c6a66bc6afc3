// Package purchase turns raw e-commerce emails into candidate product
// records for the warranty tracker.
//
// The package is pure computation: no I/O, no shared mutable state. A
// Parser may be used from any number of goroutines at once. The only
// wall-clock dependency is the purchase date fallback, which uses the
// parser's clock when neither the Date header nor the body yields a date.
package purchase

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sentinels emitted at the API boundary for unresolved fields.
const (
	UnknownProduct = "Unknown Product"
	UnknownVendor  = "Unknown Vendor"
)

// RawEmail is the normalized input handed over by the email retrieval
// side. Date is the raw Date header text and is empty when absent.
type RawEmail struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date,omitempty"`
	Body    string `json:"body"`
}

// DateSource records where a candidate's purchase date came from.
type DateSource string

const (
	DateFromHeader DateSource = "header"
	DateFromBody   DateSource = "body"
	DateFromNow    DateSource = "now"
)

// Candidate is an extracted, unconfirmed product record. Name and Vendor
// are empty when they could not be resolved; use DisplayName and
// DisplayVendor for presentation.
type Candidate struct {
	EmailID            string
	Name               string
	Category           Category
	Vendor             string
	PurchaseDate       time.Time
	PurchaseDateSource DateSource
	WarrantyEndDate    time.Time
	Price              *float64
	Currency           string
	OrderNumber        *string
	WarrantyInfo       *string
	// WarrantyHintMonths is the duration mined from the warranty text.
	// It is informational only and never moves WarrantyEndDate.
	WarrantyHintMonths *int
	Confidence         int
}

// DisplayName returns the product name or the "Unknown Product" sentinel.
func (c *Candidate) DisplayName() string {
	if c.Name == "" {
		return UnknownProduct
	}
	return c.Name
}

// DisplayVendor returns the vendor or the "Unknown Vendor" sentinel.
func (c *Candidate) DisplayVendor() string {
	if c.Vendor == "" {
		return UnknownVendor
	}
	return c.Vendor
}

// Description is the human readable note stored with imported products.
func (c *Candidate) Description() string {
	desc := fmt.Sprintf("Imported from %s email.", c.DisplayVendor())
	if c.WarrantyInfo != nil {
		desc += " Warranty: " + *c.WarrantyInfo
	}
	return desc
}

type candidateJSON struct {
	EmailID            string     `json:"emailId"`
	Name               string     `json:"name"`
	Category           Category   `json:"category"`
	Vendor             string     `json:"vendor"`
	PurchaseDate       time.Time  `json:"purchaseDate"`
	PurchaseDateSource DateSource `json:"purchaseDateSource"`
	WarrantyEndDate    time.Time  `json:"warrantyEndDate"`
	Price              *float64   `json:"price"`
	Currency           string     `json:"currency"`
	OrderNumber        *string    `json:"orderNumber"`
	WarrantyInfo       *string    `json:"warrantyInfo"`
	WarrantyHintMonths *int       `json:"warrantyHintMonths"`
	Description        string     `json:"description"`
	Confidence         int        `json:"confidence"`
}

// MarshalJSON encodes the candidate with the sentinel strings existing
// consumers expect for unresolved name and vendor.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(candidateJSON{
		EmailID:            c.EmailID,
		Name:               c.DisplayName(),
		Category:           c.Category,
		Vendor:             c.DisplayVendor(),
		PurchaseDate:       c.PurchaseDate,
		PurchaseDateSource: c.PurchaseDateSource,
		WarrantyEndDate:    c.WarrantyEndDate,
		Price:              c.Price,
		Currency:           c.Currency,
		OrderNumber:        c.OrderNumber,
		WarrantyInfo:       c.WarrantyInfo,
		WarrantyHintMonths: c.WarrantyHintMonths,
		Description:        c.Description(),
		Confidence:         c.Confidence,
	})
}

// Parser runs the classification and extraction pipeline. The zero value
// is not usable; build one with New.
type Parser struct {
	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock replaces the clock used for the purchase date fallback.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// IsPurchaseEmail reports whether email looks like an order, receipt,
// invoice or shipping notice.
func IsPurchaseEmail(email RawEmail) bool {
	return defaultParser.IsPurchaseEmail(email)
}

// Parse extracts a candidate from email using the wall clock for the
// purchase date fallback. It returns nil when email is not a purchase email.
func Parse(email RawEmail) *Candidate {
	return defaultParser.Parse(email)
}

// IsPurchaseEmail reports whether email looks like a purchase email.
func (p *Parser) IsPurchaseEmail(email RawEmail) bool {
	return classify(newDocument(email))
}

// Parse runs every extractor over the normalized email and assembles a
// candidate. It returns nil when IsPurchaseEmail is false.
//
// Parse is deterministic for a given input except when the purchase date
// falls back to the parser's clock.
func (p *Parser) Parse(email RawEmail) *Candidate {
	doc := newDocument(email)
	if !classify(doc) {
		return nil
	}

	name := extractProductName(doc)
	vendor := extractVendor(doc)
	price := extractPrice(doc)
	purchased, source := p.resolvePurchaseDate(doc)
	order := extractOrderNumber(doc)

	c := &Candidate{
		EmailID:            email.ID,
		Name:               name,
		Category:           Categorize(name),
		Vendor:             vendor,
		PurchaseDate:       purchased,
		PurchaseDateSource: source,
		WarrantyEndDate:    WarrantyEnd(purchased),
		Price:              price,
		Currency:           detectCurrency(doc),
		OrderNumber:        order,
		WarrantyInfo:       extractWarrantyInfo(doc),
		WarrantyHintMonths: extractWarrantyMonths(doc),
	}
	c.Confidence = Score(Signals{
		NameResolved:     name != "",
		VendorResolved:   vendor != "",
		PriceResolved:    price != nil && *price > 0,
		DateHeaderUsable: source == DateFromHeader,
		OrderNumberFound: order != nil,
	})
	return c
}
