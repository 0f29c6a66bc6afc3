package purchase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(subject, from, body string) *document {
	return newDocument(RawEmail{Subject: subject, From: from, Body: body})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		doc  *document
		want bool
	}{
		{"known shop", doc("Hello", "news@walmart.com", "Weekly deals"), true},
		{"known shop subdomain", doc("Hello", "ship-confirm@shipment.amazon.com", ""), true},
		{"keyword in subject", doc("Your invoice", "billing@example.com", ""), true},
		{"keyword in body", doc("Hello", "a@example.com", "Your payment went through"), true},
		{"order id only", doc("Hello", "a@example.com", "Ref ord 998877A"), true},
		{"personal mail", doc("Weekend plans", "friend@gmail.com", "See you Saturday"), false},
		{"lookalike domain", doc("Hi", "x@notamazon.com", "hello"), false},
		{"address inside display name", doc("Hello", `"billing@notify.net" <orders@amazon.com>`, "Thanks"), true},
		{"shop only in display name", doc("Hello", `"orders@amazon.com" <friend@gmail.com>`, "Thanks"), false},
		{"malformed header with brackets", doc("Hello", "billing@notify.net <orders@amazon.com>", "Thanks"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.doc))
		})
	}
}

func TestExtractVendor(t *testing.T) {
	tests := []struct {
		name string
		doc  *document
		want string
	}{
		{"canonical domain", doc("", "orders@amazon.in", ""), "Amazon India"},
		{"canonical subdomain", doc("", "x@email.bestbuy.com", ""), "Best Buy"},
		{"unknown domain title cased", doc("", "hello@gadgethub.io", ""), "Gadgethub"},
		{"display name holds another address", doc("", `"billing@notify.net" <orders@amazon.com>`, ""), "Amazon"},
		{"named sender", doc("", "Best Buy <BBYOrders@Email.BestBuy.com>", ""), "Best Buy"},
		{"from cue", doc("Thanks", "", "Shipped from Gadget Hub\nThanks"), "Gadget Hub"},
		{"name before receipt", doc("Corner Store receipt", "", ""), "Corner Store"},
		{"unresolved", doc("", "", "payment received"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractVendor(tt.doc))
		})
	}
}

func TestVendorForDomain(t *testing.T) {
	name, ok := VendorForDomain("ATT.com")
	assert.True(t, ok)
	assert.Equal(t, "AT&T", name)

	_, ok = VendorForDomain("example.com")
	assert.False(t, ok)
}

func TestExtractProductName(t *testing.T) {
	tests := []struct {
		name string
		doc  *document
		want string
	}{
		{"purchased cue", doc("Order confirmation", "", "You purchased Wireless Mouse. Shipped soon"), "Wireless Mouse"},
		{"item label", doc("Receipt", "", "Item: Cordless Drill\nQty: 1"), "Cordless Drill"},
		{"ordered on is a date", doc("Thanks", "", "Ordered on May 2, 2024. Item: Desk Lamp\n"), "Desk Lamp"},
		{"purchased from is a merchant", doc("Thanks", "", "Purchased from Gadget Hub. Item: Desk Lamp\n"), "Desk Lamp"},
		{"bought at is a merchant", doc("Thanks", "", "Bought at the mall. Product: Desk Lamp\n"), "Desk Lamp"},
		{"empty after cleanup falls through", doc("Thanks", "", "Item: Order Receipt\nProduct: Desk Lamp\n"), "Desk Lamp"},
		{"boilerplate stripped", doc("Receipt", "", "Product: Order #A1 Standing Desk\n"), "A1 Standing Desk"},
		{"subject fallback", doc("Your Dyson order has shipped", "", ""), "Your Dyson has"},
		{"nothing usable", doc("", "", "payment received"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractProductName(tt.doc))
		})
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{"labelled dollars", "Total: $1,249.50", ptr(1249.50)},
		{"labelled rupees", "Amount: Rs. 1,299.00", ptr(1299.0)},
		{"rupee symbol", "You paid ₹2,499 today", ptr(2499.0)},
		{"bare dollar", "Charged $19.99 to your card", ptr(19.99)},
		{"skips out of range", "Total: $250000.00\nPrice: $19.99", ptr(19.99)},
		{"zero rejected", "Total: $0.00", nil},
		{"no amount", "Thanks for shopping", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractPrice(doc("Receipt", "", tt.body))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "INR", detectCurrency(doc("", "", "Total: ₹500")))
	assert.Equal(t, "EUR", detectCurrency(doc("", "", "Total: €20")))
	assert.Equal(t, "GBP", detectCurrency(doc("", "", "Total: £20")))
	assert.Equal(t, "USD", detectCurrency(doc("", "", "Total: 20")))
}

func TestExtractOrderNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"hash label", "Order #112-3344556", "112-3344556"},
		{"number label", "Order Number: 4455667788", "4455667788"},
		{"skips words", "Your order has shipped. Order ID: X99812", "X99812"},
		{"invoice", "Invoice No. INV-20240315", "INV-20240315"},
		{"transaction", "Transaction ID: TXN98765", "TXN98765"},
		{"none", "Your order has shipped", ""},
		{"too short", "Order #12", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractOrderNumber(doc("", "", tt.body))
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractWarrantyInfo(t *testing.T) {
	info := extractWarrantyInfo(doc("", "", "Warranty: 1 year manufacturer cover. Enjoy"))
	require.NotNil(t, info)
	assert.Equal(t, "1 year manufacturer cover", *info)

	info = extractWarrantyInfo(doc("", "", "Comes with a 3-year warranty and free returns"))
	require.NotNil(t, info)
	assert.Equal(t, "3-year warranty", *info)

	assert.Nil(t, extractWarrantyInfo(doc("", "", "No coverage mentioned")))
}

func TestExtractWarrantyMonths(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{"2 year warranty", 24},
		{"Includes a 6-month guarantee", 6},
		{"Warranty for 3 years", 36},
		{"500 year warranty", 0},
		{"no duration here", 0},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := extractWarrantyMonths(doc("", "", tt.body))
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestWarrantyEnd(t *testing.T) {
	start := time.Date(2023, time.August, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC), WarrantyEnd(start))

	leap := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), WarrantyEnd(leap))
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("Mon, 15 Jan 2024 10:30:00 +0000")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)))

	got, ok = ParseDate("2024-03-15")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)), "got %s", got)

	_, ok = ParseDate("")
	assert.False(t, ok)
	_, ok = ParseDate("tomorrow-ish")
	assert.False(t, ok)
}

func TestParseDatePrefix(t *testing.T) {
	got, ok := parseDatePrefix("2024-03-15 and shipped")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)), "got %s", got)

	_, ok = parseDatePrefix("soon")
	assert.False(t, ok)
}

func TestChainRun(t *testing.T) {
	c := chain[string]{
		{name: "miss", extract: func(*document) (string, bool) { return "", false }},
		{name: "hit", extract: func(*document) (string, bool) { return "first", true }},
		{name: "later", extract: func(*document) (string, bool) { return "second", true }},
	}

	v, name, ok := c.run(doc("", "", ""))
	assert.True(t, ok)
	assert.Equal(t, "first", v)
	assert.Equal(t, "hit", name)

	_, _, ok = chain[string]{}.run(doc("", "", ""))
	assert.False(t, ok)
}

func ptr[T any](v T) *T { return &v }
