package purchase

// Confidence weights. They sum to exactly 100; adding a signal means
// rebalancing this table.
const (
	weightName        = 30
	weightVendor      = 25
	weightPrice       = 20
	weightDateHeader  = 15
	weightOrderNumber = 10

	maxConfidence = 100
)

// Signals records which sub-fields of a candidate were resolved.
type Signals struct {
	NameResolved     bool
	VendorResolved   bool
	PriceResolved    bool
	DateHeaderUsable bool
	OrderNumberFound bool
}

// Score sums the weights of the resolved signals, capped at 100.
func Score(s Signals) int {
	score := 0
	if s.NameResolved {
		score += weightName
	}
	if s.VendorResolved {
		score += weightVendor
	}
	if s.PriceResolved {
		score += weightPrice
	}
	if s.DateHeaderUsable {
		score += weightDateHeader
	}
	if s.OrderNumberFound {
		score += weightOrderNumber
	}
	return min(score, maxConfidence)
}
