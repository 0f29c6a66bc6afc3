package purchase

import (
	"regexp"
	"strconv"
	"strings"
)

const maxPrice = 100000

const amountPattern = `([0-9][0-9,]*\.?[0-9]*)`

// pricePatterns run over the lower-cased text: label-anchored amounts
// first, then bare currency amounts.
var pricePatterns = []*regexp.Regexp{
	labelledAmount("total"),
	labelledAmount("amount"),
	labelledAmount("price"),
	labelledAmount("cost"),
	labelledAmount("paid"),
	labelledAmount("charged"),
	regexp.MustCompile(`\$\s*` + amountPattern),
	regexp.MustCompile(`₹\s*` + amountPattern),
	regexp.MustCompile(`\brs\.?\s*` + amountPattern),
}

func labelledAmount(label string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + label + `:\s*(?:\$|₹|€|£|rs\.?)?\s*` + amountPattern)
}

// extractPrice returns the first amount that parses and lies in
// (0, 100000), or nil.
func extractPrice(d *document) *float64 {
	for _, re := range pricePatterns {
		m := re.FindStringSubmatch(d.lower)
		if m == nil {
			continue
		}
		v, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		return &v
	}
	return nil
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= maxPrice {
		return 0, false
	}
	return v, true
}

// detectCurrency infers the currency from symbols present anywhere in the
// text, independent of which price pattern matched.
func detectCurrency(d *document) string {
	switch {
	case strings.Contains(d.text, "₹"):
		return "INR"
	case strings.Contains(d.text, "€"):
		return "EUR"
	case strings.Contains(d.text, "£"):
		return "GBP"
	default:
		return "USD"
	}
}
