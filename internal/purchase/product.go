package purchase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	productNoise = regexp.MustCompile(`(?i)\b(?:order|ord|inv|txn|trans|receipt|confirmation|number|id)\b|#`)
	spaceRun     = regexp.MustCompile(`\s+`)

	// subjectNoise are label words dropped from subject-line fallbacks.
	subjectNoise = regexp.MustCompile(`(?i)^(?:order|ord|inv|txn|trans|receipt|confirmation)$`)
)

// productChain holds the cue patterns in priority order.
var productChain = chain[string]{
	productCue("ordered", `(?i)\bordered\s+([^.!?]+)`),
	productCue("purchased", `(?i)\bpurchased\s+([^.!?]+)`),
	productCue("bought", `(?i)\bbought\s+([^.!?]+)`),
	productCue("item-label", `(?i)\bitem:\s*([^.!?\n]+)`),
	productCue("product-label", `(?i)\bproduct:\s*([^.!?\n]+)`),
	productCue("description-label", `(?i)\bdescription:\s*([^.!?\n]+)`),
	productCue("has-been-ordered", `(?i)([a-zA-Z0-9 \t&]+)\s+has\s+been\s+ordered`),
	productCue("order-confirmation", `(?i)([a-zA-Z0-9 \t&]+)\s+order\s+confirmation`),
	{name: "subject-words", extract: productFromSubject},
}

// Cue phrases such as "ordered on" or "purchased from" introduce a date
// or a merchant, not a product.
var nonProductLead = map[string]bool{"on": true, "from": true, "at": true, "by": true}

// productCue captures text after a cue, keeps it when 3 < len < 100 and
// strips boilerplate tokens.
func productCue(name, pattern string) strategy[string] {
	base := capture(name, regexp.MustCompile(pattern), 3, 100)
	return strategy[string]{
		name: name,
		extract: func(d *document) (string, bool) {
			v, ok := base.extract(d)
			if !ok {
				return "", false
			}
			if fields := strings.Fields(v); len(fields) > 0 && nonProductLead[strings.ToLower(fields[0])] {
				return "", false
			}
			v = cleanProductName(v)
			return v, v != ""
		},
	}
}

// cleanProductName removes order/receipt boilerplate and collapses
// whitespace.
func cleanProductName(name string) string {
	name = productNoise.ReplaceAllString(name, "")
	name = spaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// productFromSubject keeps up to five subject words that are longer than
// two characters and are not purchase keywords.
func productFromSubject(d *document) (string, bool) {
	var kept []string
	for _, word := range strings.Fields(d.subject) {
		if utf8.RuneCountInString(word) <= 2 || isPurchaseKeyword(word) || subjectNoise.MatchString(word) {
			continue
		}
		kept = append(kept, word)
		if len(kept) == 5 {
			break
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, " "), true
}

func isPurchaseKeyword(word string) bool {
	word = strings.ToLower(word)
	for _, kw := range purchaseKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

// extractProductName returns the product label, or "" when unresolved.
func extractProductName(d *document) string {
	v, _, ok := productChain.run(d)
	if !ok {
		return ""
	}
	return v
}
