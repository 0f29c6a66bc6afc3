package purchase

import (
	"regexp"
	"strings"
	"unicode"
)

const minOrderNumberLen = 4

const orderToken = `\s*[#:]?\s*([a-z0-9][a-z0-9-]*)`

// orderNumberPatterns are tried in order; within a pattern every match is
// considered until one yields a plausible identifier.
var orderNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\border\b\s*(?:number|no\.?|id)?` + orderToken),
	regexp.MustCompile(`(?i)\bord\b\.?` + orderToken),
	regexp.MustCompile(`(?i)\binv(?:oice)?\b\.?\s*(?:number|no\.?)?` + orderToken),
	regexp.MustCompile(`(?i)\btxn\b\s*(?:id)?` + orderToken),
	regexp.MustCompile(`(?i)\btrans(?:action)?\b\s*(?:id)?` + orderToken),
}

// extractOrderNumber returns the first labelled identifier, or nil. An
// identifier must contain a digit so phrases such as "order has shipped"
// are not mistaken for one.
func extractOrderNumber(d *document) *string {
	for _, re := range orderNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(d.text, -1) {
			id := strings.Trim(m[1], "-")
			if len(id) < minOrderNumberLen || !strings.ContainsFunc(id, unicode.IsDigit) {
				continue
			}
			return &id
		}
	}
	return nil
}
