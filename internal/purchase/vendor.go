package purchase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Vendor cues stay on a single line.
var vendorChain = chain[string]{
	{name: "sender-domain", extract: vendorFromSender},
	capture("from", regexp.MustCompile(`(?i)\bfrom[ \t]+([A-Za-z][A-Za-z &]*)`), 2, 50),
	capture("ordered-from", regexp.MustCompile(`(?i)\bordered[ \t]+from[ \t]+([A-Za-z][A-Za-z &]*)`), 2, 50),
	capture("purchased-from", regexp.MustCompile(`(?i)\bpurchased[ \t]+from[ \t]+([A-Za-z][A-Za-z &]*)`), 2, 50),
	capture("name-order", regexp.MustCompile(`(?i)([A-Za-z][A-Za-z &]*?)[ \t]+order\b`), 2, 50),
	capture("name-receipt", regexp.MustCompile(`(?i)([A-Za-z][A-Za-z &]*?)[ \t]+receipt\b`), 2, 50),
}

// extractVendor returns the merchant name, or "" when unresolved.
func extractVendor(d *document) string {
	v, _, ok := vendorChain.run(d)
	if !ok {
		return ""
	}
	return v
}

// vendorFromSender maps the From domain to a known merchant, falling back
// to the title-cased first DNS label.
func vendorFromSender(d *document) (string, bool) {
	domain := senderDomain(d.from)
	if domain == "" {
		return "", false
	}
	if name, ok := VendorForDomain(domain); ok {
		return name, true
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 || labels[0] == "" {
		return "", false
	}
	return titleCase(labels[0]), true
}

// VendorForDomain looks domain up in the canonical merchant table. Sub
// domains resolve to their parent entry.
func VendorForDomain(domain string) (string, bool) {
	domain = strings.ToLower(domain)
	if name, ok := vendorDomains[domain]; ok {
		return name, true
	}
	for known, name := range vendorDomains {
		if domainMatches(domain, known) {
			return name, true
		}
	}
	return "", false
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
