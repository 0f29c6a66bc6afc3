package purchase

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

var (
	senderDomainPattern = regexp.MustCompile(`@([A-Za-z0-9](?:[A-Za-z0-9.-]*[A-Za-z0-9])?)`)
	angleAddrPattern    = regexp.MustCompile(`<([^<>]*)>`)

	// orderIDSignal matches a transaction label followed by an identifier
	// of at least six characters.
	orderIDSignal = regexp.MustCompile(`(?i)\b(?:order|ord|inv|txn|trans|receipt)[\s#:]*[a-z0-9-]{6,}\b`)
)

// classify ORs the domain, keyword and order-number signals. It favours
// recall; false positives are weeded out during human review.
func classify(d *document) bool {
	return fromKnownShop(d.from) || hasPurchaseKeyword(d) || orderIDSignal.MatchString(d.text)
}

// senderDomain returns the lower-cased domain of the first address in a
// From header, or "" when there is none. The display name never counts, so
// `"billing@notify.net" <orders@amazon.com>` yields amazon.com.
func senderDomain(from string) string {
	if addrs, err := mail.ParseAddressList(from); err == nil && len(addrs) > 0 {
		addr := addrs[0].Address
		if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
			return strings.ToLower(addr[i+1:])
		}
	}

	// Malformed header: prefer the bracketed address over the display name.
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		from = m[1]
	}
	m := senderDomainPattern.FindStringSubmatch(from)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// domainMatches reports whether domain equals known or is a subdomain of it.
func domainMatches(domain, known string) bool {
	return domain == known || strings.HasSuffix(domain, "."+known)
}

func fromKnownShop(from string) bool {
	domain := senderDomain(from)
	if domain == "" {
		return false
	}
	for _, known := range ecommerceDomains {
		if domainMatches(domain, known) {
			return true
		}
	}
	return false
}

func hasPurchaseKeyword(d *document) bool {
	subject := strings.ToLower(d.subject)
	body := strings.ToLower(d.body)
	for _, kw := range purchaseKeywords {
		if strings.Contains(subject, kw) || strings.Contains(body, kw) {
			return true
		}
	}
	return false
}
