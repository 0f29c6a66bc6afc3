package purchase

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// maxDateTokens bounds how many words of a cue capture are fed to the
// date parser.
const maxDateTokens = 8

const minYear = 1900

// Captures stop at line ends and full stops so trailing sentences do not
// leak into the date text.
var dateCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bordered[ \t]+on[ \t]+([a-zA-Z0-9 \t,/:-]+)`),
	regexp.MustCompile(`(?i)\bpurchased[ \t]+on[ \t]+([a-zA-Z0-9 \t,/:-]+)`),
	regexp.MustCompile(`(?i)\border[ \t]+date:[ \t]*([a-zA-Z0-9 \t,/:-]+)`),
	regexp.MustCompile(`(?i)\bpurchase[ \t]+date:[ \t]*([a-zA-Z0-9 \t,/:-]+)`),
	regexp.MustCompile(`(?i)\bdate:[ \t]*([a-zA-Z0-9 \t,/:-]+)`),
}

// resolvePurchaseDate prefers the Date header, then cue-labelled dates in
// the text, then the parser's clock.
func (p *Parser) resolvePurchaseDate(d *document) (time.Time, DateSource) {
	if t, ok := ParseDate(d.dateHeader); ok {
		return t, DateFromHeader
	}
	for _, re := range dateCues {
		m := re.FindStringSubmatch(d.text)
		if m == nil {
			continue
		}
		if t, ok := parseDatePrefix(m[1]); ok {
			return t, DateFromBody
		}
	}
	return p.now(), DateFromNow
}

// ParseDate parses an email Date header or a free-form date. Strings
// without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.Year() < minYear {
		return time.Time{}, false
	}
	return t, true
}

// parseDatePrefix tries the longest leading run of words that parses as a
// date, so "January 5, 2024 and shipped" yields January 5, 2024.
func parseDatePrefix(s string) (time.Time, bool) {
	tokens := strings.Fields(s)
	if len(tokens) > maxDateTokens {
		tokens = tokens[:maxDateTokens]
	}
	for n := len(tokens); n > 0; n-- {
		candidate := strings.TrimRight(strings.Join(tokens[:n], " "), ",:-/ ")
		if len(candidate) < 6 || !strings.ContainsFunc(candidate, unicode.IsDigit) {
			continue
		}
		if t, ok := ParseDate(candidate); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
