package purchase

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	// markupPattern detects leftover HTML tags in a body that was supposed
	// to be plain text.
	markupPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)

	blockTagPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|tr|table|h[1-6])\s*>`)
	hspacePattern   = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)

	textPolicy = newTextPolicy()
)

// newTextPolicy returns a strict bluemonday policy that drops every tag
// and leaves a space where one was removed. The policy is warmed up here
// so later concurrent Sanitize calls only read it.
func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	p.Sanitize("")
	return p
}

// document is the normalized view of an email shared by all extractors.
type document struct {
	subject    string
	body       string
	from       string
	dateHeader string
	// text is subject and body joined by a single space.
	text  string
	lower string
}

func newDocument(e RawEmail) *document {
	d := &document{
		subject:    NormalizeText(e.Subject),
		body:       NormalizeText(e.Body),
		from:       strings.TrimSpace(e.From),
		dateHeader: strings.TrimSpace(e.Date),
	}
	d.text = d.subject + " " + d.body
	d.lower = strings.ToLower(d.text)
	return d
}

// LooksLikeHTML reports whether s contains HTML tags.
func LooksLikeHTML(s string) bool {
	return markupPattern.MatchString(s)
}

// HTMLToText strips markup from an HTML body. Block level tags become line
// breaks, every other tag becomes a space, and entities are decoded.
func HTMLToText(s string) string {
	if s == "" {
		return ""
	}
	s = blockTagPattern.ReplaceAllString(s, "\n")
	s = textPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return collapseWhitespace(s)
}

// NormalizeText prepares text for pattern matching: stray markup is
// stripped, the text is NFKC normalized, line endings are unified,
// control characters other than newline are removed and horizontal
// whitespace runs are collapsed to a single space.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	if LooksLikeHTML(s) {
		s = HTMLToText(s)
	}
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	s = hspacePattern.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
