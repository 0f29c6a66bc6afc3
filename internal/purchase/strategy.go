package purchase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// strategy is one way of extracting a field. Strategies are tried in
// order and the first one that succeeds wins.
type strategy[T any] struct {
	name    string
	extract func(d *document) (T, bool)
}

type chain[T any] []strategy[T]

// run returns the first successful extraction and the name of the
// strategy that produced it.
func (c chain[T]) run(d *document) (T, string, bool) {
	for _, s := range c {
		if v, ok := s.extract(d); ok {
			return v, s.name, true
		}
	}
	var zero T
	return zero, "", false
}

// capture builds a strategy that returns the trimmed first capture group
// of re over the document text when its length lies strictly between
// minLen and maxLen runes. A zero maxLen disables the upper bound.
func capture(name string, re *regexp.Regexp, minLen, maxLen int) strategy[string] {
	return strategy[string]{
		name: name,
		extract: func(d *document) (string, bool) {
			m := re.FindStringSubmatch(d.text)
			if m == nil {
				return "", false
			}
			v := strings.TrimSpace(m[1])
			n := utf8.RuneCountInString(v)
			if n <= minLen || (maxLen > 0 && n >= maxLen) {
				return "", false
			}
			return v, true
		},
	}
}
