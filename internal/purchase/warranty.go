package purchase

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultWarrantyMonths is the coverage assumed for every candidate.
const DefaultWarrantyMonths = 12

const maxWarrantyMonths = 120

// WarrantyEnd returns purchase plus the default one-year coverage. The year
// is advanced with calendar normalization, so Feb 29 rolls to Mar 1 on a
// non-leap target year.
//
// Durations mined from the email text are deliberately not applied here;
// see Candidate.WarrantyHintMonths.
func WarrantyEnd(purchase time.Time) time.Time {
	return purchase.AddDate(DefaultWarrantyMonths/12, 0, 0)
}

var warrantyInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwarranty:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bguarantee:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bcoverage:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\b([0-9]+[ \t-]*(?:year|yr|month|day)s?[ \t-]*warranty)`),
	regexp.MustCompile(`(?i)\bwarranty[ \t]+period:\s*([^.!?\n]+)`),
	regexp.MustCompile(`(?i)\bwarranty[ \t]+terms:\s*([^.!?\n]+)`),
}

// extractWarrantyInfo returns the first warranty snippet verbatim, or nil.
func extractWarrantyInfo(d *document) *string {
	for _, re := range warrantyInfoPatterns {
		m := re.FindStringSubmatch(d.text)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return &v
		}
	}
	return nil
}

var warrantyDurationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([0-9]+)[ \t-]*(year|yr|month|mon)s?[ \t-]*(?:warranty|guarantee)`),
	regexp.MustCompile(`(?i)\b(?:warranty|guarantee)[ \t]+(?:for|of)[ \t]+([0-9]+)[ \t-]*(year|yr|month|mon)s?`),
}

// extractWarrantyMonths mines a coverage duration such as "2 year warranty"
// or "guarantee for 6 months". It returns nil when none is found.
func extractWarrantyMonths(d *document) *int {
	for _, re := range warrantyDurationPatterns {
		m := re.FindStringSubmatch(d.text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		months := n
		if unit := strings.ToLower(m[2]); unit == "year" || unit == "yr" {
			months = n * 12
		}
		if months > maxWarrantyMonths {
			continue
		}
		return &months
	}
	return nil
}
