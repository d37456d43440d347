package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	amountCleanup   = regexp.MustCompile(`[^\d,.\-]`)
	europeanGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})*,\d+$`)
	angloGrouped    = regexp.MustCompile(`^\d{1,3}(,\d{3})*\.\d+$`)

	isoDateSub      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	dayFirstDateSub = regexp.MustCompile(`(\d{2})[/.-](\d{2})[/.-](\d{4})`)
)

// dateLayouts are tried in order; day-first layouts reflect the documents'
// locale.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
}

// NormalizeAmount parses a localized amount string into a decimal. Currency
// symbols and whitespace are stripped; European grouping ("1.234,56"), Anglo
// grouping ("1,234.56") and bare comma decimals ("45,99") are all accepted.
// Returns nil when the input is not a usable number.
func NormalizeAmount(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = amountCleanup.ReplaceAllString(s, "")
	switch {
	case europeanGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case angloGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ",") && !strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// NormalizeDate parses a date string into YYYY-MM-DD. Known layouts are
// tried first, then a regex fallback extracts an ISO-like or day-first
// substring. Returns the empty string when nothing matches.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := isoDateSub.FindString(s); m != "" {
		return m
	}
	if m := dayFirstDateSub.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	return ""
}

// NormalizePlate canonicalizes a license plate: uppercase, all whitespace
// removed. Returns the empty string unless the result is at least six
// alphanumeric characters.
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if len(s) < 6 {
		return ""
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return s
}
