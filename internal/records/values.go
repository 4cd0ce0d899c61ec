package records

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	errNotAmount   = errors.New("not an amount")
	errNotDate     = errors.New("unrecognised date")
	errNotQuantity = errors.New("not a positive whole quantity")

	currencyPrefix = regexp.MustCompile(`(?i)^(rp\.?|idr|usd|us\$|\$|€|£)\s*`)
	amountPattern  = regexp.MustCompile(`^-?\d[\d.,]*$`)
)

// parseMoney reads amounts written with either '.' or ',' as the decimal
// separator: "$10.00", "Rp 150.000,-", "1.234,56", "1,234.56".
func parseMoney(v string) (float64, error) {
	s := strings.TrimSpace(v)
	s = currencyPrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ",-")
	s = strings.TrimSuffix(s, ".-")
	s = strings.ReplaceAll(s, " ", "")
	if !amountPattern.MatchString(s) {
		return 0, errNotAmount
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSeparator(s, ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotAmount
	}
	return f, nil
}

// normalizeSeparator treats sep as a thousands separator when it repeats or
// is followed by exactly three digits, and as the decimal point otherwise.
func normalizeSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 || len(s)-strings.LastIndex(s, sep)-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
}

var indonesianMonths = strings.NewReplacer(
	"januari", "january",
	"februari", "february",
	"maret", "march",
	"mei", "may",
	"juni", "june",
	"juli", "july",
	"agustus", "august",
	"oktober", "october",
	"desember", "december",
	"agu", "aug",
	"okt", "oct",
	"des", "dec",
)

// parseDate accepts ISO, day-first numeric and spelled-out dates, including
// Indonesian month names.
func parseDate(v string) (time.Time, error) {
	s := indonesianMonths.Replace(strings.ToLower(strings.TrimSpace(v)))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNotDate
}

// parseQty reads a whole quantity, ignoring a trailing unit ("2 pcs").
func parseQty(v string) (int, error) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, errNotQuantity
	}
	n, err := strconv.Atoi(strings.TrimRight(fields[0], "x"))
	if err != nil || n <= 0 {
		return 0, errNotQuantity
	}
	return n, nil
}
