package core

// convert.go turns raw extract cells into PostgreSQL values.
//
// These functions handle the messy reality of exported CSV data:
//   - Placeholder markers for "no value" (NA, N/A, NaN, null, None, ...)
//   - Multiple date and timestamp layouts (ISO, US, EU, RFC 3339)
//   - Thousand separators in numbers
//   - Identifiers written as floats ("12.0") by spreadsheet tools
//
// All ToPg* functions return pgtype values with Valid=false for missing or
// unparseable input. Conversion never fails; a bad cell becomes NULL.

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// thousandsRegex matches numbers grouped with commas ("1,234,567.89").
var thousandsRegex = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// exponentRegex splits scientific notation into sign, integer digits,
// fraction digits and exponent.
var exponentRegex = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?[eE]([+-]?\d+)$`)

// floatKeyRegex matches integral ids written with a zero fraction ("12.0").
var floatKeyRegex = regexp.MustCompile(`^([+-]?\d+)\.0+$`)

// PostgreSQL numeric limits.
const (
	maxNumericIntDigits  = 131072
	maxNumericFracDigits = 16383
)

// missingMarkers are the cell values read as "no value", compared
// case-insensitively after trimming.
var missingMarkers = map[string]struct{}{
	"":          {},
	"na":        {},
	"n/a":       {},
	"#n/a":      {},
	"#na":       {},
	"nan":       {},
	"-nan":      {},
	"-1.#ind":   {},
	"1.#qnan":   {},
	"-1.#qnan":  {},
	"#n/a n/a":  {},
	"null":      {},
	"none":      {},
	"nil":       {},
	"<na>":      {},
	"nat":       {},
	"undefined": {},
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102",
	}
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
		"1/2/2006 15:04",
	}
)

// IsMissing reports whether a raw cell holds no value.
func IsMissing(s string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ToPgText converts a string to pgtype.Text.
// Surrounding whitespace is removed; missing markers become NULL.
func ToPgText(s string) pgtype.Text {
	if IsMissing(s) {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: strings.TrimSpace(s), Valid: true}
}

// NormalizeKey converts an identifier cell to pgtype.Text.
// Integral ids written with a zero fraction ("12.0") are rewritten as plain
// integers so that the same id matches across extracts. Any other spelling,
// exponents included, is kept as written.
func NormalizeKey(s string) pgtype.Text {
	t := ToPgText(s)
	if !t.Valid {
		return t
	}
	if m := floatKeyRegex.FindStringSubmatch(t.String); m != nil {
		return pgtype.Text{String: m[1], Valid: true}
	}
	return t
}

// ToPgDate converts a string to pgtype.Date.
// Supports multiple date formats and handles 2-digit years with pivot.
// A timestamp is accepted and truncated to its date.
func ToPgDate(s string) pgtype.Date {
	if IsMissing(s) {
		return pgtype.Date{Valid: false}
	}
	s = strings.TrimSpace(s)

	if t, ok := parseDate(s); ok {
		return pgtype.Date{Time: t, Valid: true}
	}
	if t, ok := parseTimestamp(s); ok {
		y, m, d := t.Date()
		return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	return pgtype.Date{Valid: false}
}

// ToPgTimestamp converts a string to pgtype.Timestamp (without time zone).
// Inputs carrying an offset are converted to UTC. A bare date is midnight.
func ToPgTimestamp(s string) pgtype.Timestamp {
	if IsMissing(s) {
		return pgtype.Timestamp{Valid: false}
	}
	s = strings.TrimSpace(s)

	if t, ok := parseTimestamp(s); ok {
		return pgtype.Timestamp{Time: t, Valid: true}
	}
	if t, ok := parseDate(s); ok {
		return pgtype.Timestamp{Time: t, Valid: true}
	}
	return pgtype.Timestamp{Valid: false}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Commas are accepted only as thousands separators ("1,234.5"); a decimal
// comma or misplaced grouping makes the value NULL, as does anything else
// that is not a plain decimal or scientific number. The value is exact.
func ToPgNumeric(s string) pgtype.Numeric {
	if IsMissing(s) {
		return pgtype.Numeric{Valid: false}
	}

	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if !thousandsRegex.MatchString(s) {
			return pgtype.Numeric{Valid: false}
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	// pgtype.Numeric does not parse exponents.
	if m := exponentRegex.FindStringSubmatch(s); m != nil {
		return scientificNumeric(m[1], m[2], m[3], m[4])
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// scientificNumeric builds sign digits.frac x 10^exp without rounding.
// Values outside the range PostgreSQL numeric can store become NULL.
func scientificNumeric(sign, digits, frac, exp string) pgtype.Numeric {
	e, err := strconv.ParseInt(exp, 10, 32)
	if err != nil {
		return pgtype.Numeric{Valid: false}
	}
	mantissa := strings.TrimLeft(digits+frac, "0")
	if mantissa == "" {
		return pgtype.Numeric{Int: new(big.Int), Valid: true}
	}

	scale := e - int64(len(frac))
	if int64(len(mantissa))+scale > maxNumericIntDigits || -scale > maxNumericFracDigits {
		return pgtype.Numeric{Valid: false}
	}

	i, ok := new(big.Int).SetString(sign+mantissa, 10)
	if !ok {
		return pgtype.Numeric{Valid: false}
	}
	return pgtype.Numeric{Int: i, Exp: int32(scale), Valid: true}
}

// NumericPositive reports whether n is a finite number greater than zero.
func NumericPositive(n pgtype.Numeric) bool {
	return n.Valid && !n.NaN && n.InfinityModifier == pgtype.Finite &&
		n.Int != nil && n.Int.Sign() > 0
}

// NumericFloat returns n as a float64; ok is false for NULL.
func NumericFloat(n pgtype.Numeric) (f float64, ok bool) {
	if !n.Valid {
		return 0, false
	}
	v, err := n.Float64Value()
	if err != nil || !v.Valid {
		return 0, false
	}
	return v.Float64, true
}

func parseDate(s string) (time.Time, bool) {
	// 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
