package core

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ----------------------------------------------------------------------------
// IsMissing Tests
// ----------------------------------------------------------------------------

func TestIsMissing(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"NA", true},
		{"n/a", true},
		{"N/A", true},
		{"NaN", true},
		{"nan", true},
		{"null", true},
		{"NULL", true},
		{"None", true},
		{"#N/A", true},
		{"<NA>", true},
		{"NaT", true},
		{" none ", true},
		{"0", false},
		{"Nadia", false},
		{"na@x.com", false},
		{"-", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsMissing(tt.input); got != tt.want {
				t.Errorf("IsMissing(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgText / NormalizeKey Tests
// ----------------------------------------------------------------------------

func TestToPgText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      string
	}{
		{name: "plain", input: "alice", wantValid: true, want: "alice"},
		{name: "trimmed", input: "  alice \t", wantValid: true, want: "alice"},
		{name: "inner spaces kept", input: " dark  knight ", wantValid: true, want: "dark  knight"},
		{name: "empty", input: "", wantValid: false},
		{name: "sentinel", input: "N/A", wantValid: false},
		{name: "unicode", input: " Zoë ", wantValid: true, want: "Zoë"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgText(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgText(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.String != tt.want {
				t.Errorf("ToPgText(%q) = %q, want %q", tt.input, got.String, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      string
	}{
		{name: "integer", input: "12", wantValid: true, want: "12"},
		{name: "float form", input: "12.0", wantValid: true, want: "12"},
		{name: "float form padded", input: " 7.00 ", wantValid: true, want: "7"},
		{name: "signed float form", input: "-3.0", wantValid: true, want: "-3"},
		{name: "exponent kept", input: "1e2", wantValid: true, want: "1e2"},
		{name: "alphanumeric with E kept", input: "7E1", wantValid: true, want: "7E1"},
		{name: "decimal exponent kept", input: "1.2e1", wantValid: true, want: "1.2e1"},
		{name: "fraction kept", input: "12.5", wantValid: true, want: "12.5"},
		{name: "leading zeros kept", input: "007", wantValid: true, want: "007"},
		{name: "alphanumeric", input: "P-001", wantValid: true, want: "P-001"},
		{name: "dotted text", input: "v1.0.0", wantValid: true, want: "v1.0.0"},
		{name: "missing", input: "NaN", wantValid: false},
		{name: "empty", input: "", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKey(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("NormalizeKey(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.String != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got.String, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgNumeric Tests
// ----------------------------------------------------------------------------

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      float64
	}{
		{name: "positive integer", input: "123", wantValid: true, want: 123},
		{name: "zero", input: "0", wantValid: true, want: 0},
		{name: "negative integer", input: "-5", wantValid: true, want: -5},
		{name: "decimal", input: "123.45", wantValid: true, want: 123.45},
		{name: "leading decimal point", input: ".5", wantValid: true, want: 0.5},
		{name: "thousands separator", input: "1,234,567", wantValid: true, want: 1234567},
		{name: "whitespace", input: "  42  ", wantValid: true, want: 42},
		{name: "explicit plus", input: "+7", wantValid: true, want: 7},
		{name: "exponent", input: "1.5e3", wantValid: true, want: 1500},
		{name: "negative exponent", input: "25E-1", wantValid: true, want: 2.5},

		{name: "empty", input: "", wantValid: false},
		{name: "alphabetic", input: "abc", wantValid: false},
		{name: "mixed", input: "12abc", wantValid: false},
		{name: "multiple points", input: "1.2.3", wantValid: false},
		{name: "sentinel NaN", input: "NaN", wantValid: false},
		{name: "infinity", input: "inf", wantValid: false},
		{name: "thousands with fraction", input: "12,345.5", wantValid: true, want: 12345.5},
		{name: "negative thousands", input: "-1,000", wantValid: true, want: -1000},
		{name: "decimal comma", input: "1,5", wantValid: false},
		{name: "irregular grouping", input: "12,34,5", wantValid: false},
		{name: "leading comma", input: ",100", wantValid: false},
		{name: "grouping too wide", input: "1234,567", wantValid: false},
		{name: "exponent beyond numeric range", input: "1e200000", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToPgNumeric(tt.input)

			if result.Valid != tt.wantValid {
				t.Fatalf("ToPgNumeric(%q).Valid = %v, want %v", tt.input, result.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}

			got, ok := NumericFloat(result)
			if !ok {
				t.Fatalf("NumericFloat(ToPgNumeric(%q)) not ok", tt.input)
			}
			if got != tt.want {
				t.Errorf("ToPgNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToPgNumeric_Exact(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantInt string
		wantExp int32
	}{
		{name: "large exponent", input: "1e400", wantInt: "1", wantExp: 400},
		{name: "tiny exponent", input: "1e-400", wantInt: "1", wantExp: -400},
		{name: "fraction with exponent", input: "1.25e1", wantInt: "125", wantExp: -1},
		{name: "leading zeros dropped", input: "0.05E2", wantInt: "5", wantExp: 0},
		{name: "negative mantissa", input: "-2.5e3", wantInt: "-25", wantExp: 2},
		{name: "zero", input: "0e10", wantInt: "0", wantExp: 0},
		{name: "long integer", input: "1" + strings.Repeat("0", 400), wantInt: "1" + strings.Repeat("0", 400), wantExp: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgNumeric(tt.input)
			if !got.Valid {
				t.Fatalf("ToPgNumeric(%q).Valid = false", tt.input)
			}
			if got.Int.String() != tt.wantInt || got.Exp != tt.wantExp {
				t.Errorf("ToPgNumeric(%q) = %se%d, want %se%d", tt.input, got.Int, got.Exp, tt.wantInt, tt.wantExp)
			}
		})
	}
}

func TestNumericPositive(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"0.0001", true},
		{"1e-400", true},
		{"1" + strings.Repeat("0", 400), true},
		{"0", false},
		{"0e5", false},
		{"-1", false},
		{"-1e-400", false},
		{"abc", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := NumericPositive(ToPgNumeric(tt.input)); got != tt.want {
			t.Errorf("NumericPositive(ToPgNumeric(%q)) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if NumericPositive(pgtype.Numeric{NaN: true, Valid: true}) {
		t.Error("NaN must not be positive")
	}
	if NumericPositive(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}) {
		t.Error("infinity must not be positive")
	}
}

// ----------------------------------------------------------------------------
// ToPgDate Tests
// ----------------------------------------------------------------------------

func TestToPgDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		{name: "ISO", input: "2024-01-15", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "ISO leap day", input: "2024-02-29", wantValid: true, wantYear: 2024, wantMonth: time.February, wantDay: 29},
		{name: "slashes year first", input: "2023/07/04", wantValid: true, wantYear: 2023, wantMonth: time.July, wantDay: 4},
		{name: "US", input: "03/15/2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 15},
		{name: "US single digits", input: "3/5/2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 5},
		{name: "month name", input: "Jan 15, 2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "compact", input: "20240115", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "timestamp truncated", input: "2024-01-15 23:59:59", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "RFC3339", input: "2024-01-15T10:00:00Z", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},

		{name: "empty", input: "", wantValid: false},
		{name: "sentinel", input: "NaT", wantValid: false},
		{name: "garbage", input: "not-a-date", wantValid: false},
		{name: "impossible day", input: "2023-02-30", wantValid: false},
		{name: "month 13", input: "2024-13-01", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgDate(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgDate(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			y, m, d := got.Time.Date()
			if y != tt.wantYear || m != tt.wantMonth || d != tt.wantDay {
				t.Errorf("ToPgDate(%q) = %d-%02d-%02d, want %d-%02d-%02d",
					tt.input, y, m, d, tt.wantYear, tt.wantMonth, tt.wantDay)
			}
		})
	}
}

func TestToPgDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()

	TwoDigitYearPivot = 20
	pivotYear := time.Now().Year() + 20

	tests := []struct {
		input    string
		wantYear int
	}{
		{"01/15/25", 2025},
		{"01/15/99", 1999},
		{"01/15/85", 1985},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgDate(tt.input)
			if !got.Valid {
				t.Fatalf("ToPgDate(%q) returned invalid", tt.input)
			}
			if got.Time.Year() != tt.wantYear {
				t.Errorf("ToPgDate(%q).Year = %d, want %d", tt.input, got.Time.Year(), tt.wantYear)
			}
			if got.Time.Year() > pivotYear {
				t.Errorf("ToPgDate(%q).Year = %d is past pivot %d", tt.input, got.Time.Year(), pivotYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgTimestamp Tests
// ----------------------------------------------------------------------------

func TestToPgTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      time.Time
	}{
		{name: "ISO with space", input: "2024-03-01 18:30:00", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)},
		{name: "ISO with T", input: "2024-03-01T18:30:00", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)},
		{name: "no seconds", input: "2024-03-01 18:30", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)},
		{name: "fractional seconds", input: "2024-03-01 18:30:00.250", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 250e6, time.UTC)},
		{name: "offset converted to UTC", input: "2024-03-01T20:30:00+02:00", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)},
		{name: "US with time", input: "03/01/2024 18:30", wantValid: true, want: time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)},
		{name: "bare date is midnight", input: "2024-03-01", wantValid: true, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},

		{name: "empty", input: "", wantValid: false},
		{name: "garbage", input: "yesterday", wantValid: false},
		{name: "bad hour", input: "2024-03-01 25:00:00", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgTimestamp(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgTimestamp(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if tt.wantValid && !got.Time.Equal(tt.want) {
				t.Errorf("ToPgTimestamp(%q) = %v, want %v", tt.input, got.Time, tt.want)
			}
		})
	}
}
