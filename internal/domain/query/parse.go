package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

// ValidateIdentifier accepts plain table names only.
func ValidateIdentifier(field, name string) error {
	if name == "" {
		return missing(field)
	}
	if !identifierPattern.MatchString(name) {
		return &FieldError{Field: field, Detail: fmt.Sprintf("%q is not a plain identifier", name), Err: ErrInjectionRisk}
	}
	return nil
}

// splitPair splits "a,b", "a, b" or "a b" into two fields.
func splitPair(field, s string) (string, string, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) != 2 {
		return "", "", malformed(field, "expected two bounds, got %q", s)
	}
	return parts[0], parts[1], nil
}

// ParseRange parses an exclusive integer pair such as "0,158".
func ParseRange(field, s string) (IntRange, error) {
	a, b, err := splitPair(field, s)
	if err != nil {
		return IntRange{}, err
	}
	lo, err := strconv.Atoi(a)
	if err != nil {
		return IntRange{}, malformed(field, "%q is not an integer", a)
	}
	hi, err := strconv.Atoi(b)
	if err != nil {
		return IntRange{}, malformed(field, "%q is not an integer", b)
	}
	r := IntRange{Min: lo, Max: hi}
	return r, r.validate(field)
}

// ParseValueRange parses an exclusive numeric pair such as "150,250".
func ParseValueRange(s string) (ValueRange, error) {
	a, b, err := splitPair("value_range", s)
	if err != nil {
		return ValueRange{}, err
	}
	lo, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return ValueRange{}, malformed("value_range", "%q is not a number", a)
	}
	hi, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return ValueRange{}, malformed("value_range", "%q is not a number", b)
	}
	r := ValueRange{Min: lo, Max: hi}
	return r, r.validate()
}

// ParseYears parses a whitespace or comma separated list such as "2002 2003".
func ParseYears(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, missing("years")
	}
	years := make([]int, 0, len(fields))
	for _, f := range fields {
		y, err := strconv.Atoi(f)
		if err != nil {
			return nil, malformed("years", "%q is not a year", f)
		}
		if y < 1 || y > 9999 {
			return nil, malformed("years", "year %d out of range", y)
		}
		years = append(years, y)
	}
	return years, nil
}

// ParseMonth normalizes a month filter to "all" or a two-digit month.
func ParseMonth(s string) (string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == MonthAll {
		return MonthAll, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil || len(s) > 2 || m < 1 || m > 12 {
		return "", malformed("month_filter", "%q is not a month", s)
	}
	return fmt.Sprintf("%02d", m), nil
}

// ParseDate parses an ISO calendar date.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, missing(field)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, malformed(field, "%q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}

// ParseDateSpan slices a picker string such as "1990-01-01 - 1990-12-31":
// the start is the first ten characters and the end everything from the
// fourteenth character on.
func ParseDateSpan(temporal string) (DateSpan, error) {
	if strings.TrimSpace(temporal) == "" {
		return DateSpan{}, missing("temporal")
	}
	if len(temporal) < 14 {
		return DateSpan{}, malformed("temporal", "%q is too short for a date span", temporal)
	}
	span, err := NewDateSpan(temporal[0:10], temporal[13:])
	if err != nil {
		return DateSpan{}, err
	}
	if span.End.Before(span.Start) {
		return DateSpan{}, malformed("temporal", "end is before start")
	}
	return span, nil
}

// YearSpan returns the continuous span covering n whole years from start.
func YearSpan(start, n int) (DateSpan, error) {
	if n < 1 {
		return DateSpan{}, malformed("temporal_range", "need at least one year, got %d", n)
	}
	return DateSpan{
		Start: time.Date(start, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(start+n-1, time.December, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}

// GridBound returns floor(size*fraction) as used by spatial sweeps.
func GridBound(size int, fraction float64) int {
	return int(math.Floor(float64(size) * fraction))
}
