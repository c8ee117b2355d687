// Package query builds SQL statements over the observation/location-map join
// from a validated query specification.
package query

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects the query shape.
type Mode string

const (
	ModeTemporal Mode = "temporal"
	ModeSpatial  Mode = "spatial"
	ModeCombo    Mode = "combo"
)

// ParseMode accepts the mode names and the numeric menu choices 1, 2 and 3.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "temporal":
		return ModeTemporal, nil
	case "2", "spatial":
		return ModeSpatial, nil
	case "3", "combo":
		return ModeCombo, nil
	default:
		return "", &FieldError{Field: "mode", Detail: fmt.Sprintf("%q", s), Err: ErrInvalidMode}
	}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// Continuity selects between a contiguous date interval and enumerated years.
type Continuity string

const (
	Continuous Continuity = "continuous"
	Discrete   Continuity = "discrete"
)

// ParseContinuity accepts "continuous"/"con" and "discrete"/"dis".
func ParseContinuity(s string) (Continuity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "con", "continuous":
		return Continuous, nil
	case "dis", "discrete":
		return Discrete, nil
	default:
		return "", &FieldError{Field: "temporal_continuity", Detail: fmt.Sprintf("%q", s), Err: ErrInvalidMode}
	}
}

// MonthAll disables the month filter.
const MonthAll = "all"

// DateLayout is the on-disk date format of the observation table.
const DateLayout = "2006-01-02"

// IntRange is an exclusive integer interval (Min, Max).
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r IntRange) validate(field string) error {
	if r.Min >= r.Max {
		return malformed(field, "min %d must be below max %d", r.Min, r.Max)
	}
	return nil
}

// ValueRange is an exclusive brightness-temperature interval (Min, Max).
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r ValueRange) validate() error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed("value_range", "bounds must be finite")
		}
	}
	if r.Min >= r.Max {
		return malformed("value_range", "min %s must be below max %s", formatValue(r.Min), formatValue(r.Max))
	}
	return nil
}

// DateSpan is an inclusive calendar interval [Start, End].
type DateSpan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateSpan parses two ISO dates.
func NewDateSpan(start, end string) (DateSpan, error) {
	s, err := ParseDate("date_start", start)
	if err != nil {
		return DateSpan{}, err
	}
	e, err := ParseDate("date_end", end)
	if err != nil {
		return DateSpan{}, err
	}
	return DateSpan{Start: s, End: e}, nil
}

// Spec describes one query. It is built once and never mutated by the builder.
type Spec struct {
	Mode       Mode        `json:"mode"`
	Continuity Continuity  `json:"temporal_continuity,omitempty"`
	Dates      *DateSpan   `json:"dates,omitempty"`
	Years      []int       `json:"years,omitempty"`
	Month      string      `json:"month_filter,omitempty"`
	Rows       *IntRange   `json:"row_range,omitempty"`
	Cols       *IntRange   `json:"col_range,omitempty"`
	Values     *ValueRange `json:"value_range,omitempty"`
}

// Validate reports the first problem that would prevent a statement from being built.
func (s Spec) Validate() error {
	sh, err := shapeFor(s.Mode)
	if err != nil {
		return err
	}
	if s.Values == nil {
		return missing("value_range")
	}
	if err := s.Values.validate(); err != nil {
		return err
	}
	return sh.validate(s)
}

// month returns the normalized month filter; empty means all months.
func (s Spec) month() string {
	if s.Month == "" {
		return MonthAll
	}
	return s.Month
}

func (s Spec) validateTemporal() error {
	switch s.Continuity {
	case Continuous:
		if s.Dates == nil || s.Dates.Start.IsZero() {
			return missing("date_start")
		}
		if s.Dates.End.IsZero() {
			return missing("date_end")
		}
		if s.Dates.End.Before(s.Dates.Start) {
			return malformed("dates", "end %s is before start %s",
				s.Dates.End.Format(DateLayout), s.Dates.Start.Format(DateLayout))
		}
	case Discrete:
		if len(s.Years) == 0 {
			return missing("years")
		}
		for _, y := range s.Years {
			if y < 1 || y > 9999 {
				return malformed("years", "year %d out of range", y)
			}
		}
	case "":
		return missing("temporal_continuity")
	default:
		return &FieldError{Field: "temporal_continuity", Detail: fmt.Sprintf("%q", s.Continuity), Err: ErrInvalidMode}
	}
	if _, err := ParseMonth(s.month()); err != nil {
		return err
	}
	return nil
}

func (s Spec) validateSpatial() error {
	if s.Rows == nil {
		return missing("row_range")
	}
	if s.Cols == nil {
		return missing("col_range")
	}
	if err := s.Rows.validate("row_range"); err != nil {
		return err
	}
	return s.Cols.validate("col_range")
}
