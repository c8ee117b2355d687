package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Column references used by every statement. t1 is the observation table,
// t2 the location map.
const (
	colDate  = "t1.DATE"
	colValue = "t1.BT"
	colLocID = "t1.LOCID"
	colMapID = "t2.ID"
	colRow   = "t2.ROW"
	colCol   = "t2.COL"
)

// Tables names the two relations a statement reads from.
type Tables struct {
	Observation string `json:"observation" yaml:"observation"`
	LocationMap string `json:"location_map" yaml:"location_map"`
}

// Validate rejects anything that is not a plain identifier.
func (t Tables) Validate() error {
	if err := ValidateIdentifier("observation", t.Observation); err != nil {
		return err
	}
	return ValidateIdentifier("location_map", t.LocationMap)
}

// Names lists both tables, observation first.
func (t Tables) Names() []string {
	return []string{t.Observation, t.LocationMap}
}

// Statement is a complete SQL statement ready for an engine.
// Args is empty for literal statements.
type Statement struct {
	Mode Mode   `json:"mode"`
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

// BuildPredicate renders the WHERE clause for spec.
func BuildPredicate(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	sh, _ := shapeFor(spec.Mode)
	return "WHERE " + strings.Join(sh.fragments(spec), " AND "), nil
}

// BuildSelect prefixes predicate with a two-table SELECT.
func BuildSelect(tableA, tableB, predicate string) (string, error) {
	if err := ValidateIdentifier("tableA", tableA); err != nil {
		return "", err
	}
	if err := ValidateIdentifier("tableB", tableB); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s t1, %s t2 ", tableA, tableB) + predicate, nil
}

// BuildStatement renders the full statement for spec. Temporal queries never
// reference t2 and therefore read only the observation table.
func BuildStatement(spec Spec, tables Tables) (Statement, error) {
	if err := tables.Validate(); err != nil {
		return Statement{}, err
	}
	predicate, err := BuildPredicate(spec)
	if err != nil {
		return Statement{}, err
	}

	sh, _ := shapeFor(spec.Mode)
	if !sh.joinsLocationMap() {
		return Statement{
			Mode: spec.Mode,
			SQL:  fmt.Sprintf("SELECT * FROM %s t1 ", tables.Observation) + predicate,
		}, nil
	}

	sql, err := BuildSelect(tables.Observation, tables.LocationMap, predicate)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Mode: spec.Mode, SQL: sql}, nil
}

// fragment helpers shared by all shapes

func joinFragment() string {
	return colLocID + " = " + colMapID
}

func valueFragment(r ValueRange) string {
	return fmt.Sprintf("%s>%s AND %s<%s", colValue, formatValue(r.Min), colValue, formatValue(r.Max))
}

func spatialFragment(rows, cols IntRange) string {
	return fmt.Sprintf("%s < %d AND %s > %d AND %s < %d AND %s > %d",
		colRow, rows.Max, colRow, rows.Min, colCol, cols.Max, colCol, cols.Min)
}

func temporalFragment(s Spec) string {
	if s.Continuity == Continuous {
		return fmt.Sprintf("%s BETWEEN '%s' AND '%s'",
			colDate, s.Dates.Start.Format(DateLayout), s.Dates.End.Format(DateLayout))
	}

	var sb strings.Builder
	for i, y := range s.Years {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		fmt.Fprintf(&sb, "YEAR(%s) = '%04d'", colDate, y)
	}
	if len(s.Years) == 1 {
		return sb.String()
	}
	// AND binds tighter than OR; keep the year disjunction together.
	return "(" + sb.String() + ")"
}

// monthFragment returns "" when every month is selected.
func monthFragment(s Spec) string {
	m, _ := ParseMonth(s.month())
	if m == MonthAll {
		return ""
	}
	return fmt.Sprintf("MONTH(%s) = '%s'", colDate, m)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
