package query

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// shape is one variant of the query decision table.
type shape interface {
	validate(s Spec) error
	fragments(s Spec) []string
	expressions(s Spec) []exp.Expression
	joinsLocationMap() bool
}

var shapes = map[Mode]shape{
	ModeTemporal: temporalShape{},
	ModeSpatial:  spatialShape{},
	ModeCombo:    comboShape{},
}

func shapeFor(m Mode) (shape, error) {
	sh, ok := shapes[m]
	if !ok {
		return nil, &FieldError{Field: "mode", Detail: fmt.Sprintf("%q", m), Err: ErrInvalidMode}
	}
	return sh, nil
}

type temporalShape struct{}

func (temporalShape) validate(s Spec) error { return s.validateTemporal() }

// Discrete temporal queries lead with the BT range, continuous ones with the
// date span.
func (temporalShape) fragments(s Spec) []string {
	if s.Continuity == Discrete {
		return appendMonth([]string{valueFragment(*s.Values), temporalFragment(s)}, s)
	}
	return appendMonth([]string{temporalFragment(s), valueFragment(*s.Values)}, s)
}

func (temporalShape) expressions(s Spec) []exp.Expression {
	if s.Continuity == Discrete {
		return appendMonthExpr([]exp.Expression{valueExpr(*s.Values), temporalExpr(s)}, s)
	}
	return appendMonthExpr([]exp.Expression{temporalExpr(s), valueExpr(*s.Values)}, s)
}

func (temporalShape) joinsLocationMap() bool { return false }

type spatialShape struct{}

func (spatialShape) validate(s Spec) error { return s.validateSpatial() }

func (spatialShape) fragments(s Spec) []string {
	return []string{joinFragment(), spatialFragment(*s.Rows, *s.Cols), valueFragment(*s.Values)}
}

func (spatialShape) expressions(s Spec) []exp.Expression {
	return []exp.Expression{joinExpr(), spatialExpr(*s.Rows, *s.Cols), valueExpr(*s.Values)}
}

func (spatialShape) joinsLocationMap() bool { return true }

// comboShape accepts both continuities; discrete years and the month filter
// apply exactly as they do for temporal queries.
type comboShape struct{}

func (comboShape) validate(s Spec) error {
	if err := s.validateTemporal(); err != nil {
		return err
	}
	return s.validateSpatial()
}

func (comboShape) fragments(s Spec) []string {
	return appendMonth([]string{
		joinFragment(),
		temporalFragment(s),
		spatialFragment(*s.Rows, *s.Cols),
		valueFragment(*s.Values),
	}, s)
}

func (comboShape) expressions(s Spec) []exp.Expression {
	return appendMonthExpr([]exp.Expression{
		joinExpr(),
		temporalExpr(s),
		spatialExpr(*s.Rows, *s.Cols),
		valueExpr(*s.Values),
	}, s)
}

func (comboShape) joinsLocationMap() bool { return true }

func appendMonth(parts []string, s Spec) []string {
	if m := monthFragment(s); m != "" {
		parts = append(parts, m)
	}
	return parts
}

// goqu expression counterparts of the literal fragments. Columns stay
// unquoted so both statement forms resolve names the same way.

func col(name string) exp.LiteralExpression {
	return goqu.L(name)
}

func joinExpr() exp.Expression {
	return col(colLocID).Eq(col(colMapID))
}

func valueExpr(r ValueRange) exp.Expression {
	return goqu.And(col(colValue).Gt(r.Min), col(colValue).Lt(r.Max))
}

func spatialExpr(rows, cols IntRange) exp.Expression {
	return goqu.And(
		col(colRow).Lt(rows.Max), col(colRow).Gt(rows.Min),
		col(colCol).Lt(cols.Max), col(colCol).Gt(cols.Min),
	)
}

func temporalExpr(s Spec) exp.Expression {
	if s.Continuity == Continuous {
		return col(colDate).Between(goqu.Range(
			s.Dates.Start.Format(DateLayout), s.Dates.End.Format(DateLayout)))
	}
	years := make([]exp.Expression, 0, len(s.Years))
	for _, y := range s.Years {
		years = append(years, goqu.Func("YEAR", col(colDate)).Eq(fmt.Sprintf("%04d", y)))
	}
	return goqu.Or(years...)
}

func appendMonthExpr(parts []exp.Expression, s Spec) []exp.Expression {
	m, _ := ParseMonth(s.month())
	if m == MonthAll {
		return parts
	}
	return append(parts, goqu.Func("MONTH", col(colDate)).Eq(m))
}
