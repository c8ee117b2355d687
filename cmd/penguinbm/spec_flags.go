package main

import (
	"github.com/spf13/pflag"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// specFlags binds a query specification to command-line flags.
type specFlags struct {
	mode       string
	continuity string
	start      string
	end        string
	years      string
	month      string
	rows       string
	cols       string
	values     string
}

func (f *specFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.mode, "mode", "", "query mode: temporal, spatial or combo (1, 2, 3)")
	fs.StringVar(&f.continuity, "continuity", "con", "temporal continuity: con or dis")
	fs.StringVar(&f.start, "start", "", "start date YYYY-MM-DD (continuous)")
	fs.StringVar(&f.end, "end", "", "end date YYYY-MM-DD (continuous)")
	fs.StringVar(&f.years, "years", "", `years, e.g. "2002 2003" (discrete)`)
	fs.StringVar(&f.month, "month", query.MonthAll, "month filter: all or 01-12")
	fs.StringVar(&f.rows, "rows", "", `exclusive row range, e.g. "0,158"`)
	fs.StringVar(&f.cols, "cols", "", `exclusive column range, e.g. "0,166"`)
	fs.StringVar(&f.values, "values", "", `exclusive BT range, e.g. "150,250"`)
}

// spec parses only the flags the mode uses and validates the result.
func (f *specFlags) spec() (query.Spec, error) {
	var s query.Spec
	var err error

	if s.Mode, err = query.ParseMode(f.mode); err != nil {
		return query.Spec{}, err
	}

	if s.Mode != query.ModeSpatial {
		if s.Continuity, err = query.ParseContinuity(f.continuity); err != nil {
			return query.Spec{}, err
		}
		if s.Continuity == query.Continuous {
			span, err := query.NewDateSpan(f.start, f.end)
			if err != nil {
				return query.Spec{}, err
			}
			s.Dates = &span
		} else if s.Years, err = query.ParseYears(f.years); err != nil {
			return query.Spec{}, err
		}
		if s.Month, err = query.ParseMonth(f.month); err != nil {
			return query.Spec{}, err
		}
	}

	if s.Mode != query.ModeTemporal {
		rows, err := query.ParseRange("row_range", f.rows)
		if err != nil {
			return query.Spec{}, err
		}
		cols, err := query.ParseRange("col_range", f.cols)
		if err != nil {
			return query.Spec{}, err
		}
		s.Rows, s.Cols = &rows, &cols
	}

	values, err := query.ParseValueRange(f.values)
	if err != nil {
		return query.Spec{}, err
	}
	s.Values = &values

	return s, s.Validate()
}
