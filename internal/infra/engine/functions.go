package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

var registerOnce sync.Once
var registerErr error

// registerDateFunctions installs YEAR, MONTH and DAY for SQLite. Each slices
// the ISO date string: YEAR -> [0:4], MONTH -> [5:7], DAY -> [8:10].
func registerDateFunctions() error {
	registerOnce.Do(func() {
		for _, f := range []struct {
			name     string
			from, to int
		}{
			{"YEAR", 0, 4},
			{"MONTH", 5, 7},
			{"DAY", 8, 10},
		} {
			from, to := f.from, f.to
			err := sqlite.RegisterDeterministicScalarFunction(f.name, 1,
				func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
					return sliceDate(args[0], from, to)
				})
			if err != nil {
				registerErr = fmt.Errorf("register %s: %w", f.name, err)
				return
			}
		}
	})
	return registerErr
}

func sliceDate(v driver.Value, from, to int) (driver.Value, error) {
	var s string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case time.Time:
		s = x.UTC().Format(query.DateLayout)
	default:
		return nil, fmt.Errorf("date function: unsupported argument %T", v)
	}
	if len(s) < to {
		return nil, fmt.Errorf("date function: %q is not a YYYY-MM-DD date", s)
	}
	return s[from:to], nil
}
