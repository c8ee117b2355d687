package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoColumn is returned when a table has no column with the requested name.
var ErrNoColumn = errors.New("no such column")

// Rowset is a submitted statement whose rows have not been read yet.
type Rowset struct {
	rows   *sql.Rows
	cancel func()
	done   func(rows int, err error)
}

// ToLocalTable reads every row into memory and closes the rowset.
func (r *Rowset) ToLocalTable() (*Table, error) {
	defer r.Close()

	cols, err := r.rows.Columns()
	if err != nil {
		r.finish(0, err)
		return nil, fmt.Errorf("read columns: %w", err)
	}

	t := &Table{Columns: cols}
	for r.rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := r.rows.Scan(ptrs...); err != nil {
			r.finish(len(t.Rows), err)
			return nil, fmt.Errorf("scan row %d: %w", len(t.Rows)+1, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := r.rows.Err(); err != nil {
		r.finish(len(t.Rows), err)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	r.finish(len(t.Rows), nil)
	return t, nil
}

func (r *Rowset) finish(rows int, err error) {
	if r.done != nil {
		r.done(rows, err)
		r.done = nil
	}
}

// Close releases the rowset without reading it.
func (r *Rowset) Close() error {
	err := r.rows.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

// Table is a fully materialized result.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of name, ignoring case and any "t1." style prefix
// in the result column names.
func (t *Table) Column(name string) (int, error) {
	for i, c := range t.Columns {
		if j := strings.LastIndexByte(c, '.'); j >= 0 {
			c = c[j+1:]
		}
		if strings.EqualFold(c, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNoColumn, name)
}

// Floats returns column name as float64 values; NULLs are skipped.
func (t *Table) Floats(name string) ([]float64, error) {
	idx, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(t.Rows))
	for i, row := range t.Rows {
		v, ok, err := toFloat(row[idx])
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: %w", i+1, name, err)
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func toFloat(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return float64(x), true, nil
	case int32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case float64:
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is not numeric", x)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported value type %T", v)
	}
}
