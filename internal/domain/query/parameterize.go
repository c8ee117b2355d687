package query

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"     // mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"  // postgres dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"   // sqlite3 dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver" // sqlserver dialect
)

// Dialects with a parameterized statement form.
const (
	DialectSQLite    = "sqlite3"
	DialectMySQL     = "mysql"
	DialectPostgres  = "postgres"
	DialectSQLServer = "sqlserver"
)

var supportedDialects = map[string]bool{
	DialectSQLite:    true,
	DialectMySQL:     true,
	DialectPostgres:  true,
	DialectSQLServer: true,
}

// Parameterize renders spec as a prepared statement for dialect: every bound
// value travels as an argument instead of being interpolated into the text.
// Table names are validated identifiers and are emitted unquoted.
func Parameterize(spec Spec, tables Tables, dialect string) (Statement, error) {
	if !supportedDialects[dialect] {
		return Statement{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	if err := tables.Validate(); err != nil {
		return Statement{}, err
	}
	if err := spec.Validate(); err != nil {
		return Statement{}, err
	}

	sh, _ := shapeFor(spec.Mode)
	from := []any{goqu.L(tables.Observation).As("t1")}
	if sh.joinsLocationMap() {
		from = append(from, goqu.L(tables.LocationMap).As("t2"))
	}

	ds := goqu.Dialect(dialect).
		From(from...).
		Where(goqu.And(sh.expressions(spec)...)).
		Prepared(true)

	sql, args, err := ds.ToSQL()
	if err != nil {
		return Statement{}, fmt.Errorf("render %s statement: %w", dialect, err)
	}
	return Statement{Mode: spec.Mode, SQL: sql, Args: args}, nil
}

