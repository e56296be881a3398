package store

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// sqliteLower is a Unicode-aware replacement for SQLite's ASCII-only LOWER.
const sqliteLower = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, unicodeLower); err != nil {
		panic(err)
	}
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// lower returns the SQL function that folds text case for the dialect.
func (s *Store) lower() string {
	if s.dialect == DialectPostgres {
		return "LOWER"
	}
	return sqliteLower
}
