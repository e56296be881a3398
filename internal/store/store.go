package store

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrConcertNotFound signals that no row has the requested id.
	ErrConcertNotFound = errors.New("concert not found")
	// ErrInvalidConcert wraps validation failures on save.
	ErrInvalidConcert = errors.New("invalid concert")
)

// Dialect identifies the SQL flavour behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectFromDSN picks postgres for postgres:// URLs and sqlite for everything else.
func DialectFromDSN(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Store provides concert and preference persistence over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle for migrations and bootstrap code.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL flavour of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
