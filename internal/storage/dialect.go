package storage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Dialect captures the differences between the supported SQL engines.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	DriverName string
	// DateColumn selects a DATE column as YYYY-MM-DD text.
	DateColumn func(col string) string
}

var (
	SQLite = Dialect{
		Name:       DialectSQLite,
		DriverName: "sqlite",
		DateColumn: func(col string) string { return col },
	}
	Postgres = Dialect{
		Name:       DialectPostgres,
		DriverName: "pgx",
		DateColumn: func(col string) string { return col + "::text" },
	}
)

// Rebind rewrites '?' placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if d.Name != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IsUniqueViolation reports whether err was raised by a UNIQUE constraint.
func (d Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
