package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

// Dialect selects driver-specific SQL details: placeholder syntax, column
// types and error translation.
type Dialect string

const (
	// DialectPostgres targets PostgreSQL through the pgx stdlib driver
	DialectPostgres Dialect = "postgres"
	// DialectSQLite targets SQLite through mattn/go-sqlite3
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect maps a configured driver name onto a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// placeholder returns the 1-based parameter placeholder
func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// columnType maps a schema field type onto a column type
func (d Dialect) columnType(t schema.FieldType) string {
	switch t {
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeBool:
		return "BOOLEAN"
	default:
		// Identifiers, text, dates and JSON-encoded values all store as text.
		return "TEXT"
	}
}

// convertError translates driver errors into the store's sentinel errors.
// Anything unrecognized passes through wrapped.
func (d Dialect) convertError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return query.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", query.ErrUniqueViolation, pgErr.ConstraintName)
		}
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", query.ErrUniqueViolation, sqliteErr.Error())
		}
		return err
	}

	return err
}

// quoteIdent quotes an identifier so camelCase field names survive both
// dialects
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// quoteAll quotes a list of identifiers
func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return quoted
}

// placeholders renders n placeholders starting at 1
func (d Dialect) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
