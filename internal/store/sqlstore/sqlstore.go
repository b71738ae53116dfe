// Package sqlstore implements the query store contract on database/sql,
// targeting PostgreSQL and SQLite. Schema kinds map to one table each;
// list and object values store as JSON text. Snapshots are read-only
// transactions, so a resolution never observes a concurrent write
// partially.
//
// Filtering, search and sorting happen in Go on top of the fetched rows
// rather than in SQL: accent folding must behave identically across
// backends, and neither engine folds accents portably.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

// seqColumn orders records by insertion across restarts
const seqColumn = "seq"

// Store is a SQL-backed mutable store
type Store struct {
	db      *sql.DB
	reg     *schema.Registry
	dialect Dialect
	seq     atomic.Int64
}

// New wraps an open database handle. Call Migrate before first use.
func New(db *sql.DB, reg *schema.Registry, dialect Dialect) *Store {
	return &Store{db: db, reg: reg, dialect: dialect}
}

// Open connects to the database named by driver and dsn, creates missing
// tables and loads the insertion sequence.
func Open(ctx context.Context, driver, dsn string, reg *schema.Registry) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	driverName := "pgx"
	if dialect == DialectSQLite {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", query.ErrUnavailable, err)
	}

	s := New(db, reg, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates one table per registered kind and initializes the
// insertion sequence from the highest stored value.
func (s *Store) Migrate(ctx context.Context) error {
	var maxSeq int64
	for _, name := range s.reg.List() {
		k, _ := s.reg.Get(name)
		if _, err := s.db.ExecContext(ctx, s.createTableSQL(k)); err != nil {
			return fmt.Errorf("create table for %s: %w", name, err)
		}

		var tableMax sql.NullInt64
		row := s.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT MAX(%s) FROM %s", quoteIdent(seqColumn), quoteIdent(k.Plural)))
		if err := row.Scan(&tableMax); err != nil {
			return fmt.Errorf("load sequence for %s: %w", name, err)
		}
		if tableMax.Valid && tableMax.Int64 > maxSeq {
			maxSeq = tableMax.Int64
		}
	}
	s.seq.Store(maxSeq)
	return nil
}

func (s *Store) createTableSQL(k *schema.Kind) string {
	cols := make([]string, 0, len(k.StoredFields())+1)
	for _, f := range k.StoredFields() {
		col := quoteIdent(f.Name) + " " + s.dialect.columnType(f.Type)
		switch {
		case f.Name == "id":
			col += " PRIMARY KEY"
		case f.Required:
			col += " NOT NULL"
		}
		if f.Unique && f.Name != "id" {
			col += " UNIQUE"
		}
		cols = append(cols, col)
	}
	cols = append(cols, quoteIdent(seqColumn)+" BIGINT NOT NULL")

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(k.Plural), strings.Join(cols, ", "))
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a new record
func (s *Store) Insert(ctx context.Context, kind string, record map[string]interface{}) error {
	k, err := s.kind(kind)
	if err != nil {
		return err
	}

	fields := k.StoredFields()
	names := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		names = append(names, f.Name)
		value, err := encodeValue(record[f.Name])
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", kind, f.Name, err)
		}
		args = append(args, value)
	}
	names = append(names, seqColumn)
	args = append(args, s.seq.Add(1))

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(k.Plural),
		strings.Join(quoteAll(names), ", "),
		s.dialect.placeholders(len(names)))

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert %s: %w", kind, s.dialect.convertError(err))
	}
	return nil
}

// Update replaces the stored fields of an existing record
func (s *Store) Update(ctx context.Context, kind, id string, record map[string]interface{}) error {
	k, err := s.kind(kind)
	if err != nil {
		return err
	}

	var assignments []string
	var args []interface{}
	n := 1
	for _, f := range k.StoredFields() {
		if f.Name == "id" {
			continue
		}
		value, err := encodeValue(record[f.Name])
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", kind, f.Name, err)
		}
		assignments = append(assignments, quoteIdent(f.Name)+" = "+s.dialect.placeholder(n))
		args = append(args, value)
		n++
	}
	args = append(args, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quoteIdent(k.Plural),
		strings.Join(assignments, ", "),
		quoteIdent("id"),
		s.dialect.placeholder(n))

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, s.dialect.convertError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if affected == 0 {
		return query.ErrNotFound
	}
	return nil
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	k, err := s.kind(kind)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quoteIdent(k.Plural), quoteIdent("id"), s.dialect.placeholder(1))

	result, err := s.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, s.dialect.convertError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if affected == 0 {
		return query.ErrNotFound
	}
	return nil
}

// FindByField fetches a single record by an exact field value
func (s *Store) FindByField(ctx context.Context, kind, field string, value interface{}) (map[string]interface{}, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("%s WHERE %s = %s LIMIT 1",
		selectSQL(k), quoteIdent(field), s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, stmt, value)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", kind, field, s.dialect.convertError(err))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, query.ErrNotFound
	}
	return scanRecord(rows, k)
}

// Snapshot opens a read-only transaction
func (s *Store) Snapshot(ctx context.Context) (query.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrUnavailable, err)
	}
	return &snapshot{tx: tx, reg: s.reg, dialect: s.dialect}, nil
}

func (s *Store) kind(name string) (*schema.Kind, error) {
	k, ok := s.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", query.ErrUnknownKind, name)
	}
	return k, nil
}

func selectSQL(k *schema.Kind) string {
	names := make([]string, 0, len(k.StoredFields()))
	for _, f := range k.StoredFields() {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(quoteAll(names), ", "), quoteIdent(k.Plural))
}

// encodeValue converts a record value into its column form. Lists and
// objects store as JSON text.
func encodeValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string, map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}

// scanRecord reads the current row into a record, decoding JSON-encoded
// columns back into their in-memory shapes
func scanRecord(rows *sql.Rows, k *schema.Kind) (map[string]interface{}, error) {
	fields := k.StoredFields()
	dests := make([]interface{}, len(fields))
	for i, f := range fields {
		switch f.Type {
		case schema.TypeInt:
			dests[i] = new(sql.NullInt64)
		case schema.TypeFloat:
			dests[i] = new(sql.NullFloat64)
		case schema.TypeBool:
			dests[i] = new(sql.NullBool)
		default:
			dests[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(fields))
	for i, f := range fields {
		switch d := dests[i].(type) {
		case *sql.NullInt64:
			if d.Valid {
				record[f.Name] = d.Int64
			} else {
				record[f.Name] = nil
			}
		case *sql.NullFloat64:
			if d.Valid {
				record[f.Name] = d.Float64
			} else {
				record[f.Name] = nil
			}
		case *sql.NullBool:
			if d.Valid {
				record[f.Name] = d.Bool
			} else {
				record[f.Name] = nil
			}
		case *sql.NullString:
			if !d.Valid {
				record[f.Name] = nil
				break
			}
			value, err := decodeText(f, d.String)
			if err != nil {
				return nil, fmt.Errorf("decode %s.%s: %w", k.Name, f.Name, err)
			}
			record[f.Name] = value
		}
	}
	return record, nil
}

func decodeText(f *schema.Field, text string) (interface{}, error) {
	switch f.Type {
	case schema.TypeStringList:
		var list []string
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, err
		}
		return list, nil
	case schema.TypeJSON:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return text, nil
	}
}
