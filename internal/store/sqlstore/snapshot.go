package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
	"github.com/facet-api/facet/internal/store/records"
)

// snapshot reads through one read-only transaction
type snapshot struct {
	tx      *sql.Tx
	reg     *schema.Registry
	dialect Dialect
}

func (sn *snapshot) Get(ctx context.Context, kind, id string) (map[string]interface{}, error) {
	k, err := sn.kind(kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("%s WHERE %s = %s",
		selectSQL(k), quoteIdent("id"), sn.dialect.placeholder(1))

	rows, err := sn.tx.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, sn.dialect.convertError(err))
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

func (sn *snapshot) List(ctx context.Context, kind string, opts query.ListOptions) ([]map[string]interface{}, int, error) {
	k, err := sn.kind(kind)
	if err != nil {
		return nil, 0, err
	}

	stmt := fmt.Sprintf("%s ORDER BY %s", selectSQL(k), quoteIdent(seqColumn))
	return sn.list(ctx, k, opts, stmt)
}

func (sn *snapshot) ListByRef(ctx context.Context, kind, refField, parentID string, opts query.ListOptions) ([]map[string]interface{}, int, error) {
	k, err := sn.kind(kind)
	if err != nil {
		return nil, 0, err
	}

	stmt := fmt.Sprintf("%s WHERE %s = %s ORDER BY %s",
		selectSQL(k), quoteIdent(refField), sn.dialect.placeholder(1), quoteIdent(seqColumn))
	return sn.list(ctx, k, opts, stmt, parentID)
}

// list fetches the matching rows and applies search, sort and pagination
// in Go so accent folding matches the other backends exactly
func (sn *snapshot) list(ctx context.Context, k *schema.Kind, opts query.ListOptions, stmt string, args ...interface{}) ([]map[string]interface{}, int, error) {
	rows, err := sn.tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", k.Name, sn.dialect.convertError(err))
	}
	defer rows.Close()

	matched := make([]map[string]interface{}, 0)
	for rows.Next() {
		record, err := scanRecord(rows, k)
		if err != nil {
			return nil, 0, err
		}
		if records.Matches(k, record, opts) {
			matched = append(matched, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	records.Sort(matched, opts)
	total := len(matched)
	return records.Paginate(matched, opts), total, nil
}

func (sn *snapshot) Close() error {
	if err := sn.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (sn *snapshot) kind(name string) (*schema.Kind, error) {
	k, ok := sn.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", query.ErrUnknownKind, name)
	}
	return k, nil
}
