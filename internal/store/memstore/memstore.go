// Package memstore provides an in-memory implementation of the query store
// contract. Records are kept per kind in insertion order; snapshots copy
// everything they cover under one read lock, so a resolution never observes
// a concurrent write partially.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
	"github.com/facet-api/facet/internal/store/records"
)

// Store is an in-memory mutable store
type Store struct {
	reg   *schema.Registry
	mu    sync.RWMutex
	kinds map[string]*table
}

// table holds the records of one kind in insertion order
type table struct {
	order   []string
	records map[string]map[string]interface{}
}

// New creates an empty store for the kinds in the registry
func New(reg *schema.Registry) *Store {
	s := &Store{
		reg:   reg,
		kinds: make(map[string]*table),
	}
	for _, name := range reg.List() {
		s.kinds[name] = &table{records: make(map[string]map[string]interface{})}
	}
	return s
}

// Insert stores a new record, enforcing unique fields
func (s *Store) Insert(ctx context.Context, kind string, record map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, k, err := s.table(kind)
	if err != nil {
		return err
	}

	id, _ := record["id"].(string)
	if id == "" {
		return fmt.Errorf("record has no id")
	}
	if _, exists := t.records[id]; exists {
		return fmt.Errorf("%w: id %s", query.ErrUniqueViolation, id)
	}

	if err := s.checkUnique(t, k, record, id); err != nil {
		return err
	}

	t.records[id] = records.Copy(record)
	t.order = append(t.order, id)
	return nil
}

// Update replaces the stored fields of an existing record
func (s *Store) Update(ctx context.Context, kind, id string, record map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, k, err := s.table(kind)
	if err != nil {
		return err
	}
	if _, exists := t.records[id]; !exists {
		return query.ErrNotFound
	}
	if err := s.checkUnique(t, k, record, id); err != nil {
		return err
	}

	updated := records.Copy(record)
	updated["id"] = id
	t.records[id] = updated
	return nil
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.table(kind)
	if err != nil {
		return err
	}
	if _, exists := t.records[id]; !exists {
		return query.ErrNotFound
	}

	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// FindByField fetches a single record by an exact field value
func (s *Store) FindByField(ctx context.Context, kind, field string, value interface{}) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, _, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	for _, id := range t.order {
		if t.records[id][field] == value {
			return records.Copy(t.records[id]), nil
		}
	}
	return nil, query.ErrNotFound
}

// Snapshot copies the whole store under one read lock
func (s *Store) Snapshot(ctx context.Context) (query.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &snapshot{
		reg:   s.reg,
		kinds: make(map[string]*table, len(s.kinds)),
	}
	for name, t := range s.kinds {
		copied := &table{
			order:   append([]string(nil), t.order...),
			records: make(map[string]map[string]interface{}, len(t.records)),
		}
		for id, record := range t.records {
			copied.records[id] = records.Copy(record)
		}
		snap.kinds[name] = copied
	}
	return snap, nil
}

func (s *Store) table(kind string) (*table, *schema.Kind, error) {
	t, ok := s.kinds[kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", query.ErrUnknownKind, kind)
	}
	k, _ := s.reg.Get(kind)
	return t, k, nil
}

// checkUnique enforces unique fields against all records except self
func (s *Store) checkUnique(t *table, k *schema.Kind, record map[string]interface{}, selfID string) error {
	for _, f := range k.StoredFields() {
		if !f.Unique || f.Name == "id" {
			continue
		}
		value, ok := record[f.Name]
		if !ok || value == nil {
			continue
		}
		for id, existing := range t.records {
			if id != selfID && existing[f.Name] == value {
				return fmt.Errorf("%w: %s already exists", query.ErrUniqueViolation, f.Name)
			}
		}
	}
	return nil
}

// snapshot is a point-in-time copy of the store
type snapshot struct {
	reg   *schema.Registry
	kinds map[string]*table
}

func (sn *snapshot) Get(ctx context.Context, kind, id string) (map[string]interface{}, error) {
	t, ok := sn.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", query.ErrUnknownKind, kind)
	}
	record, ok := t.records[id]
	if !ok {
		return nil, query.ErrNotFound
	}
	return record, nil
}

func (sn *snapshot) List(ctx context.Context, kind string, opts query.ListOptions) ([]map[string]interface{}, int, error) {
	t, ok := sn.kinds[kind]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", query.ErrUnknownKind, kind)
	}
	k, _ := sn.reg.Get(kind)

	matched := make([]map[string]interface{}, 0, len(t.order))
	for _, id := range t.order {
		record := t.records[id]
		if records.Matches(k, record, opts) {
			matched = append(matched, record)
		}
	}

	records.Sort(matched, opts)
	total := len(matched)
	return records.Paginate(matched, opts), total, nil
}

func (sn *snapshot) ListByRef(ctx context.Context, kind, refField, parentID string, opts query.ListOptions) ([]map[string]interface{}, int, error) {
	t, ok := sn.kinds[kind]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", query.ErrUnknownKind, kind)
	}
	k, _ := sn.reg.Get(kind)

	matched := make([]map[string]interface{}, 0)
	for _, id := range t.order {
		record := t.records[id]
		if ref, _ := record[refField].(string); ref != parentID {
			continue
		}
		if records.Matches(k, record, opts) {
			matched = append(matched, record)
		}
	}

	records.Sort(matched, opts)
	total := len(matched)
	return records.Paginate(matched, opts), total, nil
}

func (sn *snapshot) Close() error {
	return nil
}
