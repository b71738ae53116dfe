// Package query resolves representation requests into consistent,
// deduplicated graphs of resource instances. It owns the read contract to
// the underlying store and delegates expansion planning to the
// relationships package.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/schema"
)

// Selector identifies what a representation request is asking for: a whole
// collection, a single instance, or an instance plus one relationship edge.
type Selector struct {
	Kind string
	ID   string // empty selects the collection
	Edge string // non-empty with ID selects the instances behind one edge

	// Collection narrowing; ignored for single-instance selectors.
	Page     int
	Limit    int
	Filter   map[string]string
	Search   string
	SortBy   string
	SortDesc bool
}

// Instance is one resolved resource instance. Instances are interned per
// resolution: the same (kind, id) reached via different paths yields the
// same *Instance.
type Instance struct {
	Kind   *schema.Kind
	ID     string
	Fields map[string]interface{}

	// Related holds resolved target instances per expanded edge name.
	Related map[string][]*Instance
}

// ResolvedGraph is the outcome of resolving one selector: the ordered roots
// plus everything the expansion plan materialized, deduplicated by
// (kind, id).
type ResolvedGraph struct {
	Kind       *schema.Kind
	Collection bool
	Roots      []*Instance
	Plan       *relationships.Plan

	// Pagination facts for collection selectors
	Total int
	Page  int
	Limit int
}

// Resolver resolves selectors against a store using the registry's
// relationship graph.
type Resolver struct {
	reg      *schema.Registry
	store    Store
	maxDepth int
}

// NewResolver creates a resolver. maxDepth bounds expansion plans; zero
// falls back to relationships.DefaultMaxDepth.
func NewResolver(reg *schema.Registry, store Store, maxDepth int) *Resolver {
	return &Resolver{
		reg:      reg,
		store:    store,
		maxDepth: maxDepth,
	}
}

// resolution tracks per-request state: the snapshot everything reads from
// and the intern table that deduplicates instances.
type resolution struct {
	snap   Snapshot
	reg    *schema.Registry
	seen   map[refKey]*Instance
}

type refKey struct {
	kind string
	id   string
}

// Resolve materializes the selector plus its expansion spec into a resolved
// graph. The whole resolution reads from one snapshot.
func (r *Resolver) Resolve(ctx context.Context, sel Selector, spec relationships.Spec) (*ResolvedGraph, error) {
	kind, ok := r.reg.Get(sel.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, sel.Kind)
	}

	// The plan applies to the instances actually returned: for an edge
	// selector that is the edge's target kind, not the parent kind.
	rootKind := kind
	var edge *schema.Edge
	if sel.Edge != "" {
		e, ok := kind.Edge(sel.Edge)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no relationship %s",
				relationships.ErrUnknownRelationship, kind.Name, sel.Edge)
		}
		target, ok := r.reg.Get(e.Target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Target)
		}
		edge = e
		rootKind = target
	}

	plan, err := relationships.Resolve(r.reg, rootKind, spec, r.maxDepth)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	res := &resolution{
		snap: snap,
		reg:  r.reg,
		seen: make(map[refKey]*Instance),
	}

	graph := &ResolvedGraph{
		Kind:  rootKind,
		Plan:  plan,
		Page:  sel.Page,
		Limit: sel.Limit,
	}

	switch {
	case sel.ID == "":
		graph.Collection = true
		graph.Roots, graph.Total, err = res.listRoots(ctx, kind, sel)

	case edge != nil:
		graph.Collection = edge.Cardinality == schema.CardinalityMany
		graph.Roots, graph.Total, err = res.edgeRoots(ctx, kind, edge, sel)

	default:
		var root *Instance
		root, err = res.fetch(ctx, kind, sel.ID)
		if err == nil {
			graph.Roots = []*Instance{root}
			graph.Total = 1
		}
	}
	if err != nil {
		return nil, err
	}

	if err := res.expand(ctx, graph.Roots, plan); err != nil {
		return nil, err
	}

	return graph, nil
}

func (res *resolution) listRoots(ctx context.Context, kind *schema.Kind, sel Selector) ([]*Instance, int, error) {
	records, total, err := res.snap.List(ctx, kind.Name, listOptions(sel))
	if err != nil {
		return nil, 0, err
	}
	return res.intern(kind, records), total, nil
}

func (res *resolution) edgeRoots(ctx context.Context, parent *schema.Kind, edge *schema.Edge, sel Selector) ([]*Instance, int, error) {
	// The parent must exist even when the edge yields nothing.
	parentInst, err := res.fetch(ctx, parent, sel.ID)
	if err != nil {
		return nil, 0, err
	}

	target, _ := res.reg.Get(edge.Target)

	if edge.Cardinality == schema.CardinalityOne {
		ref, _ := parentInst.Fields[edge.Name].(string)
		if ref == "" {
			return nil, 0, nil
		}
		inst, err := res.fetch(ctx, target, ref)
		if err != nil {
			return nil, 0, err
		}
		return []*Instance{inst}, 1, nil
	}

	records, total, err := res.snap.ListByRef(ctx, target.Name, edge.Via, sel.ID, listOptions(sel))
	if err != nil {
		return nil, 0, err
	}
	return res.intern(target, records), total, nil
}

// fetch loads one instance through the intern table
func (res *resolution) fetch(ctx context.Context, kind *schema.Kind, id string) (*Instance, error) {
	key := refKey{kind: kind.Name, id: id}
	if inst, ok := res.seen[key]; ok {
		return inst, nil
	}

	record, err := res.snap.Get(ctx, kind.Name, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind.Name, id)
		}
		return nil, err
	}

	inst := res.newInstance(kind, record)
	return inst, nil
}

// intern converts records into instances, reusing any instance already
// materialized for the same (kind, id). A diamond-shaped reference graph
// therefore yields exactly one *Instance per record.
func (res *resolution) intern(kind *schema.Kind, records []map[string]interface{}) []*Instance {
	instances := make([]*Instance, 0, len(records))
	for _, record := range records {
		id, _ := record["id"].(string)
		if inst, ok := res.seen[refKey{kind: kind.Name, id: id}]; ok {
			instances = append(instances, inst)
			continue
		}
		instances = append(instances, res.newInstance(kind, record))
	}
	return instances
}

func (res *resolution) newInstance(kind *schema.Kind, record map[string]interface{}) *Instance {
	id, _ := record["id"].(string)
	inst := &Instance{
		Kind:    kind,
		ID:      id,
		Fields:  record,
		Related: make(map[string][]*Instance),
	}
	res.seen[refKey{kind: kind.Name, id: id}] = inst
	return inst
}

// expand walks one level of the traversal plan for the given instances and
// recurses into nested plan nodes. Depth is bounded by the plan itself.
func (res *resolution) expand(ctx context.Context, instances []*Instance, plan *relationships.Plan) error {
	if plan == nil || len(plan.Roots) == 0 {
		return nil
	}

	for _, name := range plan.EdgeNames() {
		node := plan.Roots[name]
		target, ok := res.reg.Get(node.Edge.Target)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKind, node.Edge.Target)
		}

		var nested []*Instance
		for _, inst := range instances {
			if _, done := inst.Related[name]; done {
				// Interned instance reached via a second path; its edge is
				// already materialized.
				nested = append(nested, inst.Related[name]...)
				continue
			}

			targets, err := res.expandEdge(ctx, inst, node.Edge, target)
			if err != nil {
				return err
			}
			inst.Related[name] = targets
			nested = append(nested, targets...)
		}

		childPlan := &relationships.Plan{Kind: target, Roots: node.Children}
		if err := res.expand(ctx, nested, childPlan); err != nil {
			return err
		}
	}

	return nil
}

func (res *resolution) expandEdge(ctx context.Context, inst *Instance, edge *schema.Edge, target *schema.Kind) ([]*Instance, error) {
	if edge.Cardinality == schema.CardinalityOne {
		ref, _ := inst.Fields[edge.Name].(string)
		if ref == "" {
			// Null reference: expanded, but to nothing.
			return []*Instance{}, nil
		}
		related, err := res.fetch(ctx, target, ref)
		if err != nil {
			return nil, err
		}
		return []*Instance{related}, nil
	}

	records, _, err := res.snap.ListByRef(ctx, target.Name, edge.Via, inst.ID, ListOptions{})
	if err != nil {
		return nil, err
	}
	return res.intern(target, records), nil
}

func listOptions(sel Selector) ListOptions {
	opts := ListOptions{
		Filter:   sel.Filter,
		Search:   sel.Search,
		SortBy:   sel.SortBy,
		SortDesc: sel.SortDesc,
	}
	if sel.Limit > 0 {
		opts.Limit = sel.Limit
		if sel.Page > 1 {
			opts.Offset = (sel.Page - 1) * sel.Limit
		}
	}
	return opts
}
