package encoding

import (
	"encoding/json"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/schema"
)

// jsonRenderer carries the per-encode state: options plus the set of
// instances already rendered in full.
type jsonRenderer struct {
	opts Options
	seen map[refKey]bool
}

// collectionEnvelope is the JSON shape of a collection representation
type collectionEnvelope struct {
	Data  []interface{} `json:"data"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Links []Link        `json:"links,omitempty"`
}

func encodeJSON(graph *query.ResolvedGraph, opts Options) ([]byte, error) {
	r := &jsonRenderer{
		opts: opts,
		seen: make(map[refKey]bool),
	}

	if !graph.Collection {
		if len(graph.Roots) == 0 {
			return json.Marshal(nil)
		}
		return json.Marshal(r.instance(graph.Roots[0], graph.Plan))
	}

	envelope := collectionEnvelope{
		Data:  make([]interface{}, 0, len(graph.Roots)),
		Total: graph.Total,
		Page:  graph.Page,
		Limit: graph.Limit,
	}
	if envelope.Page < 1 {
		envelope.Page = 1
	}
	if envelope.Limit <= 0 {
		envelope.Limit = graph.Total
	}
	for _, root := range graph.Roots {
		envelope.Data = append(envelope.Data, r.instance(root, graph.Plan))
	}
	if opts.Links {
		envelope.Links = collectionLinks(graph, opts)
	}

	return json.Marshal(envelope)
}

// instance renders one instance as a JSON object. The first full rendering
// of an instance wins; any later reference to it collapses to its
// identifier.
func (r *jsonRenderer) instance(inst *query.Instance, plan *relationships.Plan) map[string]interface{} {
	r.seen[refKey{kind: inst.Kind.Name, id: inst.ID}] = true

	obj := make(map[string]interface{}, len(inst.Kind.Fields)+1)
	for _, f := range inst.Kind.Fields {
		switch f.Type {
		case schema.TypeRefList:
			if plan.Expanded(f.Name) {
				obj[f.Name] = r.references(inst.Related[f.Name], plan, f.Name)
			}

		case schema.TypeRef:
			if plan.Expanded(f.Name) {
				obj[f.Name] = r.reference(inst.Related[f.Name], plan, f.Name)
			} else {
				obj[f.Name] = valueOrNull(inst.Fields[f.Name])
			}

		default:
			obj[f.Name] = valueOrNull(inst.Fields[f.Name])
		}
	}

	if r.opts.Links {
		obj["links"] = instanceLinks(inst, r.opts)
	}

	return obj
}

// reference renders a single expanded reference: the full object on first
// encounter, the bare identifier afterwards, explicit null when the
// reference itself is null.
func (r *jsonRenderer) reference(related []*query.Instance, plan *relationships.Plan, edge string) interface{} {
	if len(related) == 0 {
		return nil
	}
	target := related[0]
	if r.seen[refKey{kind: target.Kind.Name, id: target.ID}] {
		return target.ID
	}
	return r.instance(target, childPlan(plan, edge))
}

func (r *jsonRenderer) references(related []*query.Instance, plan *relationships.Plan, edge string) []interface{} {
	result := make([]interface{}, 0, len(related))
	for _, target := range related {
		if r.seen[refKey{kind: target.Kind.Name, id: target.ID}] {
			result = append(result, target.ID)
			continue
		}
		result = append(result, r.instance(target, childPlan(plan, edge)))
	}
	return result
}

// childPlan narrows the plan to the sub-tree below one edge
func childPlan(plan *relationships.Plan, edge string) *relationships.Plan {
	if plan == nil {
		return nil
	}
	node, ok := plan.Roots[edge]
	if !ok {
		return nil
	}
	return &relationships.Plan{Roots: node.Children}
}

// valueOrNull maps an absent value to an explicit null
func valueOrNull(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	return value
}
