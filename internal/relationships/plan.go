// Package relationships resolves client expansion specs against the
// relationship graph formed by registered resource kinds. An expansion spec
// is a comma-separated set of dotted relationship paths
// ("author,comments.author"); resolving one produces a bounded traversal
// plan the query layer executes.
//
// Kind definitions may be cyclic; the traversal plan is what stays finite.
// Paths longer than the configured maximum depth fail with
// ErrExpansionTooDeep instead of walking the cycle forever.
package relationships

import (
	"fmt"
	"sort"
	"strings"

	"github.com/facet-api/facet/internal/schema"
)

// DefaultMaxDepth is the expansion depth bound used when no explicit
// configuration is supplied.
const DefaultMaxDepth = 3

// Spec is a parsed expansion spec: one entry per requested relationship
// path, each path a slice of edge names.
type Spec struct {
	Paths [][]string
}

// ParseSpec parses the client-supplied expansion string. Empty input yields
// an empty spec. Whitespace around paths is ignored; duplicate paths
// collapse to one.
func ParseSpec(raw string) Spec {
	if strings.TrimSpace(raw) == "" {
		return Spec{}
	}

	seen := make(map[string]bool)
	var paths [][]string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		paths = append(paths, strings.Split(part, "."))
	}

	return Spec{Paths: paths}
}

// IsEmpty returns true if the spec requests no expansion
func (s Spec) IsEmpty() bool {
	return len(s.Paths) == 0
}

// Node is one step of a traversal plan: the edge to follow and the nested
// expansions to apply to its targets.
type Node struct {
	Edge     *schema.Edge
	Children map[string]*Node
}

// Plan is a bounded traversal plan rooted at one resource kind
type Plan struct {
	Kind  *schema.Kind
	Roots map[string]*Node
}

// Expanded reports whether the given dotted path is part of the plan. The
// encoder uses this to decide between rendering a bare identifier and a
// nested object.
func (p *Plan) Expanded(path ...string) bool {
	if p == nil {
		return false
	}
	nodes := p.Roots
	var node *Node
	for _, step := range path {
		var ok bool
		node, ok = nodes[step]
		if !ok {
			return false
		}
		nodes = node.Children
	}
	return node != nil
}

// ChildPlan returns the sub-plan below one root edge, rooted at the edge's
// target kind. Used when traversing into expanded instances.
func (p *Plan) ChildPlan(reg *schema.Registry, edge string) *Plan {
	node, ok := p.Roots[edge]
	if !ok {
		return nil
	}
	target, ok := reg.Get(node.Edge.Target)
	if !ok {
		return nil
	}
	return &Plan{Kind: target, Roots: node.Children}
}

// EdgeNames returns the root edge names of the plan in sorted order
func (p *Plan) EdgeNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Roots))
	for name := range p.Roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns an expansion spec into a traversal plan for the given kind.
// Every path segment must name an edge that exists on the kind reached so
// far, and no path may be longer than maxDepth segments.
func Resolve(reg *schema.Registry, kind *schema.Kind, spec Spec, maxDepth int) (*Plan, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	plan := &Plan{
		Kind:  kind,
		Roots: make(map[string]*Node),
	}

	for _, path := range spec.Paths {
		if len(path) > maxDepth {
			return nil, fmt.Errorf("%w: path %s has depth %d, maximum is %d",
				ErrExpansionTooDeep, strings.Join(path, "."), len(path), maxDepth)
		}

		current := kind
		nodes := plan.Roots
		for _, step := range path {
			edge, ok := current.Edge(step)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no relationship %s",
					ErrUnknownRelationship, current.Name, step)
			}

			node, ok := nodes[step]
			if !ok {
				node = &Node{Edge: edge, Children: make(map[string]*Node)}
				nodes[step] = node
			}

			target, ok := reg.Get(edge.Target)
			if !ok {
				// ValidateAll guarantees this at startup; kept as a guard
				// for hand-built registries.
				return nil, fmt.Errorf("%w: %s targets unregistered kind %s",
					ErrUnknownRelationship, step, edge.Target)
			}

			current = target
			nodes = node.Children
		}
	}

	return plan, nil
}
