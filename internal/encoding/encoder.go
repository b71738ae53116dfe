// Package encoding renders resolved resource graphs into their wire
// representations. Two formats are supported, canonical JSON and canonical
// XML; both are deterministic functions of the resolved graph and the
// kind's declared schema, never of caller intent.
//
// Reference fields render as bare identifiers unless their path is part of
// the expansion plan. An instance reachable through two expanded paths is
// rendered in full exactly once; later occurrences fall back to its bare
// identifier so the output never contains duplicated or diverging copies.
// Null values are always explicit (JSON null, XML null="true"): omitting a
// field would be ambiguous with "field not selected".
package encoding

import (
	"errors"
	"fmt"

	"github.com/facet-api/facet/internal/query"
)

// Format identifies a wire representation
type Format string

const (
	// FormatJSON is the canonical JSON representation
	FormatJSON Format = "json"
	// FormatXML is the canonical XML representation
	FormatXML Format = "xml"
)

// ErrUnsupportedFormat is returned when a representation format is not
// recognized
var ErrUnsupportedFormat = errors.New("unsupported representation format")

// ParseFormat converts a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the media type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatXML:
		return "application/xml"
	default:
		return "application/json; charset=utf-8"
	}
}

// Link is a hypermedia link attached to an instance or a collection
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Options controls representation details that are not part of the graph
// itself
type Options struct {
	// BaseURL prefixes all generated links, e.g. "/api/v1"
	BaseURL string

	// Links enables hypermedia links on instances and collections
	Links bool

	// CollectionPath overrides the path used in collection pagination
	// links. Defaults to BaseURL/<plural>.
	CollectionPath string
}

// Encode renders a resolved graph in the requested format
func Encode(graph *query.ResolvedGraph, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(graph, opts)
	case FormatXML:
		return encodeXML(graph, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, string(format))
	}
}

// refKey identifies an instance across the whole encode pass
type refKey struct {
	kind string
	id   string
}

// instanceLinks builds the hypermedia links of one instance: self plus one
// link per outgoing edge.
func instanceLinks(inst *query.Instance, opts Options) []Link {
	links := []Link{{
		Rel:  "self",
		Href: fmt.Sprintf("%s/%s/%s", opts.BaseURL, inst.Kind.Plural, inst.ID),
	}}
	for _, f := range inst.Kind.Fields {
		switch {
		case f.Type.IsReference() && f.Via != "":
			links = append(links, Link{
				Rel:  f.Name,
				Href: fmt.Sprintf("%s/%s/%s/%s", opts.BaseURL, inst.Kind.Plural, inst.ID, f.Name),
			})
		case f.Type.IsReference():
			if ref, _ := inst.Fields[f.Name].(string); ref != "" {
				links = append(links, Link{
					Rel:  f.Name,
					Href: fmt.Sprintf("%s/%s/%s/%s", opts.BaseURL, inst.Kind.Plural, inst.ID, f.Name),
				})
			}
		}
	}
	return links
}

// collectionLinks builds first/last/prev/next pagination links
func collectionLinks(graph *query.ResolvedGraph, opts Options) []Link {
	path := opts.CollectionPath
	if path == "" {
		path = fmt.Sprintf("%s/%s", opts.BaseURL, graph.Kind.Plural)
	}

	limit := graph.Limit
	if limit <= 0 {
		return []Link{{Rel: "self", Href: path}}
	}

	page := graph.Page
	if page < 1 {
		page = 1
	}
	totalPages := (graph.Total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	pageURL := func(p int) string {
		return fmt.Sprintf("%s?page=%d&limit=%d", path, p, limit)
	}

	links := []Link{
		{Rel: "self", Href: pageURL(page)},
		{Rel: "first", Href: pageURL(1)},
		{Rel: "last", Href: pageURL(totalPages)},
	}
	if page > 1 {
		links = append(links, Link{Rel: "prev", Href: pageURL(page - 1)})
	}
	if page < totalPages {
		links = append(links, Link{Rel: "next", Href: pageURL(page + 1)})
	}
	return links
}
