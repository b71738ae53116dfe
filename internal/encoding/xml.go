package encoding

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/schema"
)

// xmlRenderer carries the per-encode state for the XML representation
type xmlRenderer struct {
	opts Options
	seen map[refKey]bool
	enc  *xml.Encoder
}

func encodeXML(graph *query.ResolvedGraph, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	r := &xmlRenderer{
		opts: opts,
		seen: make(map[refKey]bool),
		enc:  xml.NewEncoder(&buf),
	}

	var err error
	if graph.Collection {
		err = r.collection(graph)
	} else if len(graph.Roots) > 0 {
		err = r.instance(graph.Roots[0], graph.Plan)
	} else {
		err = r.emptyElement(graph.Kind.Name, xml.Attr{Name: xml.Name{Local: "null"}, Value: "true"})
	}
	if err != nil {
		return nil, err
	}

	if err := r.enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// collection wraps root instances in an element named after the pluralized
// kind, carrying the pagination facts as attributes.
func (r *xmlRenderer) collection(graph *query.ResolvedGraph) error {
	page := graph.Page
	if page < 1 {
		page = 1
	}
	limit := graph.Limit
	if limit <= 0 {
		limit = graph.Total
	}

	start := xml.StartElement{
		Name: xml.Name{Local: graph.Kind.Plural},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "total"}, Value: strconv.Itoa(graph.Total)},
			{Name: xml.Name{Local: "page"}, Value: strconv.Itoa(page)},
			{Name: xml.Name{Local: "limit"}, Value: strconv.Itoa(limit)},
		},
	}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}

	for _, root := range graph.Roots {
		if err := r.instance(root, graph.Plan); err != nil {
			return err
		}
	}

	if r.opts.Links {
		if err := r.links(collectionLinks(graph, r.opts)); err != nil {
			return err
		}
	}

	return r.enc.EncodeToken(start.End())
}

// instance renders one instance element named after its kind. Scalar
// fields declared as attributes render on the element itself; everything
// else becomes a child element in declaration order.
func (r *xmlRenderer) instance(inst *query.Instance, plan *relationships.Plan) error {
	r.seen[refKey{kind: inst.Kind.Name, id: inst.ID}] = true

	start := xml.StartElement{Name: xml.Name{Local: inst.Kind.Name}}
	for _, f := range inst.Kind.Fields {
		if !f.Attribute {
			continue
		}
		value := inst.Fields[f.Name]
		if value == nil {
			// Attributes cannot express null; null attribute fields fall
			// through to an explicit child element below.
			continue
		}
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: f.Name},
			Value: scalarString(value),
		})
	}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}

	for _, f := range inst.Kind.Fields {
		if err := r.field(inst, f, plan); err != nil {
			return err
		}
	}

	if r.opts.Links {
		if err := r.links(instanceLinks(inst, r.opts)); err != nil {
			return err
		}
	}

	return r.enc.EncodeToken(start.End())
}

func (r *xmlRenderer) field(inst *query.Instance, f *schema.Field, plan *relationships.Plan) error {
	switch f.Type {
	case schema.TypeRefList:
		if !plan.Expanded(f.Name) {
			return nil
		}
		return r.references(f.Name, inst.Related[f.Name], childPlan(plan, f.Name))

	case schema.TypeRef:
		if plan.Expanded(f.Name) {
			return r.reference(f.Name, inst.Related[f.Name], childPlan(plan, f.Name))
		}
		return r.value(f.Name, inst.Fields[f.Name])

	default:
		if f.Attribute && inst.Fields[f.Name] != nil {
			return nil // already rendered as an attribute
		}
		return r.value(f.Name, inst.Fields[f.Name])
	}
}

// reference renders an expanded single reference: nested instance element
// on first encounter, a ref-attribute marker afterwards (the same marker
// list references use), explicit null marker when the reference is null.
func (r *xmlRenderer) reference(name string, related []*query.Instance, plan *relationships.Plan) error {
	if len(related) == 0 {
		return r.emptyElement(name, xml.Attr{Name: xml.Name{Local: "null"}, Value: "true"})
	}

	target := related[0]
	if r.seen[refKey{kind: target.Kind.Name, id: target.ID}] {
		return r.emptyElement(name, xml.Attr{Name: xml.Name{Local: "ref"}, Value: target.ID})
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := r.instance(target, plan); err != nil {
		return err
	}
	return r.enc.EncodeToken(start.End())
}

func (r *xmlRenderer) references(name string, related []*query.Instance, plan *relationships.Plan) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}

	for _, target := range related {
		if r.seen[refKey{kind: target.Kind.Name, id: target.ID}] {
			ref := xml.StartElement{
				Name: xml.Name{Local: target.Kind.Name},
				Attr: []xml.Attr{{Name: xml.Name{Local: "ref"}, Value: target.ID}},
			}
			if err := r.enc.EncodeToken(ref); err != nil {
				return err
			}
			if err := r.enc.EncodeToken(ref.End()); err != nil {
				return err
			}
			continue
		}
		if err := r.instance(target, plan); err != nil {
			return err
		}
	}

	return r.enc.EncodeToken(start.End())
}

// value renders one scalar field as a child element, with an explicit null
// marker for null values
func (r *xmlRenderer) value(name string, value interface{}) error {
	if value == nil {
		return r.emptyElement(name, xml.Attr{Name: xml.Name{Local: "null"}, Value: "true"})
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}

	switch v := value.(type) {
	case []string:
		for _, item := range v {
			if err := r.textElement("item", item); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := r.value(key, v[key]); err != nil {
				return err
			}
		}
	default:
		if err := r.enc.EncodeToken(xml.CharData(scalarString(value))); err != nil {
			return err
		}
	}

	return r.enc.EncodeToken(start.End())
}

func (r *xmlRenderer) links(links []Link) error {
	start := xml.StartElement{Name: xml.Name{Local: "links"}}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}
	for _, link := range links {
		el := xml.StartElement{
			Name: xml.Name{Local: "link"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "rel"}, Value: link.Rel},
				{Name: xml.Name{Local: "href"}, Value: link.Href},
			},
		}
		if err := r.enc.EncodeToken(el); err != nil {
			return err
		}
		if err := r.enc.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	return r.enc.EncodeToken(start.End())
}

func (r *xmlRenderer) textElement(name, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := r.enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return r.enc.EncodeToken(start.End())
}

func (r *xmlRenderer) emptyElement(name string, attrs ...xml.Attr) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := r.enc.EncodeToken(start); err != nil {
		return err
	}
	return r.enc.EncodeToken(start.End())
}

// scalarString converts a scalar value to its canonical text form
func scalarString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
