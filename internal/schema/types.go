// Package schema provides type definitions and validation for Facet's
// resource schema system. It defines resource kinds with explicit field
// typing, reference fields between kinds, and structural validation of the
// resulting relationship graph. Definitions are loaded once at startup and
// are read-only afterwards.
package schema

import "fmt"

// FieldType represents the built-in field types
type FieldType int

const (
	// Text types
	TypeString FieldType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeFloat

	// Boolean
	TypeBool

	// Time types
	TypeDate
	TypeTimestamp

	// Unique identifiers
	TypeUUID

	// Validated types
	TypeEmail
	TypeURL

	// Structured values
	TypeJSON
	TypeStringList

	// Reference types
	TypeRef
	TypeRefList
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeUUID:
		return "uuid"
	case TypeEmail:
		return "email"
	case TypeURL:
		return "url"
	case TypeJSON:
		return "json"
	case TypeStringList:
		return "string[]"
	case TypeRef:
		return "ref"
	case TypeRefList:
		return "ref[]"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "date":
		return TypeDate, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "uuid":
		return TypeUUID, nil
	case "email":
		return TypeEmail, nil
	case "url":
		return TypeURL, nil
	case "json":
		return TypeJSON, nil
	case "string[]":
		return TypeStringList, nil
	case "ref":
		return TypeRef, nil
	case "ref[]":
		return TypeRefList, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// IsReference returns true if the type references another kind
func (t FieldType) IsReference() bool {
	return t == TypeRef || t == TypeRefList
}

// IsValidated returns true if the type has built-in format validation
func (t FieldType) IsValidated() bool {
	return t == TypeEmail || t == TypeURL || t == TypeUUID
}

// Field represents a single field in a resource kind.
//
// Scalar fields hold values directly. A TypeRef field holds the identifier
// of an instance of the Target kind. A TypeRefList field is not stored at
// all: it is the reverse side of a TypeRef field on the Target kind, named
// by Via.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Unique   bool

	// Attribute fixes the XML rendering of a scalar field: true renders it
	// as an attribute of the instance element, false as a child element.
	Attribute bool

	// Target is the referenced kind for TypeRef and TypeRefList fields.
	Target string

	// Via names the TypeRef field on the Target kind that points back to
	// this kind. Only set for TypeRefList fields.
	Via string
}

// Cardinality describes how many target instances an edge can reach
type Cardinality int

const (
	// CardinalityOne is a single reference (TypeRef field)
	CardinalityOne Cardinality = iota
	// CardinalityMany is a reverse collection (TypeRefList field)
	CardinalityMany
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "unknown"
	}
}

// Edge is a directed relationship derived from a reference field. Edges are
// what the query layer traverses when an expansion spec asks for a
// relationship path.
type Edge struct {
	Name        string
	Source      string
	Target      string
	Cardinality Cardinality

	// Via is the TypeRef field on the target kind holding the source
	// identifier. Set for CardinalityMany edges only.
	Via string
}

// Kind represents a named resource type with an ordered set of typed fields
type Kind struct {
	Name   string
	Plural string

	// Fields preserves declaration order; field names are unique within
	// the kind.
	Fields []*Field

	index map[string]*Field
	edges map[string]*Edge
}

// NewKind creates a kind with the given name and fields. The plural name
// defaults to name + "s" when empty.
func NewKind(name, plural string, fields []*Field) *Kind {
	if plural == "" {
		plural = name + "s"
	}
	k := &Kind{
		Name:   name,
		Plural: plural,
		Fields: fields,
	}
	k.buildIndex()
	return k
}

func (k *Kind) buildIndex() {
	k.index = make(map[string]*Field, len(k.Fields))
	k.edges = make(map[string]*Edge)
	for _, f := range k.Fields {
		k.index[f.Name] = f
		switch f.Type {
		case TypeRef:
			k.edges[f.Name] = &Edge{
				Name:        f.Name,
				Source:      k.Name,
				Target:      f.Target,
				Cardinality: CardinalityOne,
			}
		case TypeRefList:
			k.edges[f.Name] = &Edge{
				Name:        f.Name,
				Source:      k.Name,
				Target:      f.Target,
				Cardinality: CardinalityMany,
				Via:         f.Via,
			}
		}
	}
}

// Field returns the field with the given name
func (k *Kind) Field(name string) (*Field, bool) {
	f, ok := k.index[name]
	return f, ok
}

// HasField returns true if the kind declares a field with the given name
func (k *Kind) HasField(name string) bool {
	_, ok := k.index[name]
	return ok
}

// Edge returns the outgoing edge with the given name
func (k *Kind) Edge(name string) (*Edge, bool) {
	e, ok := k.edges[name]
	return e, ok
}

// Edges returns all outgoing edges keyed by field name
func (k *Kind) Edges() map[string]*Edge {
	result := make(map[string]*Edge, len(k.edges))
	for name, e := range k.edges {
		result[name] = e
	}
	return result
}

// StoredFields returns the fields that are persisted for an instance.
// TypeRefList fields are reverse views and are excluded.
func (k *Kind) StoredFields() []*Field {
	result := make([]*Field, 0, len(k.Fields))
	for _, f := range k.Fields {
		if f.Type == TypeRefList {
			continue
		}
		result = append(result, f)
	}
	return result
}

// PrimaryKey returns the identifier field. Every kind must declare a field
// named "id".
func (k *Kind) PrimaryKey() (*Field, error) {
	if f, ok := k.index["id"]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("kind %s has no id field", k.Name)
}
