package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSchema is the YAML document shape for a schema definition file
type fileSchema struct {
	Kinds []fileKind `yaml:"kinds"`
}

type fileKind struct {
	Name   string      `yaml:"name"`
	Plural string      `yaml:"plural"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Required  bool   `yaml:"required"`
	Unique    bool   `yaml:"unique"`
	Attribute bool   `yaml:"attr"`
	Target    string `yaml:"target"`
	Via       string `yaml:"via"`
}

// LoadFile reads a YAML schema definition file, registers every kind it
// declares into a fresh registry, and validates the resulting graph.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Load(data)
}

// Load parses YAML schema definitions and returns a validated registry
func Load(data []byte) (*Registry, error) {
	var doc fileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(doc.Kinds) == 0 {
		return nil, fmt.Errorf("schema declares no kinds")
	}

	reg := NewRegistry()
	for _, fk := range doc.Kinds {
		kind, err := buildKind(fk)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(kind); err != nil {
			return nil, err
		}
	}

	if err := reg.ValidateAll(); err != nil {
		return nil, err
	}

	return reg, nil
}

func buildKind(fk fileKind) (*Kind, error) {
	fields := make([]*Field, 0, len(fk.Fields))
	for _, ff := range fk.Fields {
		ft, err := ParseFieldType(ff.Type)
		if err != nil {
			return nil, fmt.Errorf("kind %s: field %s: %w", fk.Name, ff.Name, err)
		}
		fields = append(fields, &Field{
			Name:      ff.Name,
			Type:      ft,
			Required:  ff.Required,
			Unique:    ff.Unique,
			Attribute: ff.Attribute,
			Target:    ff.Target,
			Via:       ff.Via,
		})
	}
	return NewKind(fk.Name, fk.Plural, fields), nil
}
