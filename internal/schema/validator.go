package schema

import (
	"fmt"
	"regexp"
)

// kindNamePattern restricts kind and field names to URL- and XML-safe
// identifiers. Names become route segments and XML element names, so the
// grammar is deliberately narrow.
var kindNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)

// validateStructural checks a single kind in isolation: naming, field name
// uniqueness, reference wiring, and the presence of an identifier field.
// Cross-kind checks happen in Registry.ValidateAll.
func validateStructural(kind *Kind) error {
	if kind.Name == "" {
		return fmt.Errorf("kind name cannot be empty")
	}
	if !kindNamePattern.MatchString(kind.Name) {
		return fmt.Errorf("invalid kind name %q", kind.Name)
	}
	if !kindNamePattern.MatchString(kind.Plural) {
		return fmt.Errorf("invalid plural name %q for kind %s", kind.Plural, kind.Name)
	}
	if len(kind.Fields) == 0 {
		return fmt.Errorf("kind %s declares no fields", kind.Name)
	}

	seen := make(map[string]bool, len(kind.Fields))
	for _, f := range kind.Fields {
		if f.Name == "" {
			return fmt.Errorf("kind %s has a field with an empty name", kind.Name)
		}
		if !kindNamePattern.MatchString(f.Name) {
			return fmt.Errorf("kind %s: invalid field name %q", kind.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("kind %s: duplicate field %s", kind.Name, f.Name)
		}
		seen[f.Name] = true

		if f.Type.IsReference() && f.Target == "" {
			return fmt.Errorf("kind %s: reference field %s has no target", kind.Name, f.Name)
		}
		if f.Type == TypeRefList && f.Via == "" {
			return fmt.Errorf("kind %s: collection field %s has no via field", kind.Name, f.Name)
		}
		if !f.Type.IsReference() && (f.Target != "" || f.Via != "") {
			return fmt.Errorf("kind %s: field %s is not a reference but declares a target", kind.Name, f.Name)
		}
		if f.Type.IsReference() && f.Attribute {
			return fmt.Errorf("kind %s: reference field %s cannot render as an attribute", kind.Name, f.Name)
		}
	}

	if _, err := kind.PrimaryKey(); err != nil {
		return err
	}

	return nil
}
