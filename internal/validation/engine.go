// Package validation checks inbound payloads against a resource kind's
// declared fields and normalizes accepted values. Validation is a pure
// function of (kind, payload): it holds no state across calls and collects
// every violation instead of failing on the first.
package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/facet-api/facet/internal/schema"
)

// Time layouts accepted for date and timestamp fields. Values are
// normalized to the first layout of each set.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// Engine validates candidate field-value mappings against resource kinds
type Engine struct {
	formats *playground.Validate
}

// NewEngine creates a validation engine
func NewEngine() *Engine {
	return &Engine{
		formats: playground.New(),
	}
}

// Validate checks payload against the kind's declared fields and returns a
// normalized copy. On failure it returns *Errors carrying every violation.
//
// Unknown fields are rejected rather than dropped. Re-validating a returned
// normalized payload is a no-op: normalization is idempotent.
func (e *Engine) Validate(kind *schema.Kind, payload map[string]interface{}) (map[string]interface{}, error) {
	errs := NewErrors()
	normalized := make(map[string]interface{}, len(payload))

	// Unknown fields first, in deterministic order
	extras := make([]string, 0)
	for name := range payload {
		if !kind.HasField(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		errs.Add(name, "unknown field")
	}

	for _, field := range kind.Fields {
		value, present := payload[field.Name]

		if !present {
			if field.Required {
				errs.Add(field.Name, "is required")
			}
			continue
		}

		if value == nil {
			if field.Required {
				errs.Add(field.Name, "must not be null")
				continue
			}
			normalized[field.Name] = nil
			continue
		}

		if field.Type == schema.TypeRefList {
			errs.Add(field.Name, "collection references cannot be written directly")
			continue
		}

		coerced, err := e.normalizeValue(field, value)
		if err != nil {
			errs.Add(field.Name, err.Error())
			continue
		}
		normalized[field.Name] = coerced
	}

	if errs.HasErrors() {
		return nil, errs
	}

	return normalized, nil
}

// normalizeValue checks a single value against the field's type and returns
// its canonical form
func (e *Engine) normalizeValue(field *schema.Field, value interface{}) (interface{}, error) {
	switch field.Type {
	case schema.TypeString, schema.TypeText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil

	case schema.TypeInt:
		return toInt64(value)

	case schema.TypeFloat:
		return toFloat64(value)

	case schema.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil

	case schema.TypeDate:
		return normalizeTime(value, dateLayout)

	case schema.TypeTimestamp:
		return normalizeTime(value, timestampLayout)

	case schema.TypeUUID, schema.TypeRef:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string identifier")
		}
		if err := e.formats.Var(s, "uuid"); err != nil {
			return nil, fmt.Errorf("must be a valid UUID")
		}
		return s, nil

	case schema.TypeEmail:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if err := e.formats.Var(s, "email"); err != nil {
			return nil, fmt.Errorf("must be a valid email address")
		}
		return s, nil

	case schema.TypeURL:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if err := e.formats.Var(s, "url"); err != nil {
			return nil, fmt.Errorf("must be a valid URL")
		}
		return s, nil

	case schema.TypeJSON:
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("must be an object")
		}
		return m, nil

	case schema.TypeStringList:
		return toStringList(value)

	default:
		return nil, fmt.Errorf("unsupported field type %s", field.Type)
	}
}

// toInt64 coerces JSON numbers to int64, rejecting fractional values
func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("must be an integer")
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("must be an integer")
	}
}

// toFloat64 coerces numeric values to float64
func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("must be a number")
	}
}

// normalizeTime validates a time string and returns it in canonical form
func normalizeTime(value interface{}, layout string) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("must be a string in %s format", layout)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("must be a valid %s value", layout)
	}
	return t.Format(layout), nil
}

// toStringList coerces a JSON array into []string
func toStringList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("must be a list of strings")
			}
			result = append(result, s)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("must be a list of strings")
	}
}
