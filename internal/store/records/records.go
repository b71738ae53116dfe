// Package records holds record-level helpers shared by store backends:
// accent-insensitive matching and sorting, pagination, and deep copying of
// map-shaped records. Backends that cannot push these down to their engine
// (or choose not to, to keep accent folding consistent) apply them here.
package records

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

// Matches applies filter and search options to one record. Filters match
// their named field by accent-insensitive substring; search matches the
// same way across all textual fields of the kind.
func Matches(k *schema.Kind, record map[string]interface{}, opts query.ListOptions) bool {
	for field, want := range opts.Filter {
		if !fieldMatches(record[field], Fold(want)) {
			return false
		}
	}

	if opts.Search != "" {
		needle := Fold(opts.Search)
		found := false
		for _, f := range k.StoredFields() {
			if f.Type != schema.TypeString && f.Type != schema.TypeText && f.Type != schema.TypeEmail {
				continue
			}
			if value, _ := record[f.Name].(string); strings.Contains(Fold(value), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// fieldMatches tests one field value against a folded filter needle. List
// fields match when any element does, so ?tags=x selects tagged records.
func fieldMatches(value interface{}, needle string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(Fold(v), needle)
	case []string:
		for _, item := range v {
			if strings.Contains(Fold(item), needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Sort orders records by the requested field, accent-insensitively for
// strings. Stable, so equal keys keep insertion order.
func Sort(records []map[string]interface{}, opts query.ListOptions) {
	if opts.SortBy == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		less := lessValues(records[i][opts.SortBy], records[j][opts.SortBy])
		if opts.SortDesc {
			return !less && !equalValues(records[i][opts.SortBy], records[j][opts.SortBy])
		}
		return less
	})
}

func lessValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return Fold(av) < Fold(bv)
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	default:
		return false
	}
}

func equalValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return Fold(av) == Fold(bv)
	default:
		return a == b
	}
}

// Paginate slices records per Offset/Limit; Limit 0 means everything
func Paginate(records []map[string]interface{}, opts query.ListOptions) []map[string]interface{} {
	if opts.Limit <= 0 {
		return records
	}
	start := opts.Offset
	if start > len(records) {
		return nil
	}
	end := start + opts.Limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// Fold lowercases a string and strips combining marks so "Zoé" matches
// "zoe"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Copy makes a deep enough copy for snapshot isolation: the map itself
// plus list and object values
func Copy(record map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case []string:
			copied[key] = append([]string(nil), v...)
		case map[string]interface{}:
			inner := make(map[string]interface{}, len(v))
			for ik, iv := range v {
				inner[ik] = iv
			}
			copied[key] = inner
		default:
			copied[key] = value
		}
	}
	return copied
}
