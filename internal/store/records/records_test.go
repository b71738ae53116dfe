package records

import (
	"testing"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

func TestMatchesFilter(t *testing.T) {
	kind := schema.NewKind("post", "posts", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "title", Type: schema.TypeString},
		{Name: "tags", Type: schema.TypeStringList},
	})
	record := map[string]interface{}{
		"id":    "p1",
		"title": "Café culture",
		"tags":  []string{"food", "Société"},
	}

	tests := []struct {
		name   string
		filter map[string]string
		want   bool
	}{
		{"substring fold", map[string]string{"title": "cafe"}, true},
		{"list element fold", map[string]string{"tags": "societe"}, true},
		{"list miss", map[string]string{"tags": "sports"}, false},
		{"miss", map[string]string{"title": "tea"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(kind, record, query.ListOptions{Filter: tt.filter})
			if got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Zoé", "zoe"},
		{"ÉMILE", "emile"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPaginateBounds(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "a"}, {"id": "b"}, {"id": "c"},
	}

	page := Paginate(rows, query.ListOptions{Offset: 2, Limit: 5})
	if len(page) != 1 || page[0]["id"] != "c" {
		t.Errorf("unexpected page: %v", page)
	}

	if page := Paginate(rows, query.ListOptions{Offset: 10, Limit: 5}); page != nil {
		t.Errorf("offset past the end should yield nothing, got %v", page)
	}

	if page := Paginate(rows, query.ListOptions{}); len(page) != 3 {
		t.Errorf("zero limit should yield everything, got %v", page)
	}
}

func TestCopyIsolation(t *testing.T) {
	original := map[string]interface{}{
		"tags": []string{"go"},
		"meta": map[string]interface{}{"k": "v"},
	}

	copied := Copy(original)
	copied["tags"].([]string)[0] = "changed"
	copied["meta"].(map[string]interface{})["k"] = "changed"

	if original["tags"].([]string)[0] != "go" {
		t.Error("list value shared between copies")
	}
	if original["meta"].(map[string]interface{})["k"] != "v" {
		t.Error("object value shared between copies")
	}
}
