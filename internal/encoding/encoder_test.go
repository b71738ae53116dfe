package encoding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-api/facet/internal/encoding"
	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/schema"
	"github.com/facet-api/facet/internal/store/memstore"
)

func encodingRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewKind("user", "users", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true, Attribute: true},
		{Name: "firstName", Type: schema.TypeString, Required: true},
		{Name: "lastName", Type: schema.TypeString},
		{Name: "email", Type: schema.TypeEmail, Required: true, Unique: true},
		{Name: "posts", Type: schema.TypeRefList, Target: "post", Via: "owner"},
		{Name: "comments", Type: schema.TypeRefList, Target: "comment", Via: "owner"},
	})))
	require.NoError(t, reg.Register(schema.NewKind("post", "posts", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true, Attribute: true},
		{Name: "text", Type: schema.TypeText, Required: true},
		{Name: "rating", Type: schema.TypeInt},
		{Name: "owner", Type: schema.TypeRef, Required: true, Target: "user"},
		{Name: "comments", Type: schema.TypeRefList, Target: "comment", Via: "post"},
	})))
	require.NoError(t, reg.Register(schema.NewKind("comment", "comments", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true, Attribute: true},
		{Name: "message", Type: schema.TypeString, Required: true},
		{Name: "owner", Type: schema.TypeRef, Required: true, Target: "user"},
		{Name: "post", Type: schema.TypeRef, Required: true, Target: "post"},
	})))
	require.NoError(t, reg.ValidateAll())
	return reg
}

// resolveGraph seeds a small social graph and resolves the selector against
// it, so encoder tests work on the same shapes the API layer produces.
func resolveGraph(t *testing.T, sel query.Selector, expand string) *query.ResolvedGraph {
	t.Helper()
	ctx := context.Background()

	reg := encodingRegistry(t)
	store := memstore.New(reg)
	require.NoError(t, store.Insert(ctx, "user", map[string]interface{}{
		"id": "u1", "firstName": "Zoé", "lastName": nil, "email": "zoe@example.com",
	}))
	require.NoError(t, store.Insert(ctx, "user", map[string]interface{}{
		"id": "u2", "firstName": "Marc", "lastName": "Dupont", "email": "marc@example.com",
	}))
	require.NoError(t, store.Insert(ctx, "post", map[string]interface{}{
		"id": "p1", "text": "hello", "rating": int64(4), "owner": "u1",
	}))
	require.NoError(t, store.Insert(ctx, "comment", map[string]interface{}{
		"id": "c1", "message": "nice", "owner": "u1", "post": "p1",
	}))
	require.NoError(t, store.Insert(ctx, "comment", map[string]interface{}{
		"id": "c2", "message": "agreed", "owner": "u2", "post": "p1",
	}))

	resolver := query.NewResolver(reg, store, 3)
	graph, err := resolver.Resolve(ctx, sel, relationships.ParseSpec(expand))
	require.NoError(t, err)
	return graph
}

func TestParseFormat(t *testing.T) {
	f, err := encoding.ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, encoding.FormatJSON, f)

	f, err = encoding.ParseFormat("xml")
	require.NoError(t, err)
	assert.Equal(t, encoding.FormatXML, f)

	_, err = encoding.ParseFormat("yaml")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedFormat)
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	graph := resolveGraph(t, query.Selector{Kind: "post", ID: "p1"}, "")

	_, err := encoding.Encode(graph, encoding.Format("yaml"), encoding.Options{})
	assert.ErrorIs(t, err, encoding.ErrUnsupportedFormat)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/xml", encoding.FormatXML.ContentType())
	assert.Equal(t, "application/json; charset=utf-8", encoding.FormatJSON.ContentType())
}
