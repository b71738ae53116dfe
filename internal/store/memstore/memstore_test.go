package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewKind("user", "users", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "firstName", Type: schema.TypeString, Required: true},
		{Name: "email", Type: schema.TypeEmail, Required: true, Unique: true},
		{Name: "posts", Type: schema.TypeRefList, Target: "post", Via: "owner"},
	})))
	require.NoError(t, reg.Register(schema.NewKind("post", "posts", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "text", Type: schema.TypeText, Required: true},
		{Name: "owner", Type: schema.TypeRef, Required: true, Target: "user"},
	})))
	require.NoError(t, reg.ValidateAll())
	return reg
}

func user(id, name, email string) map[string]interface{} {
	return map[string]interface{}{"id": id, "firstName": name, "email": email}
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	record, err := snap.Get(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Zoé", record["firstName"])

	_, err = snap.Get(ctx, "user", "missing")
	assert.True(t, errors.Is(err, query.ErrNotFound))
}

func TestUniqueViolation(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))

	err := store.Insert(ctx, "user", user("u2", "Other", "zoe@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, query.ErrUniqueViolation))

	// Updating a record to its own email is fine.
	require.NoError(t, store.Insert(ctx, "user", user("u2", "Other", "other@example.com")))
	require.NoError(t, store.Update(ctx, "user", "u2", user("u2", "Renamed", "other@example.com")))

	// Updating onto someone else's email is not.
	err = store.Update(ctx, "user", "u2", user("u2", "Renamed", "zoe@example.com"))
	assert.True(t, errors.Is(err, query.ErrUniqueViolation))
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	// Writes after the snapshot must not be observable through it.
	require.NoError(t, store.Insert(ctx, "user", user("u2", "Late", "late@example.com")))
	require.NoError(t, store.Update(ctx, "user", "u1", user("u1", "Changed", "zoe@example.com")))

	record, err := snap.Get(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Zoé", record["firstName"])

	_, err = snap.Get(ctx, "user", "u2")
	assert.True(t, errors.Is(err, query.ErrNotFound))

	records, total, err := snap.List(ctx, "user", query.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, records, 1)
}

func TestListOrderAndPagination(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("u%d", i)
		require.NoError(t, store.Insert(ctx, "user",
			user(id, fmt.Sprintf("Name%d", i), fmt.Sprintf("u%d@example.com", i))))
	}

	snap, _ := store.Snapshot(ctx)
	defer snap.Close()

	records, total, err := snap.List(ctx, "user", query.ListOptions{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 2)
	// Insertion order is preserved.
	assert.Equal(t, "u3", records[0]["id"])
	assert.Equal(t, "u4", records[1]["id"])
}

func TestSearchIsAccentInsensitive(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))
	require.NoError(t, store.Insert(ctx, "user", user("u2", "Marc", "marc@example.com")))

	snap, _ := store.Snapshot(ctx)
	defer snap.Close()

	records, total, err := snap.List(ctx, "user", query.ListOptions{Search: "zoe"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0]["id"])
}

func TestSortAccentInsensitive(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Émile", "e@example.com")))
	require.NoError(t, store.Insert(ctx, "user", user("u2", "Anna", "a@example.com")))
	require.NoError(t, store.Insert(ctx, "user", user("u3", "zora", "z@example.com")))

	snap, _ := store.Snapshot(ctx)
	defer snap.Close()

	records, _, err := snap.List(ctx, "user", query.ListOptions{SortBy: "firstName"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "u2", records[0]["id"]) // Anna
	assert.Equal(t, "u1", records[1]["id"]) // Émile sorts as Emile
	assert.Equal(t, "u3", records[2]["id"])

	records, _, err = snap.List(ctx, "user", query.ListOptions{SortBy: "firstName", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, "u3", records[0]["id"])
}

func TestListByRef(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))
	require.NoError(t, store.Insert(ctx, "post", map[string]interface{}{"id": "p1", "text": "first", "owner": "u1"}))
	require.NoError(t, store.Insert(ctx, "post", map[string]interface{}{"id": "p2", "text": "second", "owner": "u1"}))
	require.NoError(t, store.Insert(ctx, "post", map[string]interface{}{"id": "p3", "text": "other", "owner": "u9"}))

	snap, _ := store.Snapshot(ctx)
	defer snap.Close()

	records, total, err := snap.ListByRef(ctx, "post", "owner", "u1", query.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, records, 2)
	assert.Equal(t, "p1", records[0]["id"])
	assert.Equal(t, "p2", records[1]["id"])
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))
	require.NoError(t, store.Delete(ctx, "user", "u1"))

	err := store.Delete(ctx, "user", "u1")
	assert.True(t, errors.Is(err, query.ErrNotFound))

	snap, _ := store.Snapshot(ctx)
	defer snap.Close()
	_, total, _ := snap.List(ctx, "user", query.ListOptions{})
	assert.Zero(t, total)
}

func TestFindByField(t *testing.T) {
	ctx := context.Background()
	store := New(testRegistry(t))

	require.NoError(t, store.Insert(ctx, "user", user("u1", "Zoé", "zoe@example.com")))

	record, err := store.FindByField(ctx, "user", "email", "zoe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", record["id"])

	_, err = store.FindByField(ctx, "user", "email", "nobody@example.com")
	assert.True(t, errors.Is(err, query.ErrNotFound))
}
