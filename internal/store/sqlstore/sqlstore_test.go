package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
)

func sqlRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewKind("user", "users", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "firstName", Type: schema.TypeString, Required: true},
		{Name: "email", Type: schema.TypeEmail, Required: true, Unique: true},
		{Name: "tags", Type: schema.TypeStringList},
	})))
	require.NoError(t, reg.ValidateAll())
	return reg
}

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, sqlRegistry(t), DialectPostgres), mock
}

func TestInsert(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`INSERT INTO "users" ("id", "firstName", "email", "tags", "seq") VALUES ($1, $2, $3, $4, $5)`).
		WithArgs("u1", "Zoé", "zoe@example.com", `["go"]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Insert(context.Background(), "user", map[string]interface{}{
		"id": "u1", "firstName": "Zoé", "email": "zoe@example.com", "tags": []string{"go"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUniqueViolation(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`INSERT INTO "users" ("id", "firstName", "email", "tags", "seq") VALUES ($1, $2, $3, $4, $5)`).
		WithArgs("u1", "Zoé", "zoe@example.com", nil, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := store.Insert(context.Background(), "user", map[string]interface{}{
		"id": "u1", "firstName": "Zoé", "email": "zoe@example.com",
	})
	assert.True(t, errors.Is(err, query.ErrUniqueViolation))
}

func TestInsertUnknownKind(t *testing.T) {
	store, _ := mockStore(t)

	err := store.Insert(context.Background(), "article", map[string]interface{}{"id": "a1"})
	assert.True(t, errors.Is(err, query.ErrUnknownKind))
}

func TestUpdate(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`UPDATE "users" SET "firstName" = $1, "email" = $2, "tags" = $3 WHERE "id" = $4`).
		WithArgs("Renamed", "zoe@example.com", nil, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), "user", "u1", map[string]interface{}{
		"firstName": "Renamed", "email": "zoe@example.com",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotFound(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`UPDATE "users" SET "firstName" = $1, "email" = $2, "tags" = $3 WHERE "id" = $4`).
		WithArgs("Renamed", "zoe@example.com", nil, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), "user", "missing", map[string]interface{}{
		"firstName": "Renamed", "email": "zoe@example.com",
	})
	assert.True(t, errors.Is(err, query.ErrNotFound))
}

func TestDelete(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Delete(context.Background(), "user", "u1"))

	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.Delete(context.Background(), "user", "u1")
	assert.True(t, errors.Is(err, query.ErrNotFound))
}

func TestFindByField(t *testing.T) {
	store, mock := mockStore(t)

	columns := []string{"id", "firstName", "email", "tags"}
	mock.ExpectQuery(`SELECT "id", "firstName", "email", "tags" FROM "users" WHERE "email" = $1 LIMIT 1`).
		WithArgs("zoe@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("u1", "Zoé", "zoe@example.com", nil))

	record, err := store.FindByField(context.Background(), "user", "email", "zoe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", record["id"])
	assert.Nil(t, record["tags"])

	mock.ExpectQuery(`SELECT "id", "firstName", "email", "tags" FROM "users" WHERE "email" = $1 LIMIT 1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = store.FindByField(context.Background(), "user", "email", "nobody@example.com")
	assert.True(t, errors.Is(err, query.ErrNotFound))
}

func TestSnapshotGet(t *testing.T) {
	store, mock := mockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id", "firstName", "email", "tags" FROM "users" WHERE "id" = $1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "firstName", "email", "tags"}).
			AddRow("u1", "Zoé", "zoe@example.com", `["go","sql"]`))
	mock.ExpectRollback()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)

	record, err := snap.Get(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Zoé", record["firstName"])
	assert.Equal(t, []string{"go", "sql"}, record["tags"])

	require.NoError(t, snap.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotListSearch(t *testing.T) {
	store, mock := mockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id", "firstName", "email", "tags" FROM "users" ORDER BY "seq"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "firstName", "email", "tags"}).
			AddRow("u1", "Zoé", "zoe@example.com", nil).
			AddRow("u2", "Marc", "marc@example.com", nil))
	mock.ExpectRollback()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	// Accent-insensitive search happens on the fetched rows.
	rows, total, err := snap.List(ctx, "user", query.ListOptions{Search: "zoe"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0]["id"])
}

func TestSnapshotListByRef(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewKind("user", "users", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "posts", Type: schema.TypeRefList, Target: "post", Via: "owner"},
	})))
	require.NoError(t, reg.Register(schema.NewKind("post", "posts", []*schema.Field{
		{Name: "id", Type: schema.TypeUUID, Required: true},
		{Name: "text", Type: schema.TypeText, Required: true},
		{Name: "owner", Type: schema.TypeRef, Required: true, Target: "user"},
	})))
	require.NoError(t, reg.ValidateAll())

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := New(db, reg, DialectPostgres)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id", "text", "owner" FROM "posts" WHERE "owner" = $1 ORDER BY "seq"`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "owner"}).
			AddRow("p1", "hello", "u1"))
	mock.ExpectRollback()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	rows, total, err := snap.ListByRef(ctx, "post", "owner", "u1", query.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "p1", rows[0]["id"])
}

func TestCreateTableSQL(t *testing.T) {
	store, _ := mockStore(t)
	k, _ := store.reg.Get("user")

	ddl := store.createTableSQL(k)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "users" (`+
		`"id" TEXT PRIMARY KEY, `+
		`"firstName" TEXT NOT NULL, `+
		`"email" TEXT NOT NULL UNIQUE, `+
		`"tags" TEXT, `+
		`"seq" BIGINT NOT NULL)`, ddl)
}

func TestParseDialect(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite":   DialectSQLite,
		"sqlite3":  DialectSQLite,
	} {
		d, err := ParseDialect(driver)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2", DialectPostgres.placeholders(2))
	assert.Equal(t, "?, ?", DialectSQLite.placeholders(2))
}
