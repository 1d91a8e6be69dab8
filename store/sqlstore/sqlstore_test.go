package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/store/storetest"
)

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSuite_SQLite(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestSuite_SQLiteFile(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "wayfarer.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

// TestSuite_Postgres runs against a live server when WAYFARER_TEST_POSTGRES
// holds a DSN.
func TestSuite_Postgres(t *testing.T) {
	dsn := os.Getenv("WAYFARER_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("WAYFARER_TEST_POSTGRES not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), "postgres", dsn)
		require.NoError(t, err)
		_, err = s.db.Exec(`DELETE FROM documents`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "")
	assert.Error(t, err)
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar(`UPDATE documents SET doc = jsonb_set(doc, ?::text[], ?::jsonb, true) WHERE id = ?`)
	assert.Equal(t, `UPDATE documents SET doc = jsonb_set(doc, $1::text[], $2::jsonb, true) WHERE id = $3`, got)
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, `$."inventory"."potion_health"`, sqlitePath([]string{"inventory", "potion_health"}))
}

func TestUpdateExpr_SQLite(t *testing.T) {
	var m store.Mutation
	m.SetField("location", "forest_path")
	m.IncField("gold", 3)
	m.PushField("choices", map[string]string{"command": "dance"})

	expr, args, err := sqliteDialect().updateExpr(m)
	require.NoError(t, err)
	assert.Equal(t,
		`json_insert(json_set(json_set(doc, ?, json(?)), ?, COALESCE(json_extract(doc, ?), 0) + ?), ?, json(?))`,
		expr)
	assert.Equal(t, []any{
		`$."location"`, `"forest_path"`,
		`$."gold"`, `$."gold"`, 3,
		`$."choices"[#]`, `{"command":"dance"}`,
	}, args)
}

func TestUpdateExpr_Postgres(t *testing.T) {
	var m store.Mutation
	m.IncField("inventory.potion_health", -1)

	expr, args, err := postgresDialect().updateExpr(m)
	require.NoError(t, err)
	assert.Equal(t,
		`jsonb_set(doc, ?::text[], to_jsonb(COALESCE((doc #>> ?::text[])::int, 0) + ?::int), true)`,
		expr)
	require.Len(t, args, 3)
	assert.Equal(t, pq.Array([]string{"inventory", "potion_health"}), args[0])
	assert.Equal(t, -1, args[2])
}
