package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/store/storetest"
)

func TestSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestSuite_Snapshot(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "players.json"))
		require.NoError(t, err)
		return s
	})
}

func TestOpen_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "players.json")

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.CreatePlayer(ctx, storetest.NewPlayer("Aria"))
	require.NoError(t, err)
	require.NoError(t, s.IncrementPlayerField(ctx, id, "gold", 5))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	p, err := reopened.GetPlayerByName(ctx, "aria")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, 15, p.Gold)
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}
