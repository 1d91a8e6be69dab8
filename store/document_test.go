package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	segs, err := SplitPath("inventory.potion_health")
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory", "potion_health"}, segs)

	for _, bad := range []string{"", "inventory..x", "inv-entory", "a.b c", "id", "name", "$where"} {
		_, err := SplitPath(bad)
		assert.ErrorIs(t, err, ErrInvalidField, "path %q", bad)
	}
}

func TestMutationValidate_Overlap(t *testing.T) {
	var m Mutation
	m.SetField("quests.q1", map[string]any{"status": "active"})
	m.IncField("quests.q1.progress.o1", 1)
	assert.ErrorIs(t, m.Validate(), ErrInvalidField)

	var ok Mutation
	ok.SetField("quests.q1", map[string]any{"status": "active"})
	ok.IncField("quests.q10.progress.o1", 1)
	assert.NoError(t, ok.Validate())
}

func TestMutationIncAccumulates(t *testing.T) {
	var m Mutation
	m.IncField("gold", 5).IncField("gold", -2)
	assert.Equal(t, 3, m.Inc["gold"])
}

func TestApplyDocument(t *testing.T) {
	doc := map[string]any{
		"gold":      float64(10),
		"inventory": map[string]any{"potion_health": float64(2)},
		"choices":   []any{},
	}
	var m Mutation
	m.SetField("location", "forest_path")
	m.SetField("visited_locations.forest_path", "2026-01-01T00:00:00Z")
	m.IncField("inventory.potion_health", -1)
	m.IncField("inventory.sword_rusty", 1)
	m.IncField("gold", 7)
	m.PushField("choices", map[string]any{"command": "dance"})

	require.NoError(t, ApplyDocument(doc, m))

	assert.Equal(t, "forest_path", doc["location"])
	assert.Equal(t, float64(17), doc["gold"])
	inv := doc["inventory"].(map[string]any)
	assert.Equal(t, float64(1), inv["potion_health"])
	assert.Equal(t, float64(1), inv["sword_rusty"])
	assert.Len(t, doc["choices"], 1)
	assert.Contains(t, doc, "visited_locations")
}

func TestApplyDocument_NonNumericIncrement(t *testing.T) {
	doc := map[string]any{"location": "village_start"}
	var m Mutation
	m.IncField("location", 1)
	assert.ErrorIs(t, ApplyDocument(doc, m), ErrInvalidField)
}

func TestDecodePlayer_Invalid(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"name": "Aria", "class": "warrior", "level": 1,
		"health": 120, "max_health": 100,
	})
	require.NoError(t, err)
	_, err = DecodePlayer(raw)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "aria", NameKey("  ARIA "))
}
