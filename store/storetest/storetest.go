// Package storetest holds a behavioral test suite shared by every
// store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// Catalog returns a small fixture set used by the suite.
func Catalog() *types.Catalog {
	return &types.Catalog{
		World: types.World{Title: "Test", Start: "village_start"},
		Locations: map[string]types.Location{
			"village_start": {ID: "village_start", Name: "Village Square", Connections: []string{"forest_path"}},
			"forest_path":   {ID: "forest_path", Name: "Forest Path", DangerLevel: 2, Enemies: []string{"wolf"}, Connections: []string{"village_start"}},
		},
		Items: map[string]types.Item{
			"potion_health": {ID: "potion_health", Name: "Health Potion", Type: types.ItemConsumable, HealthRestore: 20},
		},
		Enemies: map[string]types.EnemyTemplate{
			"wolf": {ID: "wolf", Name: "Wolf", Level: 2, MaxHealth: 30, Attack: 6, Defense: 2, XPReward: 25},
			"rat":  {ID: "rat", Name: "Rat", Level: 1, MaxHealth: 10, Attack: 2, Defense: 1, XPReward: 10},
		},
		NPCs: map[string]types.NPC{
			"elder": {ID: "elder", Name: "Village Elder", Location: "village_start"},
		},
		Quests: map[string]types.Quest{
			"quest_village_rats": {ID: "quest_village_rats", Name: "Rat Problem", Location: "village_start", Giver: "elder", MinLevel: 1},
			"quest_lost_sword":   {ID: "quest_lost_sword", Name: "Lost Sword", Location: "village_start", Giver: "elder", MinLevel: 2},
			"quest_forest":       {ID: "quest_forest", Name: "Forest Trouble", Location: "forest_path", Giver: "elder", MinLevel: 1},
		},
	}
}

// NewPlayer returns a valid level-1 warrior.
func NewPlayer(name string) *types.Player {
	p := &types.Player{
		Name:       name,
		Class:      types.ClassWarrior,
		Level:      1,
		Health:     100,
		MaxHealth:  100,
		Gold:       10,
		Location:   "village_start",
		Inventory:  map[string]int{"potion_health": 2},
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastPlayed: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	p.EnsureMaps()
	return p
}

// Run runs the suite. open must return a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		p, err := s.GetPlayer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "Aria", p.Name)
		assert.Equal(t, 2, p.Inventory["potion_health"])

		byName, err := s.GetPlayerByName(ctx, "aRIA")
		require.NoError(t, err)
		assert.Equal(t, id, byName.ID)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		s := open(t)
		_, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)
		_, err = s.CreatePlayer(ctx, NewPlayer("ARIA"))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SeedCatalog(ctx, Catalog()))

		_, err := s.GetPlayer(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetPlayerByName(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetLocation(ctx, "nowhere")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetItem(ctx, "nothing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetEnemy(ctx, "dragon")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetNPC(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetQuest(ctx, "quest_none")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeletePlayer(ctx, "missing"), store.ErrNotFound)
		assert.ErrorIs(t, s.IncrementPlayerField(ctx, "missing", "gold", 1), store.ErrNotFound)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)

		require.NoError(t, s.UpdatePlayer(ctx, id, map[string]any{
			"location":    "forest_path",
			"stats.attack": 8,
		}))
		p, err := s.GetPlayer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "forest_path", p.Location)
		assert.Equal(t, 8, p.Stats.Attack)
		assert.Equal(t, 10, p.Gold, "untouched fields survive")
		assert.Equal(t, 2, p.Inventory["potion_health"])
	})

	t.Run("Increment", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)

		require.NoError(t, s.IncrementPlayerField(ctx, id, "inventory.potion_health", -1))
		require.NoError(t, s.IncrementPlayerField(ctx, id, "inventory.wolf_pelt", 3))
		require.NoError(t, s.IncrementPlayerField(ctx, id, "gold", 15))

		p, err := s.GetPlayer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Inventory["potion_health"])
		assert.Equal(t, 3, p.Inventory["wolf_pelt"])
		assert.Equal(t, 25, p.Gold)
	})

	t.Run("AppendChoice", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)

		at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		require.NoError(t, s.AppendPlayerChoice(ctx, id, types.Choice{At: at, Location: "village_start", Command: "dance"}))
		require.NoError(t, s.AppendPlayerChoice(ctx, id, types.Choice{At: at, Location: "village_start", Command: "sing"}))

		p, err := s.GetPlayer(ctx, id)
		require.NoError(t, err)
		require.Len(t, p.Choices, 2)
		assert.Equal(t, "dance", p.Choices[0].Command)
		assert.Equal(t, "sing", p.Choices[1].Command)
		assert.True(t, p.Choices[0].At.Equal(at))
	})

	t.Run("ApplyAtomic", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)

		var m store.Mutation
		m.SetField("health", 60)
		m.SetField("quests.quest_village_rats", types.QuestProgress{Status: types.QuestActive, Progress: map[string]int{}})
		m.IncField("experience", 40)
		m.PushField("choices", types.Choice{Command: "accept"})
		p, err := s.ApplyPlayer(ctx, id, m)
		require.NoError(t, err)
		assert.Equal(t, 60, p.Health)
		assert.Equal(t, 40, p.Experience)
		assert.Equal(t, types.QuestActive, p.Quests["quest_village_rats"].Status)
		assert.Len(t, p.Choices, 1)

		var progress store.Mutation
		progress.IncField("quests.quest_village_rats.progress.kill_rats", 1)
		p, err = s.ApplyPlayer(ctx, id, progress)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Quests["quest_village_rats"].Progress["kill_rats"])
	})

	t.Run("RejectsInvalidDocument", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)

		var m store.Mutation
		m.SetField("health", 50)
		m.IncField("gold", -11)
		_, err = s.ApplyPlayer(ctx, id, m)
		assert.ErrorIs(t, err, store.ErrInvalidDocument)

		p, err := s.GetPlayer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, p.Gold, "rejected mutation leaves document unchanged")
		assert.Equal(t, 100, p.Health)
	})

	t.Run("RejectsInvalidPath", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)
		assert.ErrorIs(t, s.UpdatePlayer(ctx, id, map[string]any{"name": "Other"}), store.ErrInvalidField)
		assert.ErrorIs(t, s.IncrementPlayerField(ctx, id, "gold; DROP", 1), store.ErrInvalidField)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		id, err := s.CreatePlayer(ctx, NewPlayer("Aria"))
		require.NoError(t, err)
		require.NoError(t, s.DeletePlayer(ctx, id))
		_, err = s.GetPlayerByName(ctx, "Aria")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.CreatePlayer(ctx, NewPlayer("Aria"))
		assert.NoError(t, err, "name is free again after delete")
	})

	t.Run("ListPlayers", func(t *testing.T) {
		s := open(t)
		for _, n := range []string{"zed", "Aria", "bo"} {
			_, err := s.CreatePlayer(ctx, NewPlayer(n))
			require.NoError(t, err)
		}
		ps, err := s.ListPlayers(ctx)
		require.NoError(t, err)
		require.Len(t, ps, 3)
		assert.Equal(t, "Aria", ps[0].Name)
		assert.Equal(t, "zed", ps[2].Name)
	})

	t.Run("Catalog", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SeedCatalog(ctx, Catalog()))
		require.NoError(t, s.SeedCatalog(ctx, Catalog()), "seeding is idempotent")

		loc, err := s.GetLocation(ctx, "forest_path")
		require.NoError(t, err)
		assert.Equal(t, "Forest Path", loc.Name)
		assert.Equal(t, []string{"wolf"}, loc.Enemies)

		it, err := s.GetItem(ctx, "potion_health")
		require.NoError(t, err)
		assert.Equal(t, 20, it.HealthRestore)

		enemies, err := s.ListEnemies(ctx)
		require.NoError(t, err)
		require.Len(t, enemies, 2)
		assert.Equal(t, "rat", enemies[0].ID)

		npc, err := s.GetNPC(ctx, "elder")
		require.NoError(t, err)
		assert.Equal(t, "Village Elder", npc.Name)
	})

	t.Run("QuestsAt", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SeedCatalog(ctx, Catalog()))

		qs, err := s.QuestsAt(ctx, "village_start", 1)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "quest_village_rats", qs[0].ID)

		qs, err = s.QuestsAt(ctx, "village_start", 2)
		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.Equal(t, "quest_lost_sword", qs[0].ID)

		qs, err = s.QuestsAt(ctx, "cave_entrance", 10)
		require.NoError(t, err)
		assert.Empty(t, qs)
	})
}
