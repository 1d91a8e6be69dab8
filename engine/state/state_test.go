package state

import (
	"context"
	"errors"
	"testing"

	"github.com/nathoo/wayfarer/types"
)

type fakeQuests struct {
	quests []types.Quest
	err    error
	calls  int
}

func (f *fakeQuests) QuestsAt(_ context.Context, location string, level int) ([]types.Quest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Quest
	for _, q := range f.quests {
		if q.Location == location && q.MinLevel <= level {
			out = append(out, q)
		}
	}
	return out, nil
}

func testQuests() *fakeQuests {
	return &fakeQuests{quests: []types.Quest{
		{ID: "quest_village_rats", Location: "village_start", MinLevel: 1},
		{ID: "quest_lost_sword", Location: "village_start", MinLevel: 2},
		{ID: "quest_forest", Location: "forest_path", MinLevel: 1},
	}}
}

func TestNew_DerivesLists(t *testing.T) {
	p := &types.Player{Level: 1}
	loc := &types.Location{ID: "village_start", Enemies: []string{"rat"}}

	s, err := New(context.Background(), p, loc, testQuests())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.AvailableQuests) != 1 || s.AvailableQuests[0].ID != "quest_village_rats" {
		t.Errorf("AvailableQuests = %+v, want [quest_village_rats]", s.AvailableQuests)
	}
	if len(s.NearbyEnemies) != 1 || s.NearbyEnemies[0] != "rat" {
		t.Errorf("NearbyEnemies = %v, want [rat]", s.NearbyEnemies)
	}
}

func TestRefresh_AfterLevelAndMove(t *testing.T) {
	src := testQuests()
	p := &types.Player{Level: 1}
	s, _ := New(context.Background(), p, &types.Location{ID: "village_start"}, src)

	p.Level = 2
	if err := s.Refresh(context.Background(), src); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.AvailableQuests) != 2 {
		t.Errorf("after level up got %d quests, want 2", len(s.AvailableQuests))
	}

	s.Location = &types.Location{ID: "forest_path", Enemies: []string{"wolf", "bandit"}}
	if err := s.Refresh(context.Background(), src); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.AvailableQuests) != 1 || s.AvailableQuests[0].ID != "quest_forest" {
		t.Errorf("after move AvailableQuests = %+v", s.AvailableQuests)
	}
	if len(s.NearbyEnemies) != 2 {
		t.Errorf("NearbyEnemies = %v, want 2 entries", s.NearbyEnemies)
	}
	if src.calls != 3 {
		t.Errorf("QuestsAt calls = %d, want 3 (unconditional recompute)", src.calls)
	}
}

func TestRefresh_NearbyEnemiesIsCopy(t *testing.T) {
	loc := &types.Location{ID: "forest_path", Enemies: []string{"wolf"}}
	s, _ := New(context.Background(), &types.Player{Level: 1}, loc, testQuests())
	s.NearbyEnemies[0] = "dragon"
	if loc.Enemies[0] != "wolf" {
		t.Error("mutating NearbyEnemies changed the location")
	}
}

func TestRefresh_Error(t *testing.T) {
	src := &fakeQuests{err: errors.New("db down")}
	_, err := New(context.Background(), &types.Player{Level: 1}, &types.Location{ID: "x"}, src)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCombatLifecycle(t *testing.T) {
	s := &Session{}
	if s.InCombat() {
		t.Fatal("new session should be idle")
	}

	tmpl := types.EnemyTemplate{ID: "wolf", Name: "Wolf", MaxHealth: 30}
	enc := s.StartCombat(tmpl)
	if !s.InCombat() {
		t.Fatal("expected engaged after StartCombat")
	}
	if enc.Enemy.Health != 30 {
		t.Errorf("enemy health = %d, want 30", enc.Enemy.Health)
	}

	enc.Enemy.Health -= 12
	if tmpl.MaxHealth != 30 {
		t.Error("template mutated")
	}
	if !enc.Enemy.Alive() {
		t.Error("enemy at 18 should be alive")
	}

	s.EndCombat()
	if s.InCombat() {
		t.Error("expected idle after EndCombat")
	}
}
