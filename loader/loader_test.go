package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/wayfarer/types"
)

func TestLoad_MinimalWorld(t *testing.T) {
	cat, err := Load("testdata/minimal", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cat.World.Title != "Minimal Test World" {
		t.Errorf("Title = %q, want %q", cat.World.Title, "Minimal Test World")
	}
	if cat.World.Start != "hall" {
		t.Errorf("Start = %q, want %q", cat.World.Start, "hall")
	}
	if cat.Locations["hall"].Description != "A grand hall." {
		t.Errorf("hall description = %q, want %q",
			cat.Locations["hall"].Description, "A grand hall.")
	}
	rat := cat.Enemies["rat"]
	if rat.Level != 1 {
		t.Errorf("rat level = %d, want default 1", rat.Level)
	}
	if rat.Gold != (types.GoldRange{Min: 1, Max: 1}) {
		t.Errorf("rat gold = %+v, want fixed 1", rat.Gold)
	}
}

func TestLoad_DefaultWorld(t *testing.T) {
	cat, err := Load("../content/world", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cat.World.Start != "village_start" {
		t.Errorf("Start = %q, want village_start", cat.World.Start)
	}
	if len(cat.Locations) != 7 {
		t.Errorf("expected 7 locations, got %d", len(cat.Locations))
	}
	for _, id := range []string{"rat", "wolf", "bandit", "bear", "goblin"} {
		if _, ok := cat.Enemies[id]; !ok {
			t.Errorf("enemy %q missing", id)
		}
	}

	rats := cat.Quests["quest_village_rats"]
	if rats.Giver != "elder" {
		t.Errorf("rats giver = %q, want elder", rats.Giver)
	}
	if len(rats.Objectives) != 1 {
		t.Fatalf("rats objectives = %d, want 1", len(rats.Objectives))
	}
	obj := rats.Objectives[0]
	if obj.Kind != types.ObjectiveDefeat || obj.Target != "rat" || obj.Count != 3 {
		t.Errorf("rats objective = %+v", obj)
	}
	if rats.Rewards.Items["potion_health"] != 1 {
		t.Errorf("rats reward items = %v", rats.Rewards.Items)
	}

	sword := cat.Quests["quest_lost_sword"]
	if sword.MinLevel != 2 {
		t.Errorf("sword min level = %d, want 2", sword.MinLevel)
	}
	if sword.Objectives[0].Kind != types.ObjectiveCollect {
		t.Errorf("sword objective kind = %q", sword.Objectives[0].Kind)
	}

	wolf := cat.Enemies["wolf"]
	if wolf.Gold != (types.GoldRange{Min: 2, Max: 5}) {
		t.Errorf("wolf gold = %+v", wolf.Gold)
	}
	if wolf.Loot["wolf_pelt"] != 0.3 {
		t.Errorf("wolf pelt drop = %v, want 0.3", wolf.Loot["wolf_pelt"])
	}
	if cat.Locations["village_start"].Exits["down"] != "village_cellar" {
		t.Errorf("village exits = %v", cat.Locations["village_start"].Exits)
	}
	if cat.Items["potion_health"].HealthRestore != 25 {
		t.Errorf("potion restore = %d", cat.Items["potion_health"].HealthRestore)
	}
}

func TestLoad_DanglingReferences(t *testing.T) {
	_, err := Load("testdata/dangling", nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
	assertContains(t, ve.Errors, `undefined location "void"`)
	assertContains(t, ve.Errors, `undefined npc "ghost"`)
	assertContains(t, ve.Errors, `undefined item "amulet"`)
}

func TestLoad_SandboxBlocksDofile(t *testing.T) {
	_, err := Load("testdata/sandbox", nil)
	if err == nil {
		t.Fatal("expected dofile to be unavailable")
	}
	if !strings.Contains(err.Error(), "executing world.lua") {
		t.Errorf("error = %v, want it to name world.lua", err)
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load("testdata/nope", nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoad_NoLuaFiles(t *testing.T) {
	_, err := Load(t.TempDir(), nil)
	if err == nil || !strings.Contains(err.Error(), "no .lua files") {
		t.Errorf("error = %v, want no .lua files", err)
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"quests.lua", "world.lua", "enemies.lua"})
	want := []string{"world.lua", "enemies.lua", "quests.lua"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sortedLuaFiles = %v, want %v", got, want)
	}
}

func assertContains(t *testing.T, list []string, substr string) {
	t.Helper()
	for _, s := range list {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected an entry containing %q in %v", substr, list)
}
