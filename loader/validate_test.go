package loader

import (
	"testing"

	"github.com/nathoo/wayfarer/types"
)

// validCatalog returns a small catalog that passes validation.
func validCatalog() *types.Catalog {
	return &types.Catalog{
		World: types.World{Title: "Test", Start: "hall"},
		Locations: map[string]types.Location{
			"hall": {ID: "hall", Name: "Hall", NPCs: []string{"elder"}, Connections: []string{"cellar"}},
			"cellar": {ID: "cellar", Name: "Cellar", DangerLevel: 2, Enemies: []string{"rat"},
				Connections: []string{"hall"}},
		},
		Items: map[string]types.Item{
			"tail": {ID: "tail", Name: "Tail", Type: types.ItemMisc},
		},
		Enemies: map[string]types.EnemyTemplate{
			"rat": {ID: "rat", Name: "Rat", MaxHealth: 5, Loot: map[string]float64{"tail": 0.5}},
		},
		NPCs: map[string]types.NPC{
			"elder": {ID: "elder", Name: "Elder", Location: "hall", Quests: []string{"rats"}},
		},
		Quests: map[string]types.Quest{
			"rats": {ID: "rats", Name: "Rats", Giver: "elder", Location: "hall",
				Objectives: []types.Objective{{ID: "kill", Kind: types.ObjectiveDefeat, Target: "rat", Count: 2}}},
		},
	}
}

func validationErrors(t *testing.T, cat *types.Catalog) []string {
	t.Helper()
	_, err := validate(cat)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

func TestValidate_ValidCatalog(t *testing.T) {
	warnings, err := validate(validCatalog())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestValidate_MissingStart(t *testing.T) {
	cat := validCatalog()
	cat.World.Start = "nowhere"
	assertContains(t, validationErrors(t, cat), "start location")
}

func TestValidate_EmptyTitle(t *testing.T) {
	cat := validCatalog()
	cat.World.Title = ""
	assertContains(t, validationErrors(t, cat), "title")
}

func TestValidate_BadExit(t *testing.T) {
	cat := validCatalog()
	hall := cat.Locations["hall"]
	hall.Exits = map[string]string{"north": "void"}
	cat.Locations["hall"] = hall
	assertContains(t, validationErrors(t, cat), `exit "north" points to undefined location`)
}

func TestValidate_ExitOutsideConnectionsWarns(t *testing.T) {
	cat := validCatalog()
	cellar := cat.Locations["cellar"]
	cellar.Connections = []string{}
	cat.Locations["cellar"] = cellar
	hall := cat.Locations["hall"]
	hall.Exits = map[string]string{"down": "cellar"}
	hall.Connections = []string{}
	cat.Locations["hall"] = hall

	warnings, err := validate(cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContains(t, warnings, "not a connection")
	assertContains(t, warnings, "has no connections")
}

func TestValidate_UnknownEnemyAndNPC(t *testing.T) {
	cat := validCatalog()
	cellar := cat.Locations["cellar"]
	cellar.Enemies = []string{"dragon"}
	cellar.NPCs = []string{"ghost"}
	cat.Locations["cellar"] = cellar
	errs := validationErrors(t, cat)
	assertContains(t, errs, `undefined enemy "dragon"`)
	assertContains(t, errs, `undefined npc "ghost"`)
}

func TestValidate_LootProbability(t *testing.T) {
	cat := validCatalog()
	cat.Enemies["rat"] = types.EnemyTemplate{ID: "rat", Name: "Rat", MaxHealth: 5,
		Loot: map[string]float64{"tail": 1.5}}
	assertContains(t, validationErrors(t, cat), "outside [0, 1]")
}

func TestValidate_EnemyWithoutHealth(t *testing.T) {
	cat := validCatalog()
	cat.Enemies["rat"] = types.EnemyTemplate{ID: "rat", Name: "Rat"}
	assertContains(t, validationErrors(t, cat), "health must be positive")
}

func TestValidate_UnknownItemType(t *testing.T) {
	cat := validCatalog()
	cat.Items["tail"] = types.Item{ID: "tail", Name: "Tail", Type: "tool"}
	assertContains(t, validationErrors(t, cat), `unknown type "tool"`)
}

func TestValidate_QuestReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Quest)
		want   string
	}{
		{"giver", func(q *types.Quest) { q.Giver = "nobody" }, `giver "nobody" not found`},
		{"location", func(q *types.Quest) { q.Location = "moon" }, `location "moon" not found`},
		{"no objectives", func(q *types.Quest) { q.Objectives = nil }, "has no objectives"},
		{"defeat target", func(q *types.Quest) { q.Objectives[0].Target = "dragon" }, `undefined enemy "dragon"`},
		{"collect target", func(q *types.Quest) {
			q.Objectives[0] = types.Objective{ID: "c", Kind: types.ObjectiveCollect, Target: "gem", Count: 1}
		}, `undefined item "gem"`},
		{"talk target", func(q *types.Quest) {
			q.Objectives[0] = types.Objective{ID: "t", Kind: types.ObjectiveTalk, Target: "ghost", Count: 1}
		}, `undefined npc "ghost"`},
		{"kind", func(q *types.Quest) { q.Objectives[0].Kind = "dance" }, `unknown kind "dance"`},
		{"count", func(q *types.Quest) { q.Objectives[0].Count = 0 }, "count must be positive"},
		{"duplicate objective", func(q *types.Quest) {
			q.Objectives = append(q.Objectives, q.Objectives[0])
		}, "duplicate objective"},
		{"reward item", func(q *types.Quest) { q.Rewards.Items = map[string]int{"crown": 1} }, `rewards undefined item "crown"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := validCatalog()
			q := cat.Quests["rats"]
			q.Objectives = append([]types.Objective(nil), q.Objectives...)
			tt.mutate(&q)
			cat.Quests["rats"] = q
			assertContains(t, validationErrors(t, cat), tt.want)
		})
	}
}

func TestValidate_NPCOffersUnknownQuest(t *testing.T) {
	cat := validCatalog()
	elder := cat.NPCs["elder"]
	elder.Quests = []string{"rats", "dragons"}
	cat.NPCs["elder"] = elder
	assertContains(t, validationErrors(t, cat), `undefined quest "dragons"`)
}

func TestValidationError_Message(t *testing.T) {
	ve := &ValidationError{Errors: []string{"a", "b"}}
	want := "validation failed with 2 error(s):\n  a\n  b"
	if ve.Error() != want {
		t.Errorf("Error() = %q, want %q", ve.Error(), want)
	}
}
