package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/types"
)

// ValidationError collects all validation errors found in a catalog.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

var validItemTypes = map[types.ItemType]bool{
	types.ItemConsumable: true,
	types.ItemWeapon:     true,
	types.ItemArmor:      true,
	types.ItemMisc:       true,
}

// validate checks the catalog for referential integrity. It returns any
// warnings and a *ValidationError when there are errors.
func validate(cat *types.Catalog) (warnings []string, err error) {
	ve := &ValidationError{}
	fail := func(format string, args ...any) {
		ve.Errors = append(ve.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if cat.World.Title == "" {
		fail("World.title is required")
	}
	if cat.World.Start == "" {
		fail("World.start is required")
	} else if _, ok := cat.Locations[cat.World.Start]; !ok {
		fail("start location %q not found in defined locations", cat.World.Start)
	}

	for _, id := range sortedKeys(cat.Locations) {
		loc := cat.Locations[id]
		if loc.Name == "" {
			fail("location %q has no name", id)
		}
		if loc.DangerLevel < 0 {
			fail("location %q danger_level %d is negative", id, loc.DangerLevel)
		}
		for _, target := range loc.Connections {
			if _, ok := cat.Locations[target]; !ok {
				fail("location %q connects to undefined location %q", id, target)
			}
		}
		for _, dir := range sortedKeys(loc.Exits) {
			target := loc.Exits[dir]
			if _, ok := cat.Locations[target]; !ok {
				fail("location %q exit %q points to undefined location %q", id, dir, target)
			} else if !contains(loc.Connections, target) {
				warn("location %q exit %q leads to %q, which is not a connection", id, dir, target)
			}
		}
		for _, npc := range loc.NPCs {
			if _, ok := cat.NPCs[npc]; !ok {
				fail("location %q lists undefined npc %q", id, npc)
			}
		}
		for _, enemy := range loc.Enemies {
			if _, ok := cat.Enemies[enemy]; !ok {
				fail("location %q lists undefined enemy %q", id, enemy)
			}
		}
		if len(loc.Connections) == 0 {
			warn("location %q has no connections", id)
		}
	}

	for _, id := range sortedKeys(cat.Items) {
		it := cat.Items[id]
		if it.Name == "" {
			fail("item %q has no name", id)
		}
		if !validItemTypes[it.Type] {
			fail("item %q has unknown type %q", id, it.Type)
		}
	}

	for _, id := range sortedKeys(cat.Enemies) {
		en := cat.Enemies[id]
		if en.Name == "" {
			fail("enemy %q has no name", id)
		}
		if en.MaxHealth <= 0 {
			fail("enemy %q health must be positive", id)
		}
		for _, item := range sortedKeys(en.Loot) {
			if _, ok := cat.Items[item]; !ok {
				fail("enemy %q loot references undefined item %q", id, item)
			}
			if p := en.Loot[item]; p < 0 || p > 1 {
				fail("enemy %q loot %q probability %v outside [0, 1]", id, item, p)
			}
		}
	}

	for _, id := range sortedKeys(cat.NPCs) {
		npc := cat.NPCs[id]
		if npc.Name == "" {
			fail("npc %q has no name", id)
		}
		if npc.Location == "" {
			warn("npc %q is not placed in any location", id)
		} else if loc, ok := cat.Locations[npc.Location]; !ok {
			fail("npc %q location %q not found", id, npc.Location)
		} else if !contains(loc.NPCs, id) {
			warn("npc %q location %q does not list it", id, npc.Location)
		}
		for _, q := range npc.Quests {
			if _, ok := cat.Quests[q]; !ok {
				fail("npc %q offers undefined quest %q", id, q)
			}
		}
	}

	for _, id := range sortedKeys(cat.Quests) {
		q := cat.Quests[id]
		if q.Name == "" {
			fail("quest %q has no name", id)
		}
		if giver, ok := cat.NPCs[q.Giver]; !ok {
			fail("quest %q giver %q not found", id, q.Giver)
		} else if !contains(giver.Quests, id) {
			warn("quest %q giver %q does not offer it", id, q.Giver)
		}
		if _, ok := cat.Locations[q.Location]; !ok {
			fail("quest %q location %q not found", id, q.Location)
		}
		if len(q.Objectives) == 0 {
			fail("quest %q has no objectives", id)
		}
		seen := map[string]bool{}
		for _, o := range q.Objectives {
			if seen[o.ID] {
				fail("quest %q has duplicate objective %q", id, o.ID)
			}
			seen[o.ID] = true
			if o.Count <= 0 {
				fail("quest %q objective %q count must be positive", id, o.ID)
			}
			var found bool
			switch o.Kind {
			case types.ObjectiveDefeat:
				_, found = cat.Enemies[o.Target]
			case types.ObjectiveCollect:
				_, found = cat.Items[o.Target]
			case types.ObjectiveTalk:
				_, found = cat.NPCs[o.Target]
			default:
				fail("quest %q objective %q has unknown kind %q", id, o.ID, o.Kind)
				continue
			}
			if !found {
				fail("quest %q objective %q targets undefined %s %q", id, o.ID, kindNoun(o.Kind), o.Target)
			}
		}
		for _, item := range sortedKeys(q.Rewards.Items) {
			if _, ok := cat.Items[item]; !ok {
				fail("quest %q rewards undefined item %q", id, item)
			}
		}
	}

	if len(ve.Errors) > 0 {
		return warnings, ve
	}
	return warnings, nil
}

func kindNoun(k types.ObjectiveKind) string {
	switch k {
	case types.ObjectiveDefeat:
		return "enemy"
	case types.ObjectiveCollect:
		return "item"
	}
	return "npc"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
