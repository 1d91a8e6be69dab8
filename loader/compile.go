package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/wayfarer/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// tableToStringMap converts a Lua table to a map[string]string.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := v.(lua.LString); ok {
				m[string(ks)] = string(vs)
			}
		}
	})
	return m
}

// tableToStrings converts the array part of a Lua table to a []string.
func tableToStrings(tbl *lua.LTable) []string {
	out := []string{}
	if tbl == nil {
		return out
	}
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// tableToIntMap converts a Lua table of id = number to a map[string]int.
func tableToIntMap(tbl *lua.LTable) map[string]int {
	if tbl == nil {
		return nil
	}
	m := map[string]int{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if n, ok := v.(lua.LNumber); ok {
				m[string(ks)] = int(n)
			}
		}
	})
	return m
}

// tableToFloatMap converts a Lua table of id = number to a map[string]float64.
func tableToFloatMap(tbl *lua.LTable) map[string]float64 {
	if tbl == nil {
		return nil
	}
	m := map[string]float64{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if n, ok := v.(lua.LNumber); ok {
				m[string(ks)] = float64(n)
			}
		}
	})
	return m
}

// compile converts all collected Lua data into a Catalog.
func compile(coll *collector) (*types.Catalog, error) {
	if coll.world == nil {
		return nil, fmt.Errorf("no World{} definition found")
	}
	cat := &types.Catalog{
		World:     compileWorld(coll.world),
		Locations: map[string]types.Location{},
		Items:     map[string]types.Item{},
		Enemies:   map[string]types.EnemyTemplate{},
		NPCs:      map[string]types.NPC{},
		Quests:    map[string]types.Quest{},
	}

	for _, raw := range coll.locations {
		if _, dup := cat.Locations[raw.id]; dup {
			return nil, fmt.Errorf("duplicate location %q", raw.id)
		}
		cat.Locations[raw.id] = compileLocation(raw)
	}
	for _, raw := range coll.items {
		if _, dup := cat.Items[raw.id]; dup {
			return nil, fmt.Errorf("duplicate item %q", raw.id)
		}
		cat.Items[raw.id] = compileItem(raw)
	}
	for _, raw := range coll.enemies {
		if _, dup := cat.Enemies[raw.id]; dup {
			return nil, fmt.Errorf("duplicate enemy %q", raw.id)
		}
		enemy, err := compileEnemy(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling enemy %s: %w", raw.id, err)
		}
		cat.Enemies[raw.id] = enemy
	}
	for _, raw := range coll.npcs {
		if _, dup := cat.NPCs[raw.id]; dup {
			return nil, fmt.Errorf("duplicate npc %q", raw.id)
		}
		npc := compileNPC(raw)
		if npc.Location == "" {
			npc.Location = residence(cat.Locations, npc.ID)
		}
		cat.NPCs[raw.id] = npc
	}
	for _, raw := range coll.quests {
		if _, dup := cat.Quests[raw.id]; dup {
			return nil, fmt.Errorf("duplicate quest %q", raw.id)
		}
		q, err := compileQuest(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling quest %s: %w", raw.id, err)
		}
		if q.Location == "" {
			q.Location = cat.NPCs[q.Giver].Location
		}
		cat.Quests[raw.id] = q
	}
	return cat, nil
}

func compileWorld(tbl *lua.LTable) types.World {
	return types.World{
		Title: getString(tbl, "title"),
		Start: getString(tbl, "start"),
		Intro: getString(tbl, "intro"),
	}
}

func compileLocation(raw rawDef) types.Location {
	tbl := raw.table
	return types.Location{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		DangerLevel: getInt(tbl, "danger_level"),
		NPCs:        tableToStrings(getTable(tbl, "npcs")),
		Enemies:     tableToStrings(getTable(tbl, "enemies")),
		Connections: tableToStrings(getTable(tbl, "connections")),
		Exits:       tableToStringMap(getTable(tbl, "exits")),
	}
}

func compileItem(raw rawDef) types.Item {
	tbl := raw.table
	typ := types.ItemType(getString(tbl, "type"))
	if typ == "" {
		typ = types.ItemMisc
	}
	return types.Item{
		ID:            raw.id,
		Name:          getString(tbl, "name"),
		Type:          typ,
		Description:   getString(tbl, "description"),
		Value:         getInt(tbl, "value"),
		HealthRestore: getInt(tbl, "health_restore"),
		ManaRestore:   getInt(tbl, "mana_restore"),
		AttackBonus:   getInt(tbl, "attack_bonus"),
		DefenseBonus:  getInt(tbl, "defense_bonus"),
	}
}

func compileEnemy(raw rawDef) (types.EnemyTemplate, error) {
	tbl := raw.table
	gold, err := compileGold(tbl)
	if err != nil {
		return types.EnemyTemplate{}, err
	}
	level := getInt(tbl, "level")
	if level == 0 {
		level = 1
	}
	return types.EnemyTemplate{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Level:       level,
		MaxHealth:   getInt(tbl, "health"),
		Attack:      getInt(tbl, "attack"),
		Defense:     getInt(tbl, "defense"),
		XPReward:    getInt(tbl, "xp"),
		Gold:        gold,
		Loot:        tableToFloatMap(getTable(tbl, "loot")),
	}, nil
}

// compileGold accepts gold = n, gold = { min, max }, gold = { min = a, max = b }
// or gold_min/gold_max fields.
func compileGold(tbl *lua.LTable) (types.GoldRange, error) {
	var g types.GoldRange
	switch v := tbl.RawGetString("gold").(type) {
	case lua.LNumber:
		g = types.GoldRange{Min: int(v), Max: int(v)}
	case *lua.LTable:
		if v.MaxN() >= 2 {
			lo, _ := v.RawGetInt(1).(lua.LNumber)
			hi, _ := v.RawGetInt(2).(lua.LNumber)
			g = types.GoldRange{Min: int(lo), Max: int(hi)}
		} else {
			g = types.GoldRange{Min: getInt(v, "min"), Max: getInt(v, "max")}
		}
	case *lua.LNilType:
		g = types.GoldRange{Min: getInt(tbl, "gold_min"), Max: getInt(tbl, "gold_max")}
	default:
		return g, fmt.Errorf("gold must be a number or table, got %s", v.Type())
	}
	if g.Min < 0 || g.Max < g.Min {
		return g, fmt.Errorf("gold range %d-%d is invalid", g.Min, g.Max)
	}
	return g, nil
}

func compileNPC(raw rawDef) types.NPC {
	tbl := raw.table
	npc := types.NPC{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Location:    getString(tbl, "location"),
	}
	if q := getTable(tbl, "quests"); q != nil {
		npc.Quests = tableToStrings(q)
	}
	if d := getTable(tbl, "dialogue"); d != nil {
		npc.Dialogue = types.Dialogue{
			Greeting:      getString(d, "greeting"),
			QuestOffer:    getString(d, "quest_offer"),
			QuestActive:   getString(d, "quest_active"),
			QuestComplete: getString(d, "quest_complete"),
			Farewell:      getString(d, "farewell"),
		}
	}
	return npc
}

func compileQuest(raw rawDef) (types.Quest, error) {
	tbl := raw.table
	q := types.Quest{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Location:    getString(tbl, "location"),
		Giver:       getString(tbl, "giver"),
		MinLevel:    getInt(tbl, "min_level"),
	}
	if q.MinLevel == 0 {
		q.MinLevel = 1
	}
	if objs := getTable(tbl, "objectives"); objs != nil {
		for i := 1; i <= objs.MaxN(); i++ {
			ot, ok := objs.RawGetInt(i).(*lua.LTable)
			if !ok {
				return q, fmt.Errorf("objective %d is not a table", i)
			}
			q.Objectives = append(q.Objectives, compileObjective(ot))
		}
	}
	if r := getTable(tbl, "rewards"); r != nil {
		q.Rewards = types.Rewards{
			XP:    getInt(r, "xp"),
			Gold:  getInt(r, "gold"),
			Items: tableToIntMap(getTable(r, "items")),
		}
	}
	return q, nil
}

func compileObjective(tbl *lua.LTable) types.Objective {
	o := types.Objective{
		ID:          getString(tbl, "id"),
		Description: getString(tbl, "description"),
		Kind:        types.ObjectiveKind(getString(tbl, "kind")),
		Target:      getString(tbl, "target"),
		Count:       getInt(tbl, "count"),
	}
	if o.Count == 0 {
		o.Count = 1
	}
	if o.ID == "" {
		o.ID = string(o.Kind) + "_" + o.Target
	}
	return o
}

// residence returns the first location, by id, that lists the NPC.
func residence(locs map[string]types.Location, npc string) string {
	ids := make([]string, 0, len(locs))
	for id := range locs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, n := range locs[id].NPCs {
			if n == npc {
				return id
			}
		}
	}
	return ""
}

// sortedLuaFiles returns .lua files with world.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var worldFile string
	var others []string
	for _, f := range files {
		if f == "world.lua" {
			worldFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if worldFile != "" {
		return append([]string{worldFile}, others...)
	}
	return others
}
