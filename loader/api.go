package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a definition table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
}

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerObjectiveHelpers(L)
}

// curried returns a constructor used as Kind "id" { ... }: the outer call
// takes the id, the returned function takes the table.
func curried(L *lua.LState, add func(rawDef)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			add(rawDef{id: id, table: tbl})
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// World { title = "...", start = "...", intro = "..." }
	L.SetGlobal("World", L.NewFunction(func(L *lua.LState) int {
		coll.world = L.CheckTable(1)
		return 0
	}))

	L.SetGlobal("Location", curried(L, func(d rawDef) { coll.locations = append(coll.locations, d) }))
	L.SetGlobal("Item", curried(L, func(d rawDef) { coll.items = append(coll.items, d) }))
	L.SetGlobal("Enemy", curried(L, func(d rawDef) { coll.enemies = append(coll.enemies, d) }))
	L.SetGlobal("NPC", curried(L, func(d rawDef) { coll.npcs = append(coll.npcs, d) }))
	L.SetGlobal("Quest", curried(L, func(d rawDef) { coll.quests = append(coll.quests, d) }))
}

func registerObjectiveHelpers(L *lua.LState) {
	// Defeat("id", "enemy", count, "description")
	L.SetGlobal("Defeat", L.NewFunction(func(L *lua.LState) int {
		L.Push(objective(L, "defeat", L.CheckString(1), L.CheckString(2), L.CheckInt(3), L.OptString(4, "")))
		return 1
	}))

	// Collect("id", "item", count, "description")
	L.SetGlobal("Collect", L.NewFunction(func(L *lua.LState) int {
		L.Push(objective(L, "collect", L.CheckString(1), L.CheckString(2), L.CheckInt(3), L.OptString(4, "")))
		return 1
	}))

	// Talk("id", "npc", "description")
	L.SetGlobal("Talk", L.NewFunction(func(L *lua.LState) int {
		L.Push(objective(L, "talk", L.CheckString(1), L.CheckString(2), 1, L.OptString(3, "")))
		return 1
	}))
}

func objective(L *lua.LState, kind, id, target string, count int, desc string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(id))
	tbl.RawSetString("kind", lua.LString(kind))
	tbl.RawSetString("target", lua.LString(target))
	tbl.RawSetString("count", lua.LNumber(count))
	if desc != "" {
		tbl.RawSetString("description", lua.LString(desc))
	}
	return tbl
}
