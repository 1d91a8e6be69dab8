// Package loader loads Lua world content into a types.Catalog.
// The Lua VM is discarded after loading; nothing runs Lua during play.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/types"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	world     *lua.LTable
	locations []rawDef
	items     []rawDef
	enemies   []rawDef
	npcs      []rawDef
	quests    []rawDef
}

// Load reads all .lua files from dir, compiles them into a catalog and
// validates references. Warnings are logged; errors fail the load.
func Load(dir string, logger *zap.Logger) (*types.Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading world directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// world.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := newVM()
	defer L.Close()
	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	cat, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling world data: %w", err)
	}

	warnings, err := validate(cat)
	for _, w := range warnings {
		logger.Warn("world content", zap.String("dir", dir), zap.String("warning", w))
	}
	if err != nil {
		return nil, err
	}
	logger.Info("world loaded",
		zap.String("title", cat.World.Title),
		zap.Int("locations", len(cat.Locations)),
		zap.Int("items", len(cat.Items)),
		zap.Int("enemies", len(cat.Enemies)),
		zap.Int("npcs", len(cat.NPCs)),
		zap.Int("quests", len(cat.Quests)))
	return cat, nil
}

// newVM returns a Lua state with only the safe libraries opened.
func newVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	return L
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach the filesystem or bypass metatables.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Content must not reseed the shared generator.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
