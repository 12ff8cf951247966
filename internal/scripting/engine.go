package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	"github.com/DesertImage/ecs-burst-sub000/internal/data"
)

// Engine wraps a single gopher-lua VM bound to one world.
// Single-goroutine access only: script systems never run in parallel.
type Engine struct {
	vm      *lua.LState
	w       *ecs.World
	prefabs *data.PrefabTable
	log     *zap.Logger

	systems []*ScriptSystem // registered through ecs.system
}

// NewEngine creates a Lua engine for w and loads every .lua file in
// scriptsDir, in name order. prefabs may be nil, in which case
// ecs.spawn raises an error.
func NewEngine(scriptsDir string, w *ecs.World, prefabs *data.PrefabTable, log *zap.Logger) (*Engine, error) {
	e := newEngine(w, prefabs, log)
	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		e.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func newEngine(w *ecs.World, prefabs *data.PrefabTable, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, w: w, prefabs: prefabs, log: log}
	e.openModule()
	return e
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Warn("script dir missing", zap.String("dir", dir))
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// HasFunction reports whether a global Lua function is defined.
func (e *Engine) HasFunction(name string) bool {
	return e.vm.GetGlobal(name).Type() == lua.LTFunction
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
