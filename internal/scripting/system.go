package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

// ScriptSystem runs a Lua function once per tick with dt in seconds.
// It is always sequential: the VM is not safe for concurrent use.
type ScriptSystem struct {
	e     *Engine
	name  string
	phase system.Phase
	fn    *lua.LFunction
}

func (s *ScriptSystem) Phase() system.Phase { return s.phase }
func (s *ScriptSystem) Name() string        { return "lua:" + s.name }

func (s *ScriptSystem) Update(dt time.Duration) error {
	if err := s.e.vm.CallByParam(lua.P{
		Fn:      s.fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt.Seconds())); err != nil {
		return fmt.Errorf("lua %s: %w", s.name, err)
	}
	return nil
}

// Systems returns the script systems registered with ecs.system, followed
// by the global update function, if any, in defaultPhase.
func (e *Engine) Systems(defaultPhase system.Phase) []*ScriptSystem {
	out := append([]*ScriptSystem(nil), e.systems...)
	if e.HasFunction("update") {
		fn := e.vm.GetGlobal("update").(*lua.LFunction)
		out = append(out, &ScriptSystem{e: e, name: "update", phase: defaultPhase, fn: fn})
	}
	return out
}
