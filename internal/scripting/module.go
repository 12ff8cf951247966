package scripting

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

const groupTypeName = "ecs.group"

// openModule installs the global ecs table. Entity ids cross into Lua as
// numbers; components are addressed by their registered names.
func (e *Engine) openModule() {
	mod := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"create":  e.luaCreate,
		"spawn":   e.luaSpawn,
		"destroy": e.luaDestroy,
		"alive":   e.luaAlive,
		"count":   e.luaCount,
		"has":     e.luaHas,
		"get":     e.luaGet,
		"set":     e.luaSet,
		"remove":  e.luaRemove,
		"query":   e.luaQuery,
		"system":  e.luaSystem,
		"log":     e.luaLog,
	})
	e.vm.SetGlobal("ecs", mod)
	e.vm.PreloadModule("ecs", func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})

	mt := e.vm.NewTypeMetatable(groupTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"count":    groupCount,
		"contains": groupContains,
		"entities": groupEntities,
		"each":     groupEach,
	}))
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	v := L.CheckInt64(n)
	if v <= 0 || v > int64(^uint32(0)) {
		L.ArgError(n, "entity id out of range")
	}
	return ecs.Entity(v)
}

func (e *Engine) checkComponent(L *lua.LState, n int) ecs.ComponentInfo {
	name := L.CheckString(n)
	info, ok := e.w.ComponentByName(name)
	if !ok {
		L.ArgError(n, "unknown component "+name)
	}
	return info
}

// ecs.create() -> id
func (e *Engine) luaCreate(L *lua.LState) int {
	ent, err := e.w.Create()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(lua.LNumber(ent))
	return 1
}

// ecs.spawn(prefab) -> id
func (e *Engine) luaSpawn(L *lua.LState) int {
	name := L.CheckString(1)
	if e.prefabs == nil {
		L.RaiseError("no prefabs loaded")
	}
	ent, err := e.prefabs.Spawn(e.w, name)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(lua.LNumber(ent))
	return 1
}

// ecs.destroy(id)
func (e *Engine) luaDestroy(L *lua.LState) int {
	if err := e.w.Destroy(checkEntity(L, 1)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// ecs.alive(id) -> bool
func (e *Engine) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.w.Alive(checkEntity(L, 1))))
	return 1
}

// ecs.count() -> number of alive entities
func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.w.Count()))
	return 1
}

// ecs.has(id, name) -> bool
func (e *Engine) luaHas(L *lua.LState) int {
	ent := checkEntity(L, 1)
	info := e.checkComponent(L, 2)
	L.Push(lua.LBool(e.w.HasID(ent, info.ID)))
	return 1
}

// ecs.get(id, name) -> table, or nil when the entity lacks the component
func (e *Engine) luaGet(L *lua.LState) int {
	ent := checkEntity(L, 1)
	info := e.checkComponent(L, 2)
	if !e.w.HasID(ent, info.ID) {
		L.Push(lua.LNil)
		return 1
	}
	v, err := e.w.ReadAny(ent, info.ID)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(toLua(L, reflect.ValueOf(v)))
	return 1
}

// ecs.set(id, name, table). Fields missing from table keep their current
// value, or zero when the component is being added.
func (e *Engine) luaSet(L *lua.LState) int {
	ent := checkEntity(L, 1)
	info := e.checkComponent(L, 2)
	tbl := L.OptTable(3, L.NewTable())

	box := reflect.New(info.Type).Elem()
	if e.w.HasID(ent, info.ID) {
		cur, err := e.w.ReadAny(ent, info.ID)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		box.Set(reflect.ValueOf(cur))
	}
	if err := fromLua(box, tbl); err != nil {
		L.ArgError(3, info.Name+": "+err.Error())
	}
	if err := e.w.ReplaceAny(ent, info.ID, box.Interface()); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// ecs.remove(id, name)
func (e *Engine) luaRemove(L *lua.LState) int {
	ent := checkEntity(L, 1)
	info := e.checkComponent(L, 2)
	if err := e.w.RemoveID(ent, info.ID); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// ecs.query{with = {...}, none = {...}, any = {...}} -> group
func (e *Engine) luaQuery(L *lua.LState) int {
	spec := L.CheckTable(1)
	f := e.w.Filter()
	f.With(e.componentList(L, spec, "with")...)
	f.None(e.componentList(L, spec, "none")...)
	f.Any(e.componentList(L, spec, "any")...)
	g, err := f.Find()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	ud := L.NewUserData()
	ud.Value = g
	L.SetMetatable(ud, L.GetTypeMetatable(groupTypeName))
	L.Push(ud)
	return 1
}

func (e *Engine) componentList(L *lua.LState, spec *lua.LTable, key string) []ecs.ComponentID {
	lv := spec.RawGetString(key)
	if lv == lua.LNil {
		return nil
	}
	list, ok := lv.(*lua.LTable)
	if !ok {
		L.ArgError(1, key+" must be a list of component names")
	}
	var ids []ecs.ComponentID
	for i := 1; i <= list.Len(); i++ {
		name := lua.LVAsString(list.RawGetInt(i))
		info, ok := e.w.ComponentByName(name)
		if !ok {
			L.ArgError(1, "unknown component "+name)
		}
		ids = append(ids, info.ID)
	}
	return ids
}

// ecs.system(name, phase, fn) registers fn(dt) as a script system.
func (e *Engine) luaSystem(L *lua.LState) int {
	name := L.CheckString(1)
	phase, ok := system.ParsePhase(L.CheckString(2))
	if !ok {
		L.ArgError(2, "unknown phase "+L.CheckString(2))
	}
	fn := L.CheckFunction(3)
	e.systems = append(e.systems, &ScriptSystem{e: e, name: name, phase: phase, fn: fn})
	return 0
}

// ecs.log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func checkGroup(L *lua.LState) *ecs.Group {
	ud := L.CheckUserData(1)
	g, ok := ud.Value.(*ecs.Group)
	if !ok {
		L.ArgError(1, "group expected")
	}
	return g
}

// group:count()
func groupCount(L *lua.LState) int {
	L.Push(lua.LNumber(checkGroup(L).Len()))
	return 1
}

// group:contains(id)
func groupContains(L *lua.LState) int {
	g := checkGroup(L)
	L.Push(lua.LBool(g.Contains(checkEntity(L, 2))))
	return 1
}

// group:entities() -> list of ids
func groupEntities(L *lua.LState) int {
	g := checkGroup(L)
	t := L.NewTable()
	for _, ent := range g.Entities() {
		t.Append(lua.LNumber(ent))
	}
	L.Push(t)
	return 1
}

// group:each(fn) calls fn(id) per member; returning false stops the walk.
// fn may destroy the entity it was given.
func groupEach(L *lua.LState) int {
	g := checkGroup(L)
	fn := L.CheckFunction(2)
	g.Each(func(ent ecs.Entity) bool {
		L.Push(fn)
		L.Push(lua.LNumber(ent))
		L.Call(1, 1)
		ret := L.Get(-1)
		L.Pop(1)
		return ret != lua.LFalse
	})
	return 0
}
