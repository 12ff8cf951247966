package ecs

import (
	"reflect"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"
	"github.com/rotisserie/eris"
)

// ComponentID identifies a component type within one World. Ids are
// assigned on first use, monotonically from 0.
type ComponentID uint32

// ComponentInfo describes a registered component type.
type ComponentInfo struct {
	ID   ComponentID
	Name string
	Type reflect.Type
	Size int
}

// typeRegistry assigns component ids per World instead of process-wide, so
// independent worlds never share id state.
type typeRegistry struct {
	byType map[reflect.Type]ComponentID
	byName map[string]ComponentID
	infos  []ComponentInfo
}

func newTypeRegistry(capacity int) *typeRegistry {
	if capacity <= 0 {
		capacity = 32
	}
	return &typeRegistry{
		byType: make(map[reflect.Type]ComponentID, capacity),
		byName: make(map[string]ComponentID, capacity),
		infos:  make([]ComponentInfo, 0, capacity),
	}
}

func (r *typeRegistry) lookup(t reflect.Type) (ComponentID, bool) {
	id, ok := r.byType[t]
	return id, ok
}

// register returns the id of t, assigning one on first use. An empty name
// defaults to the type's name, or its qualified name when that is taken.
func (r *typeRegistry) register(t reflect.Type, name string) (ComponentID, error) {
	if id, ok := r.byType[t]; ok {
		if name != "" && r.infos[id].Name != name {
			return id, r.rename(id, name)
		}
		return id, nil
	}
	if !sparse.PointerFree(t) {
		return 0, eris.Wrapf(ErrPointerType, "component %s", t)
	}
	if name == "" {
		name = t.Name()
		if _, taken := r.byName[name]; taken || name == "" {
			name = t.String()
		}
	} else if _, taken := r.byName[name]; taken {
		return 0, eris.Wrapf(ErrNameTaken, "%q", name)
	}
	id := ComponentID(len(r.infos))
	r.infos = append(r.infos, ComponentInfo{ID: id, Name: name, Type: t, Size: int(t.Size())})
	r.byType[t] = id
	r.byName[name] = id
	return id, nil
}

func (r *typeRegistry) rename(id ComponentID, name string) error {
	if other, taken := r.byName[name]; taken && other != id {
		return eris.Wrapf(ErrNameTaken, "%q", name)
	}
	delete(r.byName, r.infos[id].Name)
	r.infos[id].Name = name
	r.byName[name] = id
	return nil
}

func (r *typeRegistry) info(id ComponentID) (ComponentInfo, bool) {
	if int(id) >= len(r.infos) {
		return ComponentInfo{}, false
	}
	return r.infos[id], true
}

func (r *typeRegistry) named(name string) (ComponentInfo, bool) {
	id, ok := r.byName[name]
	if !ok {
		return ComponentInfo{}, false
	}
	return r.infos[id], true
}

// Register returns T's component id in w, assigning one on first use.
func Register[T any](w *World) (ComponentID, error) {
	return w.types.register(reflect.TypeFor[T](), "")
}

// RegisterNamed registers T under name, the key used by prefabs, scripts
// and inspection.
func RegisterNamed[T any](w *World, name string) (ComponentID, error) {
	if name == "" {
		return 0, ErrInvalidName
	}
	return w.types.register(reflect.TypeFor[T](), name)
}

// IDOf is Register that panics on error.
func IDOf[T any](w *World) ComponentID {
	id, err := Register[T](w)
	if err != nil {
		panic(err)
	}
	return id
}

// LookupID returns T's id without registering it.
func LookupID[T any](w *World) (ComponentID, bool) {
	return w.types.lookup(reflect.TypeFor[T]())
}
