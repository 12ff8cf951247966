package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Components returns every registered component type in id order.
func (w *World) Components() []ComponentInfo {
	return append([]ComponentInfo(nil), w.types.infos...)
}

func (w *World) ComponentInfo(id ComponentID) (ComponentInfo, bool) {
	return w.types.info(id)
}

// ComponentByName looks up a type registered under name.
func (w *World) ComponentByName(name string) (ComponentInfo, bool) {
	return w.types.named(name)
}

// ComponentsOf returns the ids of e's components in ascending order.
func (w *World) ComponentsOf(e Entity) ([]ComponentID, error) {
	if err := w.checkAlive(e); err != nil {
		return nil, err
	}
	return w.store.componentsOf(e), nil
}

// GroupsOf returns the ids of the groups e currently belongs to.
func (w *World) GroupsOf(e Entity) ([]GroupID, error) {
	if err := w.checkAlive(e); err != nil {
		return nil, err
	}
	return w.index.groupsOf(e), nil
}

// ReadAny returns a copy of e's component id as a value of its registered
// type. It never mutates the world.
func (w *World) ReadAny(e Entity, id ComponentID) (any, error) {
	info, ok := w.types.info(id)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownComponent, "component id %d", id)
	}
	p, err := w.GetID(e, id)
	if err != nil {
		return nil, err
	}
	return reflect.NewAt(info.Type, p).Elem().Interface(), nil
}

// ReplaceAny is ReplaceRaw for a value held in an interface. v's dynamic
// type must be the registered type of id.
func (w *World) ReplaceAny(e Entity, id ComponentID, v any) error {
	info, ok := w.types.info(id)
	if !ok {
		return eris.Wrapf(ErrUnknownComponent, "component id %d", id)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != info.Type {
		return eris.Errorf("ecs: %s expects %s, got %T", info.Name, info.Type, v)
	}
	box := reflect.New(info.Type)
	box.Elem().Set(rv)
	return w.ReplaceRaw(e, id, box.UnsafePointer())
}

// CountOf returns how many entities have component id.
func (w *World) CountOf(id ComponentID) int {
	if w.disposed {
		return 0
	}
	return w.store.count(id)
}
