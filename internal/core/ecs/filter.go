package ecs

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Filter builds a group request. Filters describing the same with, none
// and any sets resolve to the same Group, whatever the order of calls.
//
//	g, err := ecs.None[Frozen](ecs.With[Position](w.Filter())).Find()
type Filter struct {
	w    *World
	all  []ComponentID
	none []ComponentID
	any  []ComponentID
	err  error
}

func (w *World) Filter() *Filter { return &Filter{w: w} }

func (f *Filter) With(ids ...ComponentID) *Filter {
	f.all = append(f.all, ids...)
	return f
}

func (f *Filter) None(ids ...ComponentID) *Filter {
	f.none = append(f.none, ids...)
	return f
}

// Any requires at least one of ids. Calls accumulate into one any-of set.
func (f *Filter) Any(ids ...ComponentID) *Filter {
	f.any = append(f.any, ids...)
	return f
}

// With adds T to the filter's required set, registering T if needed.
func With[T any](f *Filter) *Filter {
	if id, ok := f.typeID(Register[T](f.w)); ok {
		f.all = append(f.all, id)
	}
	return f
}

func None[T any](f *Filter) *Filter {
	if id, ok := f.typeID(Register[T](f.w)); ok {
		f.none = append(f.none, id)
	}
	return f
}

func Any[T any](f *Filter) *Filter {
	if id, ok := f.typeID(Register[T](f.w)); ok {
		f.any = append(f.any, id)
	}
	return f
}

func (f *Filter) typeID(id ComponentID, err error) (ComponentID, bool) {
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return 0, false
	}
	return id, true
}

// Matcher interns the filter's matcher without creating a group.
func (f *Filter) Matcher() (*Matcher, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.w.disposed {
		return nil, ErrDisposed
	}
	for _, set := range [][]ComponentID{f.all, f.none, f.any} {
		for _, id := range set {
			if _, ok := f.w.types.info(id); !ok {
				return nil, eris.Wrapf(ErrUnknownComponent, "component id %d", id)
			}
		}
	}
	for _, a := range f.all {
		for _, n := range f.none {
			if a == n {
				info, _ := f.w.types.info(a)
				return nil, eris.Wrapf(ErrInvalidFilter, "%s is both required and excluded", info.Name)
			}
		}
	}
	return f.w.index.intern(f.all, f.none, f.any), nil
}

// Find returns the group for this filter, creating it on first request.
// A new group is filled by one scan over the alive entities.
func (f *Filter) Find() (*Group, error) {
	m, err := f.Matcher()
	if err != nil {
		return nil, err
	}
	g, created, err := f.w.index.find(m, f.w.entities)
	if err != nil {
		return nil, err
	}
	if created {
		f.w.log.Debug("group created",
			zap.Uint32("group", uint32(g.id)),
			zap.Uint32("matcher", uint32(m.id)),
			zap.Int("members", g.Len()),
		)
	}
	return g, nil
}

// MustFind is Find that panics on error.
func (f *Filter) MustFind() *Group {
	g, err := f.Find()
	if err != nil {
		panic(err)
	}
	return g
}
