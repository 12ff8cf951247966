package ecs

import (
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"
)

// Query1 iterates a group together with one of its required components.
// Pointers passed to the callback are valid only during that call.
type Query1[A any] struct {
	w     *World
	group *Group
	a     ComponentID
}

// NewQuery1 adds A to f's required set and resolves the group.
func NewQuery1[A any](f *Filter) (*Query1[A], error) {
	g, err := With[A](f).Find()
	if err != nil {
		return nil, err
	}
	return &Query1[A]{w: f.w, group: g, a: IDOf[A](f.w)}, nil
}

func (q *Query1[A]) Group() *Group { return q.group }
func (q *Query1[A]) Len() int      { return q.group.Len() }

// Each calls fn for every member until fn returns false. Structural
// changes made from fn should go through the world's Defer calls.
func (q *Query1[A]) Each(fn func(e Entity, a *A) bool) {
	sa := q.w.store.lookup(q.a)
	if sa == nil {
		return
	}
	q.group.Each(func(e Entity) bool {
		return fn(e, (*A)(valueOf(sa, e)))
	})
}

type Query2[A, B any] struct {
	w     *World
	group *Group
	a, b  ComponentID
}

func NewQuery2[A, B any](f *Filter) (*Query2[A, B], error) {
	g, err := With[B](With[A](f)).Find()
	if err != nil {
		return nil, err
	}
	return &Query2[A, B]{w: f.w, group: g, a: IDOf[A](f.w), b: IDOf[B](f.w)}, nil
}

func (q *Query2[A, B]) Group() *Group { return q.group }
func (q *Query2[A, B]) Len() int      { return q.group.Len() }

func (q *Query2[A, B]) Each(fn func(e Entity, a *A, b *B) bool) {
	sa, sb := q.w.store.lookup(q.a), q.w.store.lookup(q.b)
	if sa == nil || sb == nil {
		return
	}
	q.group.Each(func(e Entity) bool {
		return fn(e, (*A)(valueOf(sa, e)), (*B)(valueOf(sb, e)))
	})
}

type Query3[A, B, C any] struct {
	w       *World
	group   *Group
	a, b, c ComponentID
}

func NewQuery3[A, B, C any](f *Filter) (*Query3[A, B, C], error) {
	g, err := With[C](With[B](With[A](f))).Find()
	if err != nil {
		return nil, err
	}
	return &Query3[A, B, C]{w: f.w, group: g, a: IDOf[A](f.w), b: IDOf[B](f.w), c: IDOf[C](f.w)}, nil
}

func (q *Query3[A, B, C]) Group() *Group { return q.group }
func (q *Query3[A, B, C]) Len() int      { return q.group.Len() }

func (q *Query3[A, B, C]) Each(fn func(e Entity, a *A, b *B, c *C) bool) {
	sa, sb, sc := q.w.store.lookup(q.a), q.w.store.lookup(q.b), q.w.store.lookup(q.c)
	if sa == nil || sb == nil || sc == nil {
		return
	}
	q.group.Each(func(e Entity) bool {
		return fn(e, (*A)(valueOf(sa, e)), (*B)(valueOf(sb, e)), (*C)(valueOf(sc, e)))
	})
}

// valueOf looks up a value the group guarantees is present.
func valueOf(s *sparse.Erased, e Entity) unsafe.Pointer {
	idx, _ := s.Index(uint32(e))
	return s.ValueAt(idx)
}
