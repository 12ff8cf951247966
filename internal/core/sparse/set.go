package sparse

import (
	"reflect"
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
	"github.com/rotisserie/eris"
)

// Set is a typed sparse set over Erased. V must be pointer-free.
type Set[V any] struct {
	e *Erased
}

// New creates a set of V values.
func New[V any](a *alloc.Allocator, denseCap, sparseCap int) (*Set[V], error) {
	t := reflect.TypeFor[V]()
	if !PointerFree(t) {
		return nil, eris.Wrapf(ErrPointerType, "type %s", t)
	}
	e, err := NewErased(a, int(t.Size()), denseCap, sparseCap)
	if err != nil {
		return nil, err
	}
	return &Set[V]{e: e}, nil
}

// MustNew is New that panics on error.
func MustNew[V any](a *alloc.Allocator, denseCap, sparseCap int) *Set[V] {
	s, err := New[V](a, denseCap, sparseCap)
	if err != nil {
		panic(err)
	}
	return s
}

// Erased exposes the untyped set.
func (s *Set[V]) Erased() *Erased { return s.e }

func (s *Set[V]) Len() int                 { return s.e.Len() }
func (s *Set[V]) Cap() int                 { return s.e.Cap() }
func (s *Set[V]) Contains(key uint32) bool { return s.e.Contains(key) }

// Set stores v under key, overwriting an existing value.
func (s *Set[V]) Set(key uint32, v V) {
	s.e.Set(key, unsafe.Pointer(&v))
}

// Add is Set.
func (s *Set[V]) Add(key uint32, v V) { s.Set(key, v) }

// Get returns a pointer to key's value, valid until the next Set or Add
// on any set sharing the allocator.
func (s *Set[V]) Get(key uint32) (*V, error) {
	p, err := s.e.Get(key)
	if err != nil {
		return nil, err
	}
	return (*V)(p), nil
}

// MustGet is Get that panics on error.
func (s *Set[V]) MustGet(key uint32) *V {
	v, err := s.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Read returns a copy of key's value.
func (s *Set[V]) Read(key uint32) (V, error) {
	p, err := s.e.Get(key)
	if err != nil {
		var zero V
		return zero, err
	}
	return *(*V)(p), nil
}

// MustRead is Read that panics on error.
func (s *Set[V]) MustRead(key uint32) V {
	v, err := s.Read(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Remove deletes key with swap-to-last removal.
func (s *Set[V]) Remove(key uint32) error { return s.e.Remove(key) }

// Clear empties the set.
func (s *Set[V]) Clear() { s.e.Clear() }

// Keys returns a copy of the keys in dense order.
func (s *Set[V]) Keys() []uint32 { return s.e.Keys() }

// Each visits entries from the last dense slot to the first until fn
// returns false. Removing the visited key inside fn is safe; the order is
// unspecified and changes with removals.
func (s *Set[V]) Each(fn func(key uint32, v *V) bool) {
	for i := s.e.Len() - 1; i >= 0; i-- {
		if i >= s.e.Len() {
			continue
		}
		if !fn(s.e.KeyAt(i), (*V)(s.e.ValueAt(i))) {
			return
		}
	}
}

// Dispose releases the set's memory.
func (s *Set[V]) Dispose() error { return s.e.Dispose() }
