package ecs

import (
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"
	"github.com/bits-and-blooms/bitset"
	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
)

// storage maps component ids to their sparse sets. Sets are created on
// first write; an id in members always has an initialized set.
type storage struct {
	a         *alloc.Allocator
	types     *typeRegistry
	sets      []*sparse.Erased
	members   *bitset.BitSet
	denseCap  int
	sparseCap int
}

func newStorage(a *alloc.Allocator, types *typeRegistry, componentCap, denseCap, sparseCap int) *storage {
	if componentCap <= 0 {
		componentCap = 32
	}
	return &storage{
		a:         a,
		types:     types,
		sets:      make([]*sparse.Erased, componentCap),
		members:   bitset.New(uint(componentCap)),
		denseCap:  denseCap,
		sparseCap: sparseCap,
	}
}

// lookup returns the set for id, or nil when no entity ever had it.
func (s *storage) lookup(id ComponentID) *sparse.Erased {
	if int(id) >= len(s.sets) {
		return nil
	}
	return s.sets[id]
}

// ensure returns the set for id, creating it on first use.
func (s *storage) ensure(id ComponentID) (*sparse.Erased, error) {
	if set := s.lookup(id); set != nil {
		return set, nil
	}
	info, ok := s.types.info(id)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownComponent, "component id %d", id)
	}
	if int(id) >= len(s.sets) {
		grown := make([]*sparse.Erased, max(len(s.sets)*2, int(id)+1))
		copy(grown, s.sets)
		s.sets = grown
	}
	set, err := sparse.NewErased(s.a, info.Size, s.denseCap, s.sparseCap)
	if err != nil {
		return nil, eris.Wrapf(err, "create storage for %s", info.Name)
	}
	s.sets[id] = set
	s.members.Set(uint(id))
	return set, nil
}

// put writes the component value, reporting whether it was newly added.
func (s *storage) put(e Entity, id ComponentID, src unsafe.Pointer) (bool, error) {
	if s.lookup(id) == nil && src != nil {
		// creating the set allocates, which can move the value src points at
		info, _ := s.types.info(id)
		src = snapshot(src, info.Size)
	}
	set, err := s.ensure(id)
	if err != nil {
		return false, err
	}
	added := !set.Contains(uint32(e))
	set.Set(uint32(e), src)
	return added, nil
}

func (s *storage) contains(e Entity, id ComponentID) bool {
	set := s.lookup(id)
	return set != nil && set.Contains(uint32(e))
}

func (s *storage) get(e Entity, id ComponentID) (unsafe.Pointer, error) {
	set := s.lookup(id)
	if set == nil {
		return nil, eris.Wrapf(ErrComponentNotFound, "entity %d component %d", e, id)
	}
	p, err := set.Get(uint32(e))
	if err != nil {
		return nil, eris.Wrapf(ErrComponentNotFound, "entity %d component %d", e, id)
	}
	return p, nil
}

func (s *storage) remove(e Entity, id ComponentID) error {
	set := s.lookup(id)
	if set == nil || set.Remove(uint32(e)) != nil {
		return eris.Wrapf(ErrComponentNotFound, "entity %d component %d", e, id)
	}
	return nil
}

// clearAll removes every component of e, walking the member ids rather
// than assuming the set table is densely populated.
func (s *storage) clearAll(e Entity) {
	for i, ok := s.members.NextSet(0); ok; i, ok = s.members.NextSet(i + 1) {
		set := s.sets[i]
		if set.Contains(uint32(e)) {
			_ = set.Remove(uint32(e))
		}
	}
}

func (s *storage) componentsOf(e Entity) []ComponentID {
	var out []ComponentID
	for i, ok := s.members.NextSet(0); ok; i, ok = s.members.NextSet(i + 1) {
		if s.sets[i].Contains(uint32(e)) {
			out = append(out, ComponentID(i))
		}
	}
	return out
}

func (s *storage) count(id ComponentID) int {
	if set := s.lookup(id); set != nil {
		return set.Len()
	}
	return 0
}

func (s *storage) dispose() error {
	var err error
	for i, ok := s.members.NextSet(0); ok; i, ok = s.members.NextSet(i + 1) {
		err = multierr.Append(err, s.sets[i].Dispose())
		s.sets[i] = nil
	}
	s.members.ClearAll()
	return err
}

func snapshot(src unsafe.Pointer, size int) unsafe.Pointer {
	if size == 0 {
		return src
	}
	buf := make([]uint64, (size+7)/8)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&buf[0])), size), unsafe.Slice((*byte)(src), size))
	return unsafe.Pointer(&buf[0])
}
