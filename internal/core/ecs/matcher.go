package ecs

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// MatcherID is stable for the lifetime of a World. Matchers with the same
// all/none/any content share one id.
type MatcherID uint32

// Matcher is an immutable predicate over component ids.
type Matcher struct {
	id         MatcherID
	all        *bitset.BitSet
	none       *bitset.BitSet
	any        *bitset.BitSet
	components *bitset.BitSet

	allIDs  []ComponentID
	noneIDs []ComponentID
	anyIDs  []ComponentID
}

func newMatcher(id MatcherID, all, none, anyOf []ComponentID) *Matcher {
	m := &Matcher{
		id:      id,
		allIDs:  normalize(all),
		noneIDs: normalize(none),
		anyIDs:  normalize(anyOf),
	}
	m.all = toBits(m.allIDs)
	m.none = toBits(m.noneIDs)
	m.any = toBits(m.anyIDs)
	m.components = m.all.Union(m.none).Union(m.any)
	return m
}

func (m *Matcher) ID() MatcherID { return m.id }

func (m *Matcher) AllOf() []ComponentID  { return slices.Clone(m.allIDs) }
func (m *Matcher) NoneOf() []ComponentID { return slices.Clone(m.noneIDs) }
func (m *Matcher) AnyOf() []ComponentID  { return slices.Clone(m.anyIDs) }

// References reports whether a change to component id can change the
// outcome of Check.
func (m *Matcher) References(id ComponentID) bool {
	return m.components.Test(uint(id))
}

// unconditional matchers accept an entity with no components at all.
func (m *Matcher) unconditional() bool {
	return len(m.allIDs) == 0 && len(m.anyIDs) == 0
}

// check evaluates none, then all, then any.
func (m *Matcher) check(s *storage, e Entity) bool {
	for _, id := range m.noneIDs {
		if s.contains(e, id) {
			return false
		}
	}
	for _, id := range m.allIDs {
		if !s.contains(e, id) {
			return false
		}
	}
	if len(m.anyIDs) == 0 {
		return true
	}
	for _, id := range m.anyIDs {
		if s.contains(e, id) {
			return true
		}
	}
	return false
}

// equals compares content, ignoring order and duplicates.
func (m *Matcher) equals(all, none, anyOf *bitset.BitSet) bool {
	return sameBits(m.all, all) && sameBits(m.none, none) && sameBits(m.any, anyOf)
}

// BitSet.Equal also compares lengths, which differ for equal content
// built from differently sized inputs.
func sameBits(a, b *bitset.BitSet) bool {
	return a.SymmetricDifferenceCardinality(b) == 0
}

func toBits(ids []ComponentID) *bitset.BitSet {
	b := bitset.New(0)
	for _, id := range ids {
		b.Set(uint(id))
	}
	return b
}

func normalize(ids []ComponentID) []ComponentID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
