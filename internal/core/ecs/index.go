package ecs

import (
	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"
	"github.com/bits-and-blooms/bitset"
	"github.com/kamstrup/intmap"
	"go.uber.org/multierr"
)

// groupIndex keeps every group's membership in step with component
// storage. A component change only visits the groups the entity is already
// in and the groups registered against that component.
type groupIndex struct {
	a     *alloc.Allocator
	store *storage

	matchers    []*Matcher
	groups      []*Group
	byComponent *intmap.Map[ComponentID, []GroupID]
	byMatcher   *intmap.Map[MatcherID, GroupID]
	// groups that accept an entity with no components; fed on create
	unconditional []GroupID
	// memberships[e] lists the groups e belongs to
	memberships [][]GroupID

	denseCap  int
	sparseCap int
}

func newGroupIndex(a *alloc.Allocator, store *storage, entityCap, denseCap, sparseCap int) *groupIndex {
	return &groupIndex{
		a:           a,
		store:       store,
		byComponent: intmap.New[ComponentID, []GroupID](32),
		byMatcher:   intmap.New[MatcherID, GroupID](32),
		memberships: make([][]GroupID, entityCap+1),
		denseCap:    denseCap,
		sparseCap:   sparseCap,
	}
}

// intern returns the matcher with this content, creating it if needed.
func (x *groupIndex) intern(all, none, anyOf []ComponentID) *Matcher {
	allBits, noneBits, anyBits := toBits(all), toBits(none), toBits(anyOf)
	for _, m := range x.matchers {
		if m.equals(allBits, noneBits, anyBits) {
			return m
		}
	}
	m := newMatcher(MatcherID(len(x.matchers)), all, none, anyOf)
	x.matchers = append(x.matchers, m)
	return m
}

// find returns the group for the matcher, creating and back-filling it on
// first request. created reports whether a new group was built.
func (x *groupIndex) find(m *Matcher, entities *entityRegistry) (g *Group, created bool, err error) {
	if gid, ok := x.byMatcher.Get(m.id); ok {
		return x.groups[gid], false, nil
	}
	members, err := sparse.NewErased(x.a, 0, x.denseCap, x.sparseCap)
	if err != nil {
		return nil, false, err
	}
	g = &Group{id: GroupID(len(x.groups)), matcher: m, members: members}
	x.groups = append(x.groups, g)
	x.byMatcher.Put(m.id, g.id)
	for i, ok := m.components.NextSet(0); ok; i, ok = m.components.NextSet(i + 1) {
		id := ComponentID(i)
		list, _ := x.byComponent.Get(id)
		x.byComponent.Put(id, append(list, g.id))
	}
	if m.unconditional() {
		x.unconditional = append(x.unconditional, g.id)
	}

	entities.each(func(e Entity) bool {
		if m.check(x.store, e) {
			x.join(g, e)
		}
		return true
	})
	return g, true, nil
}

// created registers an empty membership record for e.
func (x *groupIndex) created(e Entity) {
	if int(e) >= len(x.memberships) {
		grown := make([][]GroupID, max(len(x.memberships)*2, int(e)+1))
		copy(grown, x.memberships)
		x.memberships = grown
	}
	x.memberships[e] = x.memberships[e][:0]
	for _, gid := range x.unconditional {
		g := x.groups[gid]
		if g.matcher.check(x.store, e) {
			x.join(g, e)
		}
	}
}

// destroyed drops e from every group it belongs to.
func (x *groupIndex) destroyed(e Entity) {
	for _, gid := range x.memberships[e] {
		_ = x.groups[gid].members.Remove(uint32(e))
	}
	x.memberships[e] = x.memberships[e][:0]
}

// changed re-evaluates e after component id was added or removed. Groups
// e is in are checked first, so a group e leaves here is not re-joined
// from the component list below unless it matches again.
func (x *groupIndex) changed(e Entity, id ComponentID) {
	owned := x.memberships[e]
	for i := len(owned) - 1; i >= 0; i-- {
		g := x.groups[owned[i]]
		if g.matcher.References(id) && !g.matcher.check(x.store, e) {
			x.leaveAt(e, i)
			owned = x.memberships[e]
		}
	}
	list, _ := x.byComponent.Get(id)
	for _, gid := range list {
		g := x.groups[gid]
		if !g.Contains(e) && g.matcher.check(x.store, e) {
			x.join(g, e)
		}
	}
}

func (x *groupIndex) join(g *Group, e Entity) {
	g.members.Set(uint32(e), nil)
	x.memberships[e] = append(x.memberships[e], g.id)
}

// leaveAt removes the i-th membership of e.
func (x *groupIndex) leaveAt(e Entity, i int) {
	owned := x.memberships[e]
	_ = x.groups[owned[i]].members.Remove(uint32(e))
	last := len(owned) - 1
	owned[i] = owned[last]
	x.memberships[e] = owned[:last]
}

// groupsOf returns the ids of the groups e belongs to.
func (x *groupIndex) groupsOf(e Entity) []GroupID {
	if int(e) >= len(x.memberships) {
		return nil
	}
	return append([]GroupID(nil), x.memberships[e]...)
}

// verify recomputes every group against storage and returns the first
// group whose membership disagrees with its matcher.
func (x *groupIndex) verify(entities *entityRegistry) (*Group, Entity, bool) {
	for _, g := range x.groups {
		var bad Entity
		entities.each(func(e Entity) bool {
			if g.Contains(e) != g.matcher.check(x.store, e) {
				bad = e
				return false
			}
			return true
		})
		if bad != Nil {
			return g, bad, false
		}
		seen := bitset.New(uint(entities.highest()) + 1)
		for i := 0; i < g.Len(); i++ {
			e := g.At(i)
			if !entities.isAlive(e) || seen.Test(uint(e)) {
				return g, e, false
			}
			seen.Set(uint(e))
		}
	}
	return nil, Nil, true
}

func (x *groupIndex) dispose() error {
	var err error
	for _, g := range x.groups {
		err = multierr.Append(err, g.members.Dispose())
	}
	x.byComponent.Clear()
	x.byMatcher.Clear()
	x.unconditional = nil
	x.memberships = nil
	return err
}
