package ecs

import "github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"

type GroupID uint32

// Group is the live set of entities satisfying one Matcher. Membership is
// updated on every structural change and is never stale between calls.
//
// Iteration order is unspecified and changes as members leave.
type Group struct {
	id      GroupID
	matcher *Matcher
	members *sparse.Erased
}

func (g *Group) ID() GroupID            { return g.id }
func (g *Group) Matcher() *Matcher      { return g.matcher }
func (g *Group) Len() int               { return g.members.Len() }
func (g *Group) Contains(e Entity) bool { return g.members.Contains(uint32(e)) }

// At returns the i-th member, 0 <= i < Len().
func (g *Group) At(i int) Entity { return Entity(g.members.KeyAt(i)) }

// Entities returns a copy of the current members.
func (g *Group) Entities() []Entity {
	out := make([]Entity, g.members.Len())
	for i := range out {
		out[i] = Entity(g.members.KeyAt(i))
	}
	return out
}

// Each visits members until fn returns false. Members are walked from the
// back, so destroying or filtering out the visited entity is safe; other
// structural changes during the walk are not.
func (g *Group) Each(fn func(Entity) bool) {
	for i := g.members.Len() - 1; i >= 0; i-- {
		if i >= g.members.Len() {
			continue
		}
		if !fn(Entity(g.members.KeyAt(i))) {
			return
		}
	}
}
