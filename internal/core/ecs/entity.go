package ecs

import "github.com/bits-and-blooms/bitset"

// Entity is a bare id. Liveness is tracked by the world that issued it;
// ids are recycled after Destroy.
type Entity uint32

// Nil is never issued.
const Nil Entity = 0

// entityRegistry issues ids from a monotonic counter and recycles destroyed
// ids first-in first-out.
type entityRegistry struct {
	alive *bitset.BitSet
	free  []Entity
	head  int // first queued id in free
	last  Entity
	count int
}

func newEntityRegistry(capacity int) *entityRegistry {
	if capacity <= 0 {
		capacity = 1024
	}
	return &entityRegistry{
		alive: bitset.New(uint(capacity)),
		free:  make([]Entity, 0, capacity/4),
	}
}

func (r *entityRegistry) create() Entity {
	var e Entity
	if r.head < len(r.free) {
		e = r.free[r.head]
		r.head++
		if r.head == len(r.free) {
			r.free = r.free[:0]
			r.head = 0
		}
	} else {
		r.last++
		e = r.last
	}
	r.alive.Set(uint(e))
	r.count++
	return e
}

// release marks e dead and queues its id for reuse.
func (r *entityRegistry) release(e Entity) {
	r.alive.Clear(uint(e))
	r.count--
	if r.head > 0 && r.head >= len(r.free)/2 {
		n := copy(r.free, r.free[r.head:])
		r.free = r.free[:n]
		r.head = 0
	}
	r.free = append(r.free, e)
}

func (r *entityRegistry) isAlive(e Entity) bool {
	return e != Nil && r.alive.Test(uint(e))
}

// each visits alive entities in id order until fn returns false.
func (r *entityRegistry) each(fn func(Entity) bool) {
	for i, ok := r.alive.NextSet(1); ok; i, ok = r.alive.NextSet(i + 1) {
		if !fn(Entity(i)) {
			return
		}
	}
}

// highest returns the largest id ever issued.
func (r *entityRegistry) highest() Entity { return r.last }
