package ecs

import (
	"errors"
	"testing"
)

func TestQuery2WritesThrough(t *testing.T) {
	w := newTestWorld(t)
	moving := w.MustCreate()
	MustReplace(w, moving, position{})
	MustReplace(w, moving, velocity{X: 1, Y: 2})
	still := w.MustCreate()
	MustReplace(w, still, position{X: 9})

	q, err := NewQuery2[position, velocity](w.Filter())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		q.Each(func(e Entity, p *position, v *velocity) bool {
			p.X += v.X
			p.Y += v.Y
			return true
		})
	}
	if got := MustRead[position](w, moving); got != (position{3, 6}) {
		t.Fatalf("moving at %v", got)
	}
	if got := MustRead[position](w, still); got != (position{X: 9}) {
		t.Fatalf("still moved to %v", got)
	}
	if q.Len() != 1 {
		t.Fatalf("query len %d", q.Len())
	}
}

func TestQuerySharesGroupWithFilter(t *testing.T) {
	w := newTestWorld(t)
	q, err := NewQuery2[position, velocity](None[frozen](w.Filter()))
	if err != nil {
		t.Fatal(err)
	}
	g := None[frozen](With[velocity](With[position](w.Filter()))).MustFind()
	if q.Group() != g {
		t.Fatal("query built its own group")
	}
}

func TestQuery3AndEarlyStop(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 5; i++ {
		e := w.MustCreate()
		MustReplace(w, e, position{})
		MustReplace(w, e, velocity{})
		MustReplace(w, e, health{HP: 1})
	}
	q, err := NewQuery3[position, velocity, health](w.Filter())
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	q.Each(func(Entity, *position, *velocity, *health) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Fatalf("visited %d after stop", n)
	}
}

func TestQueryBeforeAnyComponent(t *testing.T) {
	w := newTestWorld(t)
	q, err := NewQuery1[health](w.Filter())
	if err != nil {
		t.Fatal(err)
	}
	q.Each(func(Entity, *health) bool {
		t.Fatal("visited an entity")
		return false
	})
	e := w.MustCreate()
	MustReplace(w, e, health{HP: 4})
	total := int32(0)
	q.Each(func(_ Entity, h *health) bool {
		total += h.HP
		return true
	})
	if total != 4 {
		t.Fatalf("total %d", total)
	}
}

func TestQueryRejectsPointerComponents(t *testing.T) {
	w := newTestWorld(t)
	if _, err := NewQuery1[withSlice](w.Filter()); !errors.Is(err, ErrPointerType) {
		t.Fatalf("expected ErrPointerType, got %v", err)
	}
}
