package ecs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/event"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

type funcSystem struct {
	phase    system.Phase
	parallel bool
	fn       func(dt time.Duration) error
}

func (s funcSystem) Phase() system.Phase           { return s.phase }
func (s funcSystem) Parallel() bool                { return s.parallel }
func (s funcSystem) Update(dt time.Duration) error { return s.fn(dt) }

func TestDeferredCommandsApplyAtBarrier(t *testing.T) {
	w := newTestWorld(t)
	g := With[health](w.Filter()).MustFind()
	var e Entity
	var sawDuringPhase, sawNextPhase bool

	w.AddSystem(funcSystem{phase: system.PhaseUpdate, fn: func(time.Duration) error {
		e = w.MustCreate()
		DeferReplace(w, e, health{HP: 3})
		sawDuringPhase = g.Contains(e)
		return nil
	}})
	w.AddSystem(funcSystem{phase: system.PhasePostUpdate, fn: func(time.Duration) error {
		sawNextPhase = g.Contains(e)
		return nil
	}})

	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if sawDuringPhase {
		t.Fatal("deferred replace applied before the barrier")
	}
	if !sawNextPhase {
		t.Fatal("deferred replace not applied at the barrier")
	}
	if w.Ticks() != 1 {
		t.Fatalf("ticks = %d", w.Ticks())
	}
}

func TestDeferDestroyFromParallelSystems(t *testing.T) {
	w := newTestWorld(t)
	var es []Entity
	for i := 0; i < 16; i++ {
		e := w.MustCreate()
		MustReplace(w, e, health{HP: int32(i % 2)})
		es = append(es, e)
	}
	q, err := NewQuery1[health](w.Filter())
	if err != nil {
		t.Fatal(err)
	}
	// both systems mark the same entities; the second destroy is skipped
	for i := 0; i < 2; i++ {
		w.AddSystem(funcSystem{phase: system.PhaseUpdate, parallel: true, fn: func(time.Duration) error {
			q.Each(func(e Entity, h *health) bool {
				if h.HP == 0 {
					w.DeferDestroy(e)
				}
				return true
			})
			return nil
		}})
	}
	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if w.Count() != 8 || q.Len() != 8 {
		t.Fatalf("%d alive, %d in query", w.Count(), q.Len())
	}
	for i, e := range es {
		if w.Alive(e) != (i%2 == 1) {
			t.Fatalf("entity %d liveness wrong", e)
		}
	}
}

func TestFlushCombinesErrors(t *testing.T) {
	w := newTestWorld(t)
	e := w.MustCreate()
	w.MustDestroy(e)
	ran := false
	w.Defer(func(w *World) error { return Replace(w, e, health{}) })
	w.Defer(func(*World) error { ran = true; return nil })
	w.Defer(func(w *World) error { return w.Destroy(e) })

	err := w.Flush()
	if !errors.Is(err, ErrNotAlive) {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
	if !ran {
		t.Fatal("a failing command stopped the queue")
	}
	if w.Pending() != 0 {
		t.Fatal("queue not drained")
	}
}

func TestFlushRunsNestedCommands(t *testing.T) {
	w := newTestWorld(t)
	var order []int
	w.Defer(func(w *World) error {
		order = append(order, 1)
		w.Defer(func(*World) error { order = append(order, 3); return nil })
		return nil
	})
	w.Defer(func(*World) error { order = append(order, 2); return nil })
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order %v", order)
	}
}

func TestDeferConcurrentEnqueue(t *testing.T) {
	w := newTestWorld(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.Defer(func(*World) error { return nil })
			}
		}()
	}
	wg.Wait()
	if w.Pending() != 800 {
		t.Fatalf("pending = %d", w.Pending())
	}
}

func TestLifecycleEventsNextTick(t *testing.T) {
	w := newTestWorld(t)
	var created, destroyed []Entity
	event.Subscribe(w.Events(), func(ev EntityCreated) { created = append(created, ev.Entity) })
	event.Subscribe(w.Events(), func(ev EntityDestroyed) { destroyed = append(destroyed, ev.Entity) })

	e := w.MustCreate()
	w.MustDestroy(e)
	if len(created) != 0 {
		t.Fatal("event delivered in the same tick")
	}
	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0] != e || len(destroyed) != 1 || destroyed[0] != e {
		t.Fatalf("created %v destroyed %v", created, destroyed)
	}
	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatal("event delivered twice")
	}
}

func TestTickAfterDispose(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := w.Tick(time.Millisecond); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}
