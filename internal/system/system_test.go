package system

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DesertImage/ecs-burst-sub000/internal/component"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
)

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	w := ecs.NewWorld(ecs.DefaultOptions(), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = w.Dispose() })
	if err := component.Register(w); err != nil {
		t.Fatal(err)
	}
	return w
}

func spawn(t *testing.T, w *ecs.World, p component.Position, v component.Velocity) ecs.Entity {
	t.Helper()
	e := w.MustCreate()
	ecs.MustReplace(w, e, p)
	ecs.MustReplace(w, e, v)
	return e
}

func TestMovementSkipsFrozen(t *testing.T) {
	w := newWorld(t)
	moving := spawn(t, w, component.Position{}, component.Velocity{X: 2, Y: -1})
	frozen := spawn(t, w, component.Position{X: 5}, component.Velocity{X: 2})
	ecs.MustReplace(w, frozen, component.Frozen{})

	ms, err := NewMovementSystem(w)
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(ms)
	for i := 0; i < 4; i++ {
		if err := w.Tick(500 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if got := ecs.MustRead[component.Position](w, moving); got != (component.Position{X: 4, Y: -2}) {
		t.Fatalf("moving at %+v", got)
	}
	if got := ecs.MustRead[component.Position](w, frozen); got != (component.Position{X: 5}) {
		t.Fatalf("frozen moved to %+v", got)
	}

	ecs.MustRemove[component.Frozen](w, frozen)
	if err := w.Tick(time.Second); err != nil {
		t.Fatal(err)
	}
	if got := ecs.MustRead[component.Position](w, frozen); got != (component.Position{X: 7}) {
		t.Fatalf("thawed entity at %+v", got)
	}
}

func TestLifetimeDestroysAtBarrier(t *testing.T) {
	w := newWorld(t)
	short := w.MustCreate()
	ecs.MustReplace(w, short, component.Lifetime{Remaining: 1})
	long := w.MustCreate()
	ecs.MustReplace(w, long, component.Lifetime{Remaining: 3})

	ls, err := NewLifetimeSystem(w)
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(ls)
	if err := w.Tick(time.Second); err != nil {
		t.Fatal(err)
	}
	if w.Alive(short) || !w.Alive(long) {
		t.Fatalf("alive after 1s: short=%v long=%v", w.Alive(short), w.Alive(long))
	}
	if w.Pending() != 0 {
		t.Fatalf("%d commands left queued", w.Pending())
	}
	if got := ecs.MustRead[component.Lifetime](w, long).Remaining; got != 2 {
		t.Fatalf("remaining %v", got)
	}
	for i := 0; i < 2; i++ {
		if err := w.Tick(time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if w.Count() != 0 {
		t.Fatalf("%d entities left", w.Count())
	}
}

func TestParallelSystemsShareAPhase(t *testing.T) {
	w := newWorld(t)
	e := spawn(t, w, component.Position{}, component.Velocity{X: 1})
	ecs.MustReplace(w, e, component.Lifetime{Remaining: 2.5})
	for i := 0; i < 50; i++ {
		x := spawn(t, w, component.Position{}, component.Velocity{Y: 1})
		ecs.MustReplace(w, x, component.Lifetime{Remaining: float32(i % 3)})
	}

	ms, err := NewMovementSystem(w)
	if err != nil {
		t.Fatal(err)
	}
	ls, err := NewLifetimeSystem(w)
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(ms)
	w.AddSystem(ls)
	for i := 0; i < 2; i++ {
		if err := w.Tick(time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if got := ecs.MustRead[component.Position](w, e); got.X != 2 {
		t.Fatalf("position %+v", got)
	}
	if w.Count() != 1 {
		t.Fatalf("%d alive, want 1", w.Count())
	}
	if err := w.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestCleanupOutOfBounds(t *testing.T) {
	w := newWorld(t)
	inside := spawn(t, w, component.Position{X: 1, Y: 1}, component.Velocity{})
	outside := spawn(t, w, component.Position{X: 11}, component.Velocity{})
	noPos := w.MustCreate()

	cs, err := NewCleanupSystem(w, Bounds{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10})
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(cs)
	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !w.Alive(inside) || w.Alive(outside) || !w.Alive(noPos) {
		t.Fatal("wrong entities destroyed")
	}
}

func TestCleanupDisabledByZeroBounds(t *testing.T) {
	w := newWorld(t)
	e := spawn(t, w, component.Position{X: 1e6}, component.Velocity{})
	cs, err := NewCleanupSystem(w, Bounds{})
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(cs)
	if err := w.Tick(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !w.Alive(e) {
		t.Fatal("zero bounds destroyed an entity")
	}
}

func TestStatsReportsLifecycleCounts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := newWorld(t)
	w.AddSystem(NewStatsSystem(w, 2, false, zap.New(core)))

	a := w.MustCreate()
	w.MustCreate()
	w.MustDestroy(a)
	for i := 0; i < 4; i++ {
		if err := w.Tick(time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	reports := logs.FilterMessage("world stats").All()
	if len(reports) != 2 {
		t.Fatalf("%d reports, want 2", len(reports))
	}
	first := reports[0].ContextMap()
	if first["created"] != int64(2) || first["destroyed"] != int64(1) || first["entities"] != int64(1) {
		t.Fatalf("first report %v", first)
	}
	second := reports[1].ContextMap()
	if second["created"] != int64(0) || second["destroyed"] != int64(0) {
		t.Fatalf("second report %v", second)
	}
}

func TestStatsDumpOnlyAtDebug(t *testing.T) {
	for _, level := range []zapcore.Level{zapcore.InfoLevel, zapcore.DebugLevel} {
		core, logs := observer.New(level)
		w := newWorld(t)
		w.AddSystem(NewStatsSystem(w, 1, true, zap.New(core)))
		w.MustCreate()
		if err := w.Tick(time.Millisecond); err != nil {
			t.Fatal(err)
		}
		tables := logs.FilterMessage("world table").All()
		if level == zapcore.InfoLevel && len(tables) != 0 {
			t.Fatal("table logged with debug disabled")
		}
		if level == zapcore.DebugLevel {
			if len(tables) != 1 {
				t.Fatalf("%d tables at debug level", len(tables))
			}
			if table, _ := tables[0].ContextMap()["table"].(string); !strings.Contains(table, "Position") {
				t.Fatalf("table field %q", table)
			}
		}
	}
}
