package ecs

import (
	"sync"
	"time"
	"unsafe"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/alloc"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/event"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/system"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options are starting capacities. Every structure grows on demand, so
// they affect performance only.
type Options struct {
	EntityCapacity    int
	ComponentCapacity int
	DenseCapacity     int
	SparseCapacity    int
	AllocatorBytes    int
	// Workers bounds parallel systems per phase; 0 means GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		EntityCapacity:    1024,
		ComponentCapacity: 32,
		DenseCapacity:     64,
		SparseCapacity:    1024,
		AllocatorBytes:    1 << 20,
	}
}

// World owns the allocator, component storage, entities, groups and
// systems. Structural changes (Create, Destroy, Replace, Remove, Find) must
// be made from one goroutine at a time; systems running in parallel use
// the Defer* calls, which are applied at the next phase barrier.
type World struct {
	id  uuid.UUID
	log *zap.Logger

	a        *alloc.Allocator
	types    *typeRegistry
	entities *entityRegistry
	store    *storage
	index    *groupIndex
	runner   *system.Runner
	bus      *event.Bus

	cmdMu    sync.Mutex
	commands []func(*World) error

	ticks    uint64
	disposed bool
}

// NewWorld creates an empty world. A nil logger discards output.
func NewWorld(opts Options, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.EntityCapacity <= 0 {
		opts.EntityCapacity = def.EntityCapacity
	}
	if opts.AllocatorBytes <= 0 {
		opts.AllocatorBytes = def.AllocatorBytes
	}
	id := uuid.New()
	w := &World{
		id:       id,
		log:      log.With(zap.String("world", id.String())),
		a:        alloc.New(opts.AllocatorBytes),
		types:    newTypeRegistry(opts.ComponentCapacity),
		entities: newEntityRegistry(opts.EntityCapacity),
		runner:   system.NewRunner(),
		bus:      event.NewBus(),
	}
	w.store = newStorage(w.a, w.types, opts.ComponentCapacity, opts.DenseCapacity, opts.SparseCapacity)
	w.index = newGroupIndex(w.a, w.store, opts.EntityCapacity, opts.DenseCapacity, opts.SparseCapacity)
	w.runner.SetWorkers(opts.Workers)
	w.runner.OnBarrier(w.Flush)
	w.a.OnGrow(func(oldSize, newSize int) {
		w.log.Debug("allocator grew", zap.Int("from", oldSize), zap.Int("to", newSize))
	})
	return w
}

func (w *World) ID() uuid.UUID       { return w.id }
func (w *World) Logger() *zap.Logger { return w.log }
func (w *World) Events() *event.Bus  { return w.bus }

// Ticks returns how many ticks have completed.
func (w *World) Ticks() uint64 { return w.ticks }

// Create issues a new entity with no components.
func (w *World) Create() (Entity, error) {
	if w.disposed {
		return Nil, ErrDisposed
	}
	e := w.entities.create()
	w.index.created(e)
	event.Emit(w.bus, EntityCreated{Entity: e})
	return e, nil
}

// MustCreate is Create that panics on error.
func (w *World) MustCreate() Entity {
	e, err := w.Create()
	if err != nil {
		panic(err)
	}
	return e
}

// Destroy removes e from its groups, clears its components and queues its
// id for reuse, in that order.
func (w *World) Destroy(e Entity) error {
	if err := w.checkAlive(e); err != nil {
		return err
	}
	w.index.destroyed(e)
	w.store.clearAll(e)
	w.entities.release(e)
	event.Emit(w.bus, EntityDestroyed{Entity: e})
	return nil
}

func (w *World) MustDestroy(e Entity) {
	if err := w.Destroy(e); err != nil {
		panic(err)
	}
}

func (w *World) Alive(e Entity) bool {
	return !w.disposed && w.entities.isAlive(e)
}

// Count returns the number of alive entities.
func (w *World) Count() int { return w.entities.count }

// Each visits alive entities in id order until fn returns false.
func (w *World) Each(fn func(Entity) bool) {
	if w.disposed {
		return
	}
	w.entities.each(fn)
}

// ReplaceRaw copies the component value at src onto e, adding the
// component if e does not have it. src must point to a value of the
// registered type; nil stores the zero value.
func (w *World) ReplaceRaw(e Entity, id ComponentID, src unsafe.Pointer) error {
	if err := w.checkAlive(e); err != nil {
		return err
	}
	added, err := w.store.put(e, id, src)
	if err != nil {
		return err
	}
	if added {
		w.index.changed(e, id)
	}
	return nil
}

// RemoveID removes component id from e. Removing a component e does not
// have is an error.
func (w *World) RemoveID(e Entity, id ComponentID) error {
	if err := w.checkAlive(e); err != nil {
		return err
	}
	if err := w.store.remove(e, id); err != nil {
		return err
	}
	w.index.changed(e, id)
	return nil
}

func (w *World) HasID(e Entity, id ComponentID) bool {
	return w.Alive(e) && w.store.contains(e, id)
}

// GetID returns the address of e's component id. The address is valid
// until the next structural change.
func (w *World) GetID(e Entity, id ComponentID) (unsafe.Pointer, error) {
	if err := w.checkAlive(e); err != nil {
		return nil, err
	}
	return w.store.get(e, id)
}

// Replace sets e's T component, adding it if absent.
func Replace[T any](w *World, e Entity, v T) error {
	id, err := Register[T](w)
	if err != nil {
		return err
	}
	return w.ReplaceRaw(e, id, unsafe.Pointer(&v))
}

func MustReplace[T any](w *World, e Entity, v T) {
	if err := Replace(w, e, v); err != nil {
		panic(err)
	}
}

func Remove[T any](w *World, e Entity) error {
	id, ok := LookupID[T](w)
	if !ok {
		if err := w.checkAlive(e); err != nil {
			return err
		}
		return eris.Wrapf(ErrComponentNotFound, "entity %d", e)
	}
	return w.RemoveID(e, id)
}

func MustRemove[T any](w *World, e Entity) {
	if err := Remove[T](w, e); err != nil {
		panic(err)
	}
}

func Has[T any](w *World, e Entity) bool {
	id, ok := LookupID[T](w)
	return ok && w.HasID(e, id)
}

// Get returns a pointer to e's T component. The pointer is valid until the
// next structural change.
func Get[T any](w *World, e Entity) (*T, error) {
	id, ok := LookupID[T](w)
	if !ok {
		if err := w.checkAlive(e); err != nil {
			return nil, err
		}
		return nil, eris.Wrapf(ErrComponentNotFound, "entity %d", e)
	}
	p, err := w.GetID(e, id)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

func MustGet[T any](w *World, e Entity) *T {
	p, err := Get[T](w, e)
	if err != nil {
		panic(err)
	}
	return p
}

// Read returns a copy of e's T component.
func Read[T any](w *World, e Entity) (T, error) {
	p, err := Get[T](w, e)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

func MustRead[T any](w *World, e Entity) T {
	v, err := Read[T](w, e)
	if err != nil {
		panic(err)
	}
	return v
}

// AddSystem registers s with the world's runner.
func (w *World) AddSystem(s system.System) {
	w.runner.Register(s)
}

// Tick delivers last tick's events, applies deferred commands and runs
// every system phase. Deferred commands are applied again after each phase.
func (w *World) Tick(dt time.Duration) error {
	if w.disposed {
		return ErrDisposed
	}
	w.bus.SwapBuffers()
	w.bus.DispatchAll()
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.runner.Tick(dt); err != nil {
		return err
	}
	w.ticks++
	return nil
}

// Stats is a snapshot of world sizes.
type Stats struct {
	Entities   int
	Components int
	Groups     int
	Matchers   int
	Ticks      uint64
	Systems    int
	Allocator  alloc.Stats
}

func (w *World) Stats() Stats {
	return Stats{
		Entities:   w.entities.count,
		Components: len(w.types.infos),
		Groups:     len(w.index.groups),
		Matchers:   len(w.index.matchers),
		Ticks:      w.ticks,
		Systems:    w.runner.Len(),
		Allocator:  w.a.Stats(),
	}
}

// Verify recomputes every group from component storage and reports the
// first membership that disagrees with its matcher. Meant for tests and
// debug tooling; it scans every entity once per group.
func (w *World) Verify() error {
	if w.disposed {
		return ErrDisposed
	}
	if g, e, ok := w.index.verify(w.entities); !ok {
		return eris.Errorf("ecs: group %d membership of entity %d diverges from its matcher", g.id, e)
	}
	return w.a.Validate()
}

// Dispose frees every sparse set and the allocator buffer. Entities,
// groups and component pointers obtained earlier become invalid.
func (w *World) Dispose() error {
	if w.disposed {
		return ErrDisposed
	}
	err := multierr.Combine(w.index.dispose(), w.store.dispose())
	stats := w.a.Stats()
	w.a.Dispose()
	w.disposed = true
	w.log.Debug("world disposed",
		zap.Uint64("ticks", w.ticks),
		zap.Int("leaked_bytes", stats.Used),
	)
	return err
}

func (w *World) checkAlive(e Entity) error {
	if w.disposed {
		return ErrDisposed
	}
	if !w.entities.isAlive(e) {
		return eris.Wrapf(ErrNotAlive, "entity %d", e)
	}
	return nil
}
