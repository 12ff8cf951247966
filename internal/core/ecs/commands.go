package ecs

import "go.uber.org/multierr"

// Defer queues fn to run on the world's goroutine at the next Flush. Safe
// to call from parallel systems.
func (w *World) Defer(fn func(*World) error) {
	w.cmdMu.Lock()
	w.commands = append(w.commands, fn)
	w.cmdMu.Unlock()
}

// DeferDestroy queues e for destruction. Entities already gone by the time
// the queue is applied are skipped, so several systems may mark the same
// entity in one tick.
func (w *World) DeferDestroy(e Entity) {
	w.Defer(func(w *World) error {
		if !w.Alive(e) {
			return nil
		}
		return w.Destroy(e)
	})
}

// DeferReplace queues a Replace of e's T component.
func DeferReplace[T any](w *World, e Entity, v T) {
	w.Defer(func(w *World) error { return Replace(w, e, v) })
}

// DeferRemove queues a Remove of e's T component. A component already gone
// when the queue is applied is skipped.
func DeferRemove[T any](w *World, e Entity) {
	w.Defer(func(w *World) error {
		if !Has[T](w, e) {
			return nil
		}
		return Remove[T](w, e)
	})
}

// Pending returns the number of queued commands.
func (w *World) Pending() int {
	w.cmdMu.Lock()
	defer w.cmdMu.Unlock()
	return len(w.commands)
}

// Flush applies queued commands in order, including commands queued while
// flushing. Every command runs; their errors are combined.
func (w *World) Flush() error {
	var errs error
	for {
		w.cmdMu.Lock()
		batch := w.commands
		w.commands = nil
		w.cmdMu.Unlock()
		if len(batch) == 0 {
			return errs
		}
		for _, fn := range batch {
			errs = multierr.Append(errs, fn(w))
		}
	}
}
