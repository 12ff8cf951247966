package system

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner executes systems in phase order each tick.
//
// Within a phase, sequential systems run first in registration order, then
// all parallel systems run together. The phase ends when every system has
// returned; the barrier hook then runs on the calling goroutine before the
// next phase starts.
type Runner struct {
	systems []System
	sorted  bool
	workers int
	barrier func() error
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		workers: runtime.GOMAXPROCS(0),
	}
}

// SetWorkers bounds how many parallel systems run at once. n <= 0 means GOMAXPROCS.
func (r *Runner) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	r.workers = n
}

// OnBarrier installs a hook run after each phase.
func (r *Runner) OnBarrier(fn func() error) {
	r.barrier = fn
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) Tick(dt time.Duration) error {
	r.ensureSorted()
	for i := 0; i < len(r.systems); {
		j := i
		for j < len(r.systems) && r.systems[j].Phase() == r.systems[i].Phase() {
			j++
		}
		if err := r.runPhase(r.systems[i:j], dt); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// TickPhase runs only the systems of the given phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) error {
	r.ensureSorted()
	start := sort.Search(len(r.systems), func(i int) bool { return r.systems[i].Phase() >= phase })
	end := start
	for end < len(r.systems) && r.systems[end].Phase() == phase {
		end++
	}
	if start == end {
		return nil
	}
	return r.runPhase(r.systems[start:end], dt)
}

func (r *Runner) runPhase(systems []System, dt time.Duration) error {
	var parallel []System
	for _, s := range systems {
		if isParallel(s) {
			parallel = append(parallel, s)
			continue
		}
		if err := s.Update(dt); err != nil {
			return wrap(s, err)
		}
	}

	if len(parallel) > 0 {
		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(r.workers)
		for _, s := range parallel {
			g.Go(func() error {
				if err := s.Update(dt); err != nil {
					return wrap(s, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if r.barrier != nil {
		if err := r.barrier(); err != nil {
			return fmt.Errorf("%s barrier: %w", systems[0].Phase(), err)
		}
	}
	return nil
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

func isParallel(s System) bool {
	p, ok := s.(Parallel)
	return ok && p.Parallel()
}

func wrap(s System, err error) error {
	name := fmt.Sprintf("%T", s)
	if n, ok := s.(Named); ok {
		name = n.Name()
	}
	return fmt.Errorf("system %s (%s): %w", name, s.Phase(), err)
}
