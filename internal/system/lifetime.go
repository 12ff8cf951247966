package system

import (
	"time"

	"github.com/DesertImage/ecs-burst-sub000/internal/component"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	coresys "github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

// LifetimeSystem counts Lifetime down and queues expired entities for
// destruction. Phase 2 (Update), parallel; the destroys are applied at the
// end of the phase.
type LifetimeSystem struct {
	w     *ecs.World
	query *ecs.Query1[component.Lifetime]
}

func NewLifetimeSystem(w *ecs.World) (*LifetimeSystem, error) {
	q, err := ecs.NewQuery1[component.Lifetime](w.Filter())
	if err != nil {
		return nil, err
	}
	return &LifetimeSystem{w: w, query: q}, nil
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }
func (s *LifetimeSystem) Parallel() bool       { return true }
func (s *LifetimeSystem) Name() string         { return "lifetime" }

func (s *LifetimeSystem) Update(dt time.Duration) error {
	sec := float32(dt.Seconds())
	s.query.Each(func(e ecs.Entity, l *component.Lifetime) bool {
		l.Remaining -= sec
		if l.Remaining <= 0 {
			s.w.DeferDestroy(e)
		}
		return true
	})
	return nil
}
