package system

import (
	"time"

	"github.com/DesertImage/ecs-burst-sub000/internal/component"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	coresys "github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

// MovementSystem integrates Velocity into Position for every entity that
// is not Frozen. Phase 2 (Update), parallel: it only writes Position values
// already present.
type MovementSystem struct {
	query *ecs.Query2[component.Position, component.Velocity]
}

func NewMovementSystem(w *ecs.World) (*MovementSystem, error) {
	q, err := ecs.NewQuery2[component.Position, component.Velocity](ecs.None[component.Frozen](w.Filter()))
	if err != nil {
		return nil, err
	}
	return &MovementSystem{query: q}, nil
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }
func (s *MovementSystem) Parallel() bool       { return true }
func (s *MovementSystem) Name() string         { return "movement" }

func (s *MovementSystem) Update(dt time.Duration) error {
	sec := float32(dt.Seconds())
	s.query.Each(func(_ ecs.Entity, p *component.Position, v *component.Velocity) bool {
		p.X += v.X * sec
		p.Y += v.Y * sec
		return true
	})
	return nil
}
