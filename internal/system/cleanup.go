package system

import (
	"time"

	"github.com/DesertImage/ecs-burst-sub000/internal/component"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	coresys "github.com/DesertImage/ecs-burst-sub000/internal/core/system"
)

// Bounds is an axis-aligned rectangle in world units.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float32
}

func (b Bounds) Contains(p component.Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// CleanupSystem destroys entities that have moved outside the world bounds.
// Phase 5 (Cleanup). A zero Bounds disables it.
type CleanupSystem struct {
	w      *ecs.World
	bounds Bounds
	query  *ecs.Query1[component.Position]
}

func NewCleanupSystem(w *ecs.World, bounds Bounds) (*CleanupSystem, error) {
	q, err := ecs.NewQuery1[component.Position](w.Filter())
	if err != nil {
		return nil, err
	}
	return &CleanupSystem{w: w, bounds: bounds, query: q}, nil
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s *CleanupSystem) Name() string         { return "cleanup" }

func (s *CleanupSystem) Update(_ time.Duration) error {
	if s.bounds == (Bounds{}) {
		return nil
	}
	s.query.Each(func(e ecs.Entity, p *component.Position) bool {
		if !s.bounds.Contains(*p) {
			s.w.DeferDestroy(e)
		}
		return true
	})
	return nil
}
