package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/event"
	coresys "github.com/DesertImage/ecs-burst-sub000/internal/core/system"
	"github.com/DesertImage/ecs-burst-sub000/internal/inspect"
)

// StatsSystem logs world statistics every `every` ticks, along with how
// many entities were created and destroyed since the previous report.
// Phase 4 (Output).
type StatsSystem struct {
	w         *ecs.World
	log       *zap.Logger
	every     int
	dump      bool
	tickCount int
	created   int
	destroyed int
}

// NewStatsSystem subscribes to entity lifecycle events. With dump set, each
// report also writes the inspect table at debug level.
func NewStatsSystem(w *ecs.World, every int, dump bool, log *zap.Logger) *StatsSystem {
	s := &StatsSystem{w: w, log: log, every: every, dump: dump}
	event.Subscribe(w.Events(), func(ecs.EntityCreated) { s.created++ })
	event.Subscribe(w.Events(), func(ecs.EntityDestroyed) { s.destroyed++ })
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }
func (s *StatsSystem) Name() string         { return "stats" }

func (s *StatsSystem) Update(_ time.Duration) error {
	s.tickCount++
	if s.every <= 0 || s.tickCount%s.every != 0 {
		return nil
	}
	st := s.w.Stats()
	s.log.Info("world stats",
		zap.Uint64("tick", st.Ticks),
		zap.Int("entities", st.Entities),
		zap.Int("created", s.created),
		zap.Int("destroyed", s.destroyed),
		zap.Int("groups", st.Groups),
		zap.Int("bytes_used", st.Allocator.Used),
		zap.Int("bytes_size", st.Allocator.Size),
	)
	if s.dump {
		if ce := s.log.Check(zap.DebugLevel, "world table"); ce != nil {
			ce.Write(zap.String("table", inspect.World(s.w)))
		}
	}
	s.created, s.destroyed = 0, 0
	return nil
}
