// Package component holds the component types used by the demo world.
// All of them are plain values with no pointers, so they can live in
// allocator-backed storage.
package component

import (
	"go.uber.org/multierr"

	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
)

// Position is a point in world units.
type Position struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Velocity is in world units per second.
type Velocity struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Lifetime counts down in seconds; the entity is destroyed at zero.
type Lifetime struct {
	Remaining float32 `yaml:"remaining"`
}

// Frozen excludes an entity from movement.
type Frozen struct{}

// Register assigns the names prefab files and scripts refer to.
func Register(w *ecs.World) error {
	var errs error
	register := func(err error) { errs = multierr.Append(errs, err) }
	_, err := ecs.RegisterNamed[Position](w, "Position")
	register(err)
	_, err = ecs.RegisterNamed[Velocity](w, "Velocity")
	register(err)
	_, err = ecs.RegisterNamed[Lifetime](w, "Lifetime")
	register(err)
	_, err = ecs.RegisterNamed[Frozen](w, "Frozen")
	register(err)
	return errs
}
