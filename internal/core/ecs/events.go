package ecs

// Lifecycle events published on World.Events(). They are delivered at the
// start of the tick after the one they happened in.

type EntityCreated struct {
	Entity Entity
}

// EntityDestroyed is published after the entity's components are cleared;
// its id may already have been reissued when handlers run.
type EntityDestroyed struct {
	Entity Entity
}
