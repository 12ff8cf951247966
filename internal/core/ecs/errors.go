package ecs

import (
	"github.com/DesertImage/ecs-burst-sub000/internal/core/sparse"
	"github.com/rotisserie/eris"
)

// Contract violations. Every call that can fail this way has a Must twin
// that panics instead.
var (
	ErrNotAlive          = eris.New("ecs: entity not alive")
	ErrComponentNotFound = eris.New("ecs: entity has no such component")
	ErrUnknownComponent  = eris.New("ecs: component type not registered")
	ErrPointerType       = sparse.ErrPointerType
	ErrNameTaken         = eris.New("ecs: component name already registered")
	ErrInvalidName       = eris.New("ecs: invalid component name")
	ErrInvalidFilter     = eris.New("ecs: invalid filter")
	ErrDisposed          = eris.New("ecs: world disposed")
)
