package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain external input into commands
	PhasePreUpdate               // 1: react to last tick's events
	PhaseUpdate                  // 2: simulation logic
	PhasePostUpdate              // 3: derived state
	PhaseOutput                  // 4: publish results
	PhaseCleanup                 // 5: destroy queued entities
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// ParsePhase maps a phase name back to its Phase.
func ParsePhase(name string) (Phase, bool) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), true
		}
	}
	return 0, false
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration) error
}

// Parallel is implemented by systems that may run concurrently with the
// other parallel systems of their phase. Such systems must only mutate
// component values already present and queue structural changes.
type Parallel interface {
	Parallel() bool
}

// Named lets a system report a name for logs and errors.
type Named interface {
	Name() string
}
