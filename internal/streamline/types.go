package streamline

import (
	"fmt"

	"github.com/Benny93/roadnet-go/internal/geom"
)

// Termination is the reason one direction of a trace stopped.
type Termination int

const (
	// PathLimit: PathIterations steps were taken.
	PathLimit Termination = iota
	// BoundsExit: the next step would leave the world.
	BoundsExit
	// Collision: the next step would come within DTest of a placed streamline.
	Collision
	// LoopClosed: the trace returned to its seed and was snapped onto it.
	LoopClosed
	// Degenerate: the field has no direction at a sample.
	Degenerate
)

var terminationNames = [...]string{
	PathLimit:  "path_limit",
	BoundsExit: "bounds_exit",
	Collision:  "collision",
	LoopClosed: "loop_closed",
	Degenerate: "degenerate",
}

func (t Termination) String() string {
	if t < 0 || int(t) >= len(terminationNames) {
		return fmt.Sprintf("termination(%d)", int(t))
	}
	return terminationNames[t]
}

// MarshalText encodes the termination by name, so Stats maps read well in JSON.
func (t Termination) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(terminationNames) {
		return nil, fmt.Errorf("streamline: unknown termination %d", int(t))
	}
	return []byte(terminationNames[t]), nil
}

// UnmarshalText decodes a termination name.
func (t *Termination) UnmarshalText(text []byte) error {
	for i, name := range terminationNames {
		if name == string(text) {
			*t = Termination(i)
			return nil
		}
	}
	return fmt.Errorf("streamline: unknown termination %q", text)
}

// State is the phase of a single trace.
type State int

const (
	Seeding State = iota
	TracingForward
	TracingBackward
	Terminated
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "seeding"
	case TracingForward:
		return "tracing_forward"
	case TracingBackward:
		return "tracing_backward"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// family indexes the per-family state of the generator.
type family int

const (
	major family = 0
	minor family = 1
)

func (f family) other() family { return 1 - f }

func (f family) String() string {
	if f == major {
		return "major"
	}
	return "minor"
}

// Stats summarises one generation run.
type Stats struct {
	Streamlines  int `json:"streamlines"`
	Rejected     int `json:"rejected"`
	SeedAttempts int `json:"seed_attempts"`

	// Exhausted is indexed major, minor. A family is exhausted when its queue
	// is empty and SeedTries random seeds failed in a row.
	Exhausted [2]bool `json:"exhausted"`

	// Terminations counts how every trace direction ended, accepted or not.
	Terminations map[Termination]int `json:"terminations"`

	// Joins counts dangling ends extended onto another streamline.
	Joins int `json:"joins"`
}

// Result is the output of a generation run. All slices are indexed by
// streamline.
type Result struct {
	// All holds the raw traced points.
	All [][]geom.Vec2
	// Simplified holds the simplified polylines handed to graph construction.
	Simplified [][]geom.Vec2
	// Major reports whether a streamline follows the major direction.
	Major []bool
	// Closed reports whether a streamline is a closed loop.
	Closed []bool
	Stats  Stats
}
