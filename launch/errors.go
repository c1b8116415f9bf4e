package launch

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntimeNotFound means the container runtime executable could not be
	// resolved. No child process was spawned.
	ErrRuntimeNotFound = errors.New("container runtime not found")
	// ErrSpawn means the runtime executable was found but could not be
	// started.
	ErrSpawn = errors.New("starting container runtime failed")
)

// Exit codes reserved for launcher failures. They follow the shell convention
// so they never collide with an ordinary task exit code: a task that wants
// 125, 126, or 127 for itself is indistinguishable from the launcher, same as
// under docker run.
const (
	// ExitInternal is used for validation, configuration, and preflight
	// failures.
	ExitInternal = 125
	// ExitSpawnFailed is used when the runtime executable could not be
	// started.
	ExitSpawnFailed = 126
	// ExitRuntimeNotFound is used when no runtime executable was found.
	ExitRuntimeNotFound = 127
)

// ValidationError reports a single invalid launch option. Build fails on the
// first one it finds.
type ValidationError struct {
	// Field is the option that failed validation, e.g. "image" or "workdir".
	Field string
	// Reason describes what was wrong with it.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExitCode maps a launcher error to its reserved exit code. A nil error maps
// to zero. Task exit codes are not mapped here; Run returns those directly.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRuntimeNotFound):
		return ExitRuntimeNotFound
	case errors.Is(err, ErrSpawn):
		return ExitSpawnFailed
	default:
		return ExitInternal
	}
}
