// Package runtime resolves the container runtime that drives a launch.
//
// A launch needs two things from the runtime: a CLI to exec tasks with
// (docker, podman, or nerdctl) and a management connection for preflight
// work, checking and pulling images before anything is spawned. Runtime
// couples the two; Detect picks them from a preference string or by probing
// what the host has.
package runtime //nolint:revive // this name is fine.

import "context"

// Engine is the management-plane connection to a container runtime, used for
// preflight only. Launching goes through the runtime CLI, never through the
// Engine, so the executed argument vector stays deterministic and the task
// inherits the launcher's streams.
type Engine interface {
	// ImageExists checks if the given image reference exists locally.
	ImageExists(ctx context.Context, imageRef string) bool
	// PullImage pulls the given image reference from a registry.
	PullImage(ctx context.Context, imageRef string) error
	// Close cleans up the engine client resources.
	Close() error
}

// Runtime is a resolved container runtime.
type Runtime struct {
	// CLI is the command prefix tasks are executed with, e.g. ["docker"] or
	// ["nerdctl", "--namespace", "tasks"].
	CLI []string
	// Engine is the preflight connection for the same runtime.
	Engine Engine
}

// Close releases the Engine.
func (r *Runtime) Close() error {
	return r.Engine.Close()
}
