package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	// dockerSocket is the default Docker daemon socket path.
	dockerSocket = "/var/run/docker.sock"

	// RuntimeDocker selects the docker CLI, with the Docker SDK for preflight
	// when the daemon is reachable.
	RuntimeDocker = "docker"
	// RuntimePodman selects the podman CLI.
	RuntimePodman = "podman"
	// RuntimeNerdctl selects the nerdctl CLI.
	RuntimeNerdctl = "nerdctl"
	// RuntimeContainerd is an alias for nerdctl, the containerd CLI.
	RuntimeContainerd = "containerd"
	// RuntimeAuto auto-detects an available runtime (docker preferred, then
	// podman, then nerdctl).
	RuntimeAuto = "auto"

	// pingTimeout bounds each daemon/CLI responsiveness probe.
	pingTimeout = 5 * time.Second
)

// Pingable is an optional interface that engine implementations can satisfy
// to verify daemon connectivity.
type Pingable interface {
	Ping(ctx context.Context) error
}

// DockerFactory creates an engine backed by the Docker SDK.
type DockerFactory func() (Engine, error)

// CtrctlFactory creates an engine that shells out to the given CLI command.
type CtrctlFactory func(cli []string) (Engine, error)

// Detect resolves a Runtime from the preference string.
//
// Preference values:
//   - "docker": docker CLI; Docker SDK preflight, falling back to the CLI
//   - "podman": podman CLI
//   - "nerdctl" or "containerd": nerdctl CLI
//   - "auto" or "": probe docker, then podman, then nerdctl
//
// nerdctlNamespace is the containerd namespace passed to nerdctl via
// --namespace. It is only applied when the resolved CLI is nerdctl, and it
// applies to both preflight and task execution.
//
// The dockerFn and ctrctlFn factories construct the actual engines, keeping
// this function decoupled from the concrete implementations.
func Detect(preference string, dockerFn DockerFactory, ctrctlFn CtrctlFactory, nerdctlNamespace string) (*Runtime, error) {
	switch preference {
	case RuntimeDocker:
		return detectDocker(dockerFn, ctrctlFn)
	case RuntimePodman:
		return tryCtrctl(ctrctlFn, []string{"podman"})
	case RuntimeNerdctl, RuntimeContainerd:
		return tryCtrctl(ctrctlFn, withNamespace([]string{"nerdctl"}, nerdctlNamespace))
	case RuntimeAuto, "":
		return autoDetect(dockerFn, ctrctlFn, nerdctlNamespace)
	default:
		return nil, fmt.Errorf("unknown runtime %q: valid values are %q, %q, %q, %q",
			preference, RuntimeDocker, RuntimePodman, RuntimeNerdctl, RuntimeAuto)
	}
}

// ResolveCLI maps the preference to a task execution CLI without creating an
// engine. It is the detection path for launches that skip preflight entirely.
// For "auto" the PATH is probed for the first CLI that is installed.
func ResolveCLI(preference string, nerdctlNamespace string) ([]string, error) {
	switch preference {
	case RuntimeDocker:
		return []string{"docker"}, nil
	case RuntimePodman:
		return []string{"podman"}, nil
	case RuntimeNerdctl, RuntimeContainerd:
		return withNamespace([]string{"nerdctl"}, nerdctlNamespace), nil
	case RuntimeAuto, "":
		for _, name := range []string{"docker", "podman", "nerdctl"} {
			if _, err := exec.LookPath(name); err == nil {
				return withNamespace([]string{name}, nerdctlNamespace), nil
			}
		}
		return nil, fmt.Errorf("no container runtime CLI found in PATH: looked for docker, podman, nerdctl")
	default:
		return nil, fmt.Errorf("unknown runtime %q: valid values are %q, %q, %q, %q",
			preference, RuntimeDocker, RuntimePodman, RuntimeNerdctl, RuntimeAuto)
	}
}

// detectDocker prefers the Docker SDK for preflight and falls back to the
// docker CLI when the SDK cannot reach a daemon. Either way tasks are
// executed with the docker CLI.
func detectDocker(dockerFn DockerFactory, ctrctlFn CtrctlFactory) (*Runtime, error) {
	eng, sdkErr := tryDocker(dockerFn)
	if sdkErr == nil {
		return &Runtime{CLI: []string{"docker"}, Engine: eng}, nil
	}
	rt, cliErr := tryCtrctl(ctrctlFn, []string{"docker"})
	if cliErr == nil {
		return rt, nil
	}
	return nil, fmt.Errorf("docker unavailable: %w; docker CLI fallback: %v", sdkErr, cliErr)
}

func autoDetect(dockerFn DockerFactory, ctrctlFn CtrctlFactory, nerdctlNamespace string) (*Runtime, error) {
	// Prefer the Docker SDK when the socket is available.
	if socketExists(dockerSocket) {
		eng, err := tryDocker(dockerFn)
		if err == nil {
			return &Runtime{CLI: []string{"docker"}, Engine: eng}, nil
		}
	}

	// Fall back to CLI probing (docker > podman > nerdctl).
	cliOrder := [][]string{
		{"docker"},
		{"podman"},
		withNamespace([]string{"nerdctl"}, nerdctlNamespace),
	}
	for _, cli := range cliOrder {
		rt, err := tryCtrctl(ctrctlFn, cli)
		if err == nil {
			return rt, nil
		}
	}

	return nil, fmt.Errorf("no container runtime found: checked Docker SDK (%s) and the docker, podman, and nerdctl CLIs", dockerSocket)
}

func tryDocker(dockerFn DockerFactory) (Engine, error) {
	eng, err := dockerFn()
	if err != nil {
		return nil, fmt.Errorf("creating docker engine: %w", err)
	}
	if err := ping(eng); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("docker daemon not responding: %w", err)
	}
	return eng, nil
}

// tryCtrctl creates an engine that shells out to the specified CLI command
// and verifies the CLI responds.
func tryCtrctl(ctrctlFn CtrctlFactory, cli []string) (*Runtime, error) {
	eng, err := ctrctlFn(cli)
	if err != nil {
		return nil, fmt.Errorf("creating engine for %v: %w", cli, err)
	}
	if err := ping(eng); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("container CLI %v not responding: %w", cli, err)
	}
	return &Runtime{CLI: cli, Engine: eng}, nil
}

// ping verifies connectivity for engines that support it.
func ping(eng Engine) error {
	p, ok := eng.(Pingable)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// withNamespace injects --namespace into a nerdctl CLI command. Other CLIs
// pass through unchanged.
func withNamespace(cli []string, nerdctlNamespace string) []string {
	if len(cli) > 0 && cli[0] == "nerdctl" && nerdctlNamespace != "" {
		return append([]string{cli[0], "--namespace", nerdctlNamespace}, cli[1:]...)
	}
	return cli
}

func socketExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	// Accept both sockets and any file (Docker socket could be a regular file in some setups).
	return fi.Mode()&os.ModeSocket != 0 || !fi.IsDir()
}
