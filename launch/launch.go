// Package launch builds and executes container task invocations.
//
// A launch is described by a Spec: which image to run, which host directories
// are mounted where, the working directory, user identity, and network mode
// inside the container, and the command to execute. Build validates raw
// options into a Spec, BuildArgs renders the Spec as a deterministic runtime
// CLI argument vector, and Launcher.Run spawns the runtime CLI as a single
// child process.
package launch

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/distribution/reference"
)

// Network is the container network mode.
type Network string

const (
	// NetworkHost shares the host network namespace with the container.
	NetworkHost Network = "host"
	// NetworkBridge attaches the container to the default bridge network.
	NetworkBridge Network = "bridge"
	// NetworkNone disables networking for the container.
	NetworkNone Network = "none"
)

// Mount is a single host-to-container bind mount.
type Mount struct {
	// Host is the absolute host path to mount. It must exist.
	Host string
	// Container is the absolute path inside the container.
	Container string
	// ReadOnly mounts the path read-only.
	ReadOnly bool
}

// String renders the mount in the runtime CLI's host:container[:ro] form.
func (m Mount) String() string {
	s := m.Host + ":" + m.Container
	if m.ReadOnly {
		s += ":ro"
	}
	return s
}

// UserRef is the uid:gid pair the containerized command runs as.
type UserRef struct {
	UID int
	GID int
}

// String renders the user in the runtime CLI's uid:gid form.
func (u UserRef) String() string {
	return strconv.Itoa(u.UID) + ":" + strconv.Itoa(u.GID)
}

// Spec is a fully validated container task invocation. Build is the only way
// to obtain one; treat it as immutable once built.
type Spec struct {
	// Image is the validated image reference, tag-pinned (alpine becomes
	// alpine:latest) but otherwise preserved as written.
	Image string
	// Mounts are the bind mounts, applied in order.
	Mounts []Mount
	// Workdir is the working directory inside the container. When set it is
	// always the container path of one of the Mounts.
	Workdir string
	// User is the uid:gid to run as, or nil to use the image default.
	User *UserRef
	// Network is the container network mode. Never empty.
	Network Network
	// Env holds KEY=VALUE entries, or bare KEY entries passed through from
	// the launcher's environment, in order.
	Env []string
	// Interactive keeps the container's stdin open.
	Interactive bool
	// TTY allocates a pseudo-terminal in the container.
	TTY bool
	// Remove deletes the container after it exits.
	Remove bool
	// Command is the executable and arguments run inside the container.
	Command []string
}

// Options are the raw, unvalidated inputs to Build. String fields use the
// same syntax as the runtime CLI flags they become.
type Options struct {
	// Image is the image reference to run.
	Image string
	// Mounts are bind mounts as "host:container[:ro|rw]" strings. A bare
	// path mounts that path onto itself. Relative host paths are resolved
	// against the current directory.
	Mounts []string
	// Workdir is the working directory inside the container. When empty and
	// at least one mount is given, the first mount's container path is used.
	Workdir string
	// User is "uid:gid", or "self" for the current uid:gid, or empty for the
	// image default.
	User string
	// Network is "host", "bridge", or "none". Empty means "bridge".
	Network string
	// Env holds KEY=VALUE or bare KEY entries.
	Env []string
	// Interactive keeps stdin open.
	Interactive bool
	// TTY allocates a pseudo-terminal.
	TTY bool
	// Remove deletes the container after it exits.
	Remove bool
	// Command is the executable and arguments run inside the container.
	Command []string
}

// Build validates opts and assembles a Spec. It fails on the first invalid
// field and returns a *ValidationError naming it; no partially valid Spec is
// ever returned. Host mount paths are required to exist at build time so that
// a launch never starts against a mount the runtime would silently create.
func Build(opts Options) (Spec, error) {
	img, err := normalizeImage(opts.Image)
	if err != nil {
		return Spec{}, err
	}

	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return Spec{}, &ValidationError{Field: "command", Reason: "must not be empty"}
	}

	mounts := make([]Mount, 0, len(opts.Mounts))
	for _, raw := range opts.Mounts {
		m, err := parseMount(raw)
		if err != nil {
			return Spec{}, err
		}
		mounts = append(mounts, m)
	}

	workdir, err := resolveWorkdir(opts.Workdir, mounts)
	if err != nil {
		return Spec{}, err
	}

	user, err := parseUser(opts.User)
	if err != nil {
		return Spec{}, err
	}

	network, err := parseNetwork(opts.Network)
	if err != nil {
		return Spec{}, err
	}

	for _, kv := range opts.Env {
		if err := checkEnvEntry(kv); err != nil {
			return Spec{}, err
		}
	}

	return Spec{
		Image:       img,
		Mounts:      mounts,
		Workdir:     workdir,
		User:        user,
		Network:     network,
		Env:         append([]string(nil), opts.Env...),
		Interactive: opts.Interactive,
		TTY:         opts.TTY,
		Remove:      opts.Remove,
		Command:     append([]string(nil), opts.Command...),
	}, nil
}

// normalizeImage validates the image reference and pins a tag if none is
// given. The familiar form is kept so the rendered arguments match what the
// user wrote (alpine:latest, not docker.io/library/alpine:latest).
func normalizeImage(name string) (string, error) {
	if name == "" {
		return "", &ValidationError{Field: "image", Reason: "must not be empty"}
	}
	named, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return "", &ValidationError{Field: "image", Reason: fmt.Sprintf("%q is not a valid reference: %v", name, err)}
	}
	return reference.FamiliarString(reference.TagNameOnly(named)), nil
}

// parseMount parses "host:container[:ro|rw]". A single path mounts that path
// onto itself at the same absolute location.
func parseMount(raw string) (Mount, error) {
	if raw == "" {
		return Mount{}, &ValidationError{Field: "mount", Reason: "must not be empty"}
	}

	parts := strings.Split(raw, ":")
	var host, container string
	readOnly := false
	switch len(parts) {
	case 1:
		host = parts[0]
	case 2:
		host, container = parts[0], parts[1]
	case 3:
		host, container = parts[0], parts[1]
		switch parts[2] {
		case "ro":
			readOnly = true
		case "rw":
		default:
			return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("unknown option %q in %q: valid options are \"ro\", \"rw\"", parts[2], raw)}
		}
	default:
		return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("%q has too many colon-separated parts", raw)}
	}

	if host == "" {
		return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("%q has an empty host path", raw)}
	}
	abs, err := filepath.Abs(host)
	if err != nil {
		return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("resolving host path %q: %v", host, err)}
	}
	if _, err := os.Stat(abs); err != nil {
		return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("host path %q does not exist", abs)}
	}

	if container == "" {
		container = abs
	}
	if !path.IsAbs(container) {
		return Mount{}, &ValidationError{Field: "mount", Reason: fmt.Sprintf("container path %q is not absolute", container)}
	}

	return Mount{Host: abs, Container: path.Clean(container), ReadOnly: readOnly}, nil
}

// resolveWorkdir defaults an empty workdir to the first mount's container
// path and requires a given workdir to be one of the mount container paths,
// so the command always starts inside a directory backed by the host.
func resolveWorkdir(workdir string, mounts []Mount) (string, error) {
	if workdir == "" {
		if len(mounts) == 0 {
			return "", nil
		}
		return mounts[0].Container, nil
	}
	if !path.IsAbs(workdir) {
		return "", &ValidationError{Field: "workdir", Reason: fmt.Sprintf("%q is not absolute", workdir)}
	}
	workdir = path.Clean(workdir)
	for _, m := range mounts {
		if m.Container == workdir {
			return workdir, nil
		}
	}
	return "", &ValidationError{Field: "workdir", Reason: fmt.Sprintf("%q is not the container path of any mount", workdir)}
}

// parseUser parses "uid:gid", or "self" as shorthand for the invoking user's
// own uid and gid.
func parseUser(raw string) (*UserRef, error) {
	if raw == "" {
		return nil, nil
	}
	if raw == "self" {
		return &UserRef{UID: os.Getuid(), GID: os.Getgid()}, nil
	}
	uidStr, gidStr, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, &ValidationError{Field: "user", Reason: fmt.Sprintf("%q must provide both uid and gid as uid:gid", raw)}
	}
	uid, err := strconv.Atoi(uidStr)
	if err != nil || uid < 0 {
		return nil, &ValidationError{Field: "user", Reason: fmt.Sprintf("uid %q is not a non-negative integer", uidStr)}
	}
	gid, err := strconv.Atoi(gidStr)
	if err != nil || gid < 0 {
		return nil, &ValidationError{Field: "user", Reason: fmt.Sprintf("gid %q is not a non-negative integer", gidStr)}
	}
	return &UserRef{UID: uid, GID: gid}, nil
}

func parseNetwork(raw string) (Network, error) {
	switch Network(raw) {
	case NetworkHost, NetworkBridge, NetworkNone:
		return Network(raw), nil
	case "":
		return NetworkBridge, nil
	default:
		return "", &ValidationError{Field: "network", Reason: fmt.Sprintf("unknown mode %q: valid values are %q, %q, %q", raw, NetworkHost, NetworkBridge, NetworkNone)}
	}
}

// checkEnvEntry accepts KEY=VALUE entries and bare KEY entries. Bare keys are
// handed to the runtime CLI as-is, which resolves them from the launcher's
// environment.
func checkEnvEntry(kv string) error {
	key, _, _ := strings.Cut(kv, "=")
	if key == "" {
		return &ValidationError{Field: "env", Reason: fmt.Sprintf("%q has an empty key", kv)}
	}
	if strings.HasPrefix(key, "-") {
		return &ValidationError{Field: "env", Reason: fmt.Sprintf("key %q must not start with '-'", key)}
	}
	return nil
}
