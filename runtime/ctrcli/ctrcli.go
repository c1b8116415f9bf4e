// Package ctrcli implements the runtime.Engine interface by shelling out to
// a container CLI (docker, podman, or nerdctl) via the ctrctl wrapper.
package ctrcli

import (
	"context"
	"os"
	"os/exec"

	"lesiw.io/ctrctl"
)

// Ctrcli implements runtime.Engine by shelling out to a container CLI.
type Ctrcli struct {
	cli []string
}

// New creates a Ctrcli engine using the specified CLI command.
// cli is the command prefix, e.g. []string{"podman"} or
// []string{"nerdctl", "--namespace", "tasks"}.
func New(cli []string) (*Ctrcli, error) {
	ctrctl.Cli = cli
	return &Ctrcli{cli: cli}, nil
}

// Ping verifies the CLI is available and responsive.
func (c *Ctrcli) Ping(_ context.Context) error {
	_, err := ctrctl.Version(nil)
	return err
}

// ImageExists reports whether the given image reference exists locally.
func (c *Ctrcli) ImageExists(_ context.Context, imageRef string) bool {
	_, err := ctrctl.ImageInspect(&ctrctl.ImageInspectOpts{}, imageRef)

	return err == nil
}

// PullImage pulls the given image reference from a registry. Progress goes to
// stderr; stdout stays reserved for the task itself.
func (c *Ctrcli) PullImage(_ context.Context, imageRef string) error {
	_, err := ctrctl.ImagePull(
		&ctrctl.ImagePullOpts{
			Cmd: &exec.Cmd{
				Stdout: os.Stderr,
				Stderr: os.Stderr,
			},
		},
		imageRef,
	)
	return err
}

// Close is a no-op for CLI-based engines.
func (c *Ctrcli) Close() error {
	return nil
}
