// Package docker implements the runtime.Engine interface using the Docker
// Engine API.
package docker

import (
	"context"
	"io"
	"os"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// Docker implements runtime.Engine using the Docker Engine API.
type Docker struct {
	client *client.Client
}

// New creates a new Docker engine client.
// It uses environment variables (DOCKER_HOST, etc.) and API version negotiation.
func New() (*Docker, error) {
	cl, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &Docker{client: cl}, nil
}

// Ping checks if the Docker daemon is responsive.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

// ImageExists reports whether the given image reference exists locally.
func (d *Docker) ImageExists(ctx context.Context, imageRef string) bool {
	_, err := d.client.ImageInspect(ctx, imageRef)
	if err != nil {
		// Any error means the image is not available locally (or the daemon is unreachable).
		return false
	}
	return true
}

// PullImage pulls the given image reference from a registry. Progress goes to
// stderr; stdout stays reserved for the task itself.
func (d *Docker) PullImage(ctx context.Context, imageRef string) error {
	out, err := d.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(os.Stderr, out)
	return err
}

// Close cleans up the Docker client resources.
func (d *Docker) Close() error {
	return d.client.Close()
}
