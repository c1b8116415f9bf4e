package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// Launcher spawns the container runtime CLI for a Spec and waits for it.
type Launcher struct {
	// CLI is the runtime command prefix, e.g. ["docker"] or
	// ["nerdctl", "--namespace", "tasks"]. Defaults to ["docker"].
	CLI []string
	// Log receives launch diagnostics. Defaults to slog.Default().
	Log *slog.Logger

	// Stdin, Stdout, and Stderr are handed to the child unchanged. They
	// default to the launcher's own standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the Spec as a single child process and blocks until it exits.
//
// The returned code is the process exit code to report: the child's own code
// when the child ran (a non-zero child exit is a result, not an error), or
// the reserved launcher code when the child could not be spawned. When the
// child dies to a signal the code is 128 plus the signal number, matching
// shell convention. SIGINT and SIGTERM received while the child runs are
// forwarded to it, and cancelling ctx sends the child a SIGTERM; in both
// cases Run keeps waiting for the child to exit. There are no retries and no
// timeouts.
func (l *Launcher) Run(ctx context.Context, spec Spec) (int, error) {
	cli := l.CLI
	if len(cli) == 0 {
		cli = []string{"docker"}
	}
	log := l.Log
	if log == nil {
		log = slog.Default()
	}

	bin, err := exec.LookPath(cli[0])
	if err != nil {
		return ExitRuntimeNotFound, fmt.Errorf("%w: %q is not installed or not in PATH", ErrRuntimeNotFound, cli[0])
	}

	args := append(append([]string(nil), cli[1:]...), BuildArgs(spec)...)
	log.Debug("launching task", "runtime", bin, "args", args)

	cmd := exec.Command(bin, args...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return ExitSpawnFailed, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	done := make(chan struct{})
	go func() {
		ctxDone := ctx.Done()
		for {
			select {
			case sig := <-sigCh:
				_ = cmd.Process.Signal(sig)
			case <-ctxDone:
				_ = cmd.Process.Signal(syscall.SIGTERM)
				ctxDone = nil
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	return exitStatus(waitErr)
}

// exitStatus translates the error from Wait into the code to report. The
// child's exit status passes through unchanged; only a Wait failure that
// carries no status at all surfaces as an error.
func exitStatus(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return ExitInternal, fmt.Errorf("waiting for container runtime: %w", waitErr)
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
