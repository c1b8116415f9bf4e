// Package main is the taskbox command, a container task launcher.
//
// taskbox turns a named task or ad-hoc flags into a single container runtime
// invocation: bind mounts, working directory, user identity, and network mode
// are validated up front, the runtime CLI (docker, podman, or nerdctl) runs
// as one child process with inherited streams, and taskbox exits with the
// task's own exit code.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/taskbox/taskbox/launch"
	"github.com/taskbox/taskbox/runtime"
	"github.com/taskbox/taskbox/runtime/ctrcli"
	"github.com/taskbox/taskbox/runtime/docker"
	"github.com/taskbox/taskbox/taskfile"
)

const (
	// pullMissing pulls the image only when it is not available locally.
	pullMissing = "missing"
	// pullAlways pulls the image before every launch.
	pullAlways = "always"
	// pullNever skips preflight entirely and launches with what is local.
	pullNever = "never"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

// stringList collects repeatable flag values in order.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func run(ctx context.Context, argv []string) int {
	flagArgs, command := splitCommand(argv)
	cfg := loadConfig()

	fs := flag.NewFlagSet("taskbox", flag.ContinueOnError)
	var (
		image       = fs.String("image", "", "image reference to run")
		mounts      stringList
		workdir     = fs.String("workdir", "", "working directory inside the container (must be a mount target)")
		user        = fs.String("user", "", "uid:gid to run as, or \"self\" for your own")
		network     = fs.String("network", "", "network mode: host, bridge, or none (default bridge)")
		envs        stringList
		interactive = fs.Bool("interactive", false, "keep the container's stdin open")
		tty         = fs.Bool("tty", false, "allocate a pseudo-terminal")
		rm          = fs.Bool("rm", true, "remove the container after it exits")
		pullFlag    = fs.String("pull", "", "image pull policy: missing, always, or never (default missing)")
		runtimePref = fs.String("runtime", cfg.Runtime, "container runtime: docker, podman, nerdctl, containerd, or auto")
		file        = fs.String("file", cfg.File, "taskfile path")
		verbose     = fs.Bool("verbose", cfg.Verbose, "enable debug logging")
		showVersion = fs.Bool("version", false, "print the version and exit")
	)
	fs.Var(&mounts, "mount", "bind mount as host:container[:ro], or a bare path to mount onto itself (repeatable)")
	fs.Var(&envs, "env", "environment entry as KEY=VALUE, or KEY to pass through (repeatable)")
	fs.BoolVar(interactive, "i", false, "shorthand for --interactive")
	fs.BoolVar(tty, "t", false, "shorthand for --tty")
	fs.Var(&envs, "e", "shorthand for --env")
	fs.StringVar(file, "f", cfg.File, "shorthand for --file")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(flagArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return launch.ExitInternal
	}

	if *showVersion {
		fmt.Println("taskbox " + version)
		return 0
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if fs.NArg() > 1 {
		logger.Error("too many arguments: give one task name, then -- before the command", "args", fs.Args())
		return launch.ExitInternal
	}

	// Start from the task definition when a task is named, then let
	// explicitly set flags override it.
	opts := launch.Options{Remove: *rm}
	pull := pullMissing
	taskName := ""
	if fs.NArg() == 1 {
		taskName = fs.Arg(0)
		f, err := taskfile.Load(*file)
		if err != nil {
			logger.Error("unable to load taskfile", "error", err)
			return launch.ExitInternal
		}
		task, err := f.Resolve(taskName)
		if err != nil {
			logger.Error("unable to resolve task", "error", err)
			return launch.ExitInternal
		}
		opts = task.Options()
		if task.Pull != "" {
			pull = task.Pull
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "image":
			opts.Image = *image
		case "mount":
			opts.Mounts = mounts
		case "workdir":
			opts.Workdir = *workdir
		case "user":
			opts.User = *user
		case "network":
			opts.Network = *network
		case "env", "e":
			opts.Env = envs
		case "interactive", "i":
			opts.Interactive = *interactive
		case "tty", "t":
			opts.TTY = *tty
		case "rm":
			opts.Remove = *rm
		case "pull":
			pull = *pullFlag
		}
	})
	if len(command) > 0 {
		opts.Command = command
	}
	if taskName == "" && opts.Image == "" && len(opts.Command) == 0 {
		fs.Usage()
		return launch.ExitInternal
	}
	if len(opts.Mounts) == 0 {
		// The default mount mirrors the working directory into the container.
		opts.Mounts = []string{"."}
	}

	switch pull {
	case pullMissing, pullAlways, pullNever:
	default:
		logger.Error("invalid pull policy", "pull", pull, "valid", []string{pullMissing, pullAlways, pullNever})
		return launch.ExitInternal
	}

	spec, err := launch.Build(opts)
	if err != nil {
		logger.Error("invalid launch options", "error", err)
		return launch.ExitCode(err)
	}

	logger.Debug("starting taskbox", "version", version, "task", taskName, "image", spec.Image, "runtime", *runtimePref)

	cli, code := resolveRuntime(ctx, logger, *runtimePref, cfg.NerdctlNamespace, pull, spec.Image)
	if code != 0 {
		return code
	}

	launcher := &launch.Launcher{CLI: cli, Log: logger}
	code, err = launcher.Run(ctx, spec)
	if err != nil {
		logger.Error("unable to launch task", "error", err)
	}
	return code
}

// resolveRuntime picks the runtime CLI and runs image preflight against its
// engine. With pull policy "never" no engine is created at all; the CLI is
// mapped straight from the preference.
func resolveRuntime(ctx context.Context, logger *slog.Logger, preference, nerdctlNamespace, pull, imageRef string) ([]string, int) {
	if pull == pullNever {
		cli, err := runtime.ResolveCLI(preference, nerdctlNamespace)
		if err != nil {
			logger.Error("no container runtime available", "error", err)
			return nil, launch.ExitRuntimeNotFound
		}
		return cli, 0
	}

	rt, err := runtime.Detect(preference, dockerEngine, ctrcliEngine, nerdctlNamespace)
	if err != nil {
		logger.Error("no container runtime available", "error", err)
		return nil, launch.ExitRuntimeNotFound
	}
	defer func() {
		_ = rt.Close()
	}()

	if err := preflight(ctx, rt.Engine, pull, imageRef, logger); err != nil {
		logger.Error("unable to prepare image", "error", err)
		return nil, launch.ExitInternal
	}
	return rt.CLI, 0
}

// preflight makes the image available before anything is spawned.
func preflight(ctx context.Context, eng runtime.Engine, pull, imageRef string, logger *slog.Logger) error {
	if pull == pullMissing && eng.ImageExists(ctx, imageRef) {
		return nil
	}
	logger.Info("pulling image", "image", imageRef)
	if err := eng.PullImage(ctx, imageRef); err != nil {
		return fmt.Errorf("pulling image %s: %w", imageRef, err)
	}
	return nil
}

func dockerEngine() (runtime.Engine, error) {
	return docker.New()
}

func ctrcliEngine(cli []string) (runtime.Engine, error) {
	return ctrcli.New(cli)
}

// splitCommand separates the launcher's own arguments from the task command
// after the first "--".
func splitCommand(argv []string) (flags []string, command []string) {
	for i, a := range argv {
		if a == "--" {
			return argv[:i], argv[i+1:]
		}
	}
	return argv, nil
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), `usage: taskbox [flags] [task] [-- command...]

Run a command inside a container as if it were local: the working directory
is mounted onto itself and the task's exit code becomes taskbox's own.

Tasks are defined in %s; flags override task settings, and a command
after -- overrides the task command.

Examples:
  taskbox flyer
  taskbox visdom -- python -m visdom.server -port 8098
  taskbox --image alpine:3.20 --user self -- sh -c 'ls -la'

Flags:
`, taskfile.DefaultPath)
	fs.PrintDefaults()
}
