package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/taskbox/taskbox/taskfile"
)

const (
	// runtimeEnv selects the container runtime: docker, podman, nerdctl,
	// containerd, or auto. This is overridden by --runtime.
	runtimeEnv = "TASKBOX_RUNTIME"
	// fileEnv is the taskfile path. This is overridden by --file.
	fileEnv = "TASKBOX_FILE"
	// namespaceEnv is the containerd namespace passed to nerdctl via
	// --namespace.
	namespaceEnv = "TASKBOX_NERDCTL_NAMESPACE"
	// verboseEnv enables debug logging when set to a boolean true value.
	verboseEnv = "TASKBOX_VERBOSE"
)

// config holds environment-derived settings. Flags layer on top of these.
type config struct {
	Runtime          string
	File             string
	NerdctlNamespace string
	Verbose          bool
}

// loadConfig reads settings from the environment, honoring a .env file in
// the working directory when present.
func loadConfig() config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	return config{
		Runtime:          getEnv(runtimeEnv, "auto"),
		File:             getEnv(fileEnv, taskfile.DefaultPath),
		NerdctlNamespace: getEnv(namespaceEnv, ""),
		Verbose:          getEnvBool(verboseEnv, false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
