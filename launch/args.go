package launch

// BuildArgs renders the Spec as the runtime CLI argument vector, without the
// runtime executable itself. The output is deterministic: flags appear in a
// fixed order and list-valued options keep their Spec order, so identical
// Specs always produce byte-identical invocations.
//
// Long-form flags are used throughout; docker, podman, and nerdctl all accept
// them.
func BuildArgs(spec Spec) []string {
	args := []string{"run"}
	if spec.Remove {
		args = append(args, "--rm")
	}
	for _, m := range spec.Mounts {
		args = append(args, "--volume", m.String())
	}
	if spec.Workdir != "" {
		args = append(args, "--workdir", spec.Workdir)
	}
	if spec.User != nil {
		args = append(args, "--user", spec.User.String())
	}
	args = append(args, "--network", string(spec.Network))
	for _, kv := range spec.Env {
		args = append(args, "--env", kv)
	}
	if spec.Interactive {
		args = append(args, "--interactive")
	}
	if spec.TTY {
		args = append(args, "--tty")
	}
	args = append(args, spec.Image)
	args = append(args, spec.Command...)
	return args
}
