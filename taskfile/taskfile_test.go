package taskfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskbox/taskbox/launch"
)

const sampleFile = `defaults:
  network: host
  mounts: [.]
tasks:
  flyer:
    image: carlosgalvezp/fcnd_term1:latest
    command: python controls_flyer.py
    user: self
    interactive: true
    tty: true
  visdom:
    image: carlosgalvezp/fcnd_term1:latest
    command: [python, -m, visdom.server]
    interactive: true
`

func writeTaskfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ResolvesTasksWithDefaults(t *testing.T) {
	f, err := Load(writeTaskfile(t, sampleFile))
	require.NoError(t, err)

	flyer, err := f.Resolve("flyer")
	require.NoError(t, err)
	assert.Equal(t, launch.Options{
		Image:       "carlosgalvezp/fcnd_term1:latest",
		Mounts:      []string{"."},
		User:        "self",
		Network:     "host",
		Interactive: true,
		TTY:         true,
		Remove:      true,
		Command:     []string{"python", "controls_flyer.py"},
	}, flyer.Options())

	visdom, err := f.Resolve("visdom")
	require.NoError(t, err)
	assert.Equal(t, launch.Options{
		Image:       "carlosgalvezp/fcnd_term1:latest",
		Mounts:      []string{"."},
		Network:     "host",
		Interactive: true,
		Remove:      true,
		Command:     []string{"python", "-m", "visdom.server"},
	}, visdom.Options())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading taskfile")
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeTaskfile(t, `tasks:
  build:
    imagee: alpine
    command: ["true"]
`))

	require.Error(t, err)
}

func TestCommand_StringAndListForms(t *testing.T) {
	f, err := Load(writeTaskfile(t, `tasks:
  str:
    image: alpine
    command: python -m visdom.server
  list:
    image: alpine
    command: [python, -m, visdom.server]
`))
	require.NoError(t, err)

	str, err := f.Resolve("str")
	require.NoError(t, err)
	list, err := f.Resolve("list")
	require.NoError(t, err)
	assert.Equal(t, list.Command, str.Command)
}

func TestCommand_StringFormKeepsQuotedArgs(t *testing.T) {
	f, err := Load(writeTaskfile(t, `tasks:
  hello:
    image: alpine
    command: sh -c 'echo hi there'
`))
	require.NoError(t, err)

	task, err := f.Resolve("hello")
	require.NoError(t, err)
	assert.Equal(t, Command{"sh", "-c", "echo hi there"}, task.Command)
}

func TestCommand_UnterminatedQuote(t *testing.T) {
	_, err := Load(writeTaskfile(t, `tasks:
  broken:
    image: alpine
    command: sh -c 'oops
`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "splitting command")
}

func TestCommand_RejectsMappings(t *testing.T) {
	_, err := Load(writeTaskfile(t, `tasks:
  broken:
    image: alpine
    command: {run: this}
`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "command must be a string or a list")
}

func TestResolve_UnknownTask(t *testing.T) {
	f, err := Load(writeTaskfile(t, sampleFile))
	require.NoError(t, err)

	_, err = f.Resolve("flyr")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `no task "flyr"`)
	assert.Contains(t, err.Error(), "flyer, visdom")
}

func TestResolve_EmptyTaskfile(t *testing.T) {
	f, err := Load(writeTaskfile(t, "defaults:\n  network: host\n"))
	require.NoError(t, err)

	_, err = f.Resolve("flyer")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "defines no tasks")
}

func TestResolve_TaskFieldsWinOverDefaults(t *testing.T) {
	f, err := Load(writeTaskfile(t, `defaults:
  network: host
  user: self
  interactive: true
  env: [A=1]
tasks:
  offline:
    image: alpine
    command: ["true"]
    network: none
    interactive: false
    env: [B=2]
`))
	require.NoError(t, err)

	task, err := f.Resolve("offline")
	require.NoError(t, err)

	assert.Equal(t, "none", task.Network)
	// Unset fields inherit.
	assert.Equal(t, "self", task.User)
	// Explicit false beats an inherited true.
	require.NotNil(t, task.Interactive)
	assert.False(t, *task.Interactive)
	// Set fields replace wholesale, no concatenation.
	assert.Equal(t, []string{"B=2"}, task.Env)
}

func TestResolve_PullPolicyInherited(t *testing.T) {
	f, err := Load(writeTaskfile(t, `defaults:
  pull: always
tasks:
  fresh:
    image: alpine
    command: ["true"]
  pinned:
    image: alpine
    command: ["true"]
    pull: never
`))
	require.NoError(t, err)

	fresh, err := f.Resolve("fresh")
	require.NoError(t, err)
	assert.Equal(t, "always", fresh.Pull)

	pinned, err := f.Resolve("pinned")
	require.NoError(t, err)
	assert.Equal(t, "never", pinned.Pull)
}

func TestOptions_Defaults(t *testing.T) {
	opts := Task{Image: "alpine", Command: Command{"true"}}.Options()

	// One-shot by default; everything else off.
	assert.True(t, opts.Remove)
	assert.False(t, opts.Interactive)
	assert.False(t, opts.TTY)
}

func TestOptions_KeepContainer(t *testing.T) {
	keep := false
	opts := Task{Image: "alpine", Command: Command{"true"}, Remove: &keep}.Options()

	assert.False(t, opts.Remove)
}

func TestNames_Sorted(t *testing.T) {
	f, err := Load(writeTaskfile(t, sampleFile))
	require.NoError(t, err)

	assert.Equal(t, []string{"flyer", "visdom"}, f.Names())
}
