// Package taskfile loads named container task definitions from a YAML file.
//
// A taskfile maps task names to launch options, with an optional defaults
// section applied to every task:
//
//	defaults:
//	  network: host
//	  mounts: [.]
//	tasks:
//	  flyer:
//	    image: carlosgalvezp/fcnd_term1:latest
//	    command: python controls_flyer.py
//	    user: self
//	    interactive: true
//	    tty: true
//
// A field set on a task replaces the same field from defaults wholesale.
// Unknown keys anywhere in the file are errors.
package taskfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/taskbox/taskbox/launch"
	"gopkg.in/yaml.v2"
)

// DefaultPath is the taskfile name looked up in the working directory when no
// explicit path is given.
const DefaultPath = "taskbox.yaml"

// File is a parsed taskfile.
type File struct {
	// Defaults holds option values applied to every task that does not set
	// them itself.
	Defaults Task `yaml:"defaults"`
	// Tasks maps task names to their definitions.
	Tasks map[string]Task `yaml:"tasks"`
}

// Task is one named task definition. String fields use the same syntax as
// the launch options they become; boolean fields distinguish unset from
// false so defaults can fill them in.
type Task struct {
	Image       string   `yaml:"image"`
	Command     Command  `yaml:"command"`
	Mounts      []string `yaml:"mounts"`
	Workdir     string   `yaml:"workdir"`
	User        string   `yaml:"user"`
	Network     string   `yaml:"network"`
	Env         []string `yaml:"env"`
	Interactive *bool    `yaml:"interactive"`
	TTY         *bool    `yaml:"tty"`
	Remove      *bool    `yaml:"remove"`
	// Pull is the image pull policy: "missing", "always", or "never".
	Pull string `yaml:"pull"`
}

// Command is a task command. In YAML it is either a list of strings or a
// single string split with shell-style quoting.
type Command []string

// UnmarshalYAML accepts both the string and the list form.
func (c *Command) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		parts, err := shlex.Split(single)
		if err != nil {
			return fmt.Errorf("splitting command %q: %w", single, err)
		}
		*c = parts
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("command must be a string or a list of strings")
	}
	*c = list
	return nil
}

// Load reads and parses the taskfile at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taskfile: %w", err)
	}
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing taskfile %s: %w", path, err)
	}
	return &f, nil
}

// Names returns the defined task names, sorted.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the named task with the file defaults applied.
func (f *File) Resolve(name string) (Task, error) {
	t, ok := f.Tasks[name]
	if !ok {
		names := f.Names()
		if len(names) == 0 {
			return Task{}, fmt.Errorf("no task %q: the taskfile defines no tasks", name)
		}
		return Task{}, fmt.Errorf("no task %q: available tasks are %s", name, strings.Join(names, ", "))
	}
	return merge(f.Defaults, t), nil
}

// merge overlays a task on the defaults. A set field on the task wins
// entirely; nothing is concatenated.
func merge(base, over Task) Task {
	if over.Image != "" {
		base.Image = over.Image
	}
	if len(over.Command) > 0 {
		base.Command = over.Command
	}
	if len(over.Mounts) > 0 {
		base.Mounts = over.Mounts
	}
	if over.Workdir != "" {
		base.Workdir = over.Workdir
	}
	if over.User != "" {
		base.User = over.User
	}
	if over.Network != "" {
		base.Network = over.Network
	}
	if len(over.Env) > 0 {
		base.Env = over.Env
	}
	if over.Interactive != nil {
		base.Interactive = over.Interactive
	}
	if over.TTY != nil {
		base.TTY = over.TTY
	}
	if over.Remove != nil {
		base.Remove = over.Remove
	}
	if over.Pull != "" {
		base.Pull = over.Pull
	}
	return base
}

// Options converts the task to launch options. Containers are removed after
// exit unless the task says otherwise; everything else defaults to off.
func (t Task) Options() launch.Options {
	return launch.Options{
		Image:       t.Image,
		Mounts:      t.Mounts,
		Workdir:     t.Workdir,
		User:        t.User,
		Network:     t.Network,
		Env:         t.Env,
		Interactive: boolValue(t.Interactive, false),
		TTY:         boolValue(t.TTY, false),
		Remove:      boolValue(t.Remove, true),
		Command:     []string(t.Command),
	}
}

func boolValue(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
