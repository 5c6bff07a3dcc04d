// Package commands dispatches the marbles subcommands (play, sim, config).
package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
)

var ErrUnknown = errors.New("unknown command")

// Command is a subcommand with its own flags. Run is called after the flags are parsed and
// receives the remaining positional arguments.
type Command struct {
	Name    string
	Summary string
	FlagSet *flag.FlagSet
	Run     func(args []string) error
}

// Registry holds subcommands by name.
type Registry struct {
	cmds map[string]*Command
	def  string
}

func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]*Command)}
}

// Register adds a subcommand. fs errors are returned, not printed and exited on.
func (r *Registry) Register(name, summary string, fs *flag.FlagSet, run func(args []string) error) {
	fs.Init(name, flag.ContinueOnError)
	r.cmds[name] = &Command{Name: name, Summary: summary, FlagSet: fs, Run: run}
}

// SetDefault names the command run when no subcommand is given.
func (r *Registry) SetDefault(name string) { r.def = name }

// Execute runs the subcommand in args[0] with args[1:] as its flags and arguments. A
// leading flag or empty args select the default command.
func (r *Registry) Execute(args []string) error {
	name := r.def
	if len(args) > 0 && (len(args[0]) == 0 || args[0][0] != '-') {
		name, args = args[0], args[1:]
	}
	if name == "" {
		return fmt.Errorf("%w: missing subcommand", ErrUnknown)
	}
	cmd, ok := r.cmds[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if err := cmd.FlagSet.Parse(args); err != nil {
		return err
	}
	return cmd.Run(cmd.FlagSet.Args())
}

// Usage writes the command list, sorted by name.
func (r *Registry) Usage(w io.Writer) {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: marbles [command] [flags]")
	for _, n := range names {
		mark := " "
		if n == r.def {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s %-8s %s\n", mark, n, r.cmds[n].Summary)
	}
}
