// Package command implements the small named-command namespace the binary
// dispatches through. Commands are grouped by category so help output can
// list the stack inspection commands apart from the general ones.
package command

import "fmt"

// Command is one named action of the namespace.
type Command struct {
	Name     string
	Aliases  []string
	Category string
	Summary  string
	Run      func(args []string) error
}

// Registry holds commands in registration order and resolves them by name or
// alias.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd to the registry. A name or alias that is already taken is
// rejected.
func (r *Registry) Register(cmd *Command) error {
	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("register command: empty name")
		}
		if prev, ok := r.byName[name]; ok {
			return fmt.Errorf("register command %q: name taken by %q", name, prev.Name)
		}
	}
	for _, name := range names {
		r.byName[name] = cmd
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Lookup resolves a command by its name or one of its aliases.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.byName[name]
	return cmd, ok
}

// Categories returns the category names in first-registration order.
func (r *Registry) Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, cmd := range r.commands {
		if !seen[cmd.Category] {
			seen[cmd.Category] = true
			cats = append(cats, cmd.Category)
		}
	}
	return cats
}

// ByCategory returns the commands of one category in registration order.
func (r *Registry) ByCategory(category string) []*Command {
	var cmds []*Command
	for _, cmd := range r.commands {
		if cmd.Category == category {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Dispatch resolves args[0] against the registry and runs the matching
// command with the remaining arguments. When args is empty or args[0] names
// no command, the default command receives all arguments untouched, which
// lets bare frame-range arguments reach the stack command.
func Dispatch(r *Registry, defaultName string, args []string) error {
	if len(args) > 0 {
		if cmd, ok := r.Lookup(args[0]); ok {
			return cmd.Run(args[1:])
		}
	}
	cmd, ok := r.Lookup(defaultName)
	if !ok {
		return fmt.Errorf("unknown command %q", defaultName)
	}
	return cmd.Run(args)
}
