package core

// CommandHandler handles a command. args excludes the command name.
type CommandHandler func(args []string) error

// AnyArgs accepts any number of arguments; extra arguments are ignored
const AnyArgs = -1

// Command represents a panel command
type Command struct {
	Name    string
	Format  string // Argument description (e.g., "value=%u")
	Args    int    // Required argument count, or AnyArgs
	Handler CommandHandler
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command to the registry. Registering a name twice
// replaces the handler.
func (r *CommandRegistry) Register(name string, format string, args int, handler CommandHandler) {
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = &Command{
		Name:    name,
		Format:  format,
		Args:    args,
		Handler: handler,
	}
}

// Dispatch calls the handler named by argv[0] with the remaining arguments
func (r *CommandRegistry) Dispatch(argv []string) error {
	if len(argv) == 0 {
		return ErrNoCommand
	}

	cmd, ok := r.commands[argv[0]]
	if !ok {
		return ErrUnknownCommand
	}

	args := argv[1:]
	if cmd.Args != AnyArgs && len(args) != cmd.Args {
		return ErrArgCount
	}

	return cmd.Handler(args)
}

// GetDictionary returns one line per command in registration order
func (r *CommandRegistry) GetDictionary() string {
	dict := ""
	for _, name := range r.order {
		cmd := r.commands[name]
		if cmd.Format != "" {
			dict += cmd.Name + " " + cmd.Format + "\n"
		} else {
			dict += cmd.Name + "\n"
		}
	}
	return dict
}
