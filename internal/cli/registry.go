package cli

import (
	"fmt"
	"strings"

	"chessduel/internal/engine"
)

// Command defines a REPL command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(args []string) error
}

// REPL reads command lines and applies them to a driver
type REPL struct {
	driver   Driver
	view     *View
	commands map[string]*Command
	order    []*Command
	quit     bool
}

func New(d Driver, v *View) *REPL {
	r := &REPL{
		driver:   d,
		view:     v,
		commands: make(map[string]*Command),
	}
	r.registerGameCommands()
	r.registerViewCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})
	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Leave the program",
		Usage:       "exit",
		Handler: func([]string) error {
			r.quit = true
			return nil
		},
	})
	r.commands["quit"] = r.commands["exit"]
	return r
}

func (r *REPL) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
	r.order = append(r.order, cmd)
}

// Names lists command names for completion
func (r *REPL) Names() []string {
	names := make([]string, len(r.order))
	for i, cmd := range r.order {
		names[i] = cmd.Name
	}
	return names
}

// Prompt is the prompt for the next line
func (r *REPL) Prompt() string { return r.view.Prompt(r.driver) }

// Execute runs one input line and reports whether the user asked to quit.
// A line that is not a command but parses as a move is played.
func (r *REPL) Execute(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return r.quit
	}

	name, args := parts[0], parts[1:]
	cmd, exists := r.commands[name]
	if !exists {
		if _, _, _, err := engine.ParseMove(name); err == nil && len(args) == 0 {
			cmd, args = r.commands["move"], parts
		} else {
			r.view.ShowError(fmt.Errorf("unknown command: %s (type 'help' for commands)", name))
			return r.quit
		}
	}

	if err := cmd.Handler(args); err != nil {
		r.view.ShowError(err)
	}
	return r.quit
}

func (r *REPL) helpHandler(args []string) error {
	t := r.view.colors()
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		r.view.ShowMessage(fmt.Sprintf("%s%s%s - %s", t.accent, cmd.Name, t.reset, cmd.Description))
		if cmd.ShortName != "" {
			r.view.ShowMessage(fmt.Sprintf("Short form: %s", cmd.ShortName))
		}
		r.view.ShowMessage("Usage: " + cmd.Usage)
		return nil
	}

	r.view.ShowMessage(t.accent + "Available Commands:" + t.reset)
	for _, cmd := range r.order {
		short := "   "
		if cmd.ShortName != "" {
			short = fmt.Sprintf("[%s]", cmd.ShortName)
		}
		r.view.ShowMessage(fmt.Sprintf("  %s %-10s %s", short, cmd.Name, cmd.Description))
	}
	r.view.ShowMessage("\nType 'help <command>' for detailed usage")
	return nil
}

// Redraw shows the board after a change the user did not type, such as an
// opponent's move.
func (r *REPL) Redraw() {
	if g := r.driver.Game(); g != nil {
		r.show(g)
	}
}

// Welcome greets the user
func (r *REPL) Welcome() {
	r.view.ShowWelcome(r.driver)
	r.Redraw()
}
