package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/icza/backscanner"
)

type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// Trigger for the help meta-command that prints out all help strings
	TriggerHelpMetacommand = ".help"

	// Trigger for the history meta-command that prints recently executed lines
	TriggerHistoryMetacommand = ".history"

	// String that should be prepended to any error before being sent to the output writer
	ErrorPrependStr = "ERROR: "

	// Number of lines printed by the history meta-command
	historyTailLines = 10
)

var (
	ErrOverlappingCommands = errors.New("found overlapping commands")

	// Error for when a sent trigger is not associated with any known commands
	ErrCommandNotFound = errors.New("command not found")
)

// REPL maps command triggers to their actions and help strings.
type REPL struct {
	commands    map[string]ReplCommand
	help        map[string]string
	historyPath string
}

// REPLConfig identifies the client a command is running for.
type REPLConfig struct {
	clientId uuid.UUID
}

// GetAddr returns the client id of the session.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// NewRepl constructs an empty REPL.
func NewRepl() *REPL {
	return &REPL{
		commands: make(map[string]ReplCommand),
		help:     make(map[string]string),
	}
}

// CombineRepls merges a slice of REPLs into one. Errors if any two REPLs
// share a trigger. If no REPLs are given, returns a new empty REPL.
func CombineRepls(repls []*REPL) (*REPL, error) {
	combined := NewRepl()
	for _, r := range repls {
		for trigger, action := range r.commands {
			if _, taken := combined.commands[trigger]; taken {
				return nil, fmt.Errorf("%w: %s", ErrOverlappingCommands, trigger)
			}
			combined.AddCommand(trigger, action, r.help[trigger])
		}
		if combined.historyPath == "" {
			combined.historyPath = r.historyPath
		}
	}
	return combined, nil
}

// GetCommands returns the trigger to action mapping.
func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

// GetHelp returns the trigger to help string mapping.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// AddCommand registers a command with its help string, overwriting any
// previous command with the same trigger. Meta-command triggers are reserved.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) {
	if strings.HasPrefix(trigger, ".") {
		return
	}
	r.commands[trigger] = action
	r.help[trigger] = help
}

// EnableHistory makes the REPL append every executed line to the file at
// path and enables the history meta-command.
func (r *REPL) EnableHistory(path string) {
	r.historyPath = path
}

// HelpString returns all commands' help strings as one string, sorted by
// trigger.
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.help))
	for trigger := range r.help {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)
	var sb strings.Builder
	for _, trigger := range triggers {
		fmt.Fprintf(&sb, "%s: %s\n", trigger, r.help[trigger])
	}
	return sb.String()
}

// appendHistory records an executed line. History write failures never
// interrupt the session.
func (r *REPL) appendHistory(line string) {
	if r.historyPath == "" {
		return
	}
	f, err := os.OpenFile(r.historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	io.WriteString(f, line+"\n")
}

// historyTail returns the last few executed lines, oldest first. The history
// file is read backwards so a long session never loads the whole file.
func (r *REPL) historyTail() (string, error) {
	if r.historyPath == "" {
		return "", errors.New("history is not enabled")
	}
	f, err := os.Open(r.historyPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	scanner := backscanner.New(f, int(info.Size()))
	var lines []string
	for len(lines) < historyTailLines {
		line, _, err := scanner.Line()
		if err != nil {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	var sb strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		sb.WriteString(lines[i])
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Run writes the welcome string and then reads, executes, and responds to
// commands until input is exhausted. Input and output default to stdin and
// stdout if left unspecified.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	replConfig := &REPLConfig{clientId: clientId}
	fmt.Fprintln(output, "Welcome to the hashdb REPL! Please type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		payload := scanner.Text()
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(output, prompt)
			continue
		}
		trigger := fields[0]

		switch trigger {
		case TriggerHelpMetacommand:
			io.WriteString(output, r.HelpString())
		case TriggerHistoryMetacommand:
			tail, err := r.historyTail()
			if err != nil {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
			} else {
				io.WriteString(output, tail)
			}
		default:
			command, exists := r.commands[trigger]
			if !exists {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
				break
			}
			r.appendHistory(payload)
			result, err := command(payload, replConfig)
			if err != nil {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
			} else {
				if len(result) != 0 && !strings.HasSuffix(result, "\n") {
					result = result + "\n"
				}
				io.WriteString(output, result)
			}
		}
		io.WriteString(output, prompt)
	}
	// Print an additional line if we encountered an EOF character.
	io.WriteString(output, "\n")
}
