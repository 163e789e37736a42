package process

import (
	"errors"
	"slices"
	"strings"

	"github.com/CZERTAINLY/Launcher/internal/tokenize"
)

var ErrEmptyCommand = errors.New("command is empty")

// Spec describes one process invocation. It is immutable: the With methods
// return modified copies.
type Spec struct {
	command string
	script  string
	input   *string
	dir     string
}

// NewSpec trims command and script. Command must not be empty, script may
// be. Both are tokenized at run time, command tokens first.
func NewSpec(command, script string) (Spec, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Spec{}, ErrEmptyCommand
	}
	return Spec{
		command: command,
		script:  strings.TrimSpace(script),
	}, nil
}

// WithInput sets the text written to the process standard input. A newline
// is appended and the input is closed afterwards.
func (s Spec) WithInput(text string) Spec {
	s.input = &text
	return s
}

// WithDir sets the working directory. It is created when missing; this is
// checked when the process runs, not here.
func (s Spec) WithDir(dir string) Spec {
	s.dir = dir
	return s
}

func (s Spec) Command() string {
	return s.command
}

func (s Spec) Script() string {
	return s.script
}

// Input returns the standard input text and whether it was set.
func (s Spec) Input() (string, bool) {
	if s.input == nil {
		return "", false
	}
	return *s.input, true
}

func (s Spec) Dir() string {
	return s.dir
}

// Args returns the argument vector: tokens of command followed by tokens
// of script.
func (s Spec) Args() []string {
	return slices.Concat(tokenize.Tokenize(s.command), tokenize.Tokenize(s.script))
}
