package botcli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// segmentPattern matches one segment of a dotted command path
	// (behavior, action or operation name).
	segmentPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_-]*$`)
	// flagPattern matches a flag name without the leading dashes.
	flagPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	// barePattern matches values that need no quoting.
	barePattern = regexp.MustCompile(`^[a-zA-Z0-9_./:=@%+,-]+$`)
)

type argKind int

const (
	argPositional argKind = iota
	argFlag
	argJSONFlag
)

// Arg is one argument of a Command. Build it with Positional, Flag or JSONFlag.
type Arg struct {
	kind  argKind
	name  string
	value string
	data  any
}

// Positional is a bare argument, e.g. the filter in "scope <filter>".
func Positional(value string) Arg {
	return Arg{kind: argPositional, value: value}
}

// Flag is a "--name value" argument.
func Flag(name, value string) Arg {
	return Arg{kind: argFlag, name: name, value: value}
}

// JSONFlag is a "--name '<json>'" argument. v is marshaled at encode time.
func JSONFlag(name string, v any) Arg {
	return Arg{kind: argJSONFlag, name: name, data: v}
}

// Command is a bot CLI command: a dotted path such as "shape.strategy" plus
// ordered arguments. Encode is the only way a Command becomes a wire line.
type Command struct {
	Path []string
	Args []Arg
}

// NewCommand creates a command from path segments.
func NewCommand(path ...string) Command {
	return Command{Path: path}
}

// ParsePath creates a command from a dotted path like "shape.clarify.build".
func ParsePath(dotted string) Command {
	return Command{Path: strings.Split(dotted, ".")}
}

// With returns a copy of c with args appended.
func (c Command) With(args ...Arg) Command {
	out := Command{Path: c.Path}
	out.Args = append(append([]Arg{}, c.Args...), args...)
	return out
}

// Name returns the dotted command path.
func (c Command) Name() string {
	return strings.Join(c.Path, ".")
}

// String returns the encoded line, or the bare name if encoding fails.
func (c Command) String() string {
	line, err := c.Encode()
	if err != nil {
		return c.Name()
	}
	return line
}

// Encode serializes the command into a single line. Values are quoted with
// POSIX single quotes so a shlex-style split on the CLI side yields exactly
// the original arguments.
func (c Command) Encode() (string, error) {
	if len(c.Path) == 0 {
		return "", fmt.Errorf("empty command")
	}
	for _, seg := range c.Path {
		if !segmentPattern.MatchString(seg) {
			return "", fmt.Errorf("invalid command segment %q", seg)
		}
	}

	var b strings.Builder
	b.WriteString(c.Name())

	for _, a := range c.Args {
		var value string
		switch a.kind {
		case argPositional:
			value = a.value
		case argFlag, argJSONFlag:
			if !flagPattern.MatchString(a.name) {
				return "", fmt.Errorf("invalid flag name %q", a.name)
			}
			b.WriteString(" --")
			b.WriteString(a.name)
			value = a.value
			if a.kind == argJSONFlag {
				data, err := json.Marshal(a.data)
				if err != nil {
					return "", fmt.Errorf("encoding --%s: %w", a.name, err)
				}
				value = string(data)
			}
		}
		if strings.ContainsAny(value, "\r\n") {
			return "", fmt.Errorf("argument for %s contains a line break", c.Name())
		}
		b.WriteByte(' ')
		b.WriteString(Quote(value))
	}

	return b.String(), nil
}

// Quote returns value quoted for a POSIX shell-style splitter.
func Quote(value string) string {
	if value == "" {
		return "''"
	}
	if barePattern.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
