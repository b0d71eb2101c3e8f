package botcli

import (
	"fmt"
	"strings"
)

// SplitLine splits a command line into arguments, respecting single quotes,
// double quotes and backslash escapes the way a POSIX shell (and Python's
// shlex) does. It is the inverse of Command.Encode.
func SplitLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inArg := false
	quoteChar := rune(0)
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quoteChar == '\'':
			if r == '\'' {
				quoteChar = 0
			} else {
				current.WriteRune(r)
			}
		case quoteChar == '"':
			switch r {
			case '"':
				quoteChar = 0
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quoteChar = r
			inArg = true
		case r == '\\':
			escaped = true
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quoteChar != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quoteChar)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
