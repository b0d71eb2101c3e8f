// Package output writes machine-readable command output: the bot CLI's
// JSON, pretty-printed or compact.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents an output format.
type Format string

const (
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
	// FormatCompact is single-line JSON, one value per line.
	FormatCompact Format = "compact"
)

// EnvFormat overrides the default format.
const EnvFormat = "BOTPANEL_OUTPUT_FORMAT"

// ResolveFormat determines the output format from flag value and environment.
// Priority: explicit flag > BOTPANEL_OUTPUT_FORMAT > default (json).
func ResolveFormat(flagValue string) Format {
	if f, ok := parse(flagValue); ok {
		return f
	}
	if f, ok := parse(os.Getenv(EnvFormat)); ok {
		return f
	}
	return FormatJSON
}

func parse(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, true
	case "compact":
		return FormatCompact, true
	}
	return "", false
}

// Write marshals v in the given format.
func Write(w io.Writer, v any, format Format) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteRaw(w, data, format)
}

// WriteRaw writes already-marshaled JSON in the given format. Data that is
// not valid JSON is written unchanged.
func WriteRaw(w io.Writer, data []byte, format Format) error {
	var buf bytes.Buffer
	var err error
	if format == FormatCompact {
		err = json.Compact(&buf, data)
	} else {
		err = json.Indent(&buf, data, "", "  ")
	}
	if err != nil {
		buf.Reset()
		buf.Write(bytes.TrimRight(data, "\n"))
	}
	buf.WriteByte('\n')
	_, err = io.Copy(w, &buf)
	return err
}

// Print writes v to stdout in the resolved default format.
func Print(v any) error {
	if err := Write(os.Stdout, v, ResolveFormat("")); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
