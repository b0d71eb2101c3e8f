package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want Format
	}{
		{"default", "", "", FormatJSON},
		{"flag json", "json", "compact", FormatJSON},
		{"flag compact", "COMPACT", "", FormatCompact},
		{"env", "", "compact", FormatCompact},
		{"unknown flag falls to env", "yaml", "compact", FormatCompact},
		{"unknown everywhere", "yaml", "toml", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvFormat, tt.env)
			if got := ResolveFormat(tt.flag); got != tt.want {
				t.Errorf("ResolveFormat(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestWriteRaw(t *testing.T) {
	raw := []byte(`{"behaviors": {"current": "shape"}, "instructions": "a<b"}`)

	var pretty bytes.Buffer
	if err := WriteRaw(&pretty, raw, FormatJSON); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	want := "{\n  \"behaviors\": {\n    \"current\": \"shape\"\n  },\n  \"instructions\": \"a<b\"\n}\n"
	if pretty.String() != want {
		t.Errorf("json output = %q, want %q", pretty.String(), want)
	}

	var compact bytes.Buffer
	if err := WriteRaw(&compact, raw, FormatCompact); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	if compact.String() != `{"behaviors":{"current":"shape"},"instructions":"a<b"}`+"\n" {
		t.Errorf("compact output = %q", compact.String())
	}
}

func TestWriteRaw_InvalidPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRaw(&buf, []byte("not json\n"), FormatJSON); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	if buf.String() != "not json\n" {
		t.Errorf("output = %q, want %q", buf.String(), "not json\n")
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"bot": "story_bot", "behaviors": []string{"shape"}}, FormatCompact); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact output should be one line: %q", buf.String())
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["bot"] != "story_bot" {
		t.Errorf("bot = %v", got["bot"])
	}
}
