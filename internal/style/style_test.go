package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestColorEnabled(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		tty  bool
		want bool
	}{
		{"terminal", nil, true, true},
		{"piped", nil, false, false},
		{"no color wins over force", map[string]string{"NO_COLOR": "", "CLICOLOR_FORCE": "1"}, true, false},
		{"clicolor off", map[string]string{"CLICOLOR": "0"}, true, false},
		{"clicolor on keeps tty check", map[string]string{"CLICOLOR": "1"}, false, false},
		{"forced when piped", map[string]string{"CLICOLOR_FORCE": "1"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, colorEnabled(env(tt.vars), tt.tty))
		})
	}
}

func TestMark(t *testing.T) {
	assert.Equal(t, "✓", mark("✓", "x", env(nil), true))
	assert.Equal(t, "x", mark("✓", "x", env(nil), false))
	assert.Equal(t, "x", mark("✓", "x", env(map[string]string{EnvNoSymbols: ""}), true))
}

func TestMark_PipedOutput(t *testing.T) {
	if Interactive() {
		t.Skip("stdout is a terminal")
	}
	assert.Equal(t, "done", Mark("✓", "done"))
}
