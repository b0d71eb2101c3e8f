// Package fakebot is a scripted stand-in for the bot CLI. Tests run it by
// re-executing their own binary with EnvEnable set; see RunIfRequested.
package fakebot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/botpanel/internal/botcli"
)

const (
	// EnvEnable makes RunIfRequested take over the process.
	EnvEnable = "BOTPANEL_FAKE_BOT"
	// EnvNoBanner suppresses the startup banner.
	EnvNoBanner = "BOTPANEL_FAKE_BOT_NO_BANNER"
	// ConfigFile is the bot definition read from the bot directory.
	ConfigFile = "bot_config.json"
	// CrashExitCode is the exit status of the "crash" command.
	CrashExitCode = 3
)

// RunIfRequested turns the current process into the fake bot when EnvEnable
// is set. Call it first thing in TestMain.
func RunIfRequested() {
	if os.Getenv(EnvEnable) != "1" {
		return
	}
	dir := os.Getenv("BOT_DIRECTORY")
	if dir == "" {
		dir, _ = os.Getwd()
	}
	os.Exit(Serve(os.Stdin, os.Stdout, dir, os.Getenv(EnvNoBanner) == ""))
}

// Executable returns the path of the running test binary.
func Executable() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}

// Env returns the environment that makes a re-executed test binary act as
// the fake bot.
func Env(banner bool) []string {
	env := []string{EnvEnable + "=1"}
	if !banner {
		env = append(env, EnvNoBanner+"=1")
	}
	return env
}

// SessionConfig returns a botcli.Config that runs the fake bot in dir.
func SessionConfig(dir string) botcli.Config {
	env := append(Env(true), "BOT_DIRECTORY="+dir)
	return botcli.Config{
		Command: Executable(),
		Args:    []string{"-test.run=^$"},
		Dir:     dir,
		Env:     env,
	}
}

// BehaviorDef is one behavior in a bot definition.
type BehaviorDef struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Actions     []string `json:"actions"`
}

// Config is the bot definition loaded from ConfigFile.
type Config struct {
	Name      string        `json:"name"`
	Start     string        `json:"start,omitempty"`
	Behaviors []BehaviorDef `json:"behaviors"`
}

// DefaultConfig is used when the bot directory has no ConfigFile.
func DefaultConfig() Config {
	actions := []string{"clarify", "strategy", "build", "validate", "render"}
	return Config{
		Name:  "story_bot",
		Start: "shape",
		Behaviors: []BehaviorDef{
			{Name: "shape", Description: "Shape the story map", Actions: actions},
			{Name: "prioritization", Description: "Order increments", Actions: actions},
			{Name: "discovery", Description: "Discover stories", Actions: actions},
			{Name: "exploration", Description: "Explore acceptance criteria", Actions: actions},
			{Name: "scenarios", Description: "Write scenarios", Actions: actions},
			{Name: "tests", Description: "Write tests", Actions: actions},
			{Name: "code", Description: "Write code", Actions: actions},
		},
	}
}

// LoadConfig reads dir/ConfigFile, falling back to DefaultConfig.
func LoadConfig(dir string) Config {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return DefaultConfig()
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil || len(cfg.Behaviors) == 0 {
		return DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(dir)
	}
	return cfg
}

// Serve runs the line protocol until in is exhausted and returns the exit
// status the process should use.
func Serve(in io.Reader, out io.Writer, dir string, banner bool) int {
	bot := New(LoadConfig(dir))
	w := bufio.NewWriter(out)

	if banner {
		fmt.Fprintf(w, "Fake bot %s ready\n", bot.cfg.Name)
		w.Flush()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "crash":
			w.Flush()
			return CrashExitCode
		case "exit":
			w.Flush()
			return 0
		case "hang":
			w.Flush()
			select {}
		case "garbage":
			fmt.Fprintln(w, `{this is not json}`)
			w.Flush()
			continue
		case "noise":
			fmt.Fprintln(w, "progress: 50%")
			w.Flush()
			writeJSON(w, map[string]any{"status": "ok"})
			w.Flush()
			continue
		case "fragment":
			writeFragmented(w, bot.Status())
			continue
		}
		if rest, ok := strings.CutPrefix(line, "logged "); ok {
			fmt.Fprintf(w, "[INFO] handling %s\n", rest)
			w.Flush()
			time.Sleep(20 * time.Millisecond)
			line = rest
		}

		writeJSON(w, bot.Handle(line))
		w.Flush()
	}
	return 0
}

func writeJSON(w io.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	w.Write(append(data, '\n'))
}

// writeFragmented writes v pretty-printed, in several flushed chunks, so the
// reader sees a value split across reads and across lines.
func writeFragmented(w *bufio.Writer, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	data = append(data, '\n')
	step := len(data)/4 + 1
	for i := 0; i < len(data); i += step {
		end := i + step
		if end > len(data) {
			end = len(data)
		}
		w.Write(data[i:end])
		w.Flush()
		time.Sleep(5 * time.Millisecond)
	}
}
