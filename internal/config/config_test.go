package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvBotDirectory, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBotDirectory, cfg.Bot.Directory)
	assert.Equal(t, "python", cfg.CLI.Command)
	assert.Empty(t, cfg.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvBotDirectory, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
[cli]
command = "python3"
args = ["-m", "story_cli"]
env = { STORY_MODE = "panel" }

[bot]
directory = "bots/story_bot"
bots_root = "bots"

[server]
port = 9000
open = true

[log]
level = "debug"
file = "botpanel.log"

[chat]
command = "pbcopy"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "python3", cfg.CLI.Command)
	assert.Equal(t, []string{"-m", "story_cli"}, cfg.CLI.Args)
	assert.Equal(t, "panel", cfg.CLI.Env["STORY_MODE"])
	assert.Equal(t, "bots/story_bot", cfg.Bot.Directory)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Open)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, "pbcopy", cfg.Chat.Command)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBotDirectory, "/srv/bots/other_bot")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeConfig(t, "[bot]\ndirectory = \"bots/story_bot\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/bots/other_bot", cfg.Bot.Directory)
	assert.Equal(t, "other_bot", cfg.BotName())
	assert.Equal(t, "warn", cfg.Log.Level)

	root, err := cfg.BotsRoot()
	require.NoError(t, err)
	assert.Equal(t, "/srv/bots", root)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvBotDirectory, "")
	t.Setenv(EnvLogLevel, "")

	tests := map[string]string{
		"syntax":    "[cli\ncommand = ",
		"port":      "[server]\nport = 70000\n",
		"level":     "[log]\nlevel = \"loud\"\n",
		"empty cli": "[cli]\ncommand = \"  \"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestSessionConfig(t *testing.T) {
	t.Setenv(EnvWorkingArea, "/work/area")

	cfg := Default()
	cfg.CLI.Env = map[string]string{"PYTHONUNBUFFERED": "0", "EXTRA": "x"}

	sc := cfg.SessionConfig("/bots/story_bot", nil)
	assert.Equal(t, "python", sc.Command)
	assert.Equal(t, "/bots/story_bot", sc.Dir)
	assert.Equal(t, []string{
		"BOT_DIRECTORY=/bots/story_bot",
		"EXTRA=x",
		"PYTHONUNBUFFERED=0",
		"WORKING_AREA=/work/area",
	}, sc.Env)

	sc.Args[0] = "changed"
	assert.Equal(t, "-m", cfg.CLI.Args[0], "SessionConfig must copy args")
}

func TestListBots(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"tiny_bot", "story_bot", ".cache"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), nil, 0644))

	bots, err := ListBots(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"story_bot", "tiny_bot"}, bots)

	_, err = ListBots(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestEnvToSlice(t *testing.T) {
	got := EnvToSlice(MergeEnv(map[string]string{"B": "1", "A": "1"}, map[string]string{"B": "2"}))
	assert.Equal(t, []string{"A=1", "B=2"}, got)
}
