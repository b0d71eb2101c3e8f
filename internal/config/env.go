package config

import (
	"os"
	"sort"
)

const (
	// EnvBotDirectory selects the active bot directory.
	EnvBotDirectory = "BOT_DIRECTORY"
	// EnvWorkingArea is passed through to the bot CLI unchanged.
	EnvWorkingArea = "WORKING_AREA"
	// EnvLogLevel overrides [log] level.
	EnvLogLevel = "BOTPANEL_LOG_LEVEL"
)

// BotEnv returns the environment variables the bot CLI is started with.
// Configured [cli] env entries win over the computed ones.
func (c *Config) BotEnv(botDir string) map[string]string {
	env := map[string]string{
		EnvBotDirectory:    botDir,
		"PYTHONUNBUFFERED": "1",
	}
	if wa, ok := os.LookupEnv(EnvWorkingArea); ok {
		env[EnvWorkingArea] = wa
	}
	return MergeEnv(env, c.CLI.Env)
}

// MergeEnv merges multiple environment maps, with later maps taking precedence.
func MergeEnv(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// EnvToSlice converts an env map to "K=V" strings sorted by key.
func EnvToSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(env))
	for _, k := range keys {
		result = append(result, k+"="+env[k])
	}
	return result
}
