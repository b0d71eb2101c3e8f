package fakebot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steveyegge/botpanel/internal/botcli"
)

// Bot holds the fake CLI's navigation state.
type Bot struct {
	cfg       Config
	behavior  int
	action    int
	workspace string

	scopeType   string
	scopeFilter string

	answers     map[string]string
	evidence    map[string]string
	decisions   map[string]string
	assumptions []string
	operations  []string
}

// New creates a bot positioned at cfg.Start (or its first behavior).
func New(cfg Config) *Bot {
	b := &Bot{
		cfg:       cfg,
		scopeType: "all",
		answers:   map[string]string{},
		evidence:  map[string]string{},
		decisions: map[string]string{},
	}
	if i := b.behaviorIndex(cfg.Start); i >= 0 {
		b.behavior = i
	}
	return b
}

// Handle executes one command line and returns the JSON-able response.
func (b *Bot) Handle(line string) any {
	args, err := botcli.SplitLine(line)
	if err != nil {
		return errorf("cannot parse command: %v", err)
	}
	if len(args) == 0 {
		return errorf("empty command")
	}

	name, rest := args[0], args[1:]
	switch name {
	case "status":
		return b.Status()
	case "current":
		return map[string]any{"behavior": b.currentBehavior().Name, "action": b.currentAction()}
	case "next":
		b.step(1)
		return b.navigated()
	case "back":
		b.step(-1)
		return b.navigated()
	case "restart":
		b.action = 0
		return b.navigated()
	case "help":
		return map[string]any{"commands": []string{"status", "next", "back", "current", "restart", "scope", "workspace", "clarify", "strategy"}}
	case "echo":
		return map[string]any{"echo": strings.Join(rest, " ")}
	case "scope":
		return b.scope(rest)
	case "workspace":
		if len(rest) != 1 {
			return errorf("workspace takes exactly one path")
		}
		b.workspace = rest[0]
		return map[string]any{"status": "ok", "workspace": b.workspace}
	case "clarify":
		return b.clarify(rest)
	case "strategy":
		return b.strategy(rest)
	}

	if len(rest) > 0 {
		return errorf("unexpected arguments for %s", name)
	}
	return b.navigate(strings.Split(name, "."))
}

// Status returns the snapshot the real CLI prints for "status".
func (b *Bot) Status() map[string]any {
	current := b.currentBehavior()

	behaviors := make([]any, 0, len(b.cfg.Behaviors))
	for i, bh := range b.cfg.Behaviors {
		actions := make([]any, 0, len(bh.Actions))
		for j, a := range bh.Actions {
			actions = append(actions, map[string]any{
				"name":       a,
				"completed":  i < b.behavior || (i == b.behavior && j < b.action),
				"operations": []string{"instructions", "submit"},
			})
		}
		entry := map[string]any{
			"name":        bh.Name,
			"description": bh.Description,
			"completed":   i < b.behavior,
			"actions":     map[string]any{"all_actions": actions},
		}
		if i == b.behavior {
			entry["actions"].(map[string]any)["current"] = b.currentAction()
		}
		behaviors = append(behaviors, entry)
	}

	status := map[string]any{
		"bot_name":       b.cfg.Name,
		"workspace":      b.workspace,
		"behaviors":      map[string]any{"current": current.Name, "all_behaviors": behaviors},
		"current_action": b.currentAction(),
		"scope":          map[string]any{"type": b.scopeType, "filter": b.scopeFilter, "files": b.scopeFiles()},
		"instructions":   instructionsFor(current.Name, b.currentAction()),
	}
	if len(b.operations) > 0 {
		status["last_operation"] = b.operations[len(b.operations)-1]
	}

	switch b.currentAction() {
	case "clarify":
		status["clarification"] = map[string]any{
			"key_questions": map[string]string{
				"users":   "Who are the primary users?",
				"outcome": "What outcome should the first increment deliver?",
			},
			"evidence":          []string{"interview notes", "support tickets"},
			"answers":           b.answers,
			"evidence_provided": b.evidence,
		}
	case "strategy":
		status["strategy"] = map[string]any{
			"decision_criteria": map[string]any{
				"depth": map[string]any{
					"question": "How deep should the story map go?",
					"options":  []string{"epics only", "epics and features", "full stories"},
				},
			},
			"decisions_made":   b.decisions,
			"assumptions":      []string{"The team works in two-week increments"},
			"assumptions_made": b.assumptions,
		}
	}
	return status
}

func (b *Bot) navigate(path []string) any {
	if len(path) > 3 {
		return errorf("too many segments in %q", strings.Join(path, "."))
	}
	bi := b.behaviorIndex(path[0])
	if bi < 0 {
		return errorf("unknown behavior: %s", path[0])
	}
	ai := 0
	if len(path) > 1 {
		ai = indexOf(b.cfg.Behaviors[bi].Actions, path[1])
		if ai < 0 {
			return errorf("unknown action %s for behavior %s", path[1], path[0])
		}
	}
	b.behavior, b.action = bi, ai

	resp := b.navigated()
	if len(path) == 3 {
		b.operations = append(b.operations, strings.Join(path, "."))
		resp["operation"] = path[2]
		resp["instructions"] = instructionsFor(path[0], b.currentAction())
	}
	return resp
}

func (b *Bot) navigated() map[string]any {
	return map[string]any{
		"status":   "ok",
		"behavior": b.currentBehavior().Name,
		"action":   b.currentAction(),
		"message":  fmt.Sprintf("Navigated to %s.%s", b.currentBehavior().Name, b.currentAction()),
	}
}

func (b *Bot) step(delta int) {
	actions := b.currentBehavior().Actions
	next := b.action + delta
	switch {
	case next >= len(actions):
		if b.behavior+1 < len(b.cfg.Behaviors) {
			b.behavior++
			b.action = 0
		}
	case next < 0:
		if b.behavior > 0 {
			b.behavior--
			b.action = len(b.currentBehavior().Actions) - 1
		}
	default:
		b.action = next
	}
}

func (b *Bot) scope(args []string) any {
	if len(args) == 0 {
		return errorf("scope requires a filter or 'clear'")
	}
	if len(args) == 1 && args[0] == "clear" {
		b.scopeType, b.scopeFilter = "all", ""
	} else {
		b.scopeType, b.scopeFilter = "story", strings.Join(args, " ")
	}
	return map[string]any{"status": "ok", "scope": map[string]any{"type": b.scopeType, "filter": b.scopeFilter}}
}

func (b *Bot) scopeFiles() []string {
	if b.scopeFilter == "" {
		return []string{}
	}
	slug := strings.ToLower(strings.ReplaceAll(b.scopeFilter, " ", "_"))
	return []string{"docs/stories/" + slug + ".md", "docs/stories/" + slug + "_acceptance.md"}
}

func (b *Bot) clarify(args []string) any {
	flags, err := parseFlags(args)
	if err != nil {
		return errorf("%v", err)
	}
	for name, raw := range flags {
		var values map[string]string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return errorf("invalid JSON for --%s: %v", name, err)
		}
		switch name {
		case "answers":
			merge(b.answers, values)
		case "evidence_provided":
			merge(b.evidence, values)
		default:
			return errorf("unknown flag --%s", name)
		}
	}
	return map[string]any{"status": "ok", "answers": b.answers, "evidence_provided": b.evidence}
}

func (b *Bot) strategy(args []string) any {
	flags, err := parseFlags(args)
	if err != nil {
		return errorf("%v", err)
	}
	for name, raw := range flags {
		switch name {
		case "decisions_made":
			var values map[string]string
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return errorf("invalid JSON for --%s: %v", name, err)
			}
			merge(b.decisions, values)
		case "assumptions_made":
			var values []string
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return errorf("invalid JSON for --%s: %v", name, err)
			}
			b.assumptions = values
		default:
			return errorf("unknown flag --%s", name)
		}
	}
	return map[string]any{"status": "ok", "decisions_made": b.decisions, "assumptions_made": b.assumptions}
}

func (b *Bot) currentBehavior() BehaviorDef {
	return b.cfg.Behaviors[b.behavior]
}

func (b *Bot) currentAction() string {
	actions := b.currentBehavior().Actions
	if b.action < len(actions) {
		return actions[b.action]
	}
	return ""
}

func (b *Bot) behaviorIndex(name string) int {
	for i, bh := range b.cfg.Behaviors {
		if bh.Name == name {
			return i
		}
	}
	return -1
}

func instructionsFor(behavior, action string) string {
	if action == "render" {
		return ""
	}
	return fmt.Sprintf("## %s: %s\n\nWork through the **%s** step for the %s behavior.\n\n"+
		"```json\n{\"behavior\": %q, \"action\": %q}\n```\n\n"+
		"See the [guide](https://example.com/guide/%s) for details.\n",
		behavior, action, action, behavior, behavior, action, behavior)
}

func parseFlags(args []string) (map[string]string, error) {
	flags := map[string]string{}
	for i := 0; i < len(args); i++ {
		name, ok := strings.CutPrefix(args[i], "--")
		if !ok || name == "" {
			return nil, fmt.Errorf("unexpected argument %q", args[i])
		}
		if i+1 >= len(args) {
			return nil, fmt.Errorf("--%s requires a value", name)
		}
		flags[name] = args[i+1]
		i++
	}
	if len(flags) == 0 {
		return nil, fmt.Errorf("no flags given")
	}
	return flags, nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func errorf(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}
