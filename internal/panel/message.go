package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/botpanel/internal/botcli"
)

// Message names sent by the webview.
const (
	MsgRefresh                  = "refresh"
	MsgOpenFile                 = "openFile"
	MsgClearScopeFilter         = "clearScopeFilter"
	MsgUpdateFilter             = "updateFilter"
	MsgUpdateWorkspace          = "updateWorkspace"
	MsgSwitchBot                = "switchBot"
	MsgExecuteNavigationCommand = "executeNavigationCommand"
	MsgNavigateToBehavior       = "navigateToBehavior"
	MsgNavigateToAction         = "navigateToAction"
	MsgNavigateAndExecute       = "navigateAndExecute"
	MsgToggleSection            = "toggleSection"
	MsgSendToChat               = "sendToChat"
	MsgSaveClarifyAnswers       = "saveClarifyAnswers"
	MsgSaveClarifyEvidence      = "saveClarifyEvidence"
	MsgSaveStrategyDecision     = "saveStrategyDecision"
	MsgSaveStrategyAssumptions  = "saveStrategyAssumptions"
)

// Message names sent to the webview.
const (
	OutHTML         = "html"
	OutDisplayError = "displayError"
	OutChat         = "chat"
)

// Message is one message from the webview. Only the fields its Command
// uses are set.
type Message struct {
	Command string `json:"command"`

	FilePath       string `json:"filePath,omitempty"`
	Filter         string `json:"filter,omitempty"`
	WorkspacePath  string `json:"workspacePath,omitempty"`
	BotName        string `json:"botName,omitempty"`
	CommandText    string `json:"commandText,omitempty"`
	BehaviorName   string `json:"behaviorName,omitempty"`
	ActionName     string `json:"actionName,omitempty"`
	OperationName  string `json:"operationName,omitempty"`
	SectionID      string `json:"sectionId,omitempty"`
	CriteriaKey    string `json:"criteriaKey,omitempty"`
	SelectedOption string `json:"selectedOption,omitempty"`

	Answers          json.RawMessage `json:"answers,omitempty"`
	EvidenceProvided json.RawMessage `json:"evidence_provided,omitempty"`
	Assumptions      json.RawMessage `json:"assumptions,omitempty"`
}

// DecodeMessage parses a webview message.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding panel message: %w", err)
	}
	if m.Command == "" {
		return Message{}, fmt.Errorf("panel message has no command")
	}
	return m, nil
}

// OutMessage is a message pushed to the webview.
type OutMessage struct {
	Command string `json:"command"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
	Text    string `json:"text,omitempty"`
}

// navigationVerbs are the bare words executeNavigationCommand accepts
// besides dotted paths.
var navigationVerbs = map[string]bool{
	"next":    true,
	"back":    true,
	"current": true,
	"status":  true,
	"restart": true,
	"help":    true,
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// NavigationCommand validates free text typed into the navigation box.
func NavigationCommand(text string) (botcli.Command, error) {
	text = strings.TrimSpace(text)
	if navigationVerbs[text] {
		return botcli.NewCommand(text), nil
	}
	segs := strings.Split(text, ".")
	if len(segs) > 3 {
		return botcli.Command{}, fmt.Errorf("navigation command %q has more than three segments", text)
	}
	for _, s := range segs {
		if !identPattern.MatchString(s) {
			return botcli.Command{}, fmt.Errorf("invalid navigation command %q", text)
		}
	}
	return botcli.NewCommand(segs...), nil
}

// Translate maps a message that becomes a single CLI command. ok is false
// when the message carries no command: it is missing a required field, or
// it is handled by the panel itself.
func Translate(m Message) (cmd botcli.Command, ok bool, err error) {
	field := func(s string) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	switch m.Command {
	case MsgClearScopeFilter:
		return botcli.NewCommand("scope").With(botcli.Positional("clear")), true, nil

	case MsgUpdateFilter:
		f, ok := field(m.Filter)
		if !ok {
			return cmd, false, nil
		}
		return botcli.NewCommand("scope").With(botcli.Positional(f)), true, nil

	case MsgUpdateWorkspace:
		p, ok := field(m.WorkspacePath)
		if !ok {
			return cmd, false, nil
		}
		return botcli.NewCommand("workspace").With(botcli.Positional(p)), true, nil

	case MsgExecuteNavigationCommand:
		text, ok := field(m.CommandText)
		if !ok {
			return cmd, false, nil
		}
		c, err := NavigationCommand(text)
		if err != nil {
			return cmd, false, err
		}
		return c, true, nil

	case MsgNavigateToBehavior:
		b, ok := field(m.BehaviorName)
		if !ok {
			return cmd, false, nil
		}
		return botcli.NewCommand(b), true, nil

	case MsgNavigateToAction:
		b, okB := field(m.BehaviorName)
		a, okA := field(m.ActionName)
		if !okB || !okA {
			return cmd, false, nil
		}
		return botcli.NewCommand(b, a), true, nil

	case MsgNavigateAndExecute:
		b, okB := field(m.BehaviorName)
		a, okA := field(m.ActionName)
		o, okO := field(m.OperationName)
		if !okB || !okA || !okO {
			return cmd, false, nil
		}
		return botcli.NewCommand(b, a, o), true, nil

	case MsgSaveClarifyAnswers:
		return jsonFlagCommand("clarify", "answers", m.Answers, '{')

	case MsgSaveClarifyEvidence:
		return jsonFlagCommand("clarify", "evidence_provided", m.EvidenceProvided, '{')

	case MsgSaveStrategyDecision:
		k, okK := field(m.CriteriaKey)
		if !okK || m.SelectedOption == "" {
			return cmd, false, nil
		}
		return botcli.NewCommand("strategy").
			With(botcli.JSONFlag("decisions_made", map[string]string{k: m.SelectedOption})), true, nil

	case MsgSaveStrategyAssumptions:
		return jsonFlagCommand("strategy", "assumptions_made", m.Assumptions, '[')
	}
	return cmd, false, nil
}

// jsonFlagCommand passes a JSON payload through as a flag. The payload
// must be an object ('{') or array ('[') as given by kind.
func jsonFlagCommand(name, flag string, raw json.RawMessage, kind byte) (botcli.Command, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return botcli.Command{}, false, nil
	}
	if raw[0] != kind || !json.Valid(raw) {
		want := "an object"
		if kind == '[' {
			want = "a list"
		}
		return botcli.Command{}, false, fmt.Errorf("%s payload must be %s", flag, want)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return botcli.Command{}, false, err
	}
	return botcli.NewCommand(name).With(botcli.JSONFlag(flag, json.RawMessage(compact.Bytes()))), true, nil
}
