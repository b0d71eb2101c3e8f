// Package snapshot decodes the JSON printed by the bot CLI's "status" command
// into a typed, read-only view.
//
// Decoding is tolerant: several fields have changed shape between CLI
// versions, and every accepted shape normalizes to the same Go value.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Status is one decoded status snapshot. Consumers must treat it as
// immutable; Raw holds the exact bytes it was decoded from.
type Status struct {
	BotName         string
	Workspace       string
	CurrentBehavior string
	CurrentAction   string
	LastOperation   string
	Behaviors       []Behavior
	Instructions    string
	Scope           Scope
	Clarification   *Clarification
	Strategy        *Strategy

	Raw json.RawMessage
}

// Behavior is one stage of the bot's workflow.
type Behavior struct {
	Name          string
	Description   string
	Completed     bool
	Actions       []Action
	CurrentAction string
}

// Action is one step within a behavior.
type Action struct {
	Name        string
	Description string
	Completed   bool
	Operations  []string
}

// Scope restricts which stories the bot works on.
type Scope struct {
	Type   string
	Filter string
	Files  []string
}

// Clarification is the state of the clarify action's form.
type Clarification struct {
	Questions        []Question
	Evidence         []string
	Answers          map[string]string
	EvidenceProvided map[string]string
}

// Question is one key question, ordered by Key.
type Question struct {
	Key  string
	Text string
}

// Strategy is the state of the strategy action's form.
type Strategy struct {
	Criteria        []Criterion
	DecisionsMade   map[string]string
	Assumptions     []string
	AssumptionsMade []string
}

// Criterion is one decision the strategy action asks for, ordered by Key.
type Criterion struct {
	Key      string
	Question string
	Options  []string
}

// Decode parses a status snapshot.
func Decode(data []byte) (*Status, error) {
	data = bytes.TrimSpace(data)
	var w wireStatus
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}

	s := &Status{
		BotName:       w.BotName,
		Workspace:     w.Workspace,
		CurrentAction: w.CurrentAction,
		LastOperation: w.LastOperation,
		Scope: Scope{
			Type:   w.Scope.Type,
			Filter: w.Scope.Filter,
			Files:  w.Scope.Files,
		},
		Raw: append(json.RawMessage(nil), data...),
	}

	if err := s.decodeBehaviors(w.Behaviors); err != nil {
		return nil, err
	}

	instructions, err := decodeInstructions(w.Instructions)
	if err != nil {
		return nil, err
	}
	s.Instructions = instructions

	if len(w.Clarification) > 0 && !isNull(w.Clarification) {
		c, err := decodeClarification(w.Clarification)
		if err != nil {
			return nil, err
		}
		s.Clarification = c
	}
	if len(w.Strategy) > 0 && !isNull(w.Strategy) {
		st, err := decodeStrategy(w.Strategy)
		if err != nil {
			return nil, err
		}
		s.Strategy = st
	}

	if s.CurrentAction == "" {
		if b, ok := s.Behavior(s.CurrentBehavior); ok {
			s.CurrentAction = b.CurrentAction
		}
	}
	for i := range s.Behaviors {
		if s.Behaviors[i].Name == s.CurrentBehavior && s.Behaviors[i].CurrentAction == "" {
			s.Behaviors[i].CurrentAction = s.CurrentAction
		}
	}
	return s, nil
}

// Behavior looks up a behavior by name.
func (s *Status) Behavior(name string) (Behavior, bool) {
	for _, b := range s.Behaviors {
		if b.Name == name {
			return b, true
		}
	}
	return Behavior{}, false
}

// Ordered returns the behaviors in canonical workflow order. The receiver
// is not modified.
func (s *Status) Ordered() []Behavior {
	out := make([]Behavior, len(s.Behaviors))
	copy(out, s.Behaviors)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i].Name, out[j].Name)
	})
	return out
}

type wireStatus struct {
	BotName       string          `json:"bot_name"`
	Workspace     string          `json:"workspace"`
	CurrentAction string          `json:"current_action"`
	LastOperation string          `json:"last_operation"`
	Behaviors     json.RawMessage `json:"behaviors"`
	Instructions  json.RawMessage `json:"instructions"`
	Scope         struct {
		Type   string   `json:"type"`
		Filter string   `json:"filter"`
		Files  []string `json:"files"`
	} `json:"scope"`
	Clarification json.RawMessage `json:"clarification"`
	Strategy      json.RawMessage `json:"strategy"`
}

func (s *Status) decodeBehaviors(raw json.RawMessage) error {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}

	// Older CLIs print a bare array of behaviors.
	var list []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("decoding behaviors: %w", err)
		}
	} else {
		var obj struct {
			Current string            `json:"current"`
			All     []json.RawMessage `json:"all_behaviors"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("decoding behaviors: %w", err)
		}
		s.CurrentBehavior = obj.Current
		list = obj.All
	}

	for i, item := range list {
		b, err := decodeBehavior(item)
		if err != nil {
			return fmt.Errorf("decoding behavior %d: %w", i, err)
		}
		s.Behaviors = append(s.Behaviors, b)
	}
	return nil
}

func decodeBehavior(raw json.RawMessage) (Behavior, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Behavior{Name: name}, nil
	}

	var w struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Completed   bool            `json:"completed"`
		Actions     json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Behavior{}, err
	}
	b := Behavior{Name: w.Name, Description: w.Description, Completed: w.Completed}

	if len(w.Actions) == 0 || isNull(w.Actions) {
		return b, nil
	}
	var items []json.RawMessage
	if w.Actions[0] == '[' {
		if err := json.Unmarshal(w.Actions, &items); err != nil {
			return Behavior{}, fmt.Errorf("actions: %w", err)
		}
	} else {
		var obj struct {
			All     []json.RawMessage `json:"all_actions"`
			Current string            `json:"current"`
		}
		if err := json.Unmarshal(w.Actions, &obj); err != nil {
			return Behavior{}, fmt.Errorf("actions: %w", err)
		}
		items = obj.All
		b.CurrentAction = obj.Current
	}

	for _, item := range items {
		a, err := decodeAction(item)
		if err != nil {
			return Behavior{}, fmt.Errorf("action: %w", err)
		}
		b.Actions = append(b.Actions, a)
	}
	return b, nil
}

func decodeAction(raw json.RawMessage) (Action, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Action{Name: name}, nil
	}
	var a struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Completed   bool     `json:"completed"`
		Operations  []string `json:"operations"`
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return Action{}, err
	}
	return Action(a), nil
}

func decodeInstructions(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding instructions: %w", err)
		}
		return s, nil
	case '[':
		var lines []string
		if err := json.Unmarshal(raw, &lines); err != nil {
			return "", fmt.Errorf("decoding instructions: %w", err)
		}
		return strings.Join(lines, "\n"), nil
	case '{':
		var obj struct {
			DisplayContent   json.RawMessage `json:"display_content"`
			BaseInstructions json.RawMessage `json:"base_instructions"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("decoding instructions: %w", err)
		}
		if s, err := decodeInstructions(obj.DisplayContent); err != nil || s != "" {
			return s, err
		}
		return decodeInstructions(obj.BaseInstructions)
	}
	return "", nil
}

func decodeClarification(raw json.RawMessage) (*Clarification, error) {
	var w struct {
		KeyQuestions     map[string]json.RawMessage `json:"key_questions"`
		Evidence         json.RawMessage            `json:"evidence"`
		Answers          map[string]json.RawMessage `json:"answers"`
		EvidenceProvided map[string]json.RawMessage `json:"evidence_provided"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding clarification: %w", err)
	}

	c := &Clarification{
		Answers:          textMap(w.Answers),
		EvidenceProvided: textMap(w.EvidenceProvided),
		Evidence:         textList(w.Evidence),
	}
	for _, key := range sortedKeys(w.KeyQuestions) {
		c.Questions = append(c.Questions, Question{Key: key, Text: text(w.KeyQuestions[key])})
	}
	return c, nil
}

func decodeStrategy(raw json.RawMessage) (*Strategy, error) {
	var w struct {
		DecisionCriteria map[string]json.RawMessage `json:"decision_criteria"`
		DecisionsMade    map[string]json.RawMessage `json:"decisions_made"`
		Assumptions      json.RawMessage            `json:"assumptions"`
		AssumptionsMade  json.RawMessage            `json:"assumptions_made"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding strategy: %w", err)
	}

	st := &Strategy{
		DecisionsMade:   textMap(w.DecisionsMade),
		Assumptions:     textList(w.Assumptions),
		AssumptionsMade: textList(w.AssumptionsMade),
	}
	for _, key := range sortedKeys(w.DecisionCriteria) {
		var crit struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
		}
		c := Criterion{Key: key}
		if err := json.Unmarshal(w.DecisionCriteria[key], &crit); err == nil {
			c.Question, c.Options = crit.Question, crit.Options
		} else {
			c.Question = text(w.DecisionCriteria[key])
		}
		st.Criteria = append(st.Criteria, c)
	}
	return st, nil
}

// text renders a loosely typed JSON scalar as display text.
func text(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}

func textMap(in map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = text(v)
	}
	return out
}

// textList accepts a list or a single string.
func textList(raw json.RawMessage) []string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := text(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, text(item))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
