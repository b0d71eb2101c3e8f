package render

import (
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/steveyegge/botpanel/internal/snapshot"
)

// EmptyInstructions is shown when the current step has no instructions.
const EmptyInstructions = "No instructions for this step."

// fragmentData is the template view of a snapshot.
type fragmentData struct {
	BotName      string
	Workspace    string
	Behaviors    []behaviorView
	Scope        snapshot.Scope
	Instructions template.HTML
	Empty        string

	Questions   []fieldView
	Evidence    []fieldView
	HasClarify  bool
	Criteria    []criterionView
	Assumptions string
	HasStrategy bool
}

type behaviorView struct {
	Name        string
	Description string
	Current     bool
	Completed   bool
	Actions     []actionView
}

type actionView struct {
	Behavior   string
	Name       string
	Current    bool
	Completed  bool
	Operations []string
}

type fieldView struct {
	Key   string
	Label string
	Value string
}

type criterionView struct {
	Key      string
	Question string
	Options  []optionView
}

type optionView struct {
	Value    string
	Selected bool
}

func buildFragment(s *snapshot.Status, instructions template.HTML) fragmentData {
	d := fragmentData{
		BotName:      s.BotName,
		Workspace:    s.Workspace,
		Scope:        s.Scope,
		Instructions: instructions,
		Empty:        EmptyInstructions,
	}

	for _, b := range s.Ordered() {
		bv := behaviorView{
			Name:        b.Name,
			Description: b.Description,
			Current:     b.Name == s.CurrentBehavior,
			Completed:   b.Completed,
		}
		for _, a := range b.Actions {
			bv.Actions = append(bv.Actions, actionView{
				Behavior:   b.Name,
				Name:       a.Name,
				Current:    bv.Current && a.Name == b.CurrentAction,
				Completed:  a.Completed,
				Operations: a.Operations,
			})
		}
		d.Behaviors = append(d.Behaviors, bv)
	}

	if c := s.Clarification; c != nil {
		d.HasClarify = true
		for _, q := range c.Questions {
			d.Questions = append(d.Questions, fieldView{Key: q.Key, Label: q.Text, Value: c.Answers[q.Key]})
		}
		for _, e := range c.Evidence {
			d.Evidence = append(d.Evidence, fieldView{Key: e, Label: e, Value: c.EvidenceProvided[e]})
		}
	}

	if st := s.Strategy; st != nil {
		d.HasStrategy = true
		for _, c := range st.Criteria {
			cv := criterionView{Key: c.Key, Question: c.Question}
			for _, opt := range c.Options {
				cv.Options = append(cv.Options, optionView{Value: opt, Selected: st.DecisionsMade[c.Key] == opt})
			}
			d.Criteria = append(d.Criteria, cv)
		}
		assumptions := st.AssumptionsMade
		if len(assumptions) == 0 {
			assumptions = st.Assumptions
		}
		d.Assumptions = strings.Join(assumptions, "\n")
	}
	return d
}

// DisplayName turns an identifier like "story_bot" into "Story Bot".
// A Caser is stateful, so each call gets its own.
func DisplayName(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.English).String(name)
}

// behaviorClass returns the class list for a behavior entry.
func behaviorClass(b behaviorView) string {
	return classList("behavior", b.Current, b.Completed)
}

// actionClass returns the class list for an action entry.
func actionClass(a actionView) string {
	return classList("action", a.Current, a.Completed)
}

func classList(base string, current, completed bool) string {
	var sb strings.Builder
	sb.WriteString(base)
	if current {
		sb.WriteString(" current")
	}
	if completed {
		sb.WriteString(" completed")
	}
	return sb.String()
}
