package intent

import "strings"

// Signals is the slice of conversation state the router looks at.
type Signals struct {
	Message          string
	HasHistory       bool
	HasBirthDetails  bool
	Collecting       bool
	AnalysisComplete bool
}

// Rule is one row of the decision table.
type Rule struct {
	Name    string
	Match   func(Signals) bool
	Outcome Outcome
}

// Rules returns the decision table in priority order; the first match wins.
func (m *Matcher) Rules() []Rule {
	return []Rule{
		{
			Name:    "analysis_complete",
			Match:   func(s Signals) bool { return s.AnalysisComplete },
			Outcome: Chat,
		},
		{
			Name:    "resume_analysis",
			Match:   func(s Signals) bool { return s.HasBirthDetails },
			Outcome: Analysis,
		},
		{
			Name:    "collecting_details",
			Match:   func(s Signals) bool { return s.Collecting },
			Outcome: Analysis,
		},
		{
			Name:    "history_new_analysis",
			Match:   func(s Signals) bool { return s.HasHistory && m.IsNewAnalysis(s.Message) },
			Outcome: Analysis,
		},
		{
			Name:    "history_analysis_intent",
			Match:   func(s Signals) bool { return s.HasHistory && m.HasAnalysisIntent(s.Message) },
			Outcome: Analysis,
		},
		{
			Name:    "history_follow_up",
			Match:   func(s Signals) bool { return s.HasHistory },
			Outcome: Chat,
		},
		{
			Name:    "empty_message",
			Match:   func(s Signals) bool { return strings.TrimSpace(s.Message) == "" },
			Outcome: Chat,
		},
	}
}

// Decide evaluates the table and names the rule that fired. When nothing
// matches it returns Classify with rule "classify".
func (m *Matcher) Decide(s Signals) (Outcome, string) {
	for _, r := range m.Rules() {
		if r.Match(s) {
			return r.Outcome, r.Name
		}
	}
	return Classify, string(Classify)
}
