// Package intent holds the routing decision table and the phrase sets that
// drive it. Nothing here calls a model; an Outcome of Classify tells the caller
// to ask one.
package intent

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/elliotchance/pie/v2"
	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var phrasesYAML []byte

type Outcome string

const (
	Analysis Outcome = "analysis"
	Chat     Outcome = "chat"
	// Classify means no rule matched and the message needs a model decision.
	Classify Outcome = "classify"
)

// Phrases are lower-case substrings matched against user messages.
type Phrases struct {
	NewAnalysis     []string `yaml:"new_analysis"`
	AnalysisIntent  []string `yaml:"analysis_intent"`
	ChatHandoff     []string `yaml:"chat_handoff"`
	RequestKeywords []string `yaml:"request_keywords"`
}

// LoadPhrases parses a phrase table and normalizes every entry.
func LoadPhrases(raw []byte) (Phrases, error) {
	var p Phrases
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Phrases{}, fmt.Errorf("parse phrase table: %w", err)
	}
	norm := func(in []string) []string {
		return pie.Filter(pie.Map(in, func(s string) string {
			return strings.ToLower(strings.TrimSpace(s))
		}), func(s string) bool { return s != "" })
	}
	p.NewAnalysis = norm(p.NewAnalysis)
	p.AnalysisIntent = norm(p.AnalysisIntent)
	p.ChatHandoff = norm(p.ChatHandoff)
	p.RequestKeywords = norm(p.RequestKeywords)
	if len(p.NewAnalysis) == 0 || len(p.AnalysisIntent) == 0 || len(p.RequestKeywords) == 0 {
		return Phrases{}, fmt.Errorf("phrase table is missing a required list")
	}
	return p, nil
}

// Matcher answers phrase questions about a message.
type Matcher struct {
	phrases Phrases
}

func NewMatcher(p Phrases) *Matcher {
	return &Matcher{phrases: p}
}

// Default returns a matcher over the embedded phrase table.
func Default() *Matcher {
	p, err := LoadPhrases(phrasesYAML)
	if err != nil {
		panic(err)
	}
	return NewMatcher(p)
}

func containsAny(msg string, phrases []string) bool {
	lower := strings.ToLower(msg)
	return pie.FindFirstUsing(phrases, func(p string) bool {
		return strings.Contains(lower, p)
	}) >= 0
}

func (m *Matcher) IsNewAnalysis(msg string) bool {
	return containsAny(msg, m.phrases.NewAnalysis)
}

func (m *Matcher) HasAnalysisIntent(msg string) bool {
	return containsAny(msg, m.phrases.AnalysisIntent)
}

// WantsAnalysis is the chat-stage handoff check.
func (m *Matcher) WantsAnalysis(msg string) bool {
	return containsAny(msg, m.phrases.ChatHandoff) || m.IsNewAnalysis(msg)
}

// KeywordFallback routes on request keywords alone.
func (m *Matcher) KeywordFallback(msg string) Outcome {
	if containsAny(msg, m.phrases.RequestKeywords) {
		return Analysis
	}
	return Chat
}

// Classified turns a classification reply into an outcome. A reply naming
// analysis wins; otherwise request keywords in the message still pull the
// conversation into analysis.
func (m *Matcher) Classified(reply, msg string) Outcome {
	if o, ok := ParseClassification(reply); ok && o == Analysis {
		return Analysis
	}
	return m.KeywordFallback(msg)
}

// ParseClassification reads a one-word model reply.
func ParseClassification(reply string) (Outcome, bool) {
	r := strings.ToLower(strings.TrimSpace(reply))
	switch {
	case r == "":
		return "", false
	case strings.Contains(r, string(Analysis)):
		return Analysis, true
	case strings.Contains(r, string(Chat)):
		return Chat, true
	}
	return "", false
}
