package prompts

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/astroguru-core/server/internal/agent/model"
)

//go:embed template/*.tmpl
var templateFS embed.FS

// Name identifies a prompt pair under template/.
type Name string

const (
	Router         Name = "router"
	Collector      Name = "collector"
	Location       Name = "location"
	Chart          Name = "chart"
	Dasha          Name = "dasha"
	GoalAnalysis   Name = "goal_analysis"
	Recommendation Name = "recommendation"
	Summarizer     Name = "summarizer"
	Chat           Name = "chat"
	QueryChat      Name = "query_chat"
)

// conversational prompts put history between the system prompt and the new user message
var conversational = map[Name]bool{Collector: true, Chat: true, QueryChat: true}

const historyKey = "history"

// templateVars lists every variable the templates reference. Missing ones
// render empty so a template never fails on an absent key.
var templateVars = []string{
	"message", "civil_zone", "place", "latitude", "longitude",
	"name", "date_of_birth", "time_of_birth", "place_of_birth", "today_date", "goals",
	"chart_json", "dasha_json", "chart_analysis", "dasha_analysis", "goal_analysis",
	"recommendations", "location", "transits", "word_target", "analysis_context",
}

func readTemplate(file string) (string, error) {
	b, err := fs.ReadFile(templateFS, "template/"+file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func templatesFor(name Name) (system, user string, err error) {
	system, err = readTemplate(string(name) + ".system.tmpl")
	if err != nil {
		return "", "", fmt.Errorf("prompt %s: %w", name, err)
	}
	user, err = readTemplate(string(name) + ".user.tmpl")
	if err != nil {
		user, err = readTemplate("user_message.tmpl")
		if err != nil {
			return "", "", fmt.Errorf("prompt %s: %w", name, err)
		}
	}
	return system, user, nil
}

// Messages renders a prompt through the eino prompt component, which fires the
// prompt callbacks. Conversational prompts expect vars["message"] and place
// history before it.
func Messages(ctx context.Context, name Name, vars map[string]any, history []*schema.Message) ([]*schema.Message, error) {
	system, user, err := templatesFor(name)
	if err != nil {
		return nil, err
	}

	parts := []schema.MessagesTemplate{schema.SystemMessage(system)}
	if conversational[name] {
		parts = append(parts, schema.MessagesPlaceholder(historyKey, true))
	}
	parts = append(parts, schema.UserMessage(user))

	params := make(map[string]any, len(templateVars)+len(vars)+2)
	for _, k := range templateVars {
		params[k] = ""
	}
	params["has_coordinates"] = false
	maps.Copy(params, vars)
	if conversational[name] {
		if history == nil {
			history = []*schema.Message{}
		}
		params[historyKey] = history
	}

	msgs, err := prompt.FromMessages(schema.GoTemplate, parts...).Format(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("render %s prompt: empty result", name)
	}
	return msgs, nil
}

// BirthVars are the birth-detail variables shared by the analytical prompts.
func BirthVars(b *model.BirthDetails, civil model.CivilTime) map[string]any {
	vars := map[string]any{
		"civil_zone": civil.Zone,
	}
	if b == nil {
		return vars
	}
	goals := "general life overview"
	if len(b.Goals) > 0 {
		goals = strings.Join(b.Goals, ", ")
	}
	vars["name"] = b.Name
	vars["date_of_birth"] = b.DateOfBirth
	vars["time_of_birth"] = b.TimeOfBirth
	vars["place_of_birth"] = b.PlaceOfBirth
	vars["today_date"] = b.TodayDate
	vars["goals"] = goals
	return vars
}

// TransitText is the rendered transit calendar, or a short notice when the
// embedded calendar cannot be read.
func TransitText() string {
	cal, err := Transits()
	if err != nil {
		return "Transit calendar unavailable.\n"
	}
	return cal.Text()
}
