package parsers

import (
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/astroguru-core/server/internal/agent/model"
	logx "github.com/astroguru-core/server/pkg/logger"
)

const birthDetailsKey = "birth_details"

// Strategy names the cascade step that produced a payload.
type Strategy string

const (
	StrategyMarker Strategy = "marker"
	StrategyFenced Strategy = "fenced"
	StrategyScan   Strategy = "scan"
)

var dateLayouts = []string{
	model.DateLayout,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

var timeLayouts = []string{
	model.TimeLayout,
	model.TimeLayoutSeconds,
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
	"15.04",
}

// payload is a decoded birth_details object and where it sits in the text.
type payload struct {
	fields     map[string]any
	start, end int
	strategy   Strategy
}

func hasBirthDetails(m map[string]any) bool {
	_, ok := m[birthDetailsKey].(map[string]any)
	return ok
}

// findPayload runs the cascade from most to least robust strategy.
func findPayload(text string) (payload, bool) {
	if p, ok := fromMarker(text); ok {
		return p, true
	}
	if p, ok := fromFencedBlock(text); ok {
		return p, true
	}
	return fromScan(text)
}

// ExtractBirthDetails pulls the birth_details payload out of a model reply.
// Strategies run from most to least robust; nil means nothing usable was found.
// The result is not validated: callers check InvalidFields before storing it.
func ExtractBirthDetails(text string) (*model.BirthDetails, Strategy) {
	if len(text) > maxContentLen {
		text = text[:maxContentLen]
	}
	if p, ok := findPayload(text); ok {
		return birthDetailsFrom(p.fields), p.strategy
	}
	if strings.Contains(text, birthDetailsKey) {
		logx.Warn().Str("snippet", safeSnippet(text)).Msg("birth_details marker present but no payload could be decoded")
	}
	return nil, ""
}

// StripBirthDetails removes the birth_details payload, together with a code
// fence around it, and returns the conversational rest of the reply.
func StripBirthDetails(text string) string {
	scan := text
	if len(scan) > maxContentLen {
		scan = scan[:maxContentLen]
	}
	p, ok := findPayload(scan)
	if !ok {
		return strings.TrimSpace(text)
	}
	start, end := widenToFence(text, p.start, p.end)
	before := strings.TrimSpace(text[:start])
	after := strings.TrimSpace(text[end:])
	switch {
	case before == "":
		return after
	case after == "":
		return before
	default:
		return before + "\n\n" + after
	}
}

var fenceOpeners = []string{"```json", "```JSON", "```"}

func widenToFence(text string, start, end int) (int, int) {
	head := strings.TrimRight(text[:start], " \t\r\n")
	opener := ""
	for _, f := range fenceOpeners {
		if strings.HasSuffix(head, f) {
			opener = f
			break
		}
	}
	if opener == "" {
		return start, end
	}
	start = len(head) - len(opener)
	tail := strings.TrimLeft(text[end:], " \t\r\n")
	if strings.HasPrefix(tail, "```") {
		end = len(text) - len(tail) + len("```")
	}
	return start, end
}

func fromMarker(text string) (payload, bool) {
	idx := strings.Index(text, `"`+birthDetailsKey+`"`)
	if idx < 0 {
		return payload{}, false
	}
	start := strings.LastIndex(text[:idx], "{")
	if start < 0 {
		return payload{}, false
	}
	raw, ok := balancedObject(text, start)
	if !ok {
		return payload{}, false
	}
	m, err := decodeObject(raw)
	if err != nil {
		logx.Debug().Err(err).Str("snippet", safeSnippet(raw)).Msg("marker object did not decode")
		return payload{}, false
	}
	if !hasBirthDetails(m) {
		return payload{}, false
	}
	return payload{fields: m, start: start, end: start + len(raw), strategy: StrategyMarker}, true
}

func fromFencedBlock(text string) (payload, bool) {
	for _, loc := range fencedObjectRe.FindAllStringSubmatchIndex(text, -1) {
		m, err := decodeObject(text[loc[2]:loc[3]])
		if err != nil || !hasBirthDetails(m) {
			continue
		}
		return payload{fields: m, start: loc[0], end: loc[1], strategy: StrategyFenced}, true
	}
	return payload{}, false
}

func fromScan(text string) (payload, bool) {
	m, start, end, ok := scanObjectSpan(text, hasBirthDetails)
	if !ok {
		return payload{}, false
	}
	return payload{fields: m, start: start, end: end, strategy: StrategyScan}, true
}

func birthDetailsFrom(outer map[string]any) *model.BirthDetails {
	m := outer[birthDetailsKey].(map[string]any)
	bd := &model.BirthDetails{
		Name:         stringField(m, "name"),
		DateOfBirth:  NormalizeDate(stringField(m, "date_of_birth")),
		TimeOfBirth:  NormalizeTime(stringField(m, "time_of_birth")),
		PlaceOfBirth: stringField(m, "place_of_birth"),
		Goals:        goalsField(m["goals"]),
		Timezone:     stringField(m, "timezone"),
	}
	if lat, ok, err := numberField(m, "latitude", -90, 90); ok && err == nil {
		bd.Latitude = &lat
	}
	if lon, ok, err := numberField(m, "longitude", -180, 180); ok && err == nil {
		bd.Longitude = &lon
	}
	if !bd.HasCoordinates() {
		bd.Latitude, bd.Longitude = nil, nil
	}
	return bd
}

// goalsField accepts a list or a comma separated string.
func goalsField(v any) []string {
	var goals []string
	switch x := v.(type) {
	case []any:
		for _, g := range x {
			if s, ok := g.(string); ok {
				goals = append(goals, s)
			}
		}
	case string:
		goals = strings.Split(x, ",")
	}
	goals = pie.Filter(pie.Map(goals, strings.TrimSpace), func(s string) bool { return s != "" })
	if len(goals) == 0 {
		return nil
	}
	return goals
}

// NormalizeDate rewrites common date spellings as YYYY-MM-DD. Unknown input
// is returned trimmed so validation can reject it.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout)
		}
	}
	return s
}

// NormalizeTime rewrites 12-hour and dotted times as 24-hour HH:MM, keeping
// seconds when given.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Second() != 0 {
			return t.Format(model.TimeLayoutSeconds)
		}
		return t.Format(model.TimeLayout)
	}
	return s
}
