package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxCandidates = 200        // objects tried by the scanning strategies
	maxErrSnippet = 200        // limit error snippet size
)

var fencedObjectRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// balancedObject returns the brace-balanced object starting at text[start].
// Braces inside JSON strings (including escaped quotes) are ignored.
func balancedObject(text string, start int) (string, bool) {
	if start < 0 || start >= len(text) || text[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeObject parses raw as a JSON object, retrying once with common
// escape sequences unescaped (models sometimes emit JSON inside a string).
func decodeObject(raw string) (map[string]any, error) {
	var m map[string]any
	err := json.Unmarshal([]byte(raw), &m)
	if err == nil {
		return m, nil
	}
	unescaped := strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\t`, "\t").Replace(raw)
	if unescaped == raw {
		return nil, err
	}
	if err2 := json.Unmarshal([]byte(unescaped), &m); err2 != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return m, nil
}

// scanObjects decodes every balanced object in text, in order of their
// opening brace, and returns the first one accepted by keep.
func scanObjects(text string, keep func(map[string]any) bool) (map[string]any, bool) {
	m, _, _, ok := scanObjectSpan(text, keep)
	return m, ok
}

// scanObjectSpan is scanObjects that also reports where the object sits.
func scanObjectSpan(text string, keep func(map[string]any) bool) (map[string]any, int, int, bool) {
	tried := 0
	for i := 0; i < len(text) && tried < maxCandidates; i++ {
		if text[i] != '{' {
			continue
		}
		raw, ok := balancedObject(text, i)
		if !ok {
			continue
		}
		tried++
		m, err := decodeObject(raw)
		if err != nil {
			continue
		}
		if keep(m) {
			return m, i, i + len(raw), true
		}
	}
	return nil, 0, 0, false
}

func parseFloat(s string, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	return v, nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := parseFloat(s, name)
	if err != nil {
		return 0, err
	}
	return checkRange(v, name, min, max)
}

func checkRange(v float64, name string, min, max float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

// numberField reads a JSON number or numeric string. ok is false for a
// missing or null value.
func numberField(m map[string]any, key string, min, max float64) (v float64, ok bool, err error) {
	raw, present := m[key]
	if !present || raw == nil {
		return 0, false, nil
	}
	switch x := raw.(type) {
	case float64:
		v, err = checkRange(x, key, min, max)
	case string:
		if strings.TrimSpace(x) == "" || strings.EqualFold(strings.TrimSpace(x), "null") {
			return 0, false, nil
		}
		v, err = parseFloatInRange(x, key, min, max)
	default:
		err = fmt.Errorf("%s has unsupported type %T", key, raw)
	}
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

func stringField(m map[string]any, key string) string {
	switch x := m[key].(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
