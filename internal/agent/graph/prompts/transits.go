package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed template/transits.yaml
var transitsYAML []byte

type TransitPeriod struct {
	Sign  string `yaml:"sign"`
	From  string `yaml:"from"`
	Until string `yaml:"until"`
}

type BodyTransits struct {
	Body    string          `yaml:"body"`
	Periods []TransitPeriod `yaml:"periods"`
}

// TransitCalendar is the fixed forecasting context shared by the analytical stages.
type TransitCalendar struct {
	Horizon string         `yaml:"horizon"`
	Bodies  []BodyTransits `yaml:"bodies"`
}

var (
	transitsOnce sync.Once
	transits     TransitCalendar
	transitsErr  error
)

// Transits returns the embedded calendar.
func Transits() (TransitCalendar, error) {
	transitsOnce.Do(func() {
		transits, transitsErr = parseTransits(transitsYAML)
	})
	return transits, transitsErr
}

func parseTransits(raw []byte) (TransitCalendar, error) {
	var cal TransitCalendar
	if err := yaml.Unmarshal(raw, &cal); err != nil {
		return TransitCalendar{}, fmt.Errorf("parse transit calendar: %w", err)
	}
	for _, b := range cal.Bodies {
		for _, p := range b.Periods {
			for _, d := range []string{p.From, p.Until} {
				if d == "" {
					continue
				}
				if _, err := time.Parse("2006-01-02", d); err != nil {
					return TransitCalendar{}, fmt.Errorf("transit %s/%s: bad date %q", b.Body, p.Sign, d)
				}
			}
		}
	}
	return cal, nil
}

func humanDate(d string) string {
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		return d
	}
	return t.Format("January 2, 2006")
}

// Text renders the calendar the way the analytical prompts expect it.
func (c TransitCalendar) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Planetary transits (Gochara), %s:\n", c.Horizon)
	for _, b := range c.Bodies {
		fmt.Fprintf(&sb, "\n%s:\n", b.Body)
		for _, p := range b.Periods {
			switch {
			case p.From == "":
				fmt.Fprintf(&sb, "- %s: until %s\n", p.Sign, humanDate(p.Until))
			case p.Until == "":
				fmt.Fprintf(&sb, "- %s: from %s\n", p.Sign, humanDate(p.From))
			default:
				fmt.Fprintf(&sb, "- %s: %s to %s\n", p.Sign, humanDate(p.From), humanDate(p.Until))
			}
		}
	}
	return sb.String()
}
