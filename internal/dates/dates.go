// Package dates parses the date values accepted by date selectors and
// conditions: absolute dates in a handful of common layouts, and short
// relative forms (Nd, Nw, Nm, Ny) counted back from the current time.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock supplies the reference time for relative dates. Production code
// uses System; tests use a FixedClock so 7d always means the same
// instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System is the wall-clock Clock.
var System Clock = systemClock{}

// FixedClock always reports the same time.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Absolute layouts, tried in order.
var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var relativePattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// Parser parses date strings. Safe for concurrent use.
type Parser struct {
	clock Clock
}

// New creates a Parser. A nil clock defaults to System.
func New(clock Clock) *Parser {
	if clock == nil {
		clock = System
	}
	return &Parser{clock: clock}
}

// Parse parses s as an absolute date or a relative offset back from now.
// Reports ok=false when s matches no accepted form.
func (p *Parser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		now := p.clock.Now()
		switch m[2] {
		case "d":
			return now.AddDate(0, 0, -n), true
		case "w":
			return now.AddDate(0, 0, -7*n), true
		case "m":
			return now.AddDate(0, -n, 0), true
		case "y":
			return now.AddDate(-n, 0, 0), true
		}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Valid reports whether Parse would accept s.
func (p *Parser) Valid(s string) bool {
	_, ok := p.Parse(s)
	return ok
}
