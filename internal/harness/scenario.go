// Package harness runs YAML-defined search scenarios against a seeded
// in-memory archive and snapshots the results against golden files.
//
// A scenario declares a fixture (people, teams, topics), a fixed "now"
// for relative dates, and a list of queries with the principal each
// runs as. The runner seeds a fresh database per scenario, runs every
// query through the full pipeline, and collects ids plus warnings.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one search conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now fixes the clock relative dates count back from (YYYY-MM-DD
	// or RFC3339). Required so 7d means the same instant on every run.
	Now string `yaml:"now"`

	// BodyIndex enables the message-body full-text index before
	// queries run.
	BodyIndex bool `yaml:"body_index,omitempty"`

	// Fixture is the archive content to seed.
	Fixture Fixture `yaml:"fixture"`

	// Queries are executed in order against the seeded archive.
	Queries []QueryCase `yaml:"queries"`
}

// Fixture declares archive content. People are referenced elsewhere by
// email.
type Fixture struct {
	People []PersonFixture `yaml:"people"`
	Teams  []TeamFixture   `yaml:"teams,omitempty"`
	Topics []TopicFixture  `yaml:"topics"`
}

// PersonFixture declares a person, optionally with a contributor rank.
type PersonFixture struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Rank  string `yaml:"rank,omitempty"`
}

// TeamFixture declares a team and its members.
type TeamFixture struct {
	Name       string   `yaml:"name"`
	Visibility string   `yaml:"visibility"` // private | visible | open
	Members    []string `yaml:"members,omitempty"`
}

// TopicFixture declares a topic with its messages and per-user state.
// Topics get sequential ids in declaration order, starting at 1.
type TopicFixture struct {
	Title      string             `yaml:"title"`
	Starter    string             `yaml:"starter"`
	Created    string             `yaml:"created"`
	Messages   []MessageFixture   `yaml:"messages,omitempty"`
	Notes      []NoteFixture      `yaml:"notes,omitempty"`
	ReadStates []ReadStateFixture `yaml:"read_states,omitempty"`
	Stars      []string           `yaml:"stars,omitempty"`
}

// MessageFixture declares one message.
type MessageFixture struct {
	From        string   `yaml:"from"`
	At          string   `yaml:"at"`
	Body        string   `yaml:"body"`
	Attachments []string `yaml:"attachments,omitempty"`
}

// NoteFixture declares a note on a topic.
type NoteFixture struct {
	Author     string   `yaml:"author"`
	Body       string   `yaml:"body,omitempty"`
	Visibility string   `yaml:"visibility"` // public | private
	Added      string   `yaml:"added"`
	Tags       []string `yaml:"tags,omitempty"`
	Deleted    bool     `yaml:"deleted,omitempty"`
}

// ReadStateFixture declares how far a user has read a topic.
type ReadStateFixture struct {
	User string `yaml:"user"`
	Read int64  `yaml:"read"`
}

// QueryCase is one query to run. As selects the principal by email; an
// empty As runs anonymously.
type QueryCase struct {
	Query string `yaml:"query"`
	As    string `yaml:"as,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently dropping a
// fixture.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// fixtureLayouts are the timestamp forms fixtures may use.
var fixtureLayouts = []string{"2006-01-02", time.RFC3339}

func parseFixtureTime(s string) (time.Time, error) {
	for _, layout := range fixtureLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now == "" {
		return fmt.Errorf("now is required")
	}
	if _, err := parseFixtureTime(s.Now); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Fixture.People) == 0 {
		return fmt.Errorf("fixture.people is required and must be non-empty")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	emails := make(map[string]bool, len(s.Fixture.People))
	for i, p := range s.Fixture.People {
		if p.Name == "" || p.Email == "" {
			return fmt.Errorf("fixture.people[%d]: name and email are required", i)
		}
		if emails[p.Email] {
			return fmt.Errorf("fixture.people[%d]: duplicate email %q", i, p.Email)
		}
		emails[p.Email] = true
	}

	known := func(field, email string) error {
		if !emails[email] {
			return fmt.Errorf("%s references unknown person %q", field, email)
		}
		return nil
	}

	for i, team := range s.Fixture.Teams {
		if team.Name == "" {
			return fmt.Errorf("fixture.teams[%d]: name is required", i)
		}
		switch team.Visibility {
		case "private", "visible", "open":
		default:
			return fmt.Errorf("fixture.teams[%d]: visibility must be private, visible, or open", i)
		}
		for _, member := range team.Members {
			if err := known(fmt.Sprintf("fixture.teams[%d]", i), member); err != nil {
				return err
			}
		}
	}

	for i, topic := range s.Fixture.Topics {
		field := fmt.Sprintf("fixture.topics[%d]", i)
		if topic.Title == "" {
			return fmt.Errorf("%s: title is required", field)
		}
		if err := known(field, topic.Starter); err != nil {
			return err
		}
		if _, err := parseFixtureTime(topic.Created); err != nil {
			return fmt.Errorf("%s: created: %w", field, err)
		}
		for j, msg := range topic.Messages {
			if err := known(fmt.Sprintf("%s.messages[%d]", field, j), msg.From); err != nil {
				return err
			}
			if _, err := parseFixtureTime(msg.At); err != nil {
				return fmt.Errorf("%s.messages[%d]: at: %w", field, j, err)
			}
		}
		for j, note := range topic.Notes {
			if err := known(fmt.Sprintf("%s.notes[%d]", field, j), note.Author); err != nil {
				return err
			}
			if note.Visibility != "public" && note.Visibility != "private" {
				return fmt.Errorf("%s.notes[%d]: visibility must be public or private", field, j)
			}
			if _, err := parseFixtureTime(note.Added); err != nil {
				return fmt.Errorf("%s.notes[%d]: added: %w", field, j, err)
			}
		}
		for j, rs := range topic.ReadStates {
			if err := known(fmt.Sprintf("%s.read_states[%d]", field, j), rs.User); err != nil {
				return err
			}
		}
		for _, star := range topic.Stars {
			if err := known(field+".stars", star); err != nil {
				return err
			}
		}
	}

	for i, q := range s.Queries {
		if q.Query == "" {
			return fmt.Errorf("queries[%d]: query is required", i)
		}
		if q.As != "" && !emails[q.As] {
			return fmt.Errorf("queries[%d]: unknown principal %q", i, q.As)
		}
	}

	return nil
}
