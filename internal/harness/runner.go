package harness

import (
	"context"
	"fmt"

	"github.com/loreline/topicsearch/internal/dates"
	"github.com/loreline/topicsearch/internal/resolve"
	"github.com/loreline/topicsearch/internal/search"
	"github.com/loreline/topicsearch/internal/store"
)

// QueryResult is the outcome of one scenario query.
type QueryResult struct {
	Query     string   `json:"query"`
	Principal string   `json:"principal,omitempty"`
	Warnings  []string `json:"warnings"`
	Topics    []int64  `json:"topics"`
}

// Result is the outcome of running a scenario.
type Result struct {
	Scenario string        `json:"scenario"`
	Results  []QueryResult `json:"results"`
}

// Run seeds a fresh in-memory archive from the scenario fixture and
// executes every query through the full pipeline.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	people, err := seed(ctx, st, scenario)
	if err != nil {
		return nil, fmt.Errorf("seed scenario %q: %w", scenario.Name, err)
	}

	if scenario.BodyIndex {
		if err := st.EnableBodyIndex(ctx); err != nil {
			return nil, fmt.Errorf("seed scenario %q: %w", scenario.Name, err)
		}
	}

	now, err := parseFixtureTime(scenario.Now)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	engine := search.New(st, dates.FixedClock{T: now})

	result := &Result{Scenario: scenario.Name, Results: []QueryResult{}}
	for _, q := range scenario.Queries {
		var principal *resolve.Principal
		var principalName string
		if q.As != "" {
			person := people[q.As]
			principal = &resolve.Principal{PersonID: person.ID, Name: person.Name}
			principalName = person.Name
		}

		res, err := engine.Search(ctx, q.Query, principal)
		if err != nil {
			return nil, fmt.Errorf("scenario %q query %q: %w", scenario.Name, q.Query, err)
		}

		topics := res.TopicIDs
		if topics == nil {
			topics = []int64{}
		}
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		result.Results = append(result.Results, QueryResult{
			Query:     q.Query,
			Principal: principalName,
			Warnings:  warnings,
			Topics:    topics,
		})
	}

	return result, nil
}

// seed loads the fixture into the store and returns people by email.
func seed(ctx context.Context, st *store.Store, scenario *Scenario) (map[string]store.Person, error) {
	people := make(map[string]store.Person, len(scenario.Fixture.People))
	for _, p := range scenario.Fixture.People {
		id, err := st.AddPerson(ctx, p.Name, p.Email)
		if err != nil {
			return nil, err
		}
		if p.Rank != "" {
			if err := st.SetContributorRank(ctx, id, p.Rank); err != nil {
				return nil, err
			}
		}
		people[p.Email] = store.Person{ID: id, Name: p.Name, Email: p.Email}
	}

	for _, team := range scenario.Fixture.Teams {
		teamID, err := st.AddTeam(ctx, team.Name, resolve.Visibility(team.Visibility))
		if err != nil {
			return nil, err
		}
		for _, member := range team.Members {
			if err := st.AddTeamMember(ctx, teamID, people[member].ID); err != nil {
				return nil, err
			}
		}
	}

	for _, topic := range scenario.Fixture.Topics {
		created, err := parseFixtureTime(topic.Created)
		if err != nil {
			return nil, err
		}
		topicID, err := st.AddTopic(ctx, topic.Title, people[topic.Starter].ID, created)
		if err != nil {
			return nil, err
		}

		for _, msg := range topic.Messages {
			at, err := parseFixtureTime(msg.At)
			if err != nil {
				return nil, err
			}
			messageID, err := st.AddMessage(ctx, topicID, people[msg.From].ID, at, msg.Body)
			if err != nil {
				return nil, err
			}
			for _, filename := range msg.Attachments {
				if _, err := st.AddAttachment(ctx, messageID, filename); err != nil {
					return nil, err
				}
			}
		}

		for _, note := range topic.Notes {
			added, err := parseFixtureTime(note.Added)
			if err != nil {
				return nil, err
			}
			noteID, err := st.AddNote(ctx, topicID, people[note.Author].ID, note.Body, note.Visibility, added)
			if err != nil {
				return nil, err
			}
			for _, tag := range note.Tags {
				if err := st.TagNote(ctx, noteID, tag); err != nil {
					return nil, err
				}
			}
			if note.Deleted {
				if err := st.DeleteNote(ctx, noteID, added); err != nil {
					return nil, err
				}
			}
		}

		for _, rs := range topic.ReadStates {
			if err := st.SetReadState(ctx, topicID, people[rs.User].ID, rs.Read, created); err != nil {
				return nil, err
			}
		}

		for _, star := range topic.Stars {
			if err := st.StarTopic(ctx, topicID, people[star].ID); err != nil {
				return nil, err
			}
		}
	}

	return people, nil
}
