// Package resolve turns the symbolic values found in selectors - "me",
// team names, contributor-rank keywords, free-text author search - into
// concrete person identifier sets.
//
// Resolution never fails a query: a lookup error or an unknown value
// yields an empty result plus a descriptive warning, and the plan
// builder compiles an empty resolution as "matches nothing".
package resolve

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Principal identifies the signed-in person a query runs as. A nil
// *Principal means an anonymous request with reduced capability: no
// "me", no private teams, no read-state subjects, no tags.
type Principal struct {
	PersonID int64
	Name     string
}

// Visibility controls who may reference a team by name.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityVisible Visibility = "visible"
	VisibilityOpen    Visibility = "open"
)

// Team is a directory team record.
type Team struct {
	ID         int64
	Name       string
	Visibility Visibility
}

// ContributorRanks lists the rank categories, highest first. "core_team"
// and "committer" double as has: selector values.
var ContributorRanks = []string{
	"core_team", "committer", "maintainer", "reviewer",
	"regular", "occasional", "first_time",
}

// RankAny is the umbrella keyword matching any contributor rank.
const RankAny = "contributor"

// IsRankKeyword reports whether s is a rank keyword or the umbrella.
func IsRankKeyword(s string) bool {
	if s == RankAny {
		return true
	}
	for _, r := range ContributorRanks {
		if s == r {
			return true
		}
	}
	return false
}

// RankIndex returns the position of rank in ContributorRanks (0 is
// highest) or -1 for an unknown rank.
func RankIndex(rank string) int {
	for i, r := range ContributorRanks {
		if r == rank {
			return i
		}
	}
	return -1
}

// Directory is the read-only people/teams/ranks lookup collaborator.
// Implemented by the store package.
type Directory interface {
	// TeamByName returns the team with the given (folded) name, or nil.
	TeamByName(ctx context.Context, name string) (*Team, error)

	// TeamMemberIDs returns the person ids belonging to a team.
	TeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error)

	// IsTeamMember reports whether a person belongs to a team.
	IsTeamMember(ctx context.Context, teamID, personID int64) (bool, error)

	// PeopleByRank returns person ids holding the given contributor
	// rank. rank RankAny matches any rank.
	PeopleByRank(ctx context.Context, rank string) ([]int64, error)

	// SearchPeople finds people by case-insensitive name/email match.
	// emailOnly restricts the match to the email column; exact requires
	// a full-string match instead of a substring.
	SearchPeople(ctx context.Context, query string, emailOnly, exact bool) ([]int64, error)
}

// Resolver resolves symbolic values for one principal.
type Resolver struct {
	dir       Directory
	principal *Principal
}

// New creates a Resolver. principal may be nil for anonymous requests.
func New(dir Directory, principal *Principal) *Resolver {
	return &Resolver{dir: dir, principal: principal}
}

// Principal returns the principal this resolver is bound to, or nil.
func (r *Resolver) Principal() *Principal { return r.principal }

// fold normalizes a symbolic value for comparison: NFC then Unicode
// case folding, so "Müller" and "MÜLLER" resolve alike.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ResolveAuthor resolves an author value to person ids, trying in order:
// "me", a contributor-rank keyword, an accessible team name, then a
// free-text name/email search. Quoted values skip the symbolic forms and
// require an exact (case-insensitive) match in the search.
func (r *Resolver) ResolveAuthor(ctx context.Context, value string, quoted bool) ([]int64, []string) {
	value = strings.TrimSpace(value)

	if !quoted {
		if value == "me" {
			if r.principal == nil {
				return nil, []string{`"me" requires signing in`}
			}
			return []int64{r.principal.PersonID}, nil
		}

		if IsRankKeyword(value) {
			ids, err := r.dir.PeopleByRank(ctx, value)
			if err != nil {
				return nil, []string{lookupWarning(err)}
			}
			if len(ids) == 0 {
				return nil, []string{fmt.Sprintf("no people with rank %q", value)}
			}
			return ids, nil
		}

		team, err := r.dir.TeamByName(ctx, fold(value))
		if err != nil {
			return nil, []string{lookupWarning(err)}
		}
		if team != nil {
			accessible, err := r.teamAccessibleForAuthoring(ctx, team)
			if err != nil {
				return nil, []string{lookupWarning(err)}
			}
			if accessible {
				ids, err := r.dir.TeamMemberIDs(ctx, team.ID)
				if err != nil {
					return nil, []string{lookupWarning(err)}
				}
				if len(ids) == 0 {
					return nil, []string{fmt.Sprintf("team %q has no members", team.Name)}
				}
				return ids, nil
			}
			// An inaccessible private team falls through to the name
			// search, so its existence does not leak.
		}
	}

	emailOnly := strings.Contains(value, "@")
	ids, err := r.dir.SearchPeople(ctx, fold(value), emailOnly, quoted)
	if err != nil {
		return nil, []string{lookupWarning(err)}
	}
	if len(ids) == 0 {
		return nil, []string{fmt.Sprintf("no one matching %q", value)}
	}
	return ids, nil
}

// teamAccessibleForAuthoring reports whether the principal may reference
// this team in author selectors. Visible and open teams are accessible
// to anyone, including anonymous requests; private teams require
// membership.
func (r *Resolver) teamAccessibleForAuthoring(ctx context.Context, team *Team) (bool, error) {
	if team.Visibility == VisibilityVisible || team.Visibility == VisibilityOpen {
		return true, nil
	}
	if r.principal == nil {
		return false, nil
	}
	return r.dir.IsTeamMember(ctx, team.ID, r.principal.PersonID)
}

// ResolveStateSubject resolves the subject of a read-state, starred, or
// notes selector: "me" (the default for a blank value) or a team name.
//
// Unlike author resolution, team subjects always require membership
// regardless of team visibility: read and awareness state must not leak
// to non-members even of open teams.
func (r *Resolver) ResolveStateSubject(ctx context.Context, value string) ([]int64, []string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = "me"
	}

	if value == "me" {
		if r.principal == nil {
			return nil, []string{`"me" requires signing in`}
		}
		return []int64{r.principal.PersonID}, nil
	}

	team, err := r.dir.TeamByName(ctx, fold(value))
	if err != nil {
		return nil, []string{lookupWarning(err)}
	}
	if team == nil {
		return nil, []string{fmt.Sprintf("unknown team %q", value)}
	}

	member := false
	if r.principal != nil {
		member, err = r.dir.IsTeamMember(ctx, team.ID, r.principal.PersonID)
		if err != nil {
			return nil, []string{lookupWarning(err)}
		}
	}
	if !member {
		return nil, []string{fmt.Sprintf("read state for team %q is only visible to its members", value)}
	}

	ids, err := r.dir.TeamMemberIDs(ctx, team.ID)
	if err != nil {
		return nil, []string{lookupWarning(err)}
	}
	return ids, nil
}

// ResolveTag normalizes a tag value. Tags live on notes, which belong to
// signed-in people, so an anonymous request resolves nothing.
func (r *Resolver) ResolveTag(value string) (string, bool, []string) {
	if r.principal == nil {
		return "", false, []string{"tag search requires signing in"}
	}
	return strings.ToLower(strings.TrimSpace(value)), true, nil
}

func lookupWarning(err error) string {
	return fmt.Sprintf("directory lookup failed: %v", err)
}
