package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/loreline/topicsearch/internal/resolve"
)

// Person is a directory person record.
type Person struct {
	ID    int64
	Name  string
	Email string
}

// PersonByEmail looks up a person by exact (folded) email. Returns nil
// when no such person exists.
func (s *Store) PersonByEmail(ctx context.Context, email string) (*Person, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM people WHERE email_folded = ?", fold(email))
	var p Person
	if err := row.Scan(&p.ID, &p.Name, &p.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("person by email: %w", err)
	}
	return &p, nil
}

// TeamByName returns the team with the given folded name, or nil.
func (s *Store) TeamByName(ctx context.Context, name string) (*resolve.Team, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, visibility FROM teams WHERE name_folded = ?", name)
	var t resolve.Team
	if err := row.Scan(&t.ID, &t.Name, &t.Visibility); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("team by name: %w", err)
	}
	return &t, nil
}

// TeamMemberIDs returns the person ids belonging to a team.
func (s *Store) TeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id FROM team_memberships WHERE team_id = ? ORDER BY person_id", teamID)
	if err != nil {
		return nil, fmt.Errorf("team members: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// IsTeamMember reports whether a person belongs to a team.
func (s *Store) IsTeamMember(ctx context.Context, teamID, personID int64) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM team_memberships WHERE team_id = ? AND person_id = ?", teamID, personID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("team membership: %w", err)
	}
	return true, nil
}

// PeopleByRank returns person ids holding the given contributor rank.
// resolve.RankAny matches people holding any rank.
func (s *Store) PeopleByRank(ctx context.Context, rank string) ([]int64, error) {
	query := "SELECT person_id FROM contributor_memberships WHERE rank = ? ORDER BY person_id"
	args := []any{rank}
	if rank == resolve.RankAny {
		query = "SELECT person_id FROM contributor_memberships ORDER BY person_id"
		args = nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("people by rank: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SearchPeople finds people by folded name or email. emailOnly
// restricts the match to the email column; exact requires a full-string
// match instead of a substring.
func (s *Store) SearchPeople(ctx context.Context, query string, emailOnly, exact bool) ([]int64, error) {
	var where string
	var args []any
	switch {
	case emailOnly && exact:
		where = "email_folded = ?"
		args = []any{query}
	case emailOnly:
		where = "email_folded LIKE ? ESCAPE '\\'"
		args = []any{likeContains(query)}
	case exact:
		where = "(name_folded = ? OR email_folded = ?)"
		args = []any{query, query}
	default:
		pattern := likeContains(query)
		where = "(name_folded LIKE ? ESCAPE '\\' OR email_folded LIKE ? ESCAPE '\\')"
		args = []any{pattern, pattern}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM people WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

// likeContains escapes LIKE metacharacters and wraps the query for a
// substring match.
func likeContains(q string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + escaped + "%"
}
