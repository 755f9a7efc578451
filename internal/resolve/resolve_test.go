package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory Directory for resolver tests.
type fakeDirectory struct {
	teams   map[string]*Team // keyed by folded name
	members map[int64][]int64
	ranks   map[string][]int64
	people  map[string][]int64 // keyed by folded search query

	err error // returned by every lookup when set
}

func (d *fakeDirectory) TeamByName(_ context.Context, name string) (*Team, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.teams[name], nil
}

func (d *fakeDirectory) TeamMemberIDs(_ context.Context, teamID int64) ([]int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.members[teamID], nil
}

func (d *fakeDirectory) IsTeamMember(_ context.Context, teamID, personID int64) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	for _, id := range d.members[teamID] {
		if id == personID {
			return true, nil
		}
	}
	return false, nil
}

func (d *fakeDirectory) PeopleByRank(_ context.Context, rank string) ([]int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.ranks[rank], nil
}

func (d *fakeDirectory) SearchPeople(_ context.Context, query string, emailOnly, exact bool) ([]int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	key := query
	if emailOnly {
		key = "email:" + query
	}
	if exact {
		key = "exact:" + key
	}
	return d.people[key], nil
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		teams:   map[string]*Team{},
		members: map[int64][]int64{},
		ranks:   map[string][]int64{},
		people:  map[string][]int64{},
	}
}

var ctx = context.Background()

func TestResolveAuthor_Me(t *testing.T) {
	r := New(newDirectory(), &Principal{PersonID: 7, Name: "Ana"})
	ids, warnings := r.ResolveAuthor(ctx, "me", false)
	assert.Equal(t, []int64{7}, ids)
	assert.Empty(t, warnings)
}

func TestResolveAuthor_MeAnonymous(t *testing.T) {
	r := New(newDirectory(), nil)
	ids, warnings := r.ResolveAuthor(ctx, "me", false)
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `"me" requires signing in`, warnings[0])
}

func TestResolveAuthor_RankKeyword(t *testing.T) {
	dir := newDirectory()
	dir.ranks["core_team"] = []int64{1, 2}
	dir.ranks[RankAny] = []int64{1, 2, 3}

	r := New(dir, nil)

	ids, warnings := r.ResolveAuthor(ctx, "core_team", false)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Empty(t, warnings)

	ids, warnings = r.ResolveAuthor(ctx, "contributor", false)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Empty(t, warnings)
}

func TestResolveAuthor_RankWithNoHolders(t *testing.T) {
	r := New(newDirectory(), nil)
	ids, warnings := r.ResolveAuthor(ctx, "first_time", false)
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `no people with rank "first_time"`, warnings[0])
}

func TestResolveAuthor_VisibleTeam(t *testing.T) {
	dir := newDirectory()
	dir.teams["platform"] = &Team{ID: 4, Name: "Platform", Visibility: VisibilityVisible}
	dir.members[4] = []int64{10, 11}

	// Visible teams resolve for anyone, including anonymous requests.
	r := New(dir, nil)
	ids, warnings := r.ResolveAuthor(ctx, "Platform", false)
	assert.Equal(t, []int64{10, 11}, ids)
	assert.Empty(t, warnings)
}

func TestResolveAuthor_TeamNameFolding(t *testing.T) {
	dir := newDirectory()
	dir.teams["münchen"] = &Team{ID: 4, Name: "München", Visibility: VisibilityOpen}
	dir.members[4] = []int64{10}

	r := New(dir, nil)
	ids, _ := r.ResolveAuthor(ctx, "MÜNCHEN", false)
	assert.Equal(t, []int64{10}, ids)
}

func TestResolveAuthor_PrivateTeamMember(t *testing.T) {
	dir := newDirectory()
	dir.teams["sec"] = &Team{ID: 9, Name: "sec", Visibility: VisibilityPrivate}
	dir.members[9] = []int64{7, 8}

	r := New(dir, &Principal{PersonID: 7})
	ids, warnings := r.ResolveAuthor(ctx, "sec", false)
	assert.Equal(t, []int64{7, 8}, ids)
	assert.Empty(t, warnings)
}

func TestResolveAuthor_PrivateTeamNonMemberFallsThrough(t *testing.T) {
	// A private team a non-member names must behave exactly like an
	// unknown name, so the team's existence does not leak.
	dir := newDirectory()
	dir.teams["sec"] = &Team{ID: 9, Name: "sec", Visibility: VisibilityPrivate}
	dir.members[9] = []int64{8}

	r := New(dir, &Principal{PersonID: 7})
	ids, warnings := r.ResolveAuthor(ctx, "sec", false)
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `no one matching "sec"`, warnings[0])
}

func TestResolveAuthor_FreeTextSearch(t *testing.T) {
	dir := newDirectory()
	dir.people["bruce"] = []int64{21, 22}

	r := New(dir, nil)
	ids, warnings := r.ResolveAuthor(ctx, "Bruce", false)
	assert.Equal(t, []int64{21, 22}, ids)
	assert.Empty(t, warnings)
}

func TestResolveAuthor_EmailRestrictsToEmailColumn(t *testing.T) {
	dir := newDirectory()
	dir.people["email:bruce@example.org"] = []int64{21}

	r := New(dir, nil)
	ids, _ := r.ResolveAuthor(ctx, "bruce@example.org", false)
	assert.Equal(t, []int64{21}, ids)
}

func TestResolveAuthor_QuotedSkipsSymbolicForms(t *testing.T) {
	dir := newDirectory()
	dir.ranks["core_team"] = []int64{1}
	dir.people["exact:core_team"] = []int64{33}

	r := New(dir, &Principal{PersonID: 7})
	ids, _ := r.ResolveAuthor(ctx, "core_team", true)
	assert.Equal(t, []int64{33}, ids, "quoted value must hit the exact search, not the rank")

	dir.people["exact:me"] = []int64{34}
	ids, _ = r.ResolveAuthor(ctx, "me", true)
	assert.Equal(t, []int64{34}, ids)
}

func TestResolveAuthor_NoMatch(t *testing.T) {
	r := New(newDirectory(), nil)
	ids, warnings := r.ResolveAuthor(ctx, "nobody", false)
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `no one matching "nobody"`, warnings[0])
}

func TestResolveAuthor_LookupErrorIsWarning(t *testing.T) {
	dir := newDirectory()
	dir.err = errors.New("disk on fire")

	r := New(dir, nil)
	ids, warnings := r.ResolveAuthor(ctx, "platform", false)
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "directory lookup failed")
}

func TestResolveStateSubject_BlankDefaultsToMe(t *testing.T) {
	r := New(newDirectory(), &Principal{PersonID: 7})
	ids, warnings := r.ResolveStateSubject(ctx, "")
	assert.Equal(t, []int64{7}, ids)
	assert.Empty(t, warnings)
}

func TestResolveStateSubject_AnonymousMe(t *testing.T) {
	r := New(newDirectory(), nil)
	ids, warnings := r.ResolveStateSubject(ctx, "")
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `"me" requires signing in`, warnings[0])
}

func TestResolveStateSubject_TeamRequiresMembership(t *testing.T) {
	// Read state never leaks outside a team, whatever its visibility.
	dir := newDirectory()
	dir.teams["platform"] = &Team{ID: 4, Name: "platform", Visibility: VisibilityOpen}
	dir.members[4] = []int64{10, 11}

	r := New(dir, &Principal{PersonID: 7})
	ids, warnings := r.ResolveStateSubject(ctx, "platform")
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `read state for team "platform" is only visible to its members`, warnings[0])

	r = New(dir, &Principal{PersonID: 10})
	ids, warnings = r.ResolveStateSubject(ctx, "platform")
	assert.Equal(t, []int64{10, 11}, ids)
	assert.Empty(t, warnings)
}

func TestResolveStateSubject_UnknownTeam(t *testing.T) {
	r := New(newDirectory(), &Principal{PersonID: 7})
	ids, warnings := r.ResolveStateSubject(ctx, "ghosts")
	assert.Empty(t, ids)
	require.Len(t, warnings, 1)
	assert.Equal(t, `unknown team "ghosts"`, warnings[0])
}

func TestResolveTag(t *testing.T) {
	r := New(newDirectory(), &Principal{PersonID: 7})
	tag, ok, warnings := r.ResolveTag("  TriAge ")
	assert.True(t, ok)
	assert.Equal(t, "triage", tag)
	assert.Empty(t, warnings)
}

func TestResolveTag_Anonymous(t *testing.T) {
	r := New(newDirectory(), nil)
	_, ok, warnings := r.ResolveTag("triage")
	assert.False(t, ok)
	require.Len(t, warnings, 1)
	assert.Equal(t, "tag search requires signing in", warnings[0])
}

func TestRankHelpers(t *testing.T) {
	assert.True(t, IsRankKeyword("core_team"))
	assert.True(t, IsRankKeyword("contributor"))
	assert.False(t, IsRankKeyword("boss"))

	assert.Equal(t, 0, RankIndex("core_team"))
	assert.Equal(t, len(ContributorRanks)-1, RankIndex("first_time"))
	assert.Equal(t, -1, RankIndex("contributor"), "the umbrella is not itself a rank")
}
