package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreline/topicsearch/internal/resolve"
)

func TestPersonByEmail(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.AddPerson(ctx, "Ana Torres", "Ana@Example.org")
	require.NoError(t, err)

	person, err := st.PersonByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	require.NotNil(t, person)
	assert.Equal(t, id, person.ID)
	assert.Equal(t, "Ana Torres", person.Name)

	person, err = st.PersonByEmail(ctx, "nobody@example.org")
	require.NoError(t, err)
	assert.Nil(t, person)
}

func TestTeamByName_FoldedLookup(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.AddTeam(ctx, "München", resolve.VisibilityOpen)
	require.NoError(t, err)

	// The resolver passes an already-folded name.
	team, err := st.TeamByName(ctx, fold("MÜNCHEN"))
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, id, team.ID)
	assert.Equal(t, "München", team.Name)
	assert.Equal(t, resolve.VisibilityOpen, team.Visibility)

	team, err = st.TeamByName(ctx, "ghosts")
	require.NoError(t, err)
	assert.Nil(t, team)
}

func TestTeamMembership(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ana, _ := st.AddPerson(ctx, "Ana", "ana@example.org")
	bob, _ := st.AddPerson(ctx, "Bob", "bob@example.org")
	team, err := st.AddTeam(ctx, "platform", resolve.VisibilityVisible)
	require.NoError(t, err)
	require.NoError(t, st.AddTeamMember(ctx, team, ana))
	require.NoError(t, st.AddTeamMember(ctx, team, ana)) // idempotent

	ids, err := st.TeamMemberIDs(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, []int64{ana}, ids)

	member, err := st.IsTeamMember(ctx, team, ana)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = st.IsTeamMember(ctx, team, bob)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestPeopleByRank(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ana, _ := st.AddPerson(ctx, "Ana", "ana@example.org")
	bob, _ := st.AddPerson(ctx, "Bob", "bob@example.org")
	carol, _ := st.AddPerson(ctx, "Carol", "carol@example.org")
	require.NoError(t, st.SetContributorRank(ctx, ana, "core_team"))
	require.NoError(t, st.SetContributorRank(ctx, bob, "reviewer"))

	ids, err := st.PeopleByRank(ctx, "core_team")
	require.NoError(t, err)
	assert.Equal(t, []int64{ana}, ids)

	ids, err = st.PeopleByRank(ctx, resolve.RankAny)
	require.NoError(t, err)
	assert.Equal(t, []int64{ana, bob}, ids)
	assert.NotContains(t, ids, carol)

	assert.Error(t, st.SetContributorRank(ctx, carol, "boss"))
}

func TestSearchPeople(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ana, _ := st.AddPerson(ctx, "Ana Torres", "ana@example.org")
	bob, _ := st.AddPerson(ctx, "Bob Anand", "bob@example.org")

	t.Run("substring over name and email", func(t *testing.T) {
		ids, err := st.SearchPeople(ctx, "ana", false, false)
		require.NoError(t, err)
		assert.Equal(t, []int64{ana, bob}, ids, "matches Ana's name/email and Anand")
	})

	t.Run("email only", func(t *testing.T) {
		ids, err := st.SearchPeople(ctx, "ana", true, false)
		require.NoError(t, err)
		assert.Equal(t, []int64{ana}, ids)
	})

	t.Run("exact", func(t *testing.T) {
		ids, err := st.SearchPeople(ctx, fold("Ana Torres"), false, true)
		require.NoError(t, err)
		assert.Equal(t, []int64{ana}, ids)

		ids, err = st.SearchPeople(ctx, "ana", false, true)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("like metacharacters are literal", func(t *testing.T) {
		ids, err := st.SearchPeople(ctx, "%", false, false)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
