package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyIndex(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	has, err := st.HasBodyIndex(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	ana, _ := st.AddPerson(ctx, "Ana", "ana@example.org")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	topic, err := st.AddTopic(ctx, "t", ana, created)
	require.NoError(t, err)
	preexisting, err := st.AddMessage(ctx, topic, ana, created, "indexed before enable")
	require.NoError(t, err)

	require.NoError(t, st.EnableBodyIndex(ctx))
	require.NoError(t, st.EnableBodyIndex(ctx)) // idempotent

	has, err = st.HasBodyIndex(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	// Rebuild picked up the pre-existing message.
	ids, err := st.QueryTopics(ctx,
		"SELECT rowid FROM messages_fts WHERE messages_fts MATCH ? ORDER BY rowid", `"indexed"`)
	require.NoError(t, err)
	assert.Equal(t, []int64{preexisting}, ids)

	// The insert trigger keeps new messages searchable.
	added, err := st.AddMessage(ctx, topic, ana, created.Add(time.Hour), "added after enable")
	require.NoError(t, err)
	ids, err = st.QueryTopics(ctx,
		"SELECT rowid FROM messages_fts WHERE messages_fts MATCH ? ORDER BY rowid", `"added"`)
	require.NoError(t, err)
	assert.Equal(t, []int64{added}, ids)
}

func TestHasBodyIndex_CachedAcrossCalls(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	has, err := st.HasBodyIndex(ctx)
	require.NoError(t, err)
	require.False(t, has)

	// The cached answer holds for the life of the Store.
	has, err = st.HasBodyIndex(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}
