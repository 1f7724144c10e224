package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	err := s.RecordPublish(ctx, []Entry{
		{SessionID: "a", CommentID: 1, Username: "@alice", Reply: "Merci !", Success: true, PublishedAt: base},
		{SessionID: "a", CommentID: 2, Username: "@bob", Reply: "Coucou", Error: "reply button not found", PublishedAt: base.Add(time.Minute)},
		{SessionID: "b", CommentID: 1, Username: "@carol", Reply: "Top", Success: true, Modified: true, PublishedAt: base.Add(2 * time.Minute)},
	})
	require.NoError(t, err)

	all, err := s.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "@carol", all[0].Username)
	assert.True(t, all[0].Modified)
	assert.Equal(t, "@alice", all[2].Username)

	onlyA, err := s.Recent(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.False(t, onlyA[0].Success)
	assert.Equal(t, "reply button not found", onlyA[0].Error)
	assert.True(t, onlyA[1].Success)

	limited, err := s.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordPublish(context.Background(), nil))

	got, err := s.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RecordPublish(context.Background(), []Entry{{SessionID: "x", CommentID: 3}}))
	got, err := s.Recent(context.Background(), "x", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].CommentID)
	assert.False(t, got[0].PublishedAt.IsZero())
}
