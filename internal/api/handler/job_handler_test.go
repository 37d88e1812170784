package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight-go/internal/storage"
	"resume-insight-go/internal/types"
)

func newJobHandler(t *testing.T) (*JobHandler, *storage.Storage) {
	t.Helper()
	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	store := storage.NewStorageWith(blobs, storage.NewMemorySessionStore())
	return NewJobHandler(store), store
}

func TestJobMatchesEmptyWithoutUpload(t *testing.T) {
	h, _ := newJobHandler(t)

	matches, err := h.HandleJobMatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJobMatchesRankedByPercentage(t *testing.T) {
	h, store := newJobHandler(t)
	_, err := store.SaveParsed(context.Background(), &types.ParsedResume{Text: "resume"})
	require.NoError(t, err)

	matches, err := h.HandleJobMatches(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// 候选人技能 java/html/css/sql：
	// Full Stack命中4/5=80，Java Developer命中2/3=67，Frontend命中2/4=50
	assert.Equal(t, "Full Stack Developer", matches[0].Title)
	assert.Equal(t, 80, matches[0].MatchPercentage)
	assert.Equal(t, "Java Developer", matches[1].Title)
	assert.Equal(t, 67, matches[1].MatchPercentage)
	assert.Equal(t, "Frontend Developer", matches[2].Title)
	assert.Equal(t, 50, matches[2].MatchPercentage)
}

func TestHandleJobsReturnsFixedSkills(t *testing.T) {
	h, _ := newJobHandler(t)

	resp, err := h.HandleJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "javascript", "typescript", "node.js"}, resp.Skills)
}
