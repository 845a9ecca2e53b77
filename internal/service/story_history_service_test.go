package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

func newHistoryFixture(t *testing.T) (StoryHistoryService, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	projects := NewProjectService(store, zap.NewNop())
	project, err := projects.CreateProject(ctx, "History")
	require.NoError(t, err)
	return NewStoryHistoryService(store, zap.NewNop()), project.ID
}

func storySnapshot(narrative string) models.Story {
	return models.Story{
		ID:             uuid.New(),
		Prompt:         "a fox crosses the city",
		Style:          models.StoryStyle{Preset: models.StyleAnime},
		TargetDuration: 15,
		Narrative:      narrative,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestHistoryStartsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, projectID := newHistoryFixture(t)

	current, err := svc.GetCurrentVersion(ctx, projectID)
	require.NoError(t, err)
	assert.Nil(t, current)

	index, err := svc.GetHistoryIndex(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, -1, index)

	count, err := svc.GetVersionCount(ctx, projectID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddVersionMovesCursorToTail(t *testing.T) {
	ctx := context.Background()
	svc, projectID := newHistoryFixture(t)

	first := storySnapshot("v1")
	second := storySnapshot("v2")

	_, err := svc.AddVersion(ctx, projectID, first)
	require.NoError(t, err)
	project, err := svc.AddVersion(ctx, projectID, second)
	require.NoError(t, err)

	assert.Equal(t, 1, project.StoryHistoryIndex)
	require.NotNil(t, project.CurrentStory)
	assert.Equal(t, second.ID, project.CurrentStory.ID)

	history, err := svc.GetHistory(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}

func TestBranchFromVersionTruncatesImmediately(t *testing.T) {
	ctx := context.Background()
	svc, projectID := newHistoryFixture(t)

	snapshots := []models.Story{storySnapshot("v1"), storySnapshot("v2"), storySnapshot("v3")}
	for _, snap := range snapshots {
		_, err := svc.AddVersion(ctx, projectID, snap)
		require.NoError(t, err)
	}

	branched, err := svc.BranchFromVersion(ctx, projectID, 0)
	require.NoError(t, err)
	assert.Equal(t, snapshots[0].ID, branched.ID)

	// Усечение происходит сразу, не при следующей записи.
	history, err := svc.GetHistory(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, snapshots[0].ID, history[0].ID)

	index, err := svc.GetHistoryIndex(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, index)
}

func TestBranchThenAddYieldsLinearHistory(t *testing.T) {
	// branchFromVersion(i) + addVersion(s) дает ровно i+2 записи:
	// первые i+1 нетронуты, последняя — s.
	ctx := context.Background()
	svc, projectID := newHistoryFixture(t)

	snapshots := []models.Story{
		storySnapshot("v1"), storySnapshot("v2"),
		storySnapshot("v3"), storySnapshot("v4"),
	}
	for _, snap := range snapshots {
		_, err := svc.AddVersion(ctx, projectID, snap)
		require.NoError(t, err)
	}

	const branchAt = 1
	_, err := svc.BranchFromVersion(ctx, projectID, branchAt)
	require.NoError(t, err)

	replacement := storySnapshot("v2b")
	_, err = svc.AddVersion(ctx, projectID, replacement)
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, branchAt+2)
	for i := 0; i <= branchAt; i++ {
		assert.Equal(t, snapshots[i].ID, history[i].ID)
	}
	assert.Equal(t, replacement.ID, history[branchAt+1].ID)

	current, err := svc.GetCurrentVersion(ctx, projectID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, replacement.ID, current.ID)
}

func TestBranchFromVersionOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, projectID := newHistoryFixture(t)

	_, err := svc.AddVersion(ctx, projectID, storySnapshot("v1"))
	require.NoError(t, err)

	for _, index := range []int{-1, 1, 5} {
		_, err := svc.BranchFromVersion(ctx, projectID, index)
		assert.ErrorIs(t, err, models.ErrIndexOutOfRange, "index %d", index)
	}
}

func TestHistoryUnknownProject(t *testing.T) {
	ctx := context.Background()
	svc, _ := newHistoryFixture(t)

	_, err := svc.AddVersion(ctx, uuid.New(), storySnapshot("v1"))
	assert.ErrorIs(t, err, models.ErrProjectNotFound)
}

func TestBranchRemovesDiscardedSnapshots(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	projects := NewProjectService(store, zap.NewNop())
	project, err := projects.CreateProject(ctx, "History")
	require.NoError(t, err)
	svc := NewStoryHistoryService(store, zap.NewNop())
	repo := newProjectRepository(store, zap.NewNop())

	snapshots := []models.Story{storySnapshot("v1"), storySnapshot("v2"), storySnapshot("v3")}
	for i := range snapshots {
		require.NoError(t, repo.saveStorySnapshot(ctx, &snapshots[i]))
		_, err := svc.AddVersion(ctx, project.ID, snapshots[i])
		require.NoError(t, err)
	}

	_, err = svc.BranchFromVersion(ctx, project.ID, 0)
	require.NoError(t, err)

	// Отброшенные веткой версии недостижимы, их снапшоты удаляются сразу.
	keys, err := store.List(ctx, storyKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{storyKey(snapshots[0].ID)}, keys)
}
