package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/ai/mocks"
	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

type sceneFixture struct {
	svc       SceneService
	generator *mocks.StoryGenerator
	images    *mocks.ImageGenerator
	projectID uuid.UUID
}

func newSceneFixture(t *testing.T) *sceneFixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	generator := new(mocks.StoryGenerator)
	images := new(mocks.ImageGenerator)
	projects := NewProjectService(store, zap.NewNop())
	project, err := projects.CreateProject(ctx, "Scenes")
	require.NoError(t, err)
	return &sceneFixture{
		svc:       NewSceneService(store, generator, images, zap.NewNop()),
		generator: generator,
		images:    images,
		projectID: project.ID,
	}
}

func TestCreateSceneDefaultTitles(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	for i, want := range []string{"Scene 1", "Scene 2", "Scene 3"} {
		scene, err := f.svc.CreateScene(ctx, f.projectID, "")
		require.NoError(t, err, "scene %d", i+1)
		assert.Equal(t, want, scene.Title)
		assert.Equal(t, models.SceneStatusEmpty, scene.Status)
		assert.Equal(t, models.SceneDurationSeconds, scene.Duration)
		assert.Empty(t, scene.Images)
		assert.Empty(t, scene.AssignedElements)
	}
}

func TestCreateSceneDefaultTitleIgnoresArchived(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	first, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	_, err = f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)

	// После архивирования активных снова одна, и следующий default
	// совпадает с уже существующим "Scene 2" — поведение намеренное.
	_, err = f.svc.ArchiveScene(ctx, f.projectID, first.ID)
	require.NoError(t, err)

	third, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	assert.Equal(t, "Scene 2", third.Title)
}

func TestCloneSceneTitleProbing(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	original, err := f.svc.CreateScene(ctx, f.projectID, "X")
	require.NoError(t, err)
	_, err = f.svc.CreateScene(ctx, f.projectID, "X (1)")
	require.NoError(t, err)

	// "X (1)" занято (даже если бы было архивировано) — клон получает "X (2)".
	clone, err := f.svc.CloneScene(ctx, f.projectID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "X (2)", clone.Title)
}

func TestCloneSceneStripsSuffixForBase(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	_, err := f.svc.CreateScene(ctx, f.projectID, "X")
	require.NoError(t, err)
	suffixed, err := f.svc.CreateScene(ctx, f.projectID, "X (3)")
	require.NoError(t, err)

	// База клона "X (3)" — это "X", а не "X (3)".
	clone, err := f.svc.CloneScene(ctx, f.projectID, suffixed.ID)
	require.NoError(t, err)
	assert.Equal(t, "X (1)", clone.Title)
}

func TestCloneSceneCopiesByValueAndInsertsAfterOriginal(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	first, err := f.svc.CreateScene(ctx, f.projectID, "Opening")
	require.NoError(t, err)
	_, err = f.svc.CreateScene(ctx, f.projectID, "Finale")
	require.NoError(t, err)

	elementID := uuid.New()
	first.AssignedElements = []uuid.UUID{elementID}
	first.Description = "the hero arrives"
	require.NoError(t, f.svc.UpdateScene(ctx, f.projectID, first))
	_, err = f.svc.AddImage(ctx, f.projectID, first.ID, "https://img/1.png", "")
	require.NoError(t, err)

	clone, err := f.svc.CloneScene(ctx, f.projectID, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, clone.ID)
	assert.Equal(t, []uuid.UUID{elementID}, clone.AssignedElements)
	assert.Equal(t, "the hero arrives", clone.Description)
	require.Len(t, clone.Images, 1)

	scenes, err := f.svc.ListScenes(ctx, f.projectID, true)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	assert.Equal(t, first.ID, scenes[0].ID)
	assert.Equal(t, clone.ID, scenes[1].ID) // сразу после оригинала
	assert.Equal(t, "Finale", scenes[2].Title)
}

func TestCloneArchivedSceneIsActive(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "Hidden")
	require.NoError(t, err)
	_, err = f.svc.ArchiveScene(ctx, f.projectID, scene.ID)
	require.NoError(t, err)

	clone, err := f.svc.CloneScene(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.False(t, clone.IsArchived)
}

func TestSceneNumberReflectsNonArchivedSubsequence(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	var scenes []*models.Scene
	for i := 0; i < 3; i++ {
		scene, err := f.svc.CreateScene(ctx, f.projectID, "")
		require.NoError(t, err)
		scenes = append(scenes, scene)
	}

	for i, scene := range scenes {
		n, err := f.svc.SceneNumber(ctx, f.projectID, scene.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
	}

	// Архивирование первой сцены сдвигает номера последующих и дает ей -1.
	_, err := f.svc.ArchiveScene(ctx, f.projectID, scenes[0].ID)
	require.NoError(t, err)

	n, err := f.svc.SceneNumber(ctx, f.projectID, scenes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	n, err = f.svc.SceneNumber(ctx, f.projectID, scenes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.SceneNumber(ctx, f.projectID, scenes[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.SceneNumber(ctx, f.projectID, uuid.New())
	assert.ErrorIs(t, err, models.ErrSceneNotFound)
}

func TestListScenesExcludesArchivedByDefault(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	first, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	_, err = f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	_, err = f.svc.ArchiveScene(ctx, f.projectID, first.ID)
	require.NoError(t, err)

	visible, err := f.svc.ListScenes(ctx, f.projectID, false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := f.svc.ListScenes(ctx, f.projectID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUnarchiveSceneWithInsertIndex(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		scene, err := f.svc.CreateScene(ctx, f.projectID, "")
		require.NoError(t, err)
		ids = append(ids, scene.ID)
	}

	_, err := f.svc.ArchiveScene(ctx, f.projectID, ids[2])
	require.NoError(t, err)

	insertAt := 0
	restored, err := f.svc.UnarchiveScene(ctx, f.projectID, ids[2], &insertAt)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	scenes, err := f.svc.ListScenes(ctx, f.projectID, true)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	assert.Equal(t, ids[2], scenes[0].ID)
	assert.Equal(t, ids[0], scenes[1].ID)
	assert.Equal(t, ids[1], scenes[2].ID)
}

func TestMoveSceneIsASplice(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		scene, err := f.svc.CreateScene(ctx, f.projectID, "")
		require.NoError(t, err)
		ids = append(ids, scene.ID)
	}

	// Перенос, а не обмен: [0 1 2 3] → переместить 3 на позицию 1 → [0 3 1 2].
	require.NoError(t, f.svc.MoveScene(ctx, f.projectID, ids[3], 1))

	scenes, err := f.svc.ListScenes(ctx, f.projectID, true)
	require.NoError(t, err)
	got := []uuid.UUID{scenes[0].ID, scenes[1].ID, scenes[2].ID, scenes[3].ID}
	assert.Equal(t, []uuid.UUID{ids[0], ids[3], ids[1], ids[2]}, got)

	assert.ErrorIs(t, f.svc.MoveScene(ctx, f.projectID, uuid.New(), 0), models.ErrSceneNotFound)
}

func TestDeleteSceneIsHardRemove(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteScene(ctx, f.projectID, scene.ID))

	got, err := f.svc.GetScene(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, f.svc.DeleteScene(ctx, f.projectID, scene.ID), models.ErrSceneNotFound)
}

func TestAddImageDeactivatesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)

	_, err = f.svc.AddImage(ctx, f.projectID, scene.ID, "https://img/1.png", "first")
	require.NoError(t, err)
	updated, err := f.svc.AddImage(ctx, f.projectID, scene.ID, "https://img/2.png", "second")
	require.NoError(t, err)

	require.Len(t, updated.Images, 2)
	assert.False(t, updated.Images[0].IsActive)
	assert.True(t, updated.Images[1].IsActive)
	assert.Equal(t, models.SceneStatusCompleted, updated.Status)

	active := updated.ActiveImage()
	require.NotNil(t, active)
	assert.Equal(t, "https://img/2.png", active.ImageURL)
}

func TestSetActiveImage(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	withFirst, err := f.svc.AddImage(ctx, f.projectID, scene.ID, "https://img/1.png", "")
	require.NoError(t, err)
	firstID := withFirst.Images[0].ID
	_, err = f.svc.AddImage(ctx, f.projectID, scene.ID, "https://img/2.png", "")
	require.NoError(t, err)

	updated, err := f.svc.SetActiveImage(ctx, f.projectID, scene.ID, firstID)
	require.NoError(t, err)
	assert.True(t, updated.Images[0].IsActive)
	assert.False(t, updated.Images[1].IsActive)

	_, err = f.svc.SetActiveImage(ctx, f.projectID, scene.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGenerateImageUsesEffectiveDescription(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	scene.Description = "generated description"
	scene.CustomDescription = "user override"
	require.NoError(t, f.svc.UpdateScene(ctx, f.projectID, scene))

	f.images.On("GenerateImage", mock.Anything, "user override").
		Return(&ai.GeneratedImage{URL: "https://img/x.png", RevisedPrompt: "revised"}, nil)

	updated, err := f.svc.GenerateImage(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "https://img/x.png", updated.Images[0].ImageURL)
	assert.Equal(t, "revised", updated.Images[0].RevisedPrompt)
	assert.Equal(t, models.SceneStatusCompleted, updated.Status)

	f.images.AssertExpectations(t)
}

func TestGenerateImageFailureMarksScene(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	scene.Description = "desc"
	require.NoError(t, f.svc.UpdateScene(ctx, f.projectID, scene))

	f.images.On("GenerateImage", mock.Anything, mock.Anything).
		Return(nil, ai.ErrImageGenerationFailed)

	_, err = f.svc.GenerateImage(ctx, f.projectID, scene.ID)
	assert.ErrorIs(t, err, ai.ErrImageGenerationFailed)

	stored, err := f.svc.GetScene(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SceneStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestSceneSmartExpandBaseline(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	scene.Description = "a quiet street"
	require.NoError(t, f.svc.UpdateScene(ctx, f.projectID, scene))

	f.generator.On("ExpandText", mock.Anything, "a quiet street").
		Return("a quiet street at dusk, long shadows", nil).Once()
	f.generator.On("ExpandText", mock.Anything, "a quiet street").
		Return("a quiet street under neon rain", nil).Once()

	first, err := f.svc.SmartExpand(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.True(t, first.IsSmartExpanded)
	assert.Equal(t, "a quiet street", first.PreExpansionDescription)
	assert.Equal(t, "a quiet street at dusk, long shadows", first.EnhancedDescription)

	// Повторное расширение исходит из базы, база не дрейфует.
	second, err := f.svc.SmartExpand(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PreExpansionDescription, second.PreExpansionDescription)
	assert.Equal(t, "a quiet street under neon rain", second.EnhancedDescription)

	f.generator.AssertExpectations(t)
}

func TestSceneSmartExpandPrefersCustomDescription(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	scene, err := f.svc.CreateScene(ctx, f.projectID, "")
	require.NoError(t, err)
	scene.Description = "generated"
	scene.CustomDescription = "user text"
	require.NoError(t, f.svc.UpdateScene(ctx, f.projectID, scene))

	f.generator.On("ExpandText", mock.Anything, "user text").Return("expanded user text", nil)

	expanded, err := f.svc.SmartExpand(ctx, f.projectID, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, "user text", expanded.PreExpansionDescription)

	f.generator.AssertExpectations(t)
}

func TestUpdateSceneUnknown(t *testing.T) {
	ctx := context.Background()
	f := newSceneFixture(t)

	ghost := &models.Scene{ID: uuid.New(), Title: "Ghost"}
	assert.ErrorIs(t, f.svc.UpdateScene(ctx, f.projectID, ghost), models.ErrSceneNotFound)
}
