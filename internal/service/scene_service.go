package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// SceneService управляет упорядоченным списком сцен раскадровки проекта:
// создание с авто-нумерацией, клонирование с уникальным заголовком,
// архивирование, перестановка и версии изображений.
type SceneService interface {
	// CreateScene создает пустую сцену. Пустой title заменяется на
	// "Scene {n}", где n — число неархивированных сцен + 1 на момент
	// создания; счетчик не хранится, поэтому заголовки по умолчанию могут
	// повторяться после архивирования или удаления сцен.
	CreateScene(ctx context.Context, projectID uuid.UUID, title string) (*models.Scene, error)
	// GetScene возвращает (nil, nil), если сцена не найдена.
	GetScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
	ListScenes(ctx context.Context, projectID uuid.UUID, includeArchived bool) ([]models.Scene, error)
	// UpdateScene заменяет запись сцены целиком и поднимает updatedAt.
	UpdateScene(ctx context.Context, projectID uuid.UUID, scene *models.Scene) error
	DeleteScene(ctx context.Context, projectID, sceneID uuid.UUID) error
	// CloneScene копирует сцену по значению, дает ей уникальный заголовок
	// и вставляет копию сразу после оригинала.
	CloneScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
	ArchiveScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
	// UnarchiveScene снимает флаг архива; insertAt, если задан, переносит
	// сцену на указанную позицию в списке.
	UnarchiveScene(ctx context.Context, projectID, sceneID uuid.UUID, insertAt *int) (*models.Scene, error)
	MoveScene(ctx context.Context, projectID, sceneID uuid.UUID, toIndex int) error
	// SceneNumber возвращает 1-indexed позицию среди неархивированных сцен,
	// или -1 для архивированной сцены.
	SceneNumber(ctx context.Context, projectID, sceneID uuid.UUID) (int, error)
	// AddImage деактивирует все изображения сцены, добавляет новое активным
	// и переводит статус в completed.
	AddImage(ctx context.Context, projectID, sceneID uuid.UUID, imageURL, revisedPrompt string) (*models.Scene, error)
	SetActiveImage(ctx context.Context, projectID, sceneID, imageID uuid.UUID) (*models.Scene, error)
	// GenerateImage запрашивает у провайдера изображение по действующему
	// описанию сцены и добавляет результат через AddImage-семантику.
	GenerateImage(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
	SmartExpand(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
}

type sceneServiceImpl struct {
	repo      *projectRepository
	generator ai.StoryGenerator
	images    ai.ImageGenerator
	logger    *zap.Logger
}

// NewSceneService создает новый экземпляр SceneService.
func NewSceneService(store storage.KeyValueStore, generator ai.StoryGenerator, images ai.ImageGenerator, logger *zap.Logger) SceneService {
	return &sceneServiceImpl{
		repo:      newProjectRepository(store, logger),
		generator: generator,
		images:    images,
		logger:    logger.Named("SceneService"),
	}
}

func (s *sceneServiceImpl) CreateScene(ctx context.Context, projectID uuid.UUID, title string) (*models.Scene, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()))
	log.Info("Creating scene")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		active := 0
		for i := range project.Scenes {
			if !project.Scenes[i].IsArchived {
				active++
			}
		}
		title = fmt.Sprintf("Scene %d", active+1)
	}

	now := time.Now().UTC()
	scene := models.Scene{
		ID:               uuid.New(),
		Title:            title,
		AssignedElements: []uuid.UUID{},
		Images:           []models.SceneImage{},
		Duration:         models.SceneDurationSeconds,
		Status:           models.SceneStatusEmpty,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	project.Scenes = append(project.Scenes, scene)
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}

	log.Info("Scene created", zap.String("scene_id", scene.ID.String()), zap.String("title", scene.Title))
	return &scene, nil
}

func (s *sceneServiceImpl) GetScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if idx := findScene(project.Scenes, sceneID); idx >= 0 {
		scene := project.Scenes[idx]
		return &scene, nil
	}
	return nil, nil
}

func (s *sceneServiceImpl) ListScenes(ctx context.Context, projectID uuid.UUID, includeArchived bool) ([]models.Scene, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	scenes := make([]models.Scene, 0, len(project.Scenes))
	for i := range project.Scenes {
		if !includeArchived && project.Scenes[i].IsArchived {
			continue
		}
		scenes = append(scenes, project.Scenes[i])
	}
	return scenes, nil
}

func (s *sceneServiceImpl) UpdateScene(ctx context.Context, projectID uuid.UUID, scene *models.Scene) error {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	idx := findScene(project.Scenes, scene.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", models.ErrSceneNotFound, scene.ID)
	}
	scene.UpdatedAt = time.Now().UTC()
	project.Scenes[idx] = *scene
	return s.repo.saveProject(ctx, project)
}

func (s *sceneServiceImpl) DeleteScene(ctx context.Context, projectID, sceneID uuid.UUID) error {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("scene_id", sceneID.String()))
	log.Info("Deleting scene")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	idx := findScene(project.Scenes, sceneID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}
	project.Scenes = append(project.Scenes[:idx], project.Scenes[idx+1:]...)
	return s.repo.saveProject(ctx, project)
}

var titleSuffixRe = regexp.MustCompile(`^(.*) \(\d+\)$`)

func (s *sceneServiceImpl) CloneScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("scene_id", sceneID.String()))
	log.Info("Cloning scene")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	idx := findScene(project.Scenes, sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}
	original := project.Scenes[idx]

	// Заголовок: снимаем существующий суффикс " (N)" и пробуем
	// "{base} (1)", "{base} (2)", … против всех сцен, включая архив.
	base := original.Title
	if m := titleSuffixRe.FindStringSubmatch(base); m != nil {
		base = m[1]
	}
	taken := make(map[string]struct{}, len(project.Scenes))
	for i := range project.Scenes {
		taken[project.Scenes[i].Title] = struct{}{}
	}
	title := ""
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, used := taken[candidate]; !used {
			title = candidate
			break
		}
	}

	now := time.Now().UTC()
	clone := original
	clone.ID = uuid.New()
	clone.Title = title
	clone.IsArchived = false
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.AssignedElements = append([]uuid.UUID{}, original.AssignedElements...)
	clone.Images = append([]models.SceneImage{}, original.Images...)

	// Клон встает сразу после оригинала, не в конец списка.
	project.Scenes = append(project.Scenes, models.Scene{})
	copy(project.Scenes[idx+2:], project.Scenes[idx+1:])
	project.Scenes[idx+1] = clone

	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	log.Info("Scene cloned", zap.String("clone_id", clone.ID.String()), zap.String("title", clone.Title))
	return &clone, nil
}

func (s *sceneServiceImpl) ArchiveScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	return s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
		scene.IsArchived = true
		return nil
	})
}

func (s *sceneServiceImpl) UnarchiveScene(ctx context.Context, projectID, sceneID uuid.UUID, insertAt *int) (*models.Scene, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("scene_id", sceneID.String()))
	log.Info("Unarchiving scene")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	idx := findScene(project.Scenes, sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}
	project.Scenes[idx].IsArchived = false
	project.Scenes[idx].UpdatedAt = time.Now().UTC()

	if insertAt != nil {
		scene := project.Scenes[idx]
		project.Scenes = append(project.Scenes[:idx], project.Scenes[idx+1:]...)
		project.Scenes = spliceScene(project.Scenes, scene, *insertAt)
		idx = findScene(project.Scenes, sceneID)
	}
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	scene := project.Scenes[idx]
	return &scene, nil
}

func (s *sceneServiceImpl) MoveScene(ctx context.Context, projectID, sceneID uuid.UUID, toIndex int) error {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.String("scene_id", sceneID.String()),
		zap.Int("to_index", toIndex))
	log.Info("Moving scene")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	idx := findScene(project.Scenes, sceneID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}
	scene := project.Scenes[idx]
	project.Scenes = append(project.Scenes[:idx], project.Scenes[idx+1:]...)
	project.Scenes = spliceScene(project.Scenes, scene, toIndex)
	return s.repo.saveProject(ctx, project)
}

func (s *sceneServiceImpl) SceneNumber(ctx context.Context, projectID, sceneID uuid.UUID) (int, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	number := 0
	for i := range project.Scenes {
		if !project.Scenes[i].IsArchived {
			number++
		}
		if project.Scenes[i].ID == sceneID {
			if project.Scenes[i].IsArchived {
				return -1, nil
			}
			return number, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
}

func (s *sceneServiceImpl) AddImage(ctx context.Context, projectID, sceneID uuid.UUID, imageURL, revisedPrompt string) (*models.Scene, error) {
	return s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
		attachImage(scene, imageURL, revisedPrompt)
		return nil
	})
}

func (s *sceneServiceImpl) SetActiveImage(ctx context.Context, projectID, sceneID, imageID uuid.UUID) (*models.Scene, error) {
	return s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
		found := false
		for i := range scene.Images {
			if scene.Images[i].ID == imageID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: image %s", models.ErrNotFound, imageID)
		}
		// Деактивировать все, затем активировать цель — единым шагом.
		for i := range scene.Images {
			scene.Images[i].IsActive = scene.Images[i].ID == imageID
		}
		return nil
	})
}

func (s *sceneServiceImpl) GenerateImage(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("scene_id", sceneID.String()))
	log.Info("Generating scene image")

	scene, err := s.GetScene(ctx, projectID, sceneID)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}

	prompt := scene.EffectiveDescription()
	if scene.EnhancedDescription != "" {
		prompt = scene.EnhancedDescription
	}

	generated, genErr := s.images.GenerateImage(ctx, prompt)
	if genErr != nil {
		log.Error("Image generation failed", zap.Error(genErr))
		if _, err := s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
			scene.Status = models.SceneStatusFailed
			scene.Error = genErr.Error()
			return nil
		}); err != nil {
			return nil, err
		}
		return nil, genErr
	}

	return s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
		attachImage(scene, generated.URL, generated.RevisedPrompt)
		return nil
	})
}

func (s *sceneServiceImpl) SmartExpand(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("scene_id", sceneID.String()))
	log.Info("Smart-expanding scene")

	scene, err := s.GetScene(ctx, projectID, sceneID)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}

	// Базой первого расширения служит пользовательское описание, если оно
	// есть, иначе сгенерированное; повторные расширения исходят из нее же.
	baseline := scene.EffectiveDescription()
	if scene.IsSmartExpanded && scene.PreExpansionDescription != "" {
		baseline = scene.PreExpansionDescription
	}

	expanded, err := s.generator.ExpandText(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("scene expansion failed: %w", err)
	}

	return s.mutateScene(ctx, projectID, sceneID, func(scene *models.Scene) error {
		scene.EnhancedDescription = expanded
		scene.IsSmartExpanded = true
		scene.PreExpansionDescription = baseline
		return nil
	})
}

// mutateScene выполняет цикл "загрузить проект — изменить сцену — сохранить".
func (s *sceneServiceImpl) mutateScene(ctx context.Context, projectID, sceneID uuid.UUID, mutate func(*models.Scene) error) (*models.Scene, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	idx := findScene(project.Scenes, sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSceneNotFound, sceneID)
	}
	if err := mutate(&project.Scenes[idx]); err != nil {
		return nil, err
	}
	project.Scenes[idx].UpdatedAt = time.Now().UTC()
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	scene := project.Scenes[idx]
	return &scene, nil
}

// attachImage реализует инвариант "ровно одно активное изображение":
// деактивировать все, добавить новое активным, статус completed.
func attachImage(scene *models.Scene, imageURL, revisedPrompt string) {
	for i := range scene.Images {
		scene.Images[i].IsActive = false
	}
	scene.Images = append(scene.Images, models.SceneImage{
		ID:            uuid.New(),
		ImageURL:      imageURL,
		RevisedPrompt: revisedPrompt,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	})
	scene.Status = models.SceneStatusCompleted
	scene.Error = ""
}

func findScene(scenes []models.Scene, id uuid.UUID) int {
	for i := range scenes {
		if scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// spliceScene вставляет сцену на позицию index, ограничивая его границами
// списка.
func spliceScene(scenes []models.Scene, scene models.Scene, index int) []models.Scene {
	if index < 0 {
		index = 0
	}
	if index > len(scenes) {
		index = len(scenes)
	}
	scenes = append(scenes, models.Scene{})
	copy(scenes[index+1:], scenes[index:])
	scenes[index] = scene
	return scenes
}
