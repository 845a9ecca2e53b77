package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// StoryHistoryService управляет линейной историей снапшотов с ветвлением
// "отбросить будущее при записи": ветка от прошлой версии уничтожает все
// версии после нее при следующем добавлении.
type StoryHistoryService interface {
	// AddVersion добавляет снапшот в хвост истории проекта. Если курсор был
	// отмотан назад веткой, хвост за курсором сначала отбрасывается навсегда.
	AddVersion(ctx context.Context, projectID uuid.UUID, story models.Story) (*models.Project, error)
	// GetCurrentVersion возвращает (nil, nil), пока истории нет.
	GetCurrentVersion(ctx context.Context, projectID uuid.UUID) (*models.Story, error)
	GetHistory(ctx context.Context, projectID uuid.UUID) ([]models.Story, error)
	GetHistoryIndex(ctx context.Context, projectID uuid.UUID) (int, error)
	// BranchFromVersion немедленно усекает историю до [0..index] и ставит
	// курсор на index. Это разрушающая операция, а не ленивый сдвиг курсора.
	BranchFromVersion(ctx context.Context, projectID uuid.UUID, index int) (*models.Story, error)
	GetVersionCount(ctx context.Context, projectID uuid.UUID) (int, error)
}

type storyHistoryServiceImpl struct {
	repo   *projectRepository
	logger *zap.Logger
}

// NewStoryHistoryService создает новый экземпляр StoryHistoryService.
func NewStoryHistoryService(store storage.KeyValueStore, logger *zap.Logger) StoryHistoryService {
	return &storyHistoryServiceImpl{
		repo:   newProjectRepository(store, logger),
		logger: logger.Named("StoryHistoryService"),
	}
}

// appendStoryVersion применяет семантику добавления к записи проекта в памяти
// и возвращает id отброшенных версий, чьи снапшоты больше недостижимы.
func appendStoryVersion(project *models.Project, story models.Story) []uuid.UUID {
	var discarded []uuid.UUID
	if project.StoryHistoryIndex < len(project.StoryHistory)-1 {
		for _, dropped := range project.StoryHistory[project.StoryHistoryIndex+1:] {
			discarded = append(discarded, dropped.ID)
		}
		project.StoryHistory = project.StoryHistory[:project.StoryHistoryIndex+1]
	}
	project.StoryHistory = append(project.StoryHistory, story)
	project.StoryHistoryIndex = len(project.StoryHistory) - 1
	current := story
	project.CurrentStory = &current
	return discarded
}

func (s *storyHistoryServiceImpl) AddVersion(ctx context.Context, projectID uuid.UUID, story models.Story) (*models.Project, error) {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.String("story_id", story.ID.String()))
	log.Info("Adding story version")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	discarded := appendStoryVersion(project, story)
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.repo.deleteStorySnapshots(ctx, discarded); err != nil {
		return nil, err
	}

	log.Info("Story version added", zap.Int("history_len", len(project.StoryHistory)))
	return project, nil
}

func (s *storyHistoryServiceImpl) GetCurrentVersion(ctx context.Context, projectID uuid.UUID) (*models.Story, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.StoryHistoryIndex < 0 || project.StoryHistoryIndex >= len(project.StoryHistory) {
		return nil, nil
	}
	current := project.StoryHistory[project.StoryHistoryIndex]
	return &current, nil
}

func (s *storyHistoryServiceImpl) GetHistory(ctx context.Context, projectID uuid.UUID) ([]models.Story, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	history := make([]models.Story, len(project.StoryHistory))
	copy(history, project.StoryHistory)
	return history, nil
}

func (s *storyHistoryServiceImpl) GetHistoryIndex(ctx context.Context, projectID uuid.UUID) (int, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return project.StoryHistoryIndex, nil
}

func (s *storyHistoryServiceImpl) BranchFromVersion(ctx context.Context, projectID uuid.UUID, index int) (*models.Story, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.Int("index", index))
	log.Info("Branching story history")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(project.StoryHistory) {
		log.Warn("Branch index out of range", zap.Int("history_len", len(project.StoryHistory)))
		return nil, fmt.Errorf("%w: index %d, history length %d",
			models.ErrIndexOutOfRange, index, len(project.StoryHistory))
	}

	discarded := make([]uuid.UUID, 0, len(project.StoryHistory)-index-1)
	for _, dropped := range project.StoryHistory[index+1:] {
		discarded = append(discarded, dropped.ID)
	}
	project.StoryHistory = project.StoryHistory[:index+1]
	project.StoryHistoryIndex = index
	current := project.StoryHistory[index]
	project.CurrentStory = &current
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.repo.deleteStorySnapshots(ctx, discarded); err != nil {
		return nil, err
	}

	log.Info("Story history branched", zap.Int("history_len", len(project.StoryHistory)))
	result := current
	return &result, nil
}

func (s *storyHistoryServiceImpl) GetVersionCount(ctx context.Context, projectID uuid.UUID) (int, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return len(project.StoryHistory), nil
}
