package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// DefaultProjectName используется, когда имя при создании не задано.
const DefaultProjectName = "My New Project"

// ProjectService управляет жизненным циклом проектов и указателем на
// текущий проект.
type ProjectService interface {
	// CreateProject создает проект с уникальным именем, делает его текущим
	// и возвращает его. Пустое имя заменяется на DefaultProjectName.
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	// GetProject возвращает (nil, nil), если проект не найден.
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.ProjectSummary, error)
	// UpdateProject заменяет запись целиком (last-writer-wins) и поднимает updatedAt.
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	RenameProject(ctx context.Context, id uuid.UUID, newName string) (*models.Project, error)
	SwitchProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetCurrentProjectID(ctx context.Context) (uuid.UUID, bool, error)
	GetCurrentProject(ctx context.Context) (*models.Project, error)
}

type projectServiceImpl struct {
	repo   *projectRepository
	logger *zap.Logger
}

// NewProjectService создает новый экземпляр ProjectService.
func NewProjectService(store storage.KeyValueStore, logger *zap.Logger) ProjectService {
	return &projectServiceImpl{
		repo:   newProjectRepository(store, logger),
		logger: logger.Named("ProjectService"),
	}
}

func (s *projectServiceImpl) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	if name == "" {
		name = DefaultProjectName
	}
	log := s.logger.With(zap.String("requested_name", name))
	log.Info("Creating project")

	existing, err := s.repo.listProjects(ctx)
	if err != nil {
		return nil, err
	}
	uniqueName := resolveUniqueName(name, projectNames(existing, uuid.Nil))

	now := time.Now().UTC()
	project := &models.Project{
		ID:                uuid.New(),
		Name:              uniqueName,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastOpenedAt:      now,
		StoryHistory:      []models.Story{},
		StoryHistoryIndex: -1,
		WorldElements:     map[uuid.UUID]models.WorldElement{},
		Scenes:            []models.Scene{},
	}
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.repo.setCurrentProjectID(ctx, project.ID); err != nil {
		return nil, err
	}

	log.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("name", project.Name))
	return project, nil
}

func (s *projectServiceImpl) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.loadProject(ctx, id)
	if err != nil {
		if isProjectMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	return project, nil
}

func (s *projectServiceImpl) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	projects, err := s.repo.listProjects(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ProjectSummary, 0, len(projects))
	for i := range projects {
		summaries = append(summaries, projects[i].Summary())
	}
	return summaries, nil
}

func (s *projectServiceImpl) UpdateProject(ctx context.Context, project *models.Project) error {
	if _, err := s.repo.loadProject(ctx, project.ID); err != nil {
		return err
	}
	return s.repo.saveProject(ctx, project)
}

func (s *projectServiceImpl) DeleteProject(ctx context.Context, id uuid.UUID) error {
	log := s.logger.With(zap.String("project_id", id.String()))
	log.Info("Deleting project")

	project, err := s.repo.loadProject(ctx, id)
	if err != nil {
		return err
	}
	// Снапшоты истории живут под собственными ключами и умирают с проектом.
	snapshotIDs := make([]uuid.UUID, 0, len(project.StoryHistory))
	for i := range project.StoryHistory {
		snapshotIDs = append(snapshotIDs, project.StoryHistory[i].ID)
	}
	if err := s.repo.deleteStorySnapshots(ctx, snapshotIDs); err != nil {
		return err
	}
	if err := s.repo.deleteProject(ctx, id); err != nil {
		return err
	}

	currentID, ok, err := s.repo.currentProjectID(ctx)
	if err != nil {
		return err
	}
	if ok && currentID == id {
		if err := s.repo.clearCurrentProject(ctx); err != nil {
			return err
		}
	}
	log.Info("Project deleted")
	return nil
}

func (s *projectServiceImpl) RenameProject(ctx context.Context, id uuid.UUID, newName string) (*models.Project, error) {
	log := s.logger.With(zap.String("project_id", id.String()), zap.String("new_name", newName))
	log.Info("Renaming project")

	project, err := s.repo.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	// Переименование в собственное имя — разрешенный no-op по имени.
	if newName != project.Name {
		existing, err := s.repo.listProjects(ctx)
		if err != nil {
			return nil, err
		}
		if _, taken := projectNames(existing, id)[newName]; taken {
			log.Warn("Project name already in use")
			return nil, fmt.Errorf("%w: %q", models.ErrProjectNameConflict, newName)
		}
		project.Name = newName
	}
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectServiceImpl) SwitchProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	log := s.logger.With(zap.String("project_id", id.String()))
	log.Info("Switching current project")

	project, err := s.repo.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	project.LastOpenedAt = time.Now().UTC()
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.repo.setCurrentProjectID(ctx, id); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectServiceImpl) GetCurrentProjectID(ctx context.Context) (uuid.UUID, bool, error) {
	return s.repo.currentProjectID(ctx)
}

func (s *projectServiceImpl) GetCurrentProject(ctx context.Context) (*models.Project, error) {
	id, ok, err := s.repo.currentProjectID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.GetProject(ctx, id)
}

// projectNames собирает занятые имена, исключая проект exclude (для rename).
func projectNames(projects []models.Project, exclude uuid.UUID) map[string]struct{} {
	names := make(map[string]struct{}, len(projects))
	for i := range projects {
		if projects[i].ID == exclude {
			continue
		}
		names[projects[i].Name] = struct{}{}
	}
	return names
}

// resolveUniqueName реализует алгоритм уникальных имен: точное имя, если
// свободно, иначе "{base} (1)", "{base} (2)", … — первое свободное.
// Освободившийся номер переиспользуется, счетчик не хранится.
func resolveUniqueName(base string, taken map[string]struct{}) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
