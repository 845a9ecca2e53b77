package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// Ключи хранилища. Каждая сущность лежит под одним ключом целиком.
const (
	projectKeyPrefix  = "projects/"
	currentProjectKey = "projects/current"
	storyKeyPrefix    = "stories/"
)

func projectKey(id uuid.UUID) string { return projectKeyPrefix + id.String() }
func storyKey(id uuid.UUID) string   { return storyKeyPrefix + id.String() }

// projectRepository инкапсулирует схему ключей поверх KeyValueStore.
// Все сервисы делят один репозиторий: запись проекта читается, изменяется
// в памяти и сохраняется обратно целиком.
type projectRepository struct {
	store  storage.KeyValueStore
	logger *zap.Logger
}

func newProjectRepository(store storage.KeyValueStore, logger *zap.Logger) *projectRepository {
	return &projectRepository{store: store, logger: logger.Named("ProjectRepository")}
}

func (r *projectRepository) loadProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.store.Load(ctx, projectKey(id), &project); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrProjectNotFound, id)
		}
		r.logger.Error("Failed to load project", zap.String("project_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}
	return &project, nil
}

// saveProject сохраняет запись целиком, поднимая updatedAt.
func (r *projectRepository) saveProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	if err := r.store.Save(ctx, projectKey(project.ID), project); err != nil {
		r.logger.Error("Failed to save project", zap.String("project_id", project.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to save project %s: %w", project.ID, err)
	}
	return nil
}

func (r *projectRepository) deleteProject(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(ctx, projectKey(id)); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

// listProjects загружает все записи проектов. Служебный ключ указателя
// текущего проекта лежит под тем же префиксом и отфильтровывается.
func (r *projectRepository) listProjects(ctx context.Context) ([]models.Project, error) {
	keys, err := r.store.List(ctx, projectKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list project keys: %w", err)
	}
	projects := make([]models.Project, 0, len(keys))
	for _, key := range keys {
		if key == currentProjectKey {
			continue
		}
		var project models.Project
		if err := r.store.Load(ctx, key, &project); err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue // удален между list и load
			}
			return nil, fmt.Errorf("failed to load project at %q: %w", key, err)
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (r *projectRepository) currentProjectID(ctx context.Context) (uuid.UUID, bool, error) {
	var raw string
	if err := r.store.Load(ctx, currentProjectKey, &raw); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to load current project pointer: %w", err)
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt current project pointer %q: %w", raw, err)
	}
	return id, true, nil
}

func (r *projectRepository) setCurrentProjectID(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Save(ctx, currentProjectKey, id.String()); err != nil {
		return fmt.Errorf("failed to save current project pointer: %w", err)
	}
	return nil
}

func (r *projectRepository) clearCurrentProject(ctx context.Context) error {
	if err := r.store.Delete(ctx, currentProjectKey); err != nil {
		return fmt.Errorf("failed to clear current project pointer: %w", err)
	}
	return nil
}

// saveStorySnapshot кэширует неизменяемый снапшот истории под собственным
// ключом, чтобы edit/expand могли найти исходник по id.
func (r *projectRepository) saveStorySnapshot(ctx context.Context, story *models.Story) error {
	if err := r.store.Save(ctx, storyKey(story.ID), story); err != nil {
		return fmt.Errorf("failed to save story snapshot %s: %w", story.ID, err)
	}
	return nil
}

func (r *projectRepository) deleteStorySnapshot(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(ctx, storyKey(id)); err != nil {
		return fmt.Errorf("failed to delete story snapshot %s: %w", id, err)
	}
	return nil
}

func (r *projectRepository) deleteStorySnapshots(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if err := r.deleteStorySnapshot(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func isProjectMiss(err error) bool {
	return errors.Is(err, models.ErrProjectNotFound)
}

func (r *projectRepository) loadStorySnapshot(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := r.store.Load(ctx, storyKey(id), &story); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, id)
		}
		return nil, fmt.Errorf("failed to load story snapshot %s: %w", id, err)
	}
	return &story, nil
}
