package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// VideoService управляет единственной записью Video проекта и реестром ее
// отрендеренных версий. Инварианты: среди непустого списка версий ровно
// одна активна; активную версию нельзя удалить.
type VideoService interface {
	// InitVideo создает свежую запись Video со статусом not_started,
	// заменяя любую прежнюю запись проекта.
	InitVideo(ctx context.Context, projectID uuid.UUID) (*models.Video, error)
	// GetVideo возвращает (nil, nil), пока видео не инициализировано.
	GetVideo(ctx context.Context, projectID uuid.UUID) (*models.Video, error)
	// SetStatus выставляет статус; пустой errMsg очищает прежнюю ошибку.
	SetStatus(ctx context.Context, projectID uuid.UUID, status models.VideoStatus, errMsg string) (*models.Video, error)
	// AddVersion деактивирует все версии, добавляет новую активной и
	// переводит статус в completed. Флаг IsActive входной версии игнорируется.
	AddVersion(ctx context.Context, projectID uuid.UUID, version models.VideoVersion) (*models.Video, error)
	SetActiveVersion(ctx context.Context, projectID, versionID uuid.UUID) (*models.Video, error)
	DeleteVersion(ctx context.Context, projectID, versionID uuid.UUID) (*models.Video, error)
	GetActiveVersion(ctx context.Context, projectID uuid.UUID) (*models.VideoVersion, error)
	GetVersionCount(ctx context.Context, projectID uuid.UUID) (int, error)
	// StartRender собирает клипы из неархивированных сцен с активными
	// изображениями и запускает задачу на рендер-сервере.
	StartRender(ctx context.Context, projectID uuid.UUID) (string, *models.Video, error)
	// CheckRender опрашивает задачу; завершенная задача добавляет новую
	// версию, проваленная переводит видео в failed.
	CheckRender(ctx context.Context, projectID uuid.UUID, jobID string) (*models.Video, error)
}

type videoServiceImpl struct {
	repo     *projectRepository
	renderer ai.VideoRenderer
	logger   *zap.Logger
}

// NewVideoService создает новый экземпляр VideoService.
func NewVideoService(store storage.KeyValueStore, renderer ai.VideoRenderer, logger *zap.Logger) VideoService {
	return &videoServiceImpl{
		repo:     newProjectRepository(store, logger),
		renderer: renderer,
		logger:   logger.Named("VideoService"),
	}
}

func (s *videoServiceImpl) InitVideo(ctx context.Context, projectID uuid.UUID) (*models.Video, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()))
	log.Info("Initializing video")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	video := &models.Video{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    models.VideoStatusNotStarted,
		Versions:  []models.VideoVersion{},
		CreatedAt: time.Now().UTC(),
	}
	project.Video = video
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	log.Info("Video initialized", zap.String("video_id", video.ID.String()))
	return video, nil
}

func (s *videoServiceImpl) GetVideo(ctx context.Context, projectID uuid.UUID) (*models.Video, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return project.Video, nil
}

func (s *videoServiceImpl) SetStatus(ctx context.Context, projectID uuid.UUID, status models.VideoStatus, errMsg string) (*models.Video, error) {
	return s.mutateVideo(ctx, projectID, func(video *models.Video) error {
		video.Status = status
		video.Error = errMsg
		return nil
	})
}

func (s *videoServiceImpl) AddVersion(ctx context.Context, projectID uuid.UUID, version models.VideoVersion) (*models.Video, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()))
	log.Info("Adding video version")

	return s.mutateVideo(ctx, projectID, func(video *models.Video) error {
		if version.ID == uuid.Nil {
			version.ID = uuid.New()
		}
		if version.CreatedAt.IsZero() {
			version.CreatedAt = time.Now().UTC()
		}
		for i := range video.Versions {
			video.Versions[i].IsActive = false
		}
		version.IsActive = true
		video.Versions = append(video.Versions, version)
		video.Status = models.VideoStatusCompleted
		video.Error = ""
		return nil
	})
}

func (s *videoServiceImpl) SetActiveVersion(ctx context.Context, projectID, versionID uuid.UUID) (*models.Video, error) {
	return s.mutateVideo(ctx, projectID, func(video *models.Video) error {
		found := false
		for i := range video.Versions {
			if video.Versions[i].ID == versionID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", models.ErrVersionNotFound, versionID)
		}
		// Деактивировать все, затем активировать цель — единым шагом.
		for i := range video.Versions {
			video.Versions[i].IsActive = video.Versions[i].ID == versionID
		}
		return nil
	})
}

func (s *videoServiceImpl) DeleteVersion(ctx context.Context, projectID, versionID uuid.UUID) (*models.Video, error) {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.String("version_id", versionID.String()))
	log.Info("Deleting video version")

	return s.mutateVideo(ctx, projectID, func(video *models.Video) error {
		idx := -1
		for i := range video.Versions {
			if video.Versions[i].ID == versionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", models.ErrVersionNotFound, versionID)
		}
		// Проверка активности идет раньше проверки последней версии:
		// единственная оставшаяся версия всегда активна, и попытка ее
		// удалить сообщает именно об активной версии.
		if video.Versions[idx].IsActive {
			log.Warn("Attempt to delete the active version")
			return fmt.Errorf("%w: %s", models.ErrCannotDeleteActiveVersion, versionID)
		}
		if len(video.Versions) == 1 {
			return fmt.Errorf("%w: %s", models.ErrCannotDeleteLastVersion, versionID)
		}
		video.Versions = append(video.Versions[:idx], video.Versions[idx+1:]...)
		return nil
	})
}

func (s *videoServiceImpl) GetActiveVersion(ctx context.Context, projectID uuid.UUID) (*models.VideoVersion, error) {
	video, err := s.GetVideo(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, models.ErrNoVideoInitialized
	}
	return video.ActiveVersion(), nil
}

func (s *videoServiceImpl) GetVersionCount(ctx context.Context, projectID uuid.UUID) (int, error) {
	video, err := s.GetVideo(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if video == nil {
		return 0, models.ErrNoVideoInitialized
	}
	return len(video.Versions), nil
}

func (s *videoServiceImpl) StartRender(ctx context.Context, projectID uuid.UUID) (string, *models.Video, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()))
	log.Info("Starting video render")

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return "", nil, err
	}
	if project.Video == nil {
		return "", nil, models.ErrNoVideoInitialized
	}

	var clips []ai.RenderClip
	for i := range project.Scenes {
		scene := &project.Scenes[i]
		if scene.IsArchived {
			continue
		}
		image := scene.ActiveImage()
		if image == nil {
			continue
		}
		clips = append(clips, ai.RenderClip{
			ImageURL:        image.ImageURL,
			DurationSeconds: float64(scene.Duration),
			Caption:         scene.Title,
		})
	}
	if len(clips) == 0 {
		return "", nil, fmt.Errorf("%w: no scenes with images to render", models.ErrBadRequest)
	}

	jobID, err := s.renderer.StartRender(ctx, ai.RenderRequest{
		ProjectID: projectID.String(),
		Clips:     clips,
	})
	if err != nil {
		if _, setErr := s.SetStatus(ctx, projectID, models.VideoStatusFailed, err.Error()); setErr != nil {
			return "", nil, setErr
		}
		return "", nil, err
	}

	video, err := s.SetStatus(ctx, projectID, models.VideoStatusGenerating, "")
	if err != nil {
		return "", nil, err
	}
	log.Info("Render job started", zap.String("job_id", jobID), zap.Int("clips", len(clips)))
	return jobID, video, nil
}

func (s *videoServiceImpl) CheckRender(ctx context.Context, projectID uuid.UUID, jobID string) (*models.Video, error) {
	log := s.logger.With(zap.String("project_id", projectID.String()), zap.String("job_id", jobID))

	job, err := s.renderer.JobStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case "completed":
		log.Info("Render job completed")
		project, err := s.repo.loadProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		duration := 0
		for i := range project.Scenes {
			if !project.Scenes[i].IsArchived && project.Scenes[i].ActiveImage() != nil {
				duration += project.Scenes[i].Duration
			}
		}
		return s.AddVersion(ctx, projectID, models.VideoVersion{
			VideoURL:     job.VideoURL,
			ThumbnailURL: job.ThumbnailURL,
			Duration:     duration,
		})
	case "failed":
		log.Warn("Render job failed", zap.String("render_error", job.Error))
		return s.SetStatus(ctx, projectID, models.VideoStatusFailed, job.Error)
	default:
		return s.SetStatus(ctx, projectID, models.VideoStatusPolling, "")
	}
}

// mutateVideo выполняет цикл "загрузить проект — изменить видео — сохранить".
func (s *videoServiceImpl) mutateVideo(ctx context.Context, projectID uuid.UUID, mutate func(*models.Video) error) (*models.Video, error) {
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Video == nil {
		return nil, models.ErrNoVideoInitialized
	}
	if err := mutate(project.Video); err != nil {
		return nil, err
	}
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	return project.Video, nil
}
