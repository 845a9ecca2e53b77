package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyboard-server/internal/config"
)

// Ошибки рендер-клиента
var (
	ErrRenderFailed      = errors.New("video render request failed")
	ErrRenderJobNotFound = errors.New("render job not found")
)

// RenderClip — один клип итогового видео: изображение сцены и длительность.
type RenderClip struct {
	ImageURL        string  `json:"image_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	Caption         string  `json:"caption,omitempty"`
}

// RenderRequest — запрос на сборку видео из клипов.
type RenderRequest struct {
	ProjectID string       `json:"project_id"`
	Clips     []RenderClip `json:"clips"`
}

// RenderJob — состояние задачи рендеринга на рендер-сервере.
type RenderJob struct {
	ID           string `json:"id"`
	Status       string `json:"status"` // queued | processing | completed | failed
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// VideoRenderer абстрагирует внешний рендер-сервер.
type VideoRenderer interface {
	StartRender(ctx context.Context, req RenderRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (*RenderJob, error)
}

// NewVideoRenderer создает клиент рендер-сервера по конфигурации.
func NewVideoRenderer(cfg *config.Config, logger *zap.Logger) VideoRenderer {
	if cfg.AIClientType == "stub" || cfg.RenderServerURL == "" {
		return NewStubVideoRenderer()
	}
	return &httpVideoRenderer{
		baseURL:    strings.TrimSuffix(cfg.RenderServerURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RenderTimeout},
		logger:     logger.Named("VideoRenderer"),
	}
}

// httpVideoRenderer вызывает рендер-сервер по HTTP:
// POST /render для запуска и GET /jobs/{id} для статуса.
type httpVideoRenderer struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func (r *httpVideoRenderer) StartRender(ctx context.Context, req RenderRequest) (string, error) {
	log := r.logger.With(zap.String("project_id", req.ProjectID))
	log.Info("Starting render job", zap.Int("clips", len(req.Clips)))

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		renderRequestsTotal.WithLabelValues("error").Inc()
		log.Error("Render server unreachable", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		renderRequestsTotal.WithLabelValues("error").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error("Render server rejected request",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", respBody))
		return "", fmt.Errorf("%w: status %d", ErrRenderFailed, resp.StatusCode)
	}

	var job RenderJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		renderRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrRenderFailed, err)
	}
	renderRequestsTotal.WithLabelValues("success").Inc()

	log.Info("Render job started", zap.String("job_id", job.ID), zap.Duration("duration", time.Since(start)))
	return job.ID, nil
}

func (r *httpVideoRenderer) JobStatus(ctx context.Context, jobID string) (*RenderJob, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create job status request: %w", err)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Error("Render server unreachable", zap.String("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRenderJobNotFound, jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRenderFailed, resp.StatusCode)
	}

	var job RenderJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrRenderFailed, err)
	}
	return &job, nil
}
