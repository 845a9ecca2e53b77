package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
)

// ErrImageGenerationFailed возвращается, когда провайдер изображений недоступен
// или отклонил запрос.
var ErrImageGenerationFailed = errors.New("image generation failed")

// GeneratedImage — результат генерации одного изображения сцены.
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
}

// ImageGenerator абстрагирует провайдера изображений.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
}

// NewImageGenerator создает генератор изображений по конфигурации.
func NewImageGenerator(cfg *config.Config, logger *zap.Logger) (ImageGenerator, error) {
	if cfg.AIClientType == "stub" {
		return NewStubImageGenerator(), nil
	}
	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is required for image generation")
	}
	openaiCfg := openaigo.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		openaiCfg.BaseURL = cfg.AIBaseURL
	}
	openaiCfg.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
	return &openAIImageGenerator{
		client: openaigo.NewClientWithConfig(openaiCfg),
		model:  cfg.ImageModel,
		size:   cfg.ImageSize,
		logger: logger.Named("ImageGenerator"),
	}, nil
}

type openAIImageGenerator struct {
	client *openaigo.Client
	model  string
	size   string
	logger *zap.Logger
}

func (g *openAIImageGenerator) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	log := g.logger.With(zap.String("model", g.model))
	log.Info("Generating image", zap.Int("prompt_len", len(prompt)))

	start := time.Now()
	resp, err := g.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:          g.model,
		Prompt:         prompt,
		N:              1,
		Size:           g.size,
		ResponseFormat: openaigo.CreateImageResponseFormatURL,
	})
	duration := time.Since(start)

	if err != nil {
		imageRequestsTotal.WithLabelValues(g.model, "error").Inc()
		log.Error("Image request failed", zap.Error(err), zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		imageRequestsTotal.WithLabelValues(g.model, "error").Inc()
		log.Warn("Image request returned no data")
		return nil, fmt.Errorf("%w: empty response", ErrImageGenerationFailed)
	}
	imageRequestsTotal.WithLabelValues(g.model, "success").Inc()

	log.Info("Image generated", zap.Duration("duration", duration))
	return &GeneratedImage{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}
