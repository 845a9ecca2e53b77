package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
)

// Ошибки генерации
var (
	ErrGenerationFailed = errors.New("ai text generation failed")
	ErrEmptyResponse    = errors.New("ai returned an empty response")
	ErrMalformedOutput  = errors.New("ai returned malformed output")
)

// GenerationParams задает параметры для одного запроса генерации.
// nil означает использовать значение по умолчанию провайдера.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo содержит информацию об использовании токенов
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	IsEstimate       bool
}

// TextGenerator абстрагирует чат-модель (OpenAI-совместимую или Ollama).
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// NewTextGenerator создает генератор текста в зависимости от конфигурации.
func NewTextGenerator(cfg *config.Config, logger *zap.Logger) (TextGenerator, error) {
	clientType := strings.ToLower(strings.TrimSpace(cfg.AIClientType))
	switch clientType {
	case "openai", "":
		if cfg.AIAPIKey == "" {
			return nil, fmt.Errorf("AI_API_KEY is required for the openai client")
		}
		openaiCfg := openaigo.DefaultConfig(cfg.AIAPIKey)
		if cfg.AIBaseURL != "" {
			openaiCfg.BaseURL = cfg.AIBaseURL
		}
		openaiCfg.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
		return newOpenAIGenerator(openaigo.NewClientWithConfig(openaiCfg), cfg.AIModel, logger), nil
	case "ollama":
		return newOllamaGenerator(cfg, logger)
	case "stub":
		return NewStubTextGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown AI_CLIENT_TYPE: %q", cfg.AIClientType)
	}
}

func float32Val(v *float64) float32 {
	if v == nil {
		return 0
	}
	return float32(*v)
}

func intVal(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
