package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollamaapi "github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
)

// ollamaGenerator вызывает локальный Ollama сервер через его нативный API.
type ollamaGenerator struct {
	client *ollamaapi.Client
	model  string
	logger *zap.Logger
}

func newOllamaGenerator(cfg *config.Config, logger *zap.Logger) (*ollamaGenerator, error) {
	// Ollama использует нативный API без суффикса /v1
	baseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	httpClient := &http.Client{Timeout: cfg.AITimeout}
	return &ollamaGenerator{
		client: ollamaapi.NewClient(parsedURL, httpClient),
		model:  cfg.AIModel,
		logger: logger.Named("OllamaGenerator"),
	}, nil
}

func (g *ollamaGenerator) GenerateText(ctx context.Context, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	log := g.logger.With(zap.String("model", g.model))
	log.Info("Sending ollama chat request",
		zap.Int("system_prompt_len", len(systemPrompt)),
		zap.Int("user_input_len", len(userInput)))

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = intVal(params.MaxTokens)
	}

	req := &ollamaapi.ChatRequest{
		Model: g.model,
		Messages: []ollamaapi.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Stream:  func(b bool) *bool { return &b }(false),
		Options: options,
	}

	var resp ollamaapi.ChatResponse
	start := time.Now()
	err := g.client.Chat(ctx, req, func(r ollamaapi.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	aiRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	if err != nil {
		aiRequestsTotal.WithLabelValues(g.model, "error").Inc()
		log.Error("Ollama chat request failed", zap.Error(err), zap.Duration("duration", duration))
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	aiRequestsTotal.WithLabelValues(g.model, "success").Inc()

	if resp.Message.Content == "" {
		log.Warn("Ollama chat returned no content")
		return "", UsageInfo{}, ErrEmptyResponse
	}

	usage := UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	aiPromptTokens.WithLabelValues(g.model).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.WithLabelValues(g.model).Observe(float64(usage.CompletionTokens))

	log.Info("Ollama chat succeeded",
		zap.Duration("duration", duration),
		zap.Int("total_tokens", usage.TotalTokens))

	return resp.Message.Content, usage, nil
}
