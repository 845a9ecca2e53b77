package ai

import (
	"context"
	"fmt"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pkoukk/tiktoken-go"
)

// openAIGenerator вызывает OpenAI-совместимый Chat Completions API.
type openAIGenerator struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func newOpenAIGenerator(client *openaigo.Client, model string, logger *zap.Logger) *openAIGenerator {
	return &openAIGenerator{
		client: client,
		model:  model,
		logger: logger.Named("OpenAIGenerator"),
	}
}

func (g *openAIGenerator) GenerateText(ctx context.Context, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	log := g.logger.With(zap.String("model", g.model))
	log.Info("Sending chat completion request",
		zap.Int("system_prompt_len", len(systemPrompt)),
		zap.Int("user_input_len", len(userInput)))

	req := openaigo.ChatCompletionRequest{
		Model: g.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userInput},
		},
	}
	if params.Temperature != nil {
		req.Temperature = float32Val(params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = float32Val(params.TopP)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = intVal(params.MaxTokens)
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	aiRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	if err != nil {
		aiRequestsTotal.WithLabelValues(g.model, "error").Inc()
		log.Error("Chat completion request failed", zap.Error(err), zap.Duration("duration", duration))
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	aiRequestsTotal.WithLabelValues(g.model, "success").Inc()

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("Chat completion returned no content")
		return "", UsageInfo{}, ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content

	usage := UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	// Некоторые OpenAI-совместимые серверы не возвращают usage — оцениваем сами.
	if usage.TotalTokens == 0 {
		usage = g.estimateUsage(systemPrompt+userInput, content)
	}
	aiPromptTokens.WithLabelValues(g.model).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.WithLabelValues(g.model).Observe(float64(usage.CompletionTokens))

	log.Info("Chat completion succeeded",
		zap.Duration("duration", duration),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Bool("tokens_estimated", usage.IsEstimate))

	return content, usage, nil
}

func (g *openAIGenerator) estimateUsage(prompt, completion string) UsageInfo {
	usage := UsageInfo{IsEstimate: true}
	tke, err := tiktoken.EncodingForModel(g.model)
	if err != nil {
		// Неизвестная модель: падаем на базовую кодировку cl100k_base
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			g.logger.Warn("Failed to load tiktoken encoding, usage unavailable", zap.Error(err))
			return usage
		}
	}
	usage.PromptTokens = len(tke.Encode(prompt, nil, nil))
	usage.CompletionTokens = len(tke.Encode(completion, nil, nil))
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}
