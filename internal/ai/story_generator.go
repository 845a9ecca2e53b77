package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyboard-server/internal/models"
)

// StoryRequest описывает запрос на генерацию истории
type StoryRequest struct {
	Prompt           string
	StylePrompt      string
	SceneCount       int
	ExistingElements []models.WorldElement
}

// ElementDraft — элемент мира, предложенный моделью.
type ElementDraft struct {
	Name        string             `json:"name"`
	Type        models.ElementType `json:"type"`
	Description string             `json:"description"`
}

// SceneDraft — одна сцена, предложенная моделью.
type SceneDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Dialogue    string   `json:"dialogue"`
	Action      string   `json:"action"`
	Elements    []string `json:"elements"`
}

// StoryDraft — полный сгенерированный черновик истории.
type StoryDraft struct {
	Narrative string         `json:"narrative"`
	Scenes    []SceneDraft   `json:"scenes"`
	Elements  []ElementDraft `json:"elements"`
}

// StoryGenerator покрывает все текстовые AI-операции пайплайна:
// генерацию истории, переписывание нарратива и расширение текста.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, req StoryRequest) (*StoryDraft, error)
	RewriteNarrative(ctx context.Context, narrative, instruction string) (string, error)
	ExpandText(ctx context.Context, text string) (string, error)
}

// NewStoryGenerator строит генератор историй поверх TextGenerator.
func NewStoryGenerator(textGen TextGenerator, logger *zap.Logger) StoryGenerator {
	return &llmStoryGenerator{
		textGen: textGen,
		logger:  logger.Named("StoryGenerator"),
	}
}

type llmStoryGenerator struct {
	textGen TextGenerator
	logger  *zap.Logger
}

const storySystemPrompt = `You are a scriptwriter for short AI-generated videos.
Given a story idea, write a narrative and break it into exactly the requested
number of scenes, each about 5 seconds of screen time. Also extract the world
elements (characters, locations, objects, concepts) the story uses.
Respond with a single JSON object:
{
  "narrative": "...",
  "scenes": [{"title": "...", "description": "...", "dialogue": "...", "action": "...", "elements": ["name", ...]}],
  "elements": [{"name": "...", "type": "character|location|object|concept", "description": "..."}]
}
Do not include any text outside the JSON object.`

func (g *llmStoryGenerator) GenerateStory(ctx context.Context, req StoryRequest) (*StoryDraft, error) {
	log := g.logger.With(zap.Int("scene_count", req.SceneCount))
	log.Info("Generating story draft")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Story idea: %s\n", req.Prompt)
	fmt.Fprintf(&sb, "Number of scenes: %d\n", req.SceneCount)
	if req.StylePrompt != "" {
		fmt.Fprintf(&sb, "Visual style: %s\n", req.StylePrompt)
	}
	if len(req.ExistingElements) > 0 {
		sb.WriteString("Reuse these existing world elements where they fit:\n")
		for _, el := range req.ExistingElements {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", el.Name, el.Type, el.Description)
		}
	}

	temp := 0.8
	content, _, err := g.textGen.GenerateText(ctx, storySystemPrompt, sb.String(), GenerationParams{Temperature: &temp})
	if err != nil {
		return nil, fmt.Errorf("story generation request failed: %w", err)
	}

	var draft StoryDraft
	if err := json.Unmarshal([]byte(CleanJSONResponse(content)), &draft); err != nil {
		log.Error("Failed to parse story draft JSON", zap.Error(err), zap.Int("content_len", len(content)))
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if draft.Narrative == "" || len(draft.Scenes) == 0 {
		log.Warn("Story draft is missing narrative or scenes")
		return nil, fmt.Errorf("%w: draft has no narrative or scenes", ErrMalformedOutput)
	}

	log.Info("Story draft generated",
		zap.Int("scenes", len(draft.Scenes)),
		zap.Int("elements", len(draft.Elements)))
	return &draft, nil
}

const rewriteSystemPrompt = `You are an editor for short video scripts. Rewrite the
narrative the user provides according to their instruction. Keep the overall
story arc unless the instruction says otherwise. Respond with the rewritten
narrative only, no commentary.`

func (g *llmStoryGenerator) RewriteNarrative(ctx context.Context, narrative, instruction string) (string, error) {
	g.logger.Info("Rewriting narrative", zap.Int("narrative_len", len(narrative)))

	input := fmt.Sprintf("Narrative:\n%s\n\nInstruction: %s", narrative, instruction)
	temp := 0.7
	content, _, err := g.textGen.GenerateText(ctx, rewriteSystemPrompt, input, GenerationParams{Temperature: &temp})
	if err != nil {
		return "", fmt.Errorf("narrative rewrite request failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

const expandSystemPrompt = `You enrich short scene or story descriptions for an AI
video generator. Expand the text the user provides with vivid visual detail:
lighting, composition, mood, camera movement. Keep every fact from the original
text. Respond with the expanded text only, no commentary.`

func (g *llmStoryGenerator) ExpandText(ctx context.Context, text string) (string, error) {
	g.logger.Info("Expanding text", zap.Int("text_len", len(text)))

	temp := 0.7
	content, _, err := g.textGen.GenerateText(ctx, expandSystemPrompt, text, GenerationParams{Temperature: &temp})
	if err != nil {
		return "", fmt.Errorf("text expansion request failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// CleanJSONResponse снимает markdown-ограждения (```json ... ```), которые
// модели любят добавлять вокруг JSON.
func CleanJSONResponse(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		return strings.TrimSpace(trimmed)
	}
	// Иногда модель добавляет текст до/после объекта — вырезаем по скобкам.
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
