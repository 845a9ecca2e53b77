package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storyboard-server/internal/models"
)

// StubTextGenerator возвращает детерминированный текст. Используется для
// локальной разработки и тестов без доступа к AI провайдеру.
type StubTextGenerator struct{}

func NewStubTextGenerator() *StubTextGenerator {
	return &StubTextGenerator{}
}

func (g *StubTextGenerator) GenerateText(_ context.Context, _, userInput string, _ GenerationParams) (string, UsageInfo, error) {
	content := "[stub] " + userInput
	return content, UsageInfo{
		PromptTokens:     len(userInput) / 4,
		CompletionTokens: len(content) / 4,
		TotalTokens:      (len(userInput) + len(content)) / 4,
		IsEstimate:       true,
	}, nil
}

// StubStoryGenerator детерминированно собирает черновик истории из запроса.
type StubStoryGenerator struct{}

func NewStubStoryGenerator() *StubStoryGenerator {
	return &StubStoryGenerator{}
}

func (g *StubStoryGenerator) GenerateStory(_ context.Context, req StoryRequest) (*StoryDraft, error) {
	draft := &StoryDraft{
		Narrative: fmt.Sprintf("A short story about: %s", req.Prompt),
		Elements: []ElementDraft{
			{Name: "Narrator", Type: models.ElementCharacter, Description: "The unseen voice telling the story."},
		},
	}
	for i := 1; i <= req.SceneCount; i++ {
		draft.Scenes = append(draft.Scenes, SceneDraft{
			Title:       fmt.Sprintf("Scene %d", i),
			Description: fmt.Sprintf("Scene %d of the story about %s.", i, req.Prompt),
			Elements:    []string{"Narrator"},
		})
	}
	return draft, nil
}

func (g *StubStoryGenerator) RewriteNarrative(_ context.Context, narrative, instruction string) (string, error) {
	return fmt.Sprintf("%s (rewritten: %s)", narrative, instruction), nil
}

func (g *StubStoryGenerator) ExpandText(_ context.Context, text string) (string, error) {
	return text + " Rich visual detail, cinematic lighting, slow camera pan.", nil
}

// StubImageGenerator возвращает placeholder URL.
type StubImageGenerator struct{}

func NewStubImageGenerator() *StubImageGenerator {
	return &StubImageGenerator{}
}

func (g *StubImageGenerator) GenerateImage(_ context.Context, prompt string) (*GeneratedImage, error) {
	return &GeneratedImage{
		URL:           "https://placehold.co/1792x1024?text=" + uuid.New().String(),
		RevisedPrompt: prompt,
	}, nil
}

// StubVideoRenderer имитирует рендер-сервер: задача завершается сразу.
type StubVideoRenderer struct {
	mu   sync.Mutex
	jobs map[string]*RenderJob
}

func NewStubVideoRenderer() *StubVideoRenderer {
	return &StubVideoRenderer{jobs: make(map[string]*RenderJob)}
}

func (r *StubVideoRenderer) StartRender(_ context.Context, req RenderRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New().String()
	r.jobs[id] = &RenderJob{
		ID:           id,
		Status:       "completed",
		VideoURL:     "https://example.com/videos/" + id + ".mp4",
		ThumbnailURL: "https://example.com/videos/" + id + ".jpg",
	}
	return id, nil
}

func (r *StubVideoRenderer) JobStatus(_ context.Context, jobID string) (*RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRenderJobNotFound, jobID)
	}
	copied := *job
	return &copied, nil
}
