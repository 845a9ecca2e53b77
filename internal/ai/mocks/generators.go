// Package mocks содержит testify-моки AI-коллабораторов для юнит-тестов.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/ai"
)

// StoryGenerator — мок ai.StoryGenerator.
type StoryGenerator struct {
	mock.Mock
}

func (m *StoryGenerator) GenerateStory(ctx context.Context, req ai.StoryRequest) (*ai.StoryDraft, error) {
	args := m.Called(ctx, req)
	var draft *ai.StoryDraft
	if args.Get(0) != nil {
		draft = args.Get(0).(*ai.StoryDraft)
	}
	return draft, args.Error(1)
}

func (m *StoryGenerator) RewriteNarrative(ctx context.Context, narrative, instruction string) (string, error) {
	args := m.Called(ctx, narrative, instruction)
	return args.String(0), args.Error(1)
}

func (m *StoryGenerator) ExpandText(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// ImageGenerator — мок ai.ImageGenerator.
type ImageGenerator struct {
	mock.Mock
}

func (m *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*ai.GeneratedImage, error) {
	args := m.Called(ctx, prompt)
	var image *ai.GeneratedImage
	if args.Get(0) != nil {
		image = args.Get(0).(*ai.GeneratedImage)
	}
	return image, args.Error(1)
}

// VideoRenderer — мок ai.VideoRenderer.
type VideoRenderer struct {
	mock.Mock
}

func (m *VideoRenderer) StartRender(ctx context.Context, req ai.RenderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *VideoRenderer) JobStatus(ctx context.Context, jobID string) (*ai.RenderJob, error) {
	args := m.Called(ctx, jobID)
	var job *ai.RenderJob
	if args.Get(0) != nil {
		job = args.Get(0).(*ai.RenderJob)
	}
	return job, args.Error(1)
}
