package models

import (
	"time"

	"github.com/google/uuid"
)

// SceneStatus describes the image-generation lifecycle of a storyboard scene.
type SceneStatus string

const (
	SceneStatusEmpty      SceneStatus = "empty"
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusFailed     SceneStatus = "failed"
)

// SceneImage is one generated rendition of a scene. At most one image per
// scene is active once any image exists.
type SceneImage struct {
	ID            uuid.UUID `json:"id"`
	ImageURL      string    `json:"imageUrl"`
	RevisedPrompt string    `json:"revisedPrompt,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Scene is a single 5-second storyboard beat with its own image history.
// Archiving hides a scene from default listings and from user-visible
// numbering without deleting it.
type Scene struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`

	Description         string `json:"description,omitempty"`
	CustomDescription   string `json:"customDescription,omitempty"`
	EnhancedDescription string `json:"enhancedDescription,omitempty"`

	// Same pre-expansion baseline rule as Story.PreExpansionNarrative,
	// except the baseline source is CustomDescription when present.
	IsSmartExpanded         bool   `json:"isSmartExpanded,omitempty"`
	PreExpansionDescription string `json:"preExpansionDescription,omitempty"`

	IsArchived       bool        `json:"isArchived,omitempty"`
	AssignedElements []uuid.UUID `json:"assignedElements"`
	Images           []SceneImage `json:"images"`
	Duration         int         `json:"duration"` // always SceneDurationSeconds
	Status           SceneStatus `json:"status"`
	Error            string      `json:"error,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ActiveImage returns the currently active image, or nil when the scene has
// no images yet.
func (s *Scene) ActiveImage() *SceneImage {
	for i := range s.Images {
		if s.Images[i].IsActive {
			return &s.Images[i]
		}
	}
	return nil
}

// EffectiveDescription is the text the image generator should work from:
// the user override when present, otherwise the generated description.
func (s *Scene) EffectiveDescription() string {
	if s.CustomDescription != "" {
		return s.CustomDescription
	}
	return s.Description
}
