package models

import (
	"time"

	"github.com/google/uuid"
)

// StylePreset identifies one of the built-in visual styles, or "custom".
type StylePreset string

const (
	StyleAnime          StylePreset = "anime"
	StylePhotorealistic StylePreset = "photorealistic"
	Style3DAnimated     StylePreset = "3d-animated"
	StyleWatercolor     StylePreset = "watercolor"
	StyleComic          StylePreset = "comic"
	StyleCustom         StylePreset = "custom"
)

// StoryStyle is a preset tag plus an optional free-text override used
// only with the custom preset.
type StoryStyle struct {
	Preset       StylePreset `json:"preset"`
	CustomPrompt string      `json:"customPrompt,omitempty"`
}

// SceneDurationSeconds is the fixed length of every scene. Target durations
// must be positive multiples of this value.
const SceneDurationSeconds = 5

// StoryScene is a narrative beat inside a Story snapshot. It is not the same
// thing as a storyboard Scene: story scenes are regenerated with every
// snapshot, storyboard scenes have their own lifecycle.
type StoryScene struct {
	Number          int         `json:"number"` // 1-indexed, contiguous
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Dialogue        string      `json:"dialogue,omitempty"`
	Action          string      `json:"action,omitempty"`
	ElementsPresent []uuid.UUID `json:"elementsPresent"`
	Duration        int         `json:"duration"` // always SceneDurationSeconds
}

// Story is an immutable snapshot of the generated narrative. Every
// generate/edit/expand operation produces a new Story with a new id; the
// previous snapshot stays reachable through the project's history.
type Story struct {
	ID             uuid.UUID    `json:"id"`
	Prompt         string       `json:"prompt"`
	Style          StoryStyle   `json:"style"`
	TargetDuration int          `json:"targetDuration"` // seconds, positive multiple of 5
	Narrative      string       `json:"narrative"`
	Scenes         []StoryScene `json:"scenes"`

	Characters []WorldElement `json:"characters"`
	Locations  []WorldElement `json:"locations"`
	Objects    []WorldElement `json:"objects"`
	Concepts   []WorldElement `json:"concepts"`

	// PreExpansionNarrative is captured on the first smart expansion of a
	// lineage and propagated unchanged to all further expansions, so
	// repeated expansions never compound on already-expanded text.
	IsSmartExpanded       bool      `json:"isSmartExpanded,omitempty"`
	PreExpansionNarrative string    `json:"preExpansionNarrative,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

// SceneCount returns the number of story scenes the target duration implies.
func (s *Story) SceneCount() int {
	return s.TargetDuration / SceneDurationSeconds
}
