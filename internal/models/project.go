package models

import (
	"time"

	"github.com/google/uuid"
)

// ElementType classifies a world element extracted from or added to a story.
type ElementType string

const (
	ElementCharacter ElementType = "character"
	ElementLocation  ElementType = "location"
	ElementObject    ElementType = "object"
	ElementConcept   ElementType = "concept"
)

// WorldElement is a character, location, object or concept referenced by id
// from story scenes and storyboard scenes.
type WorldElement struct {
	ID          uuid.UUID   `json:"id"`
	Type        ElementType `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Project is the top-level container for one video production effort.
// It owns the story history, the world elements, the storyboard scenes
// and at most one video record. The whole record is persisted under a
// single storage key and replaced wholesale on every mutation.
type Project struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastOpenedAt time.Time `json:"lastOpenedAt"`

	// StoryHistoryIndex is -1 while no story has been generated yet,
	// otherwise a valid index into StoryHistory.
	StoryHistory      []Story                    `json:"storyHistory"`
	StoryHistoryIndex int                        `json:"storyHistoryIndex"`
	CurrentStory      *Story                     `json:"currentStory,omitempty"`
	WorldElements     map[uuid.UUID]WorldElement `json:"worldElements"`
	Scenes            []Scene                    `json:"scenes"`
	Video             *Video                     `json:"video,omitempty"`
}

// ProjectSummary is the reduced view returned by list endpoints. The nested
// story/scene/element data is deliberately never included there.
type ProjectSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastOpenedAt time.Time `json:"lastOpenedAt"`
}

// Summary returns the reduced list view of the project.
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Thumbnail:    p.Thumbnail,
		UpdatedAt:    p.UpdatedAt,
		LastOpenedAt: p.LastOpenedAt,
	}
}
