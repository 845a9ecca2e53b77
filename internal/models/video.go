package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus describes the render lifecycle of a project's video.
type VideoStatus string

const (
	VideoStatusNotStarted VideoStatus = "not_started"
	VideoStatusGenerating VideoStatus = "generating"
	VideoStatusPolling    VideoStatus = "polling"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// VideoVersion is one rendered output. Whenever versions exist, exactly one
// of them is active; the active version can never be deleted.
type VideoVersion struct {
	ID           uuid.UUID `json:"id"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Duration     int       `json:"duration"` // seconds
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Video holds the render registry for one project. Versions are appended by
// successful renders and never mutated in place.
type Video struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"projectId"`
	Status    VideoStatus    `json:"status"`
	Error     string         `json:"error,omitempty"`
	Versions  []VideoVersion `json:"versions"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ActiveVersion returns the currently active version, or nil when the video
// has no versions yet.
func (v *Video) ActiveVersion() *VideoVersion {
	for i := range v.Versions {
		if v.Versions[i].IsActive {
			return &v.Versions[i]
		}
	}
	return nil
}
