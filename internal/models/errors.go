package models

import "errors"

// Application-wide standard errors
var (
	// Common lookup errors
	ErrNotFound        = errors.New("resource not found") // project, story, scene or video version
	ErrProjectNotFound = errors.New("project not found")
	ErrStoryNotFound   = errors.New("story not found")
	ErrSceneNotFound   = errors.New("scene not found")
	ErrVersionNotFound = errors.New("video version not found")

	// Project errors
	ErrProjectNameConflict = errors.New("project with this name already exists")

	// Story errors
	ErrInvalidDuration = errors.New("target duration must be a positive multiple of 5 seconds")
	ErrIndexOutOfRange = errors.New("story history index is out of range")

	// Video errors
	ErrNoVideoInitialized        = errors.New("video has not been initialized for this project")
	ErrCannotDeleteActiveVersion = errors.New("cannot delete the active video version")
	ErrCannotDeleteLastVersion   = errors.New("cannot delete the last remaining video version")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)
