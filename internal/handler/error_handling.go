package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/models"
)

// handleServiceError переводит ошибки сервисного слоя в HTTP-статусы.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrProjectNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSceneNotFound),
		errors.Is(err, models.ErrVersionNotFound),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, ai.ErrRenderJobNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrProjectNameConflict),
		errors.Is(err, models.ErrNoVideoInitialized),
		errors.Is(err, models.ErrCannotDeleteActiveVersion),
		errors.Is(err, models.ErrCannotDeleteLastVersion):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrIndexOutOfRange),
		errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, ai.ErrGenerationFailed),
		errors.Is(err, ai.ErrEmptyResponse),
		errors.Is(err, ai.ErrMalformedOutput),
		errors.Is(err, ai.ErrImageGenerationFailed),
		errors.Is(err, ai.ErrRenderFailed):
		statusCode = http.StatusBadGateway
		errResp = models.ErrorResponse{Error: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
