package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/internal/models"
)

type setVideoStatusRequest struct {
	Status models.VideoStatus `json:"status" binding:"required"`
	Error  string             `json:"error"`
}

type addVideoVersionRequest struct {
	VideoURL     string `json:"videoUrl" binding:"required"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Duration     int    `json:"duration"`
}

func (h *Handler) initVideo(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	video, err := h.videos.InitVideo(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

func (h *Handler) getVideo(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	video, err := h.videos.GetVideo(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if video == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "video not initialized"})
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *Handler) setVideoStatus(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req setVideoStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "status is required"})
		return
	}
	video, err := h.videos.SetStatus(c.Request.Context(), projectID, req.Status, req.Error)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *Handler) addVideoVersion(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req addVideoVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "videoUrl is required"})
		return
	}
	video, err := h.videos.AddVersion(c.Request.Context(), projectID, models.VideoVersion{
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	videoVersionsAddedTotal.Inc()
	c.JSON(http.StatusCreated, video)
}

func (h *Handler) activateVideoVersion(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	video, err := h.videos.SetActiveVersion(c.Request.Context(), projectID, versionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *Handler) deleteVideoVersion(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	video, err := h.videos.DeleteVersion(c.Request.Context(), projectID, versionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *Handler) startRender(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	jobID, video, err := h.videos.StartRender(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID, "video": video})
}

func (h *Handler) checkRender(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	jobID := c.Param("jobId")
	video, err := h.videos.CheckRender(c.Request.Context(), projectID, jobID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}
