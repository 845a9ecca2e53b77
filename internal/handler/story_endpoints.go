package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
)

type generateStoryRequest struct {
	Prompt         string            `json:"prompt" binding:"required"`
	TargetDuration int               `json:"targetDuration" binding:"required"`
	Style          models.StoryStyle `json:"style"`
}

type editStoryRequest struct {
	Instruction string `json:"instruction" binding:"required"`
}

type branchHistoryRequest struct {
	Index *int `json:"index" binding:"required"`
}

type storyHistoryResponse struct {
	History []models.Story `json:"history"`
	Index   int            `json:"index"`
}

func (h *Handler) generateStory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req generateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "prompt and targetDuration are required"})
		return
	}
	if req.Style.Preset == "" {
		req.Style.Preset = models.StylePhotorealistic
	}

	result, err := h.stories.GenerateStory(c.Request.Context(), projectID, service.GenerateStoryRequest{
		Prompt:         req.Prompt,
		TargetDuration: req.TargetDuration,
		Style:          req.Style,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	storiesGeneratedTotal.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"story":                 result.Story,
		"existingElementsUsed":  result.ExistingElementsUsed,
		"newElementsIntroduced": result.NewElementsIntroduced,
	})
}

func (h *Handler) editStory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	storyID, ok := uuidParam(c, "storyId")
	if !ok {
		return
	}
	var req editStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "instruction is required"})
		return
	}

	story, err := h.stories.EditStoryWithPrompt(c.Request.Context(), projectID, storyID, req.Instruction)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *Handler) expandStory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	storyID, ok := uuidParam(c, "storyId")
	if !ok {
		return
	}
	story, err := h.stories.SmartExpand(c.Request.Context(), projectID, storyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *Handler) getCurrentStory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	story, err := h.history.GetCurrentVersion(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if story == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "project has no story yet"})
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) getStoryHistory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	history, err := h.history.GetHistory(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	index, err := h.history.GetHistoryIndex(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, storyHistoryResponse{History: history, Index: index})
}

func (h *Handler) branchStoryHistory(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req branchHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "index is required"})
		return
	}
	story, err := h.history.BranchFromVersion(c.Request.Context(), projectID, *req.Index)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}
