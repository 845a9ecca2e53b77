package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/internal/models"
)

type createSceneRequest struct {
	Title string `json:"title"`
}

type unarchiveSceneRequest struct {
	InsertAt *int `json:"insertAt"`
}

type moveSceneRequest struct {
	ToIndex *int `json:"toIndex" binding:"required"`
}

type addImageRequest struct {
	ImageURL      string `json:"imageUrl" binding:"required"`
	RevisedPrompt string `json:"revisedPrompt"`
}

func (h *Handler) createScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req createSceneRequest
	_ = c.ShouldBindJSON(&req) // пустое тело дает заголовок по умолчанию

	scene, err := h.scenes.CreateScene(c.Request.Context(), projectID, req.Title)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	scenesCreatedTotal.Inc()
	c.JSON(http.StatusCreated, scene)
}

func (h *Handler) listScenes(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	includeArchived := c.Query("includeArchived") == "true"
	scenes, err := h.scenes.ListScenes(c.Request.Context(), projectID, includeArchived)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scenes)
}

func (h *Handler) getScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	scene, err := h.scenes.GetScene(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if scene == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "scene not found"})
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *Handler) updateScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	var scene models.Scene
	if err := c.ShouldBindJSON(&scene); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid scene payload: " + err.Error()})
		return
	}
	scene.ID = sceneID
	if err := h.scenes.UpdateScene(c.Request.Context(), projectID, &scene); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *Handler) deleteScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	if err := h.scenes.DeleteScene(c.Request.Context(), projectID, sceneID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) cloneScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	clone, err := h.scenes.CloneScene(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, clone)
}

func (h *Handler) archiveScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	scene, err := h.scenes.ArchiveScene(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *Handler) unarchiveScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	var req unarchiveSceneRequest
	_ = c.ShouldBindJSON(&req)

	scene, err := h.scenes.UnarchiveScene(c.Request.Context(), projectID, sceneID, req.InsertAt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *Handler) moveScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	var req moveSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ToIndex == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "toIndex is required"})
		return
	}
	if err := h.scenes.MoveScene(c.Request.Context(), projectID, sceneID, *req.ToIndex); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSceneNumber(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	number, err := h.scenes.SceneNumber(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": number})
}

func (h *Handler) expandScene(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	scene, err := h.scenes.SmartExpand(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *Handler) addSceneImage(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	var req addImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "imageUrl is required"})
		return
	}
	scene, err := h.scenes.AddImage(c.Request.Context(), projectID, sceneID, req.ImageURL, req.RevisedPrompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scene)
}

func (h *Handler) generateSceneImage(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	scene, err := h.scenes.GenerateImage(c.Request.Context(), projectID, sceneID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scene)
}

func (h *Handler) activateSceneImage(c *gin.Context) {
	projectID, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	imageID, ok := uuidParam(c, "imageId")
	if !ok {
		return
	}
	scene, err := h.scenes.SetActiveImage(c.Request.Context(), projectID, sceneID, imageID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}
