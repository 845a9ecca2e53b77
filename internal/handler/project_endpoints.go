package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyboard-server/internal/models"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type renameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createProject(c *gin.Context) {
	var req createProjectRequest
	// Тело необязательно: пустое дает проект с именем по умолчанию.
	_ = c.ShouldBindJSON(&req)

	project, err := h.projects.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	projectsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) listProjects(c *gin.Context) {
	summaries, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	project, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) updateProject(c *gin.Context) {
	id, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project payload: " + err.Error()})
		return
	}
	project.ID = id
	if err := h.projects.UpdateProject(c.Request.Context(), &project); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) renameProject(c *gin.Context) {
	id, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	var req renameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return
	}
	project, err := h.projects.RenameProject(c.Request.Context(), id, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) switchProject(c *gin.Context) {
	id, ok := uuidParam(c, "projectId")
	if !ok {
		return
	}
	project, err := h.projects.SwitchProject(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) getCurrentProject(c *gin.Context) {
	project, err := h.projects.GetCurrentProject(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no current project"})
		return
	}
	c.JSON(http.StatusOK, project)
}
