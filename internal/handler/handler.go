package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
)

// Handler объединяет все HTTP-эндпоинты storyboard-server.
type Handler struct {
	projects service.ProjectService
	history  service.StoryHistoryService
	stories  service.StoryService
	scenes   service.SceneService
	videos   service.VideoService
	logger   *zap.Logger
}

// NewHandler создает новый Handler со всеми сервисами.
func NewHandler(
	projects service.ProjectService,
	history service.StoryHistoryService,
	stories service.StoryService,
	scenes service.SceneService,
	videos service.VideoService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		projects: projects,
		history:  history,
		stories:  stories,
		scenes:   scenes,
		videos:   videos,
		logger:   logger.Named("Handler"),
	}
}

// RegisterRoutes регистрирует маршруты API.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/current-project", h.getCurrentProject)

		projects := api.Group("/projects")
		{
			projects.POST("", h.createProject)
			projects.GET("", h.listProjects)
			projects.GET("/:projectId", h.getProject)
			projects.PUT("/:projectId", h.updateProject)
			projects.DELETE("/:projectId", h.deleteProject)
			projects.POST("/:projectId/rename", h.renameProject)
			projects.POST("/:projectId/switch", h.switchProject)

			story := projects.Group("/:projectId/story")
			{
				story.GET("", h.getCurrentStory)
				story.GET("/history", h.getStoryHistory)
				story.POST("/generate", h.generateStory)
				story.POST("/branch", h.branchStoryHistory)
				story.POST("/:storyId/edit", h.editStory)
				story.POST("/:storyId/expand", h.expandStory)
			}

			scenes := projects.Group("/:projectId/scenes")
			{
				scenes.POST("", h.createScene)
				scenes.GET("", h.listScenes)
				scenes.GET("/:sceneId", h.getScene)
				scenes.PUT("/:sceneId", h.updateScene)
				scenes.DELETE("/:sceneId", h.deleteScene)
				scenes.POST("/:sceneId/clone", h.cloneScene)
				scenes.POST("/:sceneId/archive", h.archiveScene)
				scenes.POST("/:sceneId/unarchive", h.unarchiveScene)
				scenes.POST("/:sceneId/move", h.moveScene)
				scenes.GET("/:sceneId/number", h.getSceneNumber)
				scenes.POST("/:sceneId/expand", h.expandScene)
				scenes.POST("/:sceneId/images", h.addSceneImage)
				scenes.POST("/:sceneId/images/generate", h.generateSceneImage)
				scenes.POST("/:sceneId/images/:imageId/activate", h.activateSceneImage)
			}

			video := projects.Group("/:projectId/video")
			{
				video.POST("/init", h.initVideo)
				video.GET("", h.getVideo)
				video.POST("/status", h.setVideoStatus)
				video.POST("/versions", h.addVideoVersion)
				video.POST("/versions/:versionId/activate", h.activateVideoVersion)
				video.DELETE("/versions/:versionId", h.deleteVideoVersion)
				video.POST("/render", h.startRender)
				video.GET("/render/:jobId", h.checkRender)
			}
		}
	}
}

// uuidParam разбирает UUID из параметра пути; при ошибке отвечает 400 и
// возвращает false.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}
