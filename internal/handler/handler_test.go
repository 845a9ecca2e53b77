package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/handler"
	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
	"storyboard-server/pkg/storage"
)

// newTestRouter поднимает полный стек поверх памяти и stub-генераторов.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	log := zap.NewNop()
	storyGen := ai.NewStubStoryGenerator()
	imageGen := ai.NewStubImageGenerator()
	renderer := ai.NewStubVideoRenderer()

	h := handler.NewHandler(
		service.NewProjectService(store, log),
		service.NewStoryHistoryService(store, log),
		service.NewStoryService(store, storyGen, log),
		service.NewSceneService(store, storyGen, imageGen, log),
		service.NewVideoService(store, renderer, log),
		log,
	)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, router *gin.Engine, name string) models.Project {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project models.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	return project
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	project := createProject(t, router, "")
	assert.Equal(t, "My New Project", project.Name)

	// Новый проект становится текущим.
	rec := doJSON(t, router, http.MethodGet, "/api/current-project", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Переименование в занятое имя дает 409.
	other := createProject(t, router, "Other")
	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/projects/%s/rename", other.ID), map[string]string{"name": "My New Project"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateStoryOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	project := createProject(t, router, "Film")

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/projects/%s/story/generate", project.ID), map[string]any{
			"prompt":         "a fox crosses the city",
			"targetDuration": 15,
			"style":          map[string]string{"preset": "anime"},
		})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Story models.Story `json:"story"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Story.Scenes, 3)

	// Невалидная длительность дает 400.
	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/projects/%s/story/generate", project.ID), map[string]any{
			"prompt":         "x",
			"targetDuration": 7,
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// История содержит одну версию, branch за ее пределы дает 400.
	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/projects/%s/story/branch", project.ID), map[string]int{"index": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/projects/%s/story", project.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSceneEndpoints(t *testing.T) {
	router := newTestRouter(t)
	project := createProject(t, router, "Scenes")
	base := fmt.Sprintf("/api/projects/%s/scenes", project.ID)

	rec := doJSON(t, router, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var scene models.Scene
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scene))
	assert.Equal(t, "Scene 1", scene.Title)

	rec = doJSON(t, router, http.MethodPost, base+"/"+scene.ID.String()+"/clone", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var clone models.Scene
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clone))
	assert.Equal(t, "Scene 1 (1)", clone.Title)

	rec = doJSON(t, router, http.MethodPost, base+"/"+scene.ID.String()+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, base+"/"+scene.ID.String()+"/number", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var numberResp struct {
		Number int `json:"number"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &numberResp))
	assert.Equal(t, -1, numberResp.Number)

	// Список по умолчанию скрывает архив.
	rec = doJSON(t, router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []models.Scene
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &visible))
	assert.Len(t, visible, 1)
}

func TestVideoEndpoints(t *testing.T) {
	router := newTestRouter(t)
	project := createProject(t, router, "Video")
	base := fmt.Sprintf("/api/projects/%s/video", project.ID)

	// До init операции с версиями дают 409.
	rec := doJSON(t, router, http.MethodPost, base+"/versions",
		map[string]any{"videoUrl": "https://v/1.mp4"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/init", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/versions",
		map[string]any{"videoUrl": "https://v/1.mp4", "duration": 15})
	require.Equal(t, http.StatusCreated, rec.Code)
	var video models.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &video))
	require.Len(t, video.Versions, 1)
	assert.True(t, video.Versions[0].IsActive)
	assert.Equal(t, models.VideoStatusCompleted, video.Status)

	// Единственная версия активна — удаление дает 409.
	rec = doJSON(t, router, http.MethodDelete,
		base+"/versions/"+video.Versions[0].ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
