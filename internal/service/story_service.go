package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/ai"
	"storyboard-server/internal/models"
	"storyboard-server/pkg/storage"
)

// GenerateStoryRequest описывает запрос на генерацию новой истории.
type GenerateStoryRequest struct {
	Prompt         string
	TargetDuration int // секунды, положительное кратное 5
	Style          models.StoryStyle
}

// GenerateStoryResult — новая история плюс разбивка элементов мира на
// переиспользованные и впервые появившиеся.
type GenerateStoryResult struct {
	Story                 *models.Story
	ExistingElementsUsed  []models.WorldElement
	NewElementsIntroduced []models.WorldElement
}

// StoryService производит новые снапшоты Story: генерацию, правку по
// инструкции и умное расширение. Каждая операция создает новый снапшот с
// новым id и добавляет его в историю проекта; снапшоты никогда не меняются
// на месте.
type StoryService interface {
	GenerateStory(ctx context.Context, projectID uuid.UUID, req GenerateStoryRequest) (*GenerateStoryResult, error)
	EditStoryWithPrompt(ctx context.Context, projectID, storyID uuid.UUID, instruction string) (*models.Story, error)
	// SmartExpand расширяет нарратив, сохраняя базовую версию до первого
	// расширения: повторные расширения исходят из нее, а не из уже
	// расширенного текста.
	SmartExpand(ctx context.Context, projectID, storyID uuid.UUID) (*models.Story, error)
	GetStylePrompt(style models.StoryStyle) string
	ValidateDuration(duration int) bool
}

type storyServiceImpl struct {
	repo      *projectRepository
	generator ai.StoryGenerator
	logger    *zap.Logger
}

// NewStoryService создает новый экземпляр StoryService.
func NewStoryService(store storage.KeyValueStore, generator ai.StoryGenerator, logger *zap.Logger) StoryService {
	return &storyServiceImpl{
		repo:      newProjectRepository(store, logger),
		generator: generator,
		logger:    logger.Named("StoryService"),
	}
}

// Фиксированные описания пресетов. Несколько из них явно говорят
// генератору изображений, чем стиль НЕ является, чтобы увести его от
// похожих стилей.
var stylePrompts = map[models.StylePreset]string{
	models.StyleAnime: "Japanese anime style: cel-shaded 2D animation, expressive large eyes, " +
		"clean line art, vibrant flat colors, dramatic lighting. NOT western cartoon, " +
		"NOT 3D rendered, NOT photorealistic.",
	models.StylePhotorealistic: "Photorealistic cinematic style: true-to-life lighting and skin texture, " +
		"shallow depth of field, natural color grading, shot on a full-frame cinema camera. " +
		"NOT illustrated, NOT painted, NOT stylized.",
	models.Style3DAnimated: "Modern 3D animated film style: soft global illumination, subsurface " +
		"scattering on skin, slightly exaggerated proportions, polished Pixar-like rendering. " +
		"NOT 2D, NOT anime, NOT photorealistic live action.",
	models.StyleWatercolor: "Watercolor painting style: soft translucent washes, visible paper grain, " +
		"bleeding edges, muted dreamy palette, loose brushwork. NOT digital vector art, " +
		"NOT sharp-edged illustration.",
	models.StyleComic: "Western comic book style: bold ink outlines, halftone shading, dynamic " +
		"panel-like composition, saturated primary colors. NOT manga, NOT painterly, " +
		"NOT photorealistic.",
}

func (s *storyServiceImpl) GetStylePrompt(style models.StoryStyle) string {
	if style.Preset == models.StyleCustom {
		return style.CustomPrompt
	}
	return stylePrompts[style.Preset]
}

func (s *storyServiceImpl) ValidateDuration(duration int) bool {
	return duration > 0 && duration%models.SceneDurationSeconds == 0
}

func (s *storyServiceImpl) GenerateStory(ctx context.Context, projectID uuid.UUID, req GenerateStoryRequest) (*GenerateStoryResult, error) {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.Int("target_duration", req.TargetDuration))
	log.Info("Generating story")

	if !s.ValidateDuration(req.TargetDuration) {
		log.Warn("Invalid target duration")
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidDuration, req.TargetDuration)
	}
	sceneCount := req.TargetDuration / models.SceneDurationSeconds

	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	existing := make([]models.WorldElement, 0, len(project.WorldElements))
	for _, el := range project.WorldElements {
		existing = append(existing, el)
	}

	draft, err := s.generator.GenerateStory(ctx, ai.StoryRequest{
		Prompt:           req.Prompt,
		StylePrompt:      s.GetStylePrompt(req.Style),
		SceneCount:       sceneCount,
		ExistingElements: existing,
	})
	if err != nil {
		return nil, fmt.Errorf("story generation failed: %w", err)
	}
	if len(draft.Scenes) < sceneCount {
		log.Error("Generator returned too few scenes",
			zap.Int("got", len(draft.Scenes)), zap.Int("want", sceneCount))
		return nil, fmt.Errorf("%w: generator produced %d scenes, expected %d",
			ai.ErrMalformedOutput, len(draft.Scenes), sceneCount)
	}
	draft.Scenes = draft.Scenes[:sceneCount]

	reused, introduced, byName := matchElements(draft.Elements, project.WorldElements)

	story := &models.Story{
		ID:             uuid.New(),
		Prompt:         req.Prompt,
		Style:          req.Style,
		TargetDuration: req.TargetDuration,
		Narrative:      draft.Narrative,
		CreatedAt:      time.Now().UTC(),
	}
	for i, sceneDraft := range draft.Scenes {
		elementIDs := make([]uuid.UUID, 0, len(sceneDraft.Elements))
		for _, name := range sceneDraft.Elements {
			if el, ok := byName[normalizeName(name)]; ok {
				elementIDs = append(elementIDs, el.ID)
			}
		}
		story.Scenes = append(story.Scenes, models.StoryScene{
			Number:          i + 1,
			Title:           sceneDraft.Title,
			Description:     sceneDraft.Description,
			Dialogue:        sceneDraft.Dialogue,
			Action:          sceneDraft.Action,
			ElementsPresent: elementIDs,
			Duration:        models.SceneDurationSeconds,
		})
	}
	for _, el := range append(append([]models.WorldElement{}, reused...), introduced...) {
		switch el.Type {
		case models.ElementCharacter:
			story.Characters = append(story.Characters, el)
		case models.ElementLocation:
			story.Locations = append(story.Locations, el)
		case models.ElementObject:
			story.Objects = append(story.Objects, el)
		case models.ElementConcept:
			story.Concepts = append(story.Concepts, el)
		}
	}

	if err := s.repo.saveStorySnapshot(ctx, story); err != nil {
		return nil, err
	}
	if project.WorldElements == nil {
		project.WorldElements = map[uuid.UUID]models.WorldElement{}
	}
	for _, el := range introduced {
		project.WorldElements[el.ID] = el
	}
	discarded := appendStoryVersion(project, *story)
	if err := s.repo.saveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.repo.deleteStorySnapshots(ctx, discarded); err != nil {
		return nil, err
	}

	log.Info("Story generated",
		zap.String("story_id", story.ID.String()),
		zap.Int("scenes", len(story.Scenes)),
		zap.Int("elements_reused", len(reused)),
		zap.Int("elements_new", len(introduced)))
	return &GenerateStoryResult{
		Story:                 story,
		ExistingElementsUsed:  reused,
		NewElementsIntroduced: introduced,
	}, nil
}

func (s *storyServiceImpl) EditStoryWithPrompt(ctx context.Context, projectID, storyID uuid.UUID, instruction string) (*models.Story, error) {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.String("story_id", storyID.String()))
	log.Info("Editing story with prompt")

	source, err := s.repo.loadStorySnapshot(ctx, storyID)
	if err != nil {
		return nil, err
	}

	rewritten, err := s.generator.RewriteNarrative(ctx, source.Narrative, instruction)
	if err != nil {
		return nil, fmt.Errorf("story edit failed: %w", err)
	}

	edited := *source
	edited.ID = uuid.New()
	edited.Narrative = rewritten
	edited.CreatedAt = time.Now().UTC()
	edited.Scenes = append([]models.StoryScene{}, source.Scenes...)

	if err := s.appendSnapshot(ctx, projectID, &edited); err != nil {
		return nil, err
	}
	log.Info("Story edited", zap.String("new_story_id", edited.ID.String()))
	return &edited, nil
}

func (s *storyServiceImpl) SmartExpand(ctx context.Context, projectID, storyID uuid.UUID) (*models.Story, error) {
	log := s.logger.With(
		zap.String("project_id", projectID.String()),
		zap.String("story_id", storyID.String()))
	log.Info("Smart-expanding story")

	source, err := s.repo.loadStorySnapshot(ctx, storyID)
	if err != nil {
		return nil, err
	}

	// Базой служит нарратив до первого расширения: при повторных
	// расширениях исходник не дрейфует.
	baseline := source.Narrative
	if source.IsSmartExpanded && source.PreExpansionNarrative != "" {
		baseline = source.PreExpansionNarrative
	}

	expanded, err := s.generator.ExpandText(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("story expansion failed: %w", err)
	}

	result := *source
	result.ID = uuid.New()
	result.Narrative = expanded
	result.IsSmartExpanded = true
	result.PreExpansionNarrative = baseline
	result.CreatedAt = time.Now().UTC()
	result.Scenes = append([]models.StoryScene{}, source.Scenes...)

	if err := s.appendSnapshot(ctx, projectID, &result); err != nil {
		return nil, err
	}
	log.Info("Story expanded", zap.String("new_story_id", result.ID.String()))
	return &result, nil
}

// appendSnapshot сохраняет снапшот в кэш и добавляет его в историю проекта.
func (s *storyServiceImpl) appendSnapshot(ctx context.Context, projectID uuid.UUID, story *models.Story) error {
	if err := s.repo.saveStorySnapshot(ctx, story); err != nil {
		return err
	}
	project, err := s.repo.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	discarded := appendStoryVersion(project, *story)
	if err := s.repo.saveProject(ctx, project); err != nil {
		return err
	}
	return s.repo.deleteStorySnapshots(ctx, discarded)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// matchElements сопоставляет предложенные генератором элементы с уже
// существующими по имени (без учета регистра). Несовпавшие становятся
// новыми элементами мира с собственными id.
func matchElements(drafts []ai.ElementDraft, existing map[uuid.UUID]models.WorldElement) (reused, introduced []models.WorldElement, byName map[string]models.WorldElement) {
	existingByName := make(map[string]models.WorldElement, len(existing))
	for _, el := range existing {
		existingByName[normalizeName(el.Name)] = el
	}

	byName = make(map[string]models.WorldElement, len(drafts))
	for _, draft := range drafts {
		key := normalizeName(draft.Name)
		if key == "" {
			continue
		}
		if _, seen := byName[key]; seen {
			continue
		}
		if el, ok := existingByName[key]; ok {
			reused = append(reused, el)
			byName[key] = el
			continue
		}
		el := models.WorldElement{
			ID:          uuid.New(),
			Type:        draft.Type,
			Name:        draft.Name,
			Description: draft.Description,
			CreatedAt:   time.Now().UTC(),
		}
		introduced = append(introduced, el)
		byName[key] = el
	}
	return reused, introduced, byName
}
