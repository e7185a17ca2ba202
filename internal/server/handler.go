package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slides-server/internal/export"
	"slides-server/internal/generator"
	"slides-server/internal/model"
	"slides-server/internal/pipeline"
	"slides-server/internal/storage"
)

// sessionHeader передает непрозрачный идентификатор сессии редактирования.
const sessionHeader = "X-Session-ID"

// sessionIDFrom извлекает идентификатор сессии из заголовка или query.
// Без идентификатора клиент попадает в общую сессию по умолчанию.
func sessionIDFrom(c *gin.Context) string {
	if id := c.GetHeader(sessionHeader); id != "" {
		return id
	}
	if id := c.Query("session"); id != "" {
		return id
	}
	return "default"
}

// Handler - HTTP обработчики поверх сессий, сторов и экспортера.
type Handler struct {
	sessions      *SessionManager
	presentations *storage.PresentationStore
	snapshots     *storage.SnapshotStore
	exporter      *export.Exporter
	logger        *zap.Logger
}

// NewHandler создает обработчики.
func NewHandler(
	sessions *SessionManager,
	presentations *storage.PresentationStore,
	snapshots *storage.SnapshotStore,
	exporter *export.Exporter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:      sessions,
		presentations: presentations,
		snapshots:     snapshots,
		exporter:      exporter,
		logger:        logger.Named("Handler"),
	}
}

// respondError маппит доменные ошибки на HTTP статусы.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, generator.ErrInvalidURL),
		errors.Is(err, generator.ErrInsufficientContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound), errors.Is(err, pipeline.ErrNoProposal):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrJobActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrQuotaExceeded):
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusConflict, gin.H{"error": "generation was canceled"})
	case errors.Is(err, pipeline.ErrNoImageSlide):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// generationOptions собирает опции генерации из запроса. Неизвестный
// стиль откатывается к дефолтному, тема без совпадения просто не даст
// цветов в промпте.
func generationOptions(style, theme string) pipeline.Options {
	s := model.ImageStyle(style)
	if !s.IsValid() {
		s = model.StyleIllustration
	}
	return pipeline.Options{
		Style: s,
		Theme: model.ThemeName(theme),
	}
}

type generateRequest struct {
	SourceText string `json:"sourceText"`
	Style      string `json:"style"`
	Theme      string `json:"theme"`
}

// GenerateProposal запускает генерацию предложения из текста.
func (h *Handler) GenerateProposal(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	proposal, err := s.Pipeline.GenerateProposal(c.Request.Context(), req.SourceText,
		generationOptions(req.Style, req.Theme))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

type generateURLRequest struct {
	URL   string `json:"url"`
	Style string `json:"style"`
	Theme string `json:"theme"`
}

// GenerateProposalFromURL извлекает контент по URL и генерирует
// предложение. YouTube, PDF и Google Docs не поддерживаются, клиент
// получает подсказку о типе.
func (h *Handler) GenerateProposalFromURL(c *gin.Context) {
	var req generateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if t := generator.DetectURLType(req.URL); t != generator.URLTypeGeneric {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   fmt.Sprintf("%s URLs are not supported, paste the content as text instead", t),
			"urlType": string(t),
		})
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	proposal, err := s.Pipeline.GenerateProposalFromURL(c.Request.Context(), req.URL,
		generationOptions(req.Style, req.Theme))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// GetProposal возвращает ожидающее предложение.
func (h *Handler) GetProposal(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	p := s.Pipeline.Proposal()
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no proposal is awaiting approval"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ApproveProposal подтверждает предложение и запускает генерацию
// изображений. Тело запроса опционально: если клиент прислал
// отредактированные дескрипторы, подтверждаются они, иначе предложение
// как есть.
func (h *Handler) ApproveProposal(c *gin.Context) {
	var req struct {
		Slides []model.SlideContent `json:"slides"`
	}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	s := h.sessions.Get(sessionIDFrom(c))
	slides, err := s.Pipeline.ApproveProposal(c.Request.Context(), req.Slides)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slides": slides})
}

// DiscardProposal сбрасывает ожидающее предложение.
func (h *Handler) DiscardProposal(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	s.Pipeline.DiscardProposal()
	c.Status(http.StatusNoContent)
}

// CancelGeneration отменяет активную задачу генерации.
func (h *Handler) CancelGeneration(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	c.JSON(http.StatusOK, gin.H{"canceled": s.Pipeline.Cancel()})
}

// GetSlides возвращает текущую колоду и состояние undo/redo.
func (h *Handler) GetSlides(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	c.JSON(http.StatusOK, gin.H{
		"slides":  s.Store.Slides(),
		"canUndo": s.Store.CanUndo(),
		"canRedo": s.Store.CanRedo(),
		"phase":   s.Pipeline.Phase(),
	})
}

type setSlidesRequest struct {
	Slides []model.Slide `json:"slides"`
}

// SetSlides заменяет колоду целиком одним шагом истории.
func (h *Handler) SetSlides(c *gin.Context) {
	var req setSlidesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := model.ValidateSlides(req.Slides); err != nil {
		respondError(c, err)
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.SetSlides(req.Slides)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

// AddSlide добавляет слайд в конец колоды.
func (h *Handler) AddSlide(c *gin.Context) {
	var slide model.Slide
	if err := c.ShouldBindJSON(&slide); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := model.ValidateSlide(slide); err != nil {
		respondError(c, err)
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.AddSlide(slide)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

// slideIndex разбирает индекс слайда из пути.
func slideIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slide index"})
		return 0, false
	}
	return idx, true
}

// UpdateSlide заменяет один слайд. Выход за границы - тихий no-op,
// как и в самой истории.
func (h *Handler) UpdateSlide(c *gin.Context) {
	idx, ok := slideIndex(c)
	if !ok {
		return
	}
	var slide model.Slide
	if err := c.ShouldBindJSON(&slide); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := model.ValidateSlide(slide); err != nil {
		respondError(c, err)
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.UpdateSlide(idx, slide)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

// RemoveSlide удаляет слайд.
func (h *Handler) RemoveSlide(c *gin.Context) {
	idx, ok := slideIndex(c)
	if !ok {
		return
	}
	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.RemoveSlide(idx)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

// DuplicateSlide дублирует слайд с суффиксом имени.
func (h *Handler) DuplicateSlide(c *gin.Context) {
	idx, ok := slideIndex(c)
	if !ok {
		return
	}
	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.DuplicateSlide(idx)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ReorderSlides перемещает слайд.
func (h *Handler) ReorderSlides(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.ReorderSlides(req.From, req.To)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides()})
}

// Undo откатывает последнее изменение.
func (h *Handler) Undo(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.Undo()
	c.JSON(http.StatusOK, gin.H{
		"slides":  s.Store.Slides(),
		"canUndo": s.Store.CanUndo(),
		"canRedo": s.Store.CanRedo(),
	})
}

// Redo накатывает откаченное изменение.
func (h *Handler) Redo(c *gin.Context) {
	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.Redo()
	c.JSON(http.StatusOK, gin.H{
		"slides":  s.Store.Slides(),
		"canUndo": s.Store.CanUndo(),
		"canRedo": s.Store.CanRedo(),
	})
}

type regenerateImageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Theme  string `json:"theme"`
}

// RegenerateImage перегенерирует изображение одного слайда.
func (h *Handler) RegenerateImage(c *gin.Context) {
	idx, ok := slideIndex(c)
	if !ok {
		return
	}
	var req regenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	slide, err := s.Pipeline.RegenerateImage(c.Request.Context(), idx, req.Prompt,
		generationOptions(req.Style, req.Theme))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slide": slide})
}

type missingImagesRequest struct {
	Style string `json:"style"`
	Theme string `json:"theme"`
}

// GenerateMissingImages догенерирует недостающие изображения колоды.
func (h *Handler) GenerateMissingImages(c *gin.Context) {
	var req missingImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	generated, err := s.Pipeline.GenerateMissingImages(c.Request.Context(),
		generationOptions(req.Style, req.Theme))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": generated, "slides": s.Store.Slides()})
}

type savePresentationRequest struct {
	Name   string        `json:"name"`
	Slides []model.Slide `json:"slides"`
}

// SavePresentation сохраняет презентацию. Без слайдов в теле берется
// текущая колода сессии.
func (h *Handler) SavePresentation(c *gin.Context) {
	var req savePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	slides := req.Slides
	if len(slides) == 0 {
		slides = h.sessions.Get(sessionIDFrom(c)).Store.Slides()
	}

	p, err := h.presentations.Save(c.Request.Context(), req.Name, slides)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPresentations возвращает все сохраненные презентации.
func (h *Handler) ListPresentations(c *gin.Context) {
	all, err := h.presentations.LoadAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presentations": all})
}

// UpdatePresentation перезаписывает сохраненную презентацию.
func (h *Handler) UpdatePresentation(c *gin.Context) {
	var req savePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ok, err := h.presentations.Update(c.Request.Context(), c.Param("id"), req.Name, req.Slides)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "presentation not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePresentation удаляет сохраненную презентацию.
func (h *Handler) DeletePresentation(c *gin.Context) {
	ok, err := h.presentations.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "presentation not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadPresentation загружает сохраненную презентацию в текущую сессию
// одним шагом истории.
func (h *Handler) LoadPresentation(c *gin.Context) {
	p, err := h.presentations.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	s := h.sessions.Get(sessionIDFrom(c))
	s.Store.SetSlides(p.Slides)
	c.JSON(http.StatusOK, gin.H{"slides": s.Store.Slides(), "name": p.Name})
}

// ListSnapshots возвращает буфер автосохранений и его размер.
func (h *Handler) ListSnapshots(c *gin.Context) {
	history, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshots": history,
		"sizeBytes": h.snapshots.ApproximateSizeBytes(c.Request.Context()),
	})
}

// DeleteSnapshot удаляет один снимок.
func (h *Handler) DeleteSnapshot(c *gin.Context) {
	ok, err := h.snapshots.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearSnapshots очищает буфер автосохранений.
func (h *Handler) ClearSnapshots(c *gin.Context) {
	if err := h.snapshots.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportDeck выгружает текущую колоду как PPTX или PDF документ.
func (h *Handler) ExportDeck(c *gin.Context) {
	format := export.Format(c.Param("format"))

	s := h.sessions.Get(sessionIDFrom(c))
	slides := s.Store.Slides()
	if len(slides) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "nothing to export, the deck is empty"})
		return
	}

	title := c.DefaultQuery("title", "Presentation")
	theme, ok := model.Themes[model.ThemeName(c.Query("theme"))]
	if !ok {
		theme = model.Themes[model.ThemePurplePink]
	}

	data, err := h.exporter.Export(c.Request.Context(), format, title, slides, theme)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	contentType := "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	if format == export.FormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+"."+string(format)))
	c.Data(http.StatusOK, contentType, data)
}
