package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"slides-server/internal/generator"
	"slides-server/internal/model"
)

// Ошибки пайплайна
var (
	// ErrNoProposal возвращается, когда операция требует ожидающего
	// подтверждения предложения, а его нет.
	ErrNoProposal = errors.New("no proposal is awaiting approval")

	// ErrNoImageSlide возвращается при попытке перегенерировать изображение
	// для слайда, layout которого изображение не поддерживает.
	ErrNoImageSlide = errors.New("slide layout does not support an image")
)

// SlideSink принимает подтвержденную колоду. Реализуется history.Store:
// пайплайн коммитит результат одним шагом истории.
type SlideSink interface {
	SetSlides(slides []model.Slide)
	UpdateSlide(index int, slide model.Slide)
	Slides() []model.Slide
}

// Options - параметры одного прогона генерации, выбранные пользователем.
type Options struct {
	Style model.ImageStyle
	Theme model.ThemeName
}

// Proposal - предложенная колода, ожидающая подтверждения. Изображения
// еще не сгенерированы.
type Proposal struct {
	Slides  []model.SlideContent `json:"slides"`
	Options Options              `json:"options"`
}

// Controller управляет двухфазным пайплайном генерации: сначала
// текстовое предложение, после подтверждения пользователем - изображения.
// Одновременно активна максимум одна задача; отмена кооперативная,
// через контекст задачи.
type Controller struct {
	content   generator.ContentGenerator
	images    generator.ImageGenerator
	extractor generator.URLExtractor
	sink      SlideSink
	tracker   *jobTracker
	logger    *zap.Logger

	mu       sync.Mutex
	proposal *Proposal
}

// NewController создает пайплайн. progress может быть nil.
func NewController(
	content generator.ContentGenerator,
	images generator.ImageGenerator,
	extractor generator.URLExtractor,
	sink SlideSink,
	progress ProgressFunc,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		content:   content,
		images:    images,
		extractor: extractor,
		sink:      sink,
		tracker:   newJobTracker(progress),
		logger:    logger.Named("Pipeline"),
	}
}

// Phase возвращает текущую фазу пайплайна. PhaseAwaitingApproval
// отображается и между задачами, пока предложение не подтверждено.
func (c *Controller) Phase() Phase {
	if p := c.tracker.phaseOf(); p != PhaseIdle {
		return p
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proposal != nil {
		return PhaseAwaitingApproval
	}
	return PhaseIdle
}

// Proposal возвращает копию ожидающего предложения или nil.
func (c *Controller) Proposal() *Proposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proposal == nil {
		return nil
	}
	cp := &Proposal{
		Slides:  append([]model.SlideContent(nil), c.proposal.Slides...),
		Options: c.proposal.Options,
	}
	return cp
}

// Cancel отменяет активную задачу генерации, если она есть, и возвращает
// пайплайн в исходное состояние: ожидающее предложение отбрасывается вместе
// с незакоммиченными результатами.
func (c *Controller) Cancel() bool {
	canceled := c.tracker.cancelActive()
	c.DiscardProposal()
	return canceled
}

// DiscardProposal сбрасывает ожидающее предложение без подтверждения.
func (c *Controller) DiscardProposal() {
	c.mu.Lock()
	c.proposal = nil
	c.mu.Unlock()
}

// GenerateProposal запускает первую фазу: из исходного текста собирается
// предложение колоды. Результат не коммитится в историю, он ждет
// подтверждения через ApproveProposal.
func (c *Controller) GenerateProposal(ctx context.Context, sourceText string, opts Options) (*Proposal, error) {
	jobCtx, j, err := c.tracker.begin(ctx, PhaseProposingContent)
	if err != nil {
		return nil, err
	}
	defer c.tracker.finish(j)

	return c.propose(jobCtx, j, sourceText, opts)
}

// GenerateProposalFromURL извлекает контент по URL и затем строит
// предложение из извлеченного текста.
func (c *Controller) GenerateProposalFromURL(ctx context.Context, rawURL string, opts Options) (*Proposal, error) {
	jobCtx, j, err := c.tracker.begin(ctx, PhaseExtractingContent)
	if err != nil {
		return nil, err
	}
	defer c.tracker.finish(j)

	c.tracker.update(j, PhaseExtractingContent, 0, 1, "extracting page content")
	extracted, err := c.extractor.Extract(jobCtx, rawURL)
	if err != nil {
		c.logger.Warn("Извлечение контента по URL не удалось",
			zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}
	if err := jobCtx.Err(); err != nil {
		return nil, err
	}

	return c.propose(jobCtx, j, extracted.SourceText(), opts)
}

// propose выполняет фазу текстового предложения внутри уже начатой задачи.
func (c *Controller) propose(ctx context.Context, j *job, sourceText string, opts Options) (*Proposal, error) {
	c.tracker.update(j, PhaseProposingContent, 0, 1, "generating slide content")

	contents, err := c.content.GenerateSlides(ctx, sourceText)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Отмена успела прийти после ответа генератора: результат
		// выбрасывается, состояние не меняется.
		return nil, err
	}

	p := &Proposal{Slides: contents, Options: opts}
	c.mu.Lock()
	c.proposal = p
	c.mu.Unlock()

	c.tracker.update(j, PhaseAwaitingApproval, 1, 1, "proposal ready")
	c.logger.Info("Предложение колоды готово", zap.Int("slides", len(contents)))
	return c.Proposal(), nil
}

// ApproveProposal подтверждает ожидающее предложение. edited - список
// дескрипторов после правок пользователя; при nil берется предложение как
// есть. Дескрипторы без обязательных полей пропускаются, для остальных с
// подходящим layout'ом генерируется изображение, итоговая колода коммитится
// одним шагом истории. Сбой генерации одного изображения не роняет прогон,
// слайд остается без картинки.
func (c *Controller) ApproveProposal(ctx context.Context, edited []model.SlideContent) ([]model.Slide, error) {
	c.mu.Lock()
	p := c.proposal
	c.mu.Unlock()
	if p == nil {
		return nil, ErrNoProposal
	}
	descriptors := p.Slides
	if edited != nil {
		descriptors = edited
	}

	jobCtx, j, err := c.tracker.begin(ctx, PhaseRealizingImages)
	if err != nil {
		return nil, err
	}
	defer c.tracker.finish(j)

	slides := make([]model.Slide, 0, len(descriptors))
	for i, content := range descriptors {
		if strings.TrimSpace(content.Title) == "" || !content.Layout.IsValid() {
			c.logger.Warn("Дескриптор слайда без обязательных полей пропущен",
				zap.Int("index", i),
				zap.String("layout", string(content.Layout)))
			continue
		}
		slides = append(slides, model.FromContent(content))
	}

	realized, generated, failed, err := c.realizeImages(jobCtx, j, slides, p.Options)
	if err != nil {
		return nil, err
	}

	c.sink.SetSlides(realized)
	c.mu.Lock()
	c.proposal = nil
	c.mu.Unlock()

	c.logger.Info("Колода подтверждена",
		zap.Int("slides", len(realized)),
		zap.Int("images", generated),
		zap.Int("imageFailures", failed))
	return model.CloneSlides(realized), nil
}

// realizeImages обходит слайды строго по порядку, генерируя изображение
// там, где оно нужно. Прогресс публикуется после каждого слайда, с
// картинкой или без, как (i+1)/len(slides). Изображения запрашиваются по
// одному: image API и так ограничивает параллелизм, а монотонный прогресс
// по одному слайду понятнее пользователю.
func (c *Controller) realizeImages(ctx context.Context, j *job, slides []model.Slide, opts Options) ([]model.Slide, int, int, error) {
	total := len(slides)
	generated := 0
	failed := 0
	for i := range slides {
		if err := ctx.Err(); err != nil {
			return nil, generated, failed, err
		}

		if needsImage(slides[i]) {
			prompt := BuildImagePrompt(slides[i].ImagePrompt, opts.Style, opts.Theme)
			url, err := c.images.GenerateImage(ctx, prompt)
			switch {
			case err == nil:
				slides[i].ImageURL = url
				generated++
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return nil, generated, failed, err
			default:
				failed++
				c.logger.Warn("Генерация изображения для слайда не удалась",
					zap.Int("slide", i), zap.Error(err))
			}
		}

		c.tracker.update(j, PhaseRealizingImages, i+1, total,
			fmt.Sprintf("slide %d of %d ready", i+1, total))
	}
	return slides, generated, failed, nil
}

// RegenerateImage перегенерирует изображение одного слайда уже
// подтвержденной колоды. В отличие от массовой генерации, сбой здесь
// возвращается вызывающему: пользователь явно запросил одну картинку.
func (c *Controller) RegenerateImage(ctx context.Context, index int, basePrompt string, opts Options) (model.Slide, error) {
	slides := c.sink.Slides()
	if index < 0 || index >= len(slides) {
		return model.Slide{}, fmt.Errorf("%w: slide index %d", model.ErrNotFound, index)
	}
	slide := slides[index]
	if !slide.Layout.SupportsImage() {
		return model.Slide{}, ErrNoImageSlide
	}

	jobCtx, j, err := c.tracker.begin(ctx, PhaseRealizingImages)
	if err != nil {
		return model.Slide{}, err
	}
	defer c.tracker.finish(j)

	if basePrompt == "" {
		basePrompt = slide.ImagePrompt
	}
	c.tracker.update(j, PhaseRealizingImages, 1, 1,
		fmt.Sprintf("regenerating image for slide %d", index+1))

	url, err := c.images.GenerateImage(jobCtx, BuildImagePrompt(basePrompt, opts.Style, opts.Theme))
	if err != nil {
		return model.Slide{}, err
	}
	if err := jobCtx.Err(); err != nil {
		return model.Slide{}, err
	}

	slide.ImagePrompt = basePrompt
	slide.ImageURL = url
	c.sink.UpdateSlide(index, slide)
	return slide.Clone(), nil
}

// GenerateMissingImages догенерирует изображения для слайдов текущей
// колоды, у которых есть промпт, но нет картинки. Коммитится одним
// шагом истории.
func (c *Controller) GenerateMissingImages(ctx context.Context, opts Options) (int, error) {
	slides := c.sink.Slides()

	total := 0
	for _, s := range slides {
		if needsImage(s) {
			total++
		}
	}
	if total == 0 {
		return 0, nil
	}

	jobCtx, j, err := c.tracker.begin(ctx, PhaseRealizingImages)
	if err != nil {
		return 0, err
	}
	defer c.tracker.finish(j)

	realized, generated, _, err := c.realizeImages(jobCtx, j, slides, opts)
	if err != nil {
		return 0, err
	}

	c.sink.SetSlides(realized)
	return generated, nil
}

// needsImage сообщает, нужно ли слайду генерировать изображение.
func needsImage(s model.Slide) bool {
	return s.Layout.SupportsImage() && s.ImagePrompt != "" && s.ImageURL == ""
}
