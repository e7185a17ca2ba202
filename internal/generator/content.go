package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

// MaxSourceLen - предел длины входного текста для генерации контента.
const MaxSourceLen = 10000

// ErrAIGenerationFailed - ошибка при обращении к AI API.
var ErrAIGenerationFailed = errors.New("ошибка генерации контента AI")

// ContentGenerator превращает свободный текст в последовательность
// дескрипторов слайдов.
type ContentGenerator interface {
	GenerateSlides(ctx context.Context, sourceText string) ([]model.SlideContent, error)
}

// ContentConfig содержит конфигурацию клиента генерации контента.
type ContentConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

const contentSystemPrompt = `You are an expert presentation creator. Your task is to take a given script or topic and break it down into a series of concise, engaging slides. For each slide choose an appropriate layout from 'text-image', 'image-text', 'text-only', 'title-only', 'image-background' or 'split-vertical' to create a varied and professional presentation. For layouts that include an image you MUST provide a descriptive image prompt. For 'text-only' and 'title-only' layouts do not provide an image prompt. Respond with a JSON array only, no markdown fences. Each element: {"title": string (5-10 words), "content": array of 2-4 concise bullet point strings (may be empty for title-only), "layout": string, "imagePrompt": string (optional)}.`

// contentClient - реализация ContentGenerator поверх OpenAI-совместимого API.
type contentClient struct {
	client      *openai.Client
	modelName   string
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

var _ ContentGenerator = (*contentClient)(nil)

// NewContentGenerator создает клиента генерации контента.
func NewContentGenerator(cfg ContentConfig, logger *zap.Logger) (ContentGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не указан API ключ для AI провайдера")
	}
	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &contentClient{
		client:      openai.NewClientWithConfig(clientCfg),
		modelName:   cfg.Model,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger.Named("ContentGenerator"),
	}, nil
}

// GenerateSlides вызывает модель один логический раз (с ретраями на сетевые
// ошибки) и парсит JSON-ответ в дескрипторы слайдов.
func (c *contentClient) GenerateSlides(ctx context.Context, sourceText string) ([]model.SlideContent, error) {
	sourceText = strings.TrimSpace(sourceText)
	if sourceText == "" {
		return nil, fmt.Errorf("%w: source text is empty", model.ErrValidation)
	}
	if len(sourceText) > MaxSourceLen {
		sourceText = sourceText[:MaxSourceLen]
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	raw, err := RetryWithBackoff(ctx, RetryOptions{
		MaxAttempts: c.maxAttempts,
		BaseDelay:   c.retryDelay,
		// Повторяются только транспортные сбои. Пустой или нераспознаваемый
		// ответ модели - одна попытка, ошибка уходит пользователю.
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, model.ErrEmptyResult)
		},
		OnRetry: func(err error, attempt int) {
			c.logger.Warn("AI call failed, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func(ctx context.Context) (string, error) {
		return c.complete(ctx, sourceText)
	})

	metricsObserveAIRequest(c.modelName, err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, model.ErrEmptyResult) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	contents, err := parseSlideContents(raw)
	if err != nil {
		c.logger.Error("Failed to parse AI response", zap.Error(err),
			zap.Int("response_len", len(raw)))
		return nil, err
	}

	c.logger.Info("Slide content generated",
		zap.Int("slides", len(contents)),
		zap.Duration("elapsed", time.Since(start)))
	return contents, nil
}

// complete выполняет один запрос chat completion.
func (c *contentClient) complete(ctx context.Context, sourceText string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: contentSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Based on the following script, generate a series of presentation slides. Break down the key points into individual slides. Script: %q", sourceText),
			},
		},
		Temperature: 0.7,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: API вернул ответ без вариантов", model.ErrEmptyResult)
	}
	return resp.Choices[0].Message.Content, nil
}

// parseSlideContents извлекает JSON-массив дескрипторов из ответа модели.
// Модель иногда оборачивает JSON в markdown-ограждения, срезаем их.
func parseSlideContents(raw string) ([]model.SlideContent, error) {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var contents []model.SlideContent
	if err := json.Unmarshal([]byte(text), &contents); err != nil {
		return nil, fmt.Errorf("%w: unparseable AI response: %v", model.ErrEmptyResult, err)
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: AI returned no slides", model.ErrEmptyResult)
	}
	return contents, nil
}
