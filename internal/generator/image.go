package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrImageGenerationFailed - ошибка при генерации изображения.
var ErrImageGenerationFailed = errors.New("image generation failed")

// ImageGenerator генерирует изображение по собранному промпту.
// Возвращает data URI; вызывающая сторона сама решает, является ли отказ
// фатальным (обычно нет - слайд просто остается без картинки).
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageConfig содержит конфигурацию клиента генерации изображений.
type ImageConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Ratio       string // Соотношение сторон, например "16:9"
}

// imageAPIRequest - тело запроса к API генерации изображений.
type imageAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

// imageClient - реализация ImageGenerator поверх HTTP API, отдающего
// сырые байты изображения.
type imageClient struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	ratio       string
	logger      *zap.Logger
}

var _ ImageGenerator = (*imageClient)(nil)

// NewImageGenerator создает клиента генерации изображений.
func NewImageGenerator(cfg ImageConfig, logger *zap.Logger) (ImageGenerator, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("image API base URL is not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Ratio == "" {
		cfg.Ratio = "16:9"
	}

	return &imageClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		maxAttempts: cfg.MaxAttempts,
		ratio:       cfg.Ratio,
		logger:      logger.Named("ImageGenerator"),
	}, nil
}

// GenerateImage вызывает API с ретраями и возвращает изображение как data URI.
func (c *imageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log := c.logger.With(zap.Int("prompt_len", len(prompt)))
	log.Debug("Generating image")

	start := time.Now()
	data, err := RetryWithBackoff(ctx, RetryOptions{
		MaxAttempts: c.maxAttempts,
		BaseDelay:   time.Second,
		OnRetry: func(err error, attempt int) {
			log.Warn("Image API call failed, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func(ctx context.Context) (imageData, error) {
		return c.callImageAPI(ctx, prompt)
	})

	metricsObserveImageRequest(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		log.Error("Image generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(data.bytes) == 0 {
		return "", fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}

	log.Info("Image generated",
		zap.Int("size_bytes", len(data.bytes)),
		zap.Duration("elapsed", time.Since(start)))
	return fmt.Sprintf("data:%s;base64,%s", data.mimeType, base64.StdEncoding.EncodeToString(data.bytes)), nil
}

type imageData struct {
	bytes    []byte
	mimeType string
}

// callImageAPI выполняет один запрос к API генерации.
func (c *imageClient) callImageAPI(ctx context.Context, prompt string) (imageData, error) {
	reqBody, err := json.Marshal(imageAPIRequest{Prompt: prompt, Ratio: c.ratio})
	if err != nil {
		return imageData{}, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := c.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return imageData{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return imageData{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return imageData{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if readErr != nil {
		return imageData{}, fmt.Errorf("failed to read response body: %w", readErr)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/png"
	}
	return imageData{bytes: body, mimeType: mimeType}, nil
}
