package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Ошибки извлечения контента из URL. Каждая причина отказа различима:
// невалидный URL, недоступная страница, недостаточно текста.
var (
	ErrInvalidURL          = errors.New("invalid URL")
	ErrFetchFailed         = errors.New("failed to fetch URL")
	ErrInsufficientContent = errors.New("insufficient extractable content")
)

// ExtractedContent - результат извлечения: заголовок и основной текст.
type ExtractedContent struct {
	Title   string
	Content string
}

// URLExtractor достает заголовок и основной текст страницы по URL.
type URLExtractor interface {
	Extract(ctx context.Context, rawURL string) (ExtractedContent, error)
}

// URLType - грубая классификация URL по известным сервисам.
type URLType string

// Типы URL
const (
	URLTypeYouTube URLType = "youtube"
	URLTypePDF     URLType = "pdf"
	URLTypeDocs    URLType = "docs"
	URLTypeGeneric URLType = "generic"
)

// DetectURLType классифицирует URL. Для youtube/pdf/docs текст напрямую
// не извлекается, вызывающая сторона может подсказать это пользователю.
func DetectURLType(rawURL string) URLType {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return URLTypeYouTube
	case strings.HasSuffix(lower, ".pdf"):
		return URLTypePDF
	case strings.Contains(lower, "docs.google.com"), strings.Contains(lower, "drive.google.com"):
		return URLTypeDocs
	default:
		return URLTypeGeneric
	}
}

// htmlExtractor - реализация URLExtractor поверх goquery.
type htmlExtractor struct {
	httpClient *http.Client
	logger     *zap.Logger
}

var _ URLExtractor = (*htmlExtractor)(nil)

// NewURLExtractor создает экстрактор контента.
func NewURLExtractor(timeout time.Duration, logger *zap.Logger) URLExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &htmlExtractor{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("URLExtractor"),
	}
}

// Селекторы основного контента, в порядке приоритета.
var articleSelectors = []string{
	"article", "[role=main]", "main",
	".content", ".post-content", ".article-content", "#content", ".entry-content",
}

const (
	minParagraphLen = 20
	minContentLen   = 50
	shortContentLen = 200
)

// Extract загружает страницу и извлекает заголовок + основной текст.
func (e *htmlExtractor) Extract(ctx context.Context, rawURL string) (ExtractedContent, error) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ExtractedContent{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ExtractedContent{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("URL fetch failed", zap.String("url", rawURL), zap.Error(err))
		return ExtractedContent{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ExtractedContent{}, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ExtractedContent{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	content := extractFromDocument(doc)

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	// Короткий контент дополняем meta description
	if len(content) < shortContentLen {
		if desc, ok := doc.Find("meta[name=description]").Attr("content"); ok && desc != "" {
			content = strings.TrimSpace(desc + "\n\n" + content)
		}
	}

	if len(content) < minContentLen {
		return ExtractedContent{}, fmt.Errorf("%w: only %d characters extracted", ErrInsufficientContent, len(content))
	}

	e.logger.Info("URL content extracted",
		zap.String("host", parsed.Host),
		zap.Int("content_len", len(content)))
	return ExtractedContent{Title: title, Content: content}, nil
}

// extractFromDocument собирает текст из основного блока страницы либо,
// если он не найден, из всех параграфов body.
func extractFromDocument(doc *goquery.Document) string {
	var main *goquery.Selection
	for _, selector := range articleSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			main = sel
			break
		}
	}

	var parts []string
	collect := func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > minParagraphLen {
			parts = append(parts, text)
		}
	}

	if main != nil {
		main.Find("p, h1, h2, h3, h4, h5, h6, li").Each(collect)
	} else {
		doc.Find("body p").Each(collect)
	}

	content := strings.Join(parts, "\n\n")
	return strings.TrimSpace(content)
}

// SourceText собирает вход для генерации контента из извлеченной страницы.
func (c ExtractedContent) SourceText() string {
	text := strings.TrimSpace(c.Title + "\n\n" + c.Content)
	if len(text) > MaxSourceLen {
		text = text[:MaxSourceLen]
	}
	return text
}
