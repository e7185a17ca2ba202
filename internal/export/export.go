package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"slides-server/internal/model"
)

// Format - формат экспортируемого документа.
type Format string

// Поддерживаемые форматы экспорта
const (
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat возвращается для неизвестного формата экспорта.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// imageWorkers - размер пула подготовки изображений. Декодирование
// data URI дешевое, но колоды бывают большими, а порядок слайдов в
// документе обязан сохраниться, поэтому воркеры пишут результат в
// заранее выделенный срез по индексу.
const imageWorkers = 4

// Exporter собирает PPTX и PDF документы из колоды слайдов.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter создает экспортер.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("Exporter")}
}

// Export строит документ запрошенного формата.
func (e *Exporter) Export(ctx context.Context, format Format, title string, slides []model.Slide, theme model.Theme) ([]byte, error) {
	switch format {
	case FormatPPTX:
		return e.ExportPPTX(ctx, title, slides, theme)
	case FormatPDF:
		return e.ExportPDF(ctx, title, slides, theme)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// slideImage - декодированное изображение слайда.
type slideImage struct {
	data []byte
	mime string
}

// decodeDataURI разбирает data URI изображения на байты и MIME-тип.
func decodeDataURI(uri string) (slideImage, error) {
	payload := uri
	mime := "image/png"

	if strings.HasPrefix(uri, "data:") {
		parts := strings.SplitN(uri, ",", 2)
		if len(parts) != 2 {
			return slideImage{}, fmt.Errorf("malformed data URI")
		}
		header := parts[0]
		payload = parts[1]
		if start := strings.Index(header, ":"); start >= 0 {
			meta := header[start+1:]
			if end := strings.Index(meta, ";"); end >= 0 {
				meta = meta[:end]
			}
			if meta != "" {
				mime = meta
			}
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return slideImage{}, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return slideImage{data: data, mime: mime}, nil
}

// prepareImages декодирует изображения всех слайдов через ограниченный
// пул воркеров. Результат выровнен с входом: prepared[i] принадлежит
// slides[i], слайды без изображения получают nil. Битое изображение не
// ошибка, слайд просто экспортируется без картинки.
func (e *Exporter) prepareImages(ctx context.Context, slides []model.Slide) []*slideImage {
	prepared := make([]*slideImage, len(slides))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < imageWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				img, err := decodeDataURI(slides[i].ImageURL)
				if err != nil {
					e.logger.Warn("Skipping undecodable slide image",
						zap.Int("slide", i), zap.Error(err))
					continue
				}
				prepared[i] = &img
			}
		}()
	}

	for i := range slides {
		if slides[i].ImageURL == "" || !slides[i].Layout.SupportsImage() {
			continue
		}
		select {
		case indexes <- i:
		case <-ctx.Done():
			close(indexes)
			wg.Wait()
			return prepared
		}
	}
	close(indexes)
	wg.Wait()
	return prepared
}
