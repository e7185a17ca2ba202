package model

import (
	"fmt"
	"strings"
	"time"
)

// SavedPresentation - именованная презентация в персистентном хранилище.
type SavedPresentation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slides    []Slide   `json:"slides"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Valid проверяет форму записи при чтении из хранилища. Невалидные записи
// молча отбрасываются, а не превращаются в ошибку.
func (p SavedPresentation) Valid() bool {
	if p.ID == "" || p.Name == "" || p.CreatedAt.IsZero() {
		return false
	}
	return ValidateSlides(p.Slides) == nil
}

// HistorySnapshot - автосохраненный снимок живой последовательности слайдов.
// Не путать с undo/redo логом: снимки пишутся по debounce-таймеру и живут
// в отдельном скользящем буфере.
type HistorySnapshot struct {
	ID        string    `json:"id"`
	Slides    []Slide   `json:"slides"`
	Timestamp time.Time `json:"timestamp"`
	Preview   string    `json:"preview,omitempty"`
}

const previewTitles = 3

// Preview строит короткое человекочитаемое описание снимка: первые
// несколько заголовков через запятую, с многоточием если слайдов больше.
func Preview(slides []Slide) string {
	if len(slides) == 0 {
		return "no slides"
	}

	titles := make([]string, 0, previewTitles)
	total := 0
	for _, s := range slides {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		total++
		if len(titles) < previewTitles {
			titles = append(titles, s.Title)
		}
	}
	if total == 0 {
		return fmt.Sprintf("%d slides", len(slides))
	}

	preview := strings.Join(titles, ", ")
	if total > previewTitles {
		preview += "..."
	}
	return preview
}
