package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SlideLayout определяет шаблон отображения слайда.
type SlideLayout string

// Возможные layout'ы слайдов
const (
	LayoutTextImage       SlideLayout = "text-image"       // Текст слева, изображение справа
	LayoutImageText       SlideLayout = "image-text"       // Изображение слева, текст справа
	LayoutTextOnly        SlideLayout = "text-only"        // Только текст
	LayoutTitleOnly       SlideLayout = "title-only"       // Только заголовок
	LayoutImageBackground SlideLayout = "image-background" // Изображение как фон
	LayoutSplitVertical   SlideLayout = "split-vertical"   // Изображение сверху, текст снизу
)

// allLayouts используется для валидации.
var allLayouts = map[SlideLayout]bool{
	LayoutTextImage:       true,
	LayoutImageText:       true,
	LayoutTextOnly:        true,
	LayoutTitleOnly:       true,
	LayoutImageBackground: true,
	LayoutSplitVertical:   true,
}

// IsValid проверяет, что layout входит в перечисление.
func (l SlideLayout) IsValid() bool {
	return allLayouts[l]
}

// SupportsImage сообщает, имеет ли изображение смысл для данного layout'а.
// Для слайдов без поддержки изображений генерация картинок не запускается,
// даже если imagePrompt остался от предыдущего layout'а.
func (l SlideLayout) SupportsImage() bool {
	switch l {
	case LayoutTextImage, LayoutImageText, LayoutImageBackground, LayoutSplitVertical:
		return true
	default:
		return false
	}
}

// ContentPoint - один пункт контента слайда. Иконка опциональна и хранится
// как символическая ссылка на каталог иконок (например "FiStar"), ядро её
// не резолвит.
type ContentPoint struct {
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
}

// UnmarshalJSON принимает как голую строку (старый формат), так и объект
// {text, icon}. Нормализация выполняется один раз здесь, чтобы внутренняя
// логика нигде больше не ветвилась по форме контента.
func (p *ContentPoint) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.Text = s
		p.Icon = ""
		return nil
	}

	type alias ContentPoint
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ContentPoint(a)
	return nil
}

// SlideContent - дескриптор слайда, предложенный генератором контента,
// до резолва изображений.
type SlideContent struct {
	Title       string         `json:"title"`
	Content     []ContentPoint `json:"content"`
	Layout      SlideLayout    `json:"layout"`
	ImagePrompt string         `json:"imagePrompt,omitempty"`
}

// Slide - финальный слайд в презентации.
type Slide struct {
	Title       string         `json:"title"`
	Content     []ContentPoint `json:"content"`
	Layout      SlideLayout    `json:"layout"`
	ImagePrompt string         `json:"imagePrompt,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
}

// FromContent создает слайд из дескриптора (без изображения).
func FromContent(c SlideContent) Slide {
	return Slide{
		Title:       c.Title,
		Content:     append([]ContentPoint(nil), c.Content...),
		Layout:      c.Layout,
		ImagePrompt: c.ImagePrompt,
	}
}

// Clone возвращает глубокую копию слайда.
func (s Slide) Clone() Slide {
	c := s
	c.Content = append([]ContentPoint(nil), s.Content...)
	return c
}

// CloneSlides возвращает глубокую копию последовательности слайдов.
func CloneSlides(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	for i, s := range slides {
		out[i] = s.Clone()
	}
	return out
}

const (
	maxTitleLen     = 200
	maxContentItems = 20
)

// ValidateSlide проверяет структуру одного слайда.
func ValidateSlide(s Slide) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: slide title is empty", ErrValidation)
	}
	if len(s.Title) > maxTitleLen {
		return fmt.Errorf("%w: slide title is too long", ErrValidation)
	}
	if !s.Layout.IsValid() {
		return fmt.Errorf("%w: unknown layout %q", ErrValidation, s.Layout)
	}
	if len(s.Content) > maxContentItems {
		return fmt.Errorf("%w: too many content points (%d)", ErrValidation, len(s.Content))
	}
	for i, p := range s.Content {
		if p.Text == "" {
			return fmt.Errorf("%w: content point %d has empty text", ErrValidation, i)
		}
	}
	return nil
}

// ValidateSlides проверяет всю последовательность.
func ValidateSlides(slides []Slide) error {
	for i, s := range slides {
		if err := ValidateSlide(s); err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}
	}
	return nil
}
