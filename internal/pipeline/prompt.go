package pipeline

import (
	"strings"

	"slides-server/internal/model"
)

// imagePromptSuffix добавляется к каждому промпту изображения, чтобы
// результат подходил под слайд без пост-обработки.
const imagePromptSuffix = "professional presentation slide image, clean background, 16:9 aspect ratio, no embedded text or words"

// BuildImagePrompt собирает финальный промпт для генерации изображения
// слайда: базовый промпт, фраза стиля и цвета темы.
func BuildImagePrompt(base string, style model.ImageStyle, theme model.ThemeName) string {
	parts := make([]string, 0, 4)

	base = strings.TrimSpace(base)
	if base != "" {
		parts = append(parts, base)
	}
	if phrase := style.Phrase(); phrase != "" {
		parts = append(parts, phrase)
	}
	if from, to, ok := theme.Gradient(); ok {
		colors := model.ColorName(from)
		if toName := model.ColorName(to); toName != "" && toName != colors {
			colors += " and " + toName
		}
		if colors != "" {
			parts = append(parts, "color palette of "+colors)
		}
	}
	parts = append(parts, imagePromptSuffix)

	return strings.Join(parts, ", ")
}
