package model

// ThemeName - имя цветовой темы презентации.
type ThemeName string

// Базовый набор тем (совпадает с темами редактора).
const (
	ThemePurplePink   ThemeName = "purple-pink"
	ThemeBlueCyan     ThemeName = "blue-cyan"
	ThemeGreenEmerald ThemeName = "green-emerald"
	ThemeOrangeRed    ThemeName = "orange-red"
	ThemeDarkMinimal  ThemeName = "dark-minimal"
)

// Theme описывает цветовую тему. Для сборки промпта изображений важны только
// две крайние точки градиента заголовка.
type Theme struct {
	Name             ThemeName
	GradientFrom     string // hex, например "#c084fc"
	GradientTo       string // hex
	BackgroundColor  string
	TextColor        string
}

// Themes - каталог доступных тем.
var Themes = map[ThemeName]Theme{
	ThemePurplePink: {
		Name:            ThemePurplePink,
		GradientFrom:    "#c084fc",
		GradientTo:      "#ec4899",
		BackgroundColor: "#1f2937",
		TextColor:       "#d1d5db",
	},
	ThemeBlueCyan: {
		Name:            ThemeBlueCyan,
		GradientFrom:    "#93c5fd",
		GradientTo:      "#06b6d4",
		BackgroundColor: "#1e293b",
		TextColor:       "#cbd5e1",
	},
	ThemeGreenEmerald: {
		Name:            ThemeGreenEmerald,
		GradientFrom:    "#86efac",
		GradientTo:      "#10b981",
		BackgroundColor: "#14532d",
		TextColor:       "#bbf7d0",
	},
	ThemeOrangeRed: {
		Name:            ThemeOrangeRed,
		GradientFrom:    "#fdba74",
		GradientTo:      "#ef4444",
		BackgroundColor: "#7f1d1d",
		TextColor:       "#fecaca",
	},
	ThemeDarkMinimal: {
		Name:            ThemeDarkMinimal,
		GradientFrom:    "#e5e7eb",
		GradientTo:      "#9ca3af",
		BackgroundColor: "#111827",
		TextColor:       "#f3f4f6",
	},
}

// Gradient возвращает крайние цвета градиента темы. ok == false для
// неизвестной темы.
func (n ThemeName) Gradient() (from, to string, ok bool) {
	t, ok := Themes[n]
	if !ok {
		return "", "", false
	}
	return t.GradientFrom, t.GradientTo, true
}

// colorNames - таблица hex -> человекочитаемое имя цвета для промптов.
var colorNames = map[string]string{
	"#c084fc": "light purple",
	"#ec4899": "pink",
	"#93c5fd": "light blue",
	"#06b6d4": "cyan",
	"#86efac": "light green",
	"#10b981": "emerald",
	"#fdba74": "light orange",
	"#ef4444": "red",
	"#e5e7eb": "light gray",
	"#9ca3af": "gray",
}

// ColorName возвращает имя цвета для hex-значения; для неизвестного цвета
// возвращается сам hex, промпт от этого не ломается.
func ColorName(hex string) string {
	if name, ok := colorNames[hex]; ok {
		return name
	}
	return hex
}

// ImageStyle - стиль генерируемых изображений.
type ImageStyle string

// Поддерживаемые стили изображений
const (
	StyleWatercolor   ImageStyle = "watercolor"
	StyleRealistic    ImageStyle = "realistic"
	StyleDigitalArt   ImageStyle = "digital-art"
	StyleMinimalist   ImageStyle = "minimalist"
	Style3DRender     ImageStyle = "3d-render"
	StyleSketch       ImageStyle = "sketch"
	StylePhotography  ImageStyle = "photography"
	StyleIllustration ImageStyle = "illustration"
)

// stylePhrases - фразы, добавляемые к промпту для каждого стиля.
var stylePhrases = map[ImageStyle]string{
	StyleWatercolor:   "watercolor painting style",
	StyleRealistic:    "realistic photographic style",
	StyleDigitalArt:   "digital art style",
	StyleMinimalist:   "minimalist flat design style",
	Style3DRender:     "3D rendered style",
	StyleSketch:       "hand-drawn sketch style",
	StylePhotography:  "professional photography style",
	StyleIllustration: "modern illustration style",
}

// IsValid проверяет, что стиль известен.
func (s ImageStyle) IsValid() bool {
	_, ok := stylePhrases[s]
	return ok
}

// Phrase возвращает текстовое описание стиля для промпта.
// Для неизвестного стиля возвращается фраза стиля illustration (дефолт).
func (s ImageStyle) Phrase() string {
	if p, ok := stylePhrases[s]; ok {
		return p
	}
	return stylePhrases[StyleIllustration]
}
