package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

// Геометрия 16:9 слайда (EMU)
const (
	emuPerInch = 914400

	pptxSlideWidth  = int64(10.0 * emuPerInch)
	pptxSlideHeight = int64(5.625 * emuPerInch)
	pptxMargin      = int64(0.4 * emuPerInch)
	pptxContentW    = int64(9.2 * emuPerInch)

	pptxFontTitle = 32
	pptxFontHero  = 44
	pptxFontBody  = 16
)

// pptxColor превращает "#rrggbb" из темы в ARGB-строку GoPPT.
func pptxColor(hex string) ppt.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		hex = "333333"
	}
	return ppt.NewColor("FF" + strings.ToUpper(hex))
}

// ExportPPTX собирает PPTX документ: по одному слайду на элемент колоды,
// с расстановкой текста и изображений по layout'у.
func (e *Exporter) ExportPPTX(ctx context.Context, title string, slides []model.Slide, theme model.Theme) ([]byte, error) {
	images := e.prepareImages(ctx, slides)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := ppt.New()
	p.GetDocumentProperties().Title = title

	for i, slide := range slides {
		var target *ppt.Slide
		if i == 0 {
			target = p.GetActiveSlide()
		} else {
			target = p.CreateSlide()
		}
		e.buildPPTXSlide(target, slide, images[i], theme)
	}

	w, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("failed to create PPTX writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PPTX: %w", err)
	}

	e.logger.Info("PPTX document built",
		zap.String("title", title),
		zap.Int("slides", len(slides)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (e *Exporter) buildPPTXSlide(target *ppt.Slide, slide model.Slide, img *slideImage, theme model.Theme) {
	// Фон в цвет темы.
	bg := target.CreateRichTextShape()
	bg.SetOffsetX(0).SetOffsetY(0)
	bg.SetWidth(pptxSlideWidth).SetHeight(pptxSlideHeight)
	bg.SetFill(ppt.NewFill().SetSolid(pptxColor(theme.BackgroundColor)))

	switch slide.Layout {
	case model.LayoutTitleOnly:
		e.addPPTXTitle(target, slide.Title, theme, true)

	case model.LayoutTextOnly:
		e.addPPTXTitle(target, slide.Title, theme, false)
		e.addPPTXContent(target, slide.Content, theme,
			pptxMargin, int64(1.4*emuPerInch), pptxContentW)

	case model.LayoutTextImage:
		e.addPPTXTitle(target, slide.Title, theme, false)
		e.addPPTXContent(target, slide.Content, theme,
			pptxMargin, int64(1.4*emuPerInch), int64(4.4*emuPerInch))
		e.addPPTXImage(target, img,
			int64(5.2*emuPerInch), int64(1.4*emuPerInch),
			int64(4.4*emuPerInch), int64(3.7*emuPerInch))

	case model.LayoutImageText:
		e.addPPTXTitle(target, slide.Title, theme, false)
		e.addPPTXImage(target, img,
			pptxMargin, int64(1.4*emuPerInch),
			int64(4.4*emuPerInch), int64(3.7*emuPerInch))
		e.addPPTXContent(target, slide.Content, theme,
			int64(5.2*emuPerInch), int64(1.4*emuPerInch), int64(4.4*emuPerInch))

	case model.LayoutImageBackground:
		e.addPPTXImage(target, img, 0, 0, pptxSlideWidth, pptxSlideHeight)
		e.addPPTXTitle(target, slide.Title, theme, true)

	case model.LayoutSplitVertical:
		e.addPPTXImage(target, img,
			pptxMargin, int64(0.3*emuPerInch),
			pptxContentW, int64(2.4*emuPerInch))
		e.addPPTXTitle(target, slide.Title, theme, false)
		e.addPPTXContent(target, slide.Content, theme,
			pptxMargin, int64(3.9*emuPerInch), pptxContentW)

	default:
		e.addPPTXTitle(target, slide.Title, theme, false)
		e.addPPTXContent(target, slide.Content, theme,
			pptxMargin, int64(1.4*emuPerInch), pptxContentW)
	}
}

// addPPTXTitle размещает заголовок. hero центрирует его по слайду для
// layout'ов без контента.
func (e *Exporter) addPPTXTitle(target *ppt.Slide, title string, theme model.Theme, hero bool) {
	shape := target.CreateRichTextShape()
	if hero {
		shape.SetOffsetX(pptxMargin).SetOffsetY(int64(2.2 * emuPerInch))
		shape.SetWidth(pptxContentW).SetHeight(int64(1.2 * emuPerInch))
	} else {
		shape.SetOffsetX(pptxMargin).SetOffsetY(int64(0.3 * emuPerInch))
		shape.SetWidth(pptxContentW).SetHeight(int64(0.9 * emuPerInch))
	}

	tr := shape.CreateTextRun(title)
	size := pptxFontTitle
	if hero {
		size = pptxFontHero
	}
	tr.GetFont().SetSize(size).SetBold(true).SetColor(pptxColor(theme.GradientFrom))
	if hero {
		shape.GetActiveParagraph().SetAlignment(
			ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
	}
}

// addPPTXContent размещает пункты контента как маркированный список.
func (e *Exporter) addPPTXContent(target *ppt.Slide, points []model.ContentPoint, theme model.Theme, x, y, width int64) {
	if len(points) == 0 {
		return
	}

	shape := target.CreateRichTextShape()
	shape.SetOffsetX(x).SetOffsetY(y)
	shape.SetWidth(width).SetHeight(int64(3.7 * emuPerInch))

	for i, p := range points {
		if i > 0 {
			shape.CreateParagraph()
		}
		tr := shape.CreateTextRun("• " + p.Text)
		tr.GetFont().SetSize(pptxFontBody).SetColor(pptxColor(theme.TextColor))
	}
}

// addPPTXImage вставляет подготовленное изображение. nil означает, что
// изображения нет или оно не декодировалось, место остается пустым.
func (e *Exporter) addPPTXImage(target *ppt.Slide, img *slideImage, x, y, width, height int64) {
	if img == nil {
		return
	}
	shape := target.CreateDrawingShape()
	shape.SetImageData(img.data, img.mime)
	shape.SetOffsetX(x).SetOffsetY(y)
	shape.SetWidth(width).SetHeight(height)
}
