package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

// pdfRGB переводит "#rrggbb" темы в цвет maroto.
func pdfRGB(hex string) *props.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return &props.Color{Red: 51, Green: 51, Blue: 51}
	}
	var r, g, b int
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	return &props.Color{Red: r, Green: g, Blue: b}
}

// ExportPDF собирает PDF: каждый слайд занимает отдельный блок страницы
// с заголовком, пунктами и изображением.
func (e *Exporter) ExportPDF(ctx context.Context, title string, slides []model.Slide, theme model.Theme) ([]byte, error) {
	images := e.prepareImages(ctx, slides)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithDefaultFont(&props.Font{
			Family: fontfamily.Arial,
			Size:   10,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(16,
		col.New(12).Add(
			text.New(title, props.Text{
				Family: fontfamily.Arial,
				Size:   20,
				Style:  fontstyle.Bold,
				Align:  align.Center,
				Color:  pdfRGB(theme.GradientFrom),
			}),
		),
	)
	m.AddRow(6)

	for i, slide := range slides {
		e.addPDFSlide(m, i+1, slide, images[i], theme)
	}

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	out := document.GetBytes()
	e.logger.Info("PDF document built",
		zap.String("title", title),
		zap.Int("slides", len(slides)),
		zap.Int("bytes", len(out)))
	return out, nil
}

func (e *Exporter) addPDFSlide(m core.Maroto, number int, slide model.Slide, img *slideImage, theme model.Theme) {
	m.AddRow(10,
		col.New(12).Add(
			text.New(fmt.Sprintf("%d. %s", number, slide.Title), props.Text{
				Family: fontfamily.Arial,
				Size:   14,
				Style:  fontstyle.Bold,
				Color:  pdfRGB(theme.GradientTo),
			}),
		),
	)

	for _, p := range slide.Content {
		m.AddRow(6,
			col.New(12).Add(
				text.New("•  "+p.Text, props.Text{
					Family: fontfamily.Arial,
					Size:   10,
				}),
			),
		)
	}

	if img != nil {
		ext := extension.Png
		if strings.Contains(img.mime, "jpeg") || strings.Contains(img.mime, "jpg") {
			ext = extension.Jpg
		}
		m.AddRow(70,
			col.New(12).Add(
				image.NewFromBytes(img.data, ext),
			),
		)
	}

	m.AddRow(5)
}
