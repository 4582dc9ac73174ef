package video

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// BookendStyle controls the look of the intro and outro frames.
type BookendStyle struct {
	Background color.RGBA
	Fill       color.RGBA
	Stroke     color.RGBA

	IntroFontSize float64
	IntroStroke   int
	OutroFontSize float64
	OutroStroke   int

	// Margin is the total horizontal space kept free of text.
	Margin  int
	LineGap int
}

// DefaultBookendStyle is white text with a brand-red outline on black.
func DefaultBookendStyle() BookendStyle {
	return BookendStyle{
		Background:    color.RGBA{0, 0, 0, 255},
		Fill:          color.RGBA{255, 255, 255, 255},
		Stroke:        color.RGBA{200, 16, 46, 255},
		IntroFontSize: 100,
		IntroStroke:   5,
		OutroFontSize: 65,
		OutroStroke:   4,
		Margin:        100,
		LineGap:       10,
	}
}

// typefaces holds the faces for both bookends. A font.Face caches glyph
// state, so each job gets its own pair.
type typefaces struct {
	intro font.Face
	outro font.Face
}

// parseBookendFont parses the embedded bold face. The parsed font is safe to
// share; the faces built from it are not.
func parseBookendFont() (*opentype.Font, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}

func loadTypefaces(f *opentype.Font, style BookendStyle) (*typefaces, error) {
	newFace := func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	intro, err := newFace(style.IntroFontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create intro face: %w", err)
	}
	outro, err := newFace(style.OutroFontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create outro face: %w", err)
	}
	return &typefaces{intro: intro, outro: outro}, nil
}

type bookends struct {
	toolkit Toolkit
	scratch *Scratch
	size    FrameSize
	fps     int
	style   BookendStyle
	faces   *typefaces
	logger  zerolog.Logger
}

// Intro renders the brand wordmark. A degenerate plan has no bookends.
// Otherwise a brand name always gets at least MinIntro seconds.
func (b *bookends) Intro(ctx context.Context, brand string, plan TimingPlan) (*Clip, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" || plan.Degenerate {
		return nil, nil
	}

	seconds := plan.IntroDuration
	if seconds <= 0 {
		seconds = MinIntro
	}
	return b.render(ctx, "intro", brand, b.faces.intro, b.style.IntroStroke, seconds)
}

// Outro renders the word-wrapped slogan for at least MinOutro seconds.
func (b *bookends) Outro(ctx context.Context, slogan string, plan TimingPlan) (*Clip, error) {
	slogan = strings.TrimSpace(slogan)
	if slogan == "" || plan.Degenerate {
		return nil, nil
	}

	seconds := plan.OutroDuration
	if seconds <= 0 {
		seconds = MinOutro
	}
	return b.render(ctx, "outro", slogan, b.faces.outro, b.style.OutroStroke, seconds)
}

func (b *bookends) render(ctx context.Context, name, text string, face font.Face, stroke int, seconds float64) (*Clip, error) {
	measure := func(s string) int { return font.MeasureString(face, s).Ceil() }
	lines := wrapLines(text, b.size.Width-b.style.Margin, measure)

	frame := drawTextFrame(b.size, lines, face, b.style, stroke)

	framePath := b.scratch.Path(name + ".png")
	if err := writePNG(framePath, frame); err != nil {
		return nil, err
	}

	out := b.scratch.Path(name + ".mp4")
	err := b.toolkit.Render(ctx, Edit{
		Kind:     InputImage,
		Input:    framePath,
		Output:   out,
		Size:     b.size,
		Duration: seconds,
		FPS:      b.fps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	b.logger.Info().Str("bookend", name).Int("lines", len(lines)).Float64("duration", seconds).Msg("bookend rendered")
	return &Clip{Path: out, Duration: seconds}, nil
}

// wrapLines greedily packs words into lines no wider than maxWidth.
// A single word wider than maxWidth gets a line of its own.
func wrapLines(text string, maxWidth int, measure func(string) int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// drawTextFrame paints lines centered on a solid background, each line
// horizontally centered and the block vertically centered.
func drawTextFrame(size FrameSize, lines []string, face font.Face, style BookendStyle, stroke int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(style.Background), image.Point{}, draw.Src)

	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	lineHeight := textHeight + style.LineGap
	top := (size.Height - len(lines)*lineHeight) / 2

	strokeSrc := image.NewUniform(style.Stroke)
	fillSrc := image.NewUniform(style.Fill)

	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := (size.Width - width) / 2
		baseline := top + i*lineHeight + metrics.Ascent.Ceil()

		d := &font.Drawer{Dst: img, Face: face}
		d.Src = strokeSrc
		for dx := -stroke; dx <= stroke; dx++ {
			for dy := -stroke; dy <= stroke; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				d.Dot = fixed.P(x+dx, baseline+dy)
				d.DrawString(line)
			}
		}

		d.Src = fillSrc
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return f.Close()
}
