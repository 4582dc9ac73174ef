package video

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// KenBurnsZoom is the fixed enlargement applied before the center crop.
const KenBurnsZoom = 1.2

// kenBurnsGeometry returns the enlarged frame and the centered crop window
// that brings it back to size. Enlarged dimensions are rounded up to even
// numbers for yuv420p.
func kenBurnsGeometry(size FrameSize, zoom float64) (FrameSize, Rect) {
	scaled := FrameSize{
		Width:  evenCeil(float64(size.Width) * zoom),
		Height: evenCeil(float64(size.Height) * zoom),
	}
	crop := Rect{
		X:      (scaled.Width - size.Width) / 2,
		Y:      (scaled.Height - size.Height) / 2,
		Width:  size.Width,
		Height: size.Height,
	}
	return scaled, crop
}

func evenCeil(v float64) int {
	n := int(math.Ceil(v - 1e-9))
	if n%2 != 0 {
		n++
	}
	return n
}

type effects struct {
	toolkit Toolkit
	scratch *Scratch
	fps     int
	zoom    float64
	logger  zerolog.Logger
}

// Apply returns the scene with the zoom/crop applied. Duration and frame
// size are unchanged. A scene without size metadata, or one the toolkit
// fails to process, passes through untouched.
func (e *effects) Apply(ctx context.Context, scene ResolvedScene) ResolvedScene {
	if scene.FrameSize.IsZero() {
		e.logger.Debug().Int("scene", scene.SourceOrdinal).Msg("no frame size, skipping ken burns")
		return scene
	}

	scaled, crop := kenBurnsGeometry(scene.FrameSize, e.zoom)
	out := e.scratch.Path(fmt.Sprintf("scene%02d_kb.mp4", scene.SourceOrdinal))

	err := e.toolkit.Render(ctx, Edit{
		Kind:     InputVideo,
		Input:    scene.Path,
		Output:   out,
		Size:     scene.FrameSize,
		Duration: scene.Duration,
		FPS:      e.fps,
		Scale:    scaled,
		Crop:     &crop,
	})
	if err != nil {
		e.logger.Warn().Err(err).Int("scene", scene.SourceOrdinal).Msg("ken burns failed, using scene as-is")
		return scene
	}

	scene.Path = out
	return scene
}
