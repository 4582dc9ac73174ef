package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type muxer struct {
	toolkit Toolkit
	fps     int
}

// Encode writes the final container to output. It encodes into a sibling
// partial file and renames on success, so output either holds a complete
// video or does not exist.
func (m *muxer) Encode(ctx context.Context, videoPath, audioPath, output string, audio AudioPlan) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", ErrEncodingFailure, err)
	}

	partial := output + ".partial"
	err := m.toolkit.AttachAudio(ctx, Mux{
		Video:      videoPath,
		Audio:      audioPath,
		Output:     partial,
		FPS:        m.fps,
		AudioLimit: audio.Limit,
	})
	if err != nil {
		os.Remove(partial)
		return fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}

	if err := os.Rename(partial, output); err != nil {
		os.Remove(partial)
		return fmt.Errorf("%w: finalize output: %v", ErrEncodingFailure, err)
	}
	return nil
}
