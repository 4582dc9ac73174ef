package video

import (
	"context"
	"fmt"
	"math"
)

// AudioAction says how the narration is attached to the finished timeline.
type AudioAction string

const (
	// AudioMatched: lengths agree within DurationEpsilon, attach unmodified.
	AudioMatched AudioAction = "matched"
	// AudioShorter: video runs longer, attach unmodified and let the tail play silent.
	AudioShorter AudioAction = "shorter_than_video"
	// AudioTruncated: narration runs longer, cut it to the video length.
	AudioTruncated AudioAction = "truncated"
)

// AudioPlan is the attachment decision. Limit is set only for AudioTruncated.
type AudioPlan struct {
	Action AudioAction
	Limit  float64
}

// PlanAudio picks the attachment policy. Video is never stretched or trimmed.
func PlanAudio(video, narration float64) AudioPlan {
	diff := video - narration
	switch {
	case math.Abs(diff) <= DurationEpsilon:
		return AudioPlan{Action: AudioMatched}
	case diff > 0:
		return AudioPlan{Action: AudioShorter}
	default:
		return AudioPlan{Action: AudioTruncated, Limit: video}
	}
}

type sequencer struct {
	toolkit Toolkit
	scratch *Scratch
}

// ConcatMain joins the effected scenes into the main segment.
func (s *sequencer) ConcatMain(ctx context.Context, scenes []ResolvedScene) (string, error) {
	paths := make([]string, len(scenes))
	for i, scene := range scenes {
		paths[i] = scene.Path
	}
	return s.concat(ctx, "main", paths)
}

// Assemble joins [intro?, main, outro?] into one timeline file.
func (s *sequencer) Assemble(ctx context.Context, intro *Clip, mainPath string, outro *Clip) (string, error) {
	var paths []string
	if intro != nil {
		paths = append(paths, intro.Path)
	}
	paths = append(paths, mainPath)
	if outro != nil {
		paths = append(paths, outro.Path)
	}
	return s.concat(ctx, "timeline", paths)
}

func (s *sequencer) concat(ctx context.Context, name string, paths []string) (string, error) {
	list := s.scratch.Path(name + "_concat.txt")
	out := s.scratch.Path(name + ".mp4")
	if err := s.toolkit.Concatenate(ctx, paths, list, out); err != nil {
		return "", fmt.Errorf("%w: concatenate %s: %v", ErrEncodingFailure, name, err)
	}
	return out, nil
}
