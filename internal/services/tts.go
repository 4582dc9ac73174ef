package services

import (
	"context"
	"strings"
)

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav", etc.
}

// TTSService is implemented by ElevenLabs and Cartesia so the worker can
// narrate with whichever is configured.
type TTSService interface {
	// GenerateSpeech converts text to audio. voiceStyle is a free-form
	// delivery hint ("warm, upbeat"); providers may ignore it.
	GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error)
}

// AudioContentType maps a TTSResponse format to the MIME type used for
// uploads. Unknown formats are sent as generic binary.
func AudioContentType(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3", "mpeg":
		return "audio/mpeg"
	case "wav", "wave":
		return "audio/wav"
	case "ogg", "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "pcm", "raw":
		return "audio/L16"
	}
	return "application/octet-stream"
}

// NarrationScript is what gets spoken over the video: the slogan followed by
// the hero concept, with a closing mark so TTS ends on a falling tone.
func NarrationScript(slogan, heroConcept string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{slogan, heroConcept} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p[len(p)-1:], ".!?") {
			p += "!"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// NarrationStyle is the voice hint passed to TTS for a trend category.
func NarrationStyle(category string) string {
	switch category {
	case "sports":
		return "energetic and excited"
	case "entertainment":
		return "happy and engaging"
	default:
		return "warm, calm and confident"
	}
}

// estimateAudioDuration assumes ~140 words per minute at speed 1.0.
func estimateAudioDuration(text string, speed float64) int {
	if speed <= 0 {
		speed = 1
	}
	words := len(strings.Fields(text))
	minutes := float64(words) / (140.0 * speed)
	return int(minutes * 60 * 1000)
}
