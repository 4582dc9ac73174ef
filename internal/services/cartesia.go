package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	CartesiaAPIVersion     = "2024-06-10"
	CartesiaDefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"
	cartesiaModel          = "sonic-english"
)

type CartesiaService struct {
	apiKey     string
	apiURL     string
	apiVersion string
	voiceID    string
	client     *http.Client
}

var _ TTSService = (*CartesiaService)(nil)

// NewCartesiaService creates a Cartesia client. An empty voiceID uses the default voice.
func NewCartesiaService(apiKey, apiURL, voiceID string) *CartesiaService {
	if voiceID == "" {
		voiceID = CartesiaDefaultVoiceID
	}
	return &CartesiaService{
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiVersion: CartesiaAPIVersion,
		voiceID:    voiceID,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

type cartesiaRequest struct {
	ModelID      string                    `json:"model_id"`
	Transcript   string                    `json:"transcript"`
	Voice        cartesiaVoice             `json:"voice"`
	Language     string                    `json:"language,omitempty"`
	OutputFormat cartesiaOutputFormat      `json:"output_format"`
	Config       *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Volume  *float64 `json:"volume,omitempty"`  // 0.5 to 2.0
	Speed   *float64 `json:"speed,omitempty"`   // 0.6 to 1.5
	Emotion *string  `json:"emotion,omitempty"` // "excited", "calm", ...
}

// GenerateSpeech posts to /tts/bytes and returns the MP3 body.
func (s *CartesiaService) GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error) {
	emotion := emotionFromStyle(voiceStyle)
	speed := 0.9
	volume := 1.4

	reqBody := cartesiaRequest{
		ModelID:    cartesiaModel,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: s.voiceID},
		Language:   "en",
		OutputFormat: cartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
		Config: &cartesiaGenerationConfig{
			Volume:  &volume,
			Speed:   &speed,
			Emotion: &emotion,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/tts/bytes", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", s.apiVersion)

	log.Debug().Str("provider", "cartesia").Str("emotion", emotion).Int("text_len", len(text)).Msg("generating speech")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateAudioDuration(text, speed),
		Format:     "mp3",
	}, nil
}

var cartesiaEmotions = []struct{ keyword, emotion string }{
	{"energetic", "excited"},
	{"excited", "excited"},
	{"engaging", "enthusiastic"},
	{"happy", "happy"},
	{"confident", "confident"},
	{"calm", "calm"},
	{"warm", "calm"},
}

// emotionFromStyle maps a free-form style hint to a Cartesia emotion.
// The first keyword found wins.
func emotionFromStyle(style string) string {
	lower := strings.ToLower(style)
	for _, e := range cartesiaEmotions {
		if strings.Contains(lower, e.keyword) {
			return e.emotion
		}
	}
	return "neutral"
}

// truncate limits a string to maxLen bytes for error messages and logs
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
