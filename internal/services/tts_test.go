package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNarrationScript(t *testing.T) {
	tests := []struct {
		slogan, concept, want string
	}{
		{"Taste the Win", "Fans celebrate.", "Taste the Win! Fans celebrate."},
		{"Open Happiness.", "", "Open Happiness."},
		{"  ", "Just the concept", "Just the concept!"},
	}
	for _, tt := range tests {
		if got := NarrationScript(tt.slogan, tt.concept); got != tt.want {
			t.Errorf("NarrationScript(%q, %q) = %q, want %q", tt.slogan, tt.concept, got, tt.want)
		}
	}
}

func TestAudioContentType(t *testing.T) {
	tests := map[string]string{
		"mp3":  "audio/mpeg",
		"wav":  "audio/wav",
		"WAV":  "audio/wav",
		"ogg":  "audio/ogg",
		"":     "application/octet-stream",
		"midi": "application/octet-stream",
	}
	for format, want := range tests {
		if got := AudioContentType(format); got != want {
			t.Errorf("AudioContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestEmotionFromStyle(t *testing.T) {
	if got := emotionFromStyle(NarrationStyle("sports")); got != "excited" {
		t.Errorf("sports = %q", got)
	}
	if got := emotionFromStyle(NarrationStyle("general")); got != "calm" {
		t.Errorf("general = %q", got)
	}
	if got := emotionFromStyle("whispered"); got != "neutral" {
		t.Errorf("unknown = %q", got)
	}
}

func TestElevenLabsGenerateSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" || r.URL.Query().Get("output_format") != elevenLabsOutputFormat {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key")
		}
		var body elevenLabsRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Text != "Taste the Win!" || body.ModelID != elevenLabsDefaultModel {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte("ID3-mp3-bytes"))
	}))
	defer srv.Close()

	s := NewElevenLabsService("el-key", "voice-1")
	s.baseURL = srv.URL

	resp, err := s.GenerateSpeech(context.Background(), "Taste the Win!", NarrationStyle("sports"))
	if err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if string(resp.AudioData) != "ID3-mp3-bytes" || resp.Format != "mp3" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCartesiaGenerateSpeechError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/bytes" || r.Header.Get("Cartesia-Version") != CartesiaAPIVersion {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.Header)
		}
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewCartesiaService("ck", srv.URL+"/", "").GenerateSpeech(context.Background(), "hi", "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEstimateAudioDuration(t *testing.T) {
	// 140 words at speed 1.0 is one minute
	text := ""
	for i := 0; i < 140; i++ {
		text += "word "
	}
	if got := estimateAudioDuration(text, 1.0); got != 60000 {
		t.Errorf("estimate = %d, want 60000", got)
	}
}
