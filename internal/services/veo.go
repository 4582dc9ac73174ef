package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	defaultVeoModel    = "veo-3.1-generate-preview"
	veoPollInterval    = 10 * time.Second
	veoMaxPollDuration = 5 * time.Minute
	maxSourceImageSize = 20 << 20
)

// ClipRequest asks for one scene image to be brought to life.
type ClipRequest struct {
	CampaignID uuid.UUID
	Index      int
	ImageURL   string
	Prompt     string
	Width      int
	Height     int
}

// ClipAnimator turns a scene image into a short video clip and returns the
// clip's storage path.
type ClipAnimator interface {
	Animate(ctx context.Context, req ClipRequest) (string, error)
}

// VeoAnimator generates scene clips with Veo, using the scene image as the
// first frame. It is optional; without it scenes are animated by the
// renderer's zoom pulse.
type VeoAnimator struct {
	apiKey string
	model  string
	store  ObjectStore
	client *http.Client
}

func NewVeoAnimator(apiKey, model string, store ObjectStore) *VeoAnimator {
	if model == "" {
		model = defaultVeoModel
	}
	return &VeoAnimator{
		apiKey: apiKey,
		model:  model,
		store:  store,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// buildClipPrompt asks for restrained motion so the clip still reads as the
// still image it started from.
func buildClipPrompt(scenePrompt string) string {
	return fmt.Sprintf(`%s

Motion direction: subtle, natural movement only. Rising bubbles, condensation running down the bottle, gentle light flicker, a slow camera push-in. Keep the style, colors and composition of the first frame. No text, no logos changing shape, no sudden cuts.

No generated audio or dialogue. Silent video only.`, strings.TrimSpace(scenePrompt))
}

// videoAspectRatio picks the closest ratio Veo supports.
func videoAspectRatio(width, height int) string {
	if height > width {
		return "9:16"
	}
	return "16:9"
}

func (s *VeoAnimator) Animate(ctx context.Context, req ClipRequest) (string, error) {
	imageData, mimeType, err := s.fetchImage(ctx, req.ImageURL)
	if err != nil {
		return "", err
	}

	videoBytes, err := s.generate(ctx, buildClipPrompt(req.Prompt), &genai.Image{
		ImageBytes: imageData,
		MIMEType:   mimeType,
	}, videoAspectRatio(req.Width, req.Height))
	if err != nil {
		return "", err
	}

	path := s.store.CampaignPath(req.CampaignID, fmt.Sprintf("clip%02d.mp4", req.Index))
	if err := s.store.Upload(ctx, path, videoBytes, "video/mp4"); err != nil {
		return "", fmt.Errorf("failed to upload clip: %w", err)
	}
	return path, nil
}

func (s *VeoAnimator) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch scene image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("scene image fetch failed with status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read scene image: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("scene image has content type %s", mimeType)
	}
	return data, mimeType, nil
}

// generate runs one Veo operation to completion and downloads the result.
func (s *VeoAnimator) generate(ctx context.Context, prompt string, firstFrame *genai.Image, aspect string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	operation, err := client.Models.GenerateVideos(ctx, s.model, prompt, firstFrame, &genai.GenerateVideosConfig{
		AspectRatio:      aspect,
		PersonGeneration: "allow_adult",
		NumberOfVideos:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	logger := log.With().Str("operation", operation.Name).Str("model", s.model).Logger()
	logger.Debug().Msg("veo operation started")

	deadline := time.Now().Add(veoMaxPollDuration)
	polls := 0
	for !operation.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("video generation timed out after %v (polled %d times)", veoMaxPollDuration, polls)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("video generation cancelled: %w", ctx.Err())
		case <-time.After(veoPollInterval):
		}

		polls++
		operation, err = client.Operations.GetVideosOperation(ctx, operation, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to poll operation (attempt %d): %w", polls, err)
		}
	}

	if len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return nil, fmt.Errorf("video generation operation failed: %s", errJSON)
	}
	if operation.Response == nil {
		return nil, fmt.Errorf("no response in completed operation %s", operation.Name)
	}
	if operation.Response.RAIMediaFilteredCount > 0 {
		return nil, fmt.Errorf("video blocked by safety filters: %s", strings.Join(operation.Response.RAIMediaFilteredReasons, ", "))
	}
	if len(operation.Response.GeneratedVideos) == 0 || operation.Response.GeneratedVideos[0].Video == nil {
		return nil, fmt.Errorf("no videos in response")
	}

	videoBytes, err := client.Files.Download(ctx, genai.NewDownloadURIFromVideo(operation.Response.GeneratedVideos[0].Video), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated video: %w", err)
	}
	if len(videoBytes) == 0 {
		return nil, fmt.Errorf("downloaded video is empty")
	}

	logger.Info().Int("bytes", len(videoBytes)).Int("polls", polls).Msg("veo clip ready")
	return videoBytes, nil
}
