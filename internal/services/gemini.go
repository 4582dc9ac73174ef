package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ObjectStore is the slice of storage the image provider needs.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	GetPublicURL(objectPath string) string
	CampaignPath(campaignID uuid.UUID, filename string) string
}

// ImagenProvider generates scene images with Imagen through the Gemini API
// and stores them so they have a public URL.
type ImagenProvider struct {
	apiKey string
	model  string
	store  ObjectStore
}

func NewImagenProvider(apiKey, model string, store ObjectStore) *ImagenProvider {
	return &ImagenProvider{apiKey: apiKey, model: model, store: store}
}

func (s *ImagenProvider) Name() string { return "imagen" }

func (s *ImagenProvider) Generate(ctx context.Context, req ImageRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	resp, err := client.Models.GenerateImages(ctx, s.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      aspectRatio(req.Width, req.Height),
		PersonGeneration: genai.PersonGenerationAllowAdult,
		OutputMIMEType:   "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("imagen request failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", fmt.Errorf("imagen returned no images")
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		reason := resp.GeneratedImages[0].RAIFilteredReason
		return "", fmt.Errorf("imagen returned an empty image (filtered: %q)", reason)
	}

	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	ext := strings.TrimPrefix(mime, "image/")
	objectPath := s.store.CampaignPath(req.CampaignID, fmt.Sprintf("scene%02d.%s", req.Index, ext))
	if err := s.store.Upload(ctx, objectPath, img.ImageBytes, mime); err != nil {
		return "", fmt.Errorf("failed to store generated image: %w", err)
	}

	log.Debug().Str("provider", "imagen").Int("scene", req.Index).Int("bytes", len(img.ImageBytes)).Msg("image generated")
	return s.store.GetPublicURL(objectPath), nil
}

// aspectRatio maps a frame size to the nearest ratio Imagen accepts.
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	r := float64(width) / float64(height)
	switch {
	case r >= 1.6:
		return "16:9"
	case r >= 1.2:
		return "4:3"
	case r <= 0.65:
		return "9:16"
	case r <= 0.85:
		return "3:4"
	default:
		return "1:1"
	}
}
