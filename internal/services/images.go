package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const baseVisualPrompt = `Create a Coca-Cola inspired advertisement in the 'Real Magic' style.
Dominant Coca-Cola red and white palette. Joyful, uplifting, human-centric moment
emphasizing connection, celebration and refreshment. A realistic Coca-Cola bottle or
can shown clearly. Soft glow, subtle sparkles, cinematic atmosphere. Do not distort
the logo. No political, violent or controversial imagery.`

// sceneVariations give each scene after the first a distinct composition.
var sceneVariations = []string{
	"wide angle shot",
	"close-up detail",
	"different perspective",
	"alternative composition",
	"unique camera angle",
}

// ImageRequest describes one scene image.
type ImageRequest struct {
	CampaignID uuid.UUID
	Index      int // 0-based scene index
	Prompt     string
	Width      int
	Height     int
}

// ImageProvider returns a locator (URL) for a generated scene image.
type ImageProvider interface {
	Name() string
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// BuildImagePrompt composes the base prompt for a trend and its moodboard.
func BuildImagePrompt(trend, moodboard string) string {
	return fmt.Sprintf("%s\n\nThis image is specifically for %s.\nScene: %s\nVisual elements: %s\nSquare format, photorealistic, high contrast, vibrant colors.",
		baseVisualPrompt, trend, trendScene(trend, moodboard), moodboard)
}

// ScenePrompts returns count prompts, the first unmodified and the rest
// each tagged with a composition variation.
func ScenePrompts(base string, count int) []string {
	prompts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if i == 0 {
			prompts = append(prompts, base)
			continue
		}
		variation := sceneVariations[(i-1)%len(sceneVariations)]
		prompts = append(prompts, fmt.Sprintf("%s, %s, variation %d", base, variation, i+1))
	}
	return prompts
}

func trendScene(trend, moodboard string) string {
	t := strings.ToLower(trend)
	switch {
	case containsAny(t, []string{"super bowl", "nfl", "football", "sports", "game", "championship", "olympics", "tennis", "basketball", "soccer"}):
		return fmt.Sprintf("Fans gathered in team colors celebrating %[1]s, stadium or viewing party atmosphere, sharing Coca-Cola, high-fives and shared excitement.", trend)
	case containsAny(t, []string{"festival", "concert", "music", "grammy", "oscar", "award", "movie", "film", "show", "tour"}):
		return fmt.Sprintf("Friends at a %[1]s event, stages, screens or red carpets, dancing and reacting together while enjoying Coca-Cola.", trend)
	case containsAny(t, []string{"christmas", "valentine", "easter", "halloween", "thanksgiving", "new year", "holiday", "diwali", "ramadan"}):
		return fmt.Sprintf("Families and friends celebrating %[1]s traditions with festive decorations, warm light and Coca-Cola.", trend)
	case containsAny(t, []string{"food", "dining", "restaurant", "cuisine", "cooking"}):
		return fmt.Sprintf("People gathered around a table sharing %[1]s dishes and Coca-Cola, warm and convivial.", trend)
	case containsAny(t, []string{"travel", "vacation", "beach", "adventure"}):
		return fmt.Sprintf("Travellers sharing a %[1]s adventure at a scenic landmark with Coca-Cola.", trend)
	}

	var words []string
	for _, w := range strings.Split(moodboard, ",") {
		if w = strings.TrimSpace(w); len(w) > 3 {
			words = append(words, w)
		}
		if len(words) == 5 {
			break
		}
	}
	elements := "celebration and connection"
	if len(words) > 0 {
		elements = strings.Join(words, ", ")
	}
	return fmt.Sprintf("People experiencing %s together in an authentic way, featuring %s, sharing Coca-Cola.", trend, elements)
}

// ChainImageProvider tries providers in order for each image.
type ChainImageProvider struct {
	providers []ImageProvider
}

func NewChainImageProvider(providers ...ImageProvider) *ChainImageProvider {
	return &ChainImageProvider{providers: providers}
}

func (c *ChainImageProvider) Name() string { return "chain" }

func (c *ChainImageProvider) Generate(ctx context.Context, req ImageRequest) (string, error) {
	var errs []error
	for _, p := range c.providers {
		locator, err := p.Generate(ctx, req)
		if err == nil {
			return locator, nil
		}
		log.Warn().Err(err).Str("provider", p.Name()).Int("scene", req.Index).Msg("image provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no image providers configured")
	}
	return "", errors.Join(errs...)
}

// PollinationsProvider builds Pollinations.ai URLs. No key is needed and the
// image is produced when the URL is first fetched, so Generate never does I/O.
type PollinationsProvider struct {
	baseURL string
}

func NewPollinationsProvider(baseURL string) *PollinationsProvider {
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai"
	}
	return &PollinationsProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *PollinationsProvider) Name() string { return "pollinations" }

// pollinationsPromptLimit keeps URLs well under proxy limits.
const pollinationsPromptLimit = 600

func (p *PollinationsProvider) Generate(_ context.Context, req ImageRequest) (string, error) {
	prompt := strings.Join(strings.Fields(req.Prompt), " ")
	if prompt == "" {
		return "", fmt.Errorf("scene %d has no image prompt", req.Index)
	}
	if len(prompt) > pollinationsPromptLimit {
		prompt = prompt[:pollinationsPromptLimit]
	}
	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		width, height = 1024, 1024
	}

	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		p.baseURL, url.PathEscape(prompt), width, height, sceneSeed(req)), nil
}

// sceneSeed is deterministic per campaign and scene so retries hit the
// same cached image.
func sceneSeed(req ImageRequest) uint32 {
	h := fnv.New32a()
	h.Write(req.CampaignID[:])
	fmt.Fprintf(h, ":%d", req.Index)
	return h.Sum32() % 1_000_000
}
