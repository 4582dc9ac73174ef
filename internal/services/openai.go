package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const copySystemPrompt = `You are a Coca-Cola global creative strategist working on the 'Real Magic' brand platform.

Tone guidelines:
- Joyful, inclusive, uplifting, optimistic.
- Human-first, connection-driven storytelling.
- Avoid politics, violence, controversy, or tragedy.
- Keep everything brand-safe and family-friendly.

Creative rules:
- Focus on how Coca-Cola sparks shared moments and emotional connection.
- Concepts should feel warm, modern, and cinematic.
- Slogans should be short, punchy, and feel like a Coca-Cola line.
- Every concept must be specific to the given trend, never generic.`

// OpenAICopywriter generates copy through any OpenAI-compatible chat API.
// Groq is served by the same client pointed at its base URL.
type OpenAICopywriter struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAICopywriter talks to api.openai.com.
func NewOpenAICopywriter(apiKey, model string) *OpenAICopywriter {
	return &OpenAICopywriter{
		name:        "openai",
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: 1.0,
	}
}

// NewGroqCopywriter talks to Groq's OpenAI-compatible endpoint.
func NewGroqCopywriter(apiKey, model, baseURL string) *OpenAICopywriter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAICopywriter{
		name:        "groq",
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.9,
	}
}

func (s *OpenAICopywriter) Name() string { return s.name }

// Generate asks for the four copy fields in JSON mode.
func (s *OpenAICopywriter) Generate(ctx context.Context, trend string, category models.Category) (*CampaignCopy, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: copySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildCopyPrompt(trend, category)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", s.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", s.name)
	}

	return parseCampaignCopy(resp.Choices[0].Message.Content, s.name)
}

func parseCampaignCopy(raw, source string) (*CampaignCopy, error) {
	var out CampaignCopy
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Debug().Str("copywriter", source).Str("raw", truncate(raw, 2000)).Msg("unparseable copy response")
		return nil, fmt.Errorf("failed to parse campaign copy: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.Source = source
	return &out, nil
}

func buildCopyPrompt(trend string, category models.Category) string {
	return fmt.Sprintf(`Create a Coca-Cola 'Real Magic' campaign specifically for: %[1]s

Category: %[2]s

Every element must reflect what makes %[1]s unique.

Respond ONLY in valid JSON using this structure:

{
  "hero_concept": "2-3 sentence cinematic campaign idea specific to %[1]s.",
  "slogan": "Short tagline (max 7 words) that evokes %[1]s.",
  "social_post": "Instagram caption (max 40 words) that mentions %[1]s.",
  "moodboard": "Comma-separated visual keywords specific to %[1]s: colors, settings, objects, people, camera styles."
}`, trend, category)
}
