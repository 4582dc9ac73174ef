package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/rs/zerolog/log"
)

// CampaignCopy is the creative output for one trend.
type CampaignCopy struct {
	HeroConcept string `json:"hero_concept"`
	Slogan      string `json:"slogan"`
	SocialPost  string `json:"social_post"`
	Moodboard   string `json:"moodboard"`
	Source      string `json:"-"` // copywriter that produced it
}

// Validate reports the fields left empty.
func (c *CampaignCopy) Validate() error {
	var missing []string
	if strings.TrimSpace(c.HeroConcept) == "" {
		missing = append(missing, "hero_concept")
	}
	if strings.TrimSpace(c.Slogan) == "" {
		missing = append(missing, "slogan")
	}
	if strings.TrimSpace(c.SocialPost) == "" {
		missing = append(missing, "social_post")
	}
	if strings.TrimSpace(c.Moodboard) == "" {
		missing = append(missing, "moodboard")
	}
	if len(missing) > 0 {
		return fmt.Errorf("campaign copy missing fields: %v", missing)
	}
	return nil
}

// Copywriter produces campaign copy for a trend.
type Copywriter interface {
	Name() string
	Generate(ctx context.Context, trend string, category models.Category) (*CampaignCopy, error)
}

// ChainCopywriter tries each copywriter in order and returns the first
// valid result.
type ChainCopywriter struct {
	writers []Copywriter
}

func NewChainCopywriter(writers ...Copywriter) *ChainCopywriter {
	return &ChainCopywriter{writers: writers}
}

func (c *ChainCopywriter) Name() string { return "chain" }

func (c *ChainCopywriter) Generate(ctx context.Context, trend string, category models.Category) (*CampaignCopy, error) {
	var errs []error
	for _, w := range c.writers {
		out, err := w.Generate(ctx, trend, category)
		if err == nil {
			err = out.Validate()
		}
		if err != nil {
			log.Warn().Err(err).Str("copywriter", w.Name()).Str("trend", trend).Msg("copywriter failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		if out.Source == "" {
			out.Source = w.Name()
		}
		return out, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no copywriters configured")
	}
	return nil, errors.Join(errs...)
}

// TemplateCopywriter fills fixed templates with the trend. It needs no
// network and never fails, so it ends every chain.
type TemplateCopywriter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewTemplateCopywriter(seed int64) *TemplateCopywriter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TemplateCopywriter{rng: rand.New(rand.NewSource(seed))}
}

func (t *TemplateCopywriter) Name() string { return "template" }

var (
	templateSlogans = []string{
		"Taste the Feeling",
		"Open Happiness",
		"Real Magic Moments",
		"Share a Coke, Share Joy",
		"Together We Spark",
		"Refresh Your World",
		"The Pause That Refreshes",
	}

	templateConcepts = map[models.Category][]string{
		models.CategoryGeneral: {
			"A cinematic moment where %s brings people together, sharing laughter and connection over ice-cold Coca-Cola. Friends gather, families celebrate and strangers become friends. Coca-Cola turns ordinary moments into Real Magic.",
			"In a vibrant scene inspired by %s, people find common ground through shared refreshment. Bottles pass from hand to hand as a symbol of connection. It's about the moments that matter, made magical.",
		},
		models.CategorySports: {
			"The energy of %s fills the air as fans celebrate together, Coca-Cola in hand. Every game-winning moment becomes a shared victory. Real Magic happens when passion meets refreshment.",
			"In the electric atmosphere of %s, fans unite in celebration with high-fives, hugs and ice-cold Coca-Cola. It's the community that forms around shared passion.",
		},
		models.CategoryEntertainment: {
			"As %s captivates audiences, friends gather to experience it together, sharing reactions, laughter and ice-cold Coca-Cola. The Real Magic of shared experiences.",
			"The excitement of %s is the perfect moment for connection. People watch, discuss and celebrate with Coca-Cola as the refreshing companion.",
		},
	}

	templateSocialPosts = []string{
		"🎉 %s is here, and so are the moments that matter. Share a Coke, share the magic.",
		"✨ When %s brings us together, Coca-Cola makes it Real Magic. Here's to connection and refreshment. 🥤",
		"🥤 %s + Coca-Cola = pure joy. Gather your people, open a Coke and taste the feeling.",
		"💫 %s reminds us that life's best moments are shared, and even better with an ice-cold Coca-Cola.",
	}

	templateMoodboards = map[models.Category]string{
		models.CategoryGeneral:       "Warm golden hour lighting, diverse groups laughing together, Coca-Cola red (#F40009) and crisp white, cinematic wide shots mixed with intimate close-ups, soft bokeh, authentic moments",
		models.CategorySports:        "Dynamic energy, stadium or viewing party, fans in team colors, Coca-Cola red popping against the action, celebration moments, vibrant lighting",
		models.CategoryEntertainment: "Intimate gathering spaces, warm ambient lighting, people reacting and sharing, Coca-Cola as centerpiece, cinematic composition, authentic joy",
	}
)

func (t *TemplateCopywriter) Generate(_ context.Context, trend string, category models.Category) (*CampaignCopy, error) {
	concepts, ok := templateConcepts[category]
	if !ok {
		concepts = templateConcepts[models.CategoryGeneral]
	}
	moodboard, ok := templateMoodboards[category]
	if !ok {
		moodboard = templateMoodboards[models.CategoryGeneral]
	}

	t.mu.Lock()
	concept := concepts[t.rng.Intn(len(concepts))]
	post := templateSocialPosts[t.rng.Intn(len(templateSocialPosts))]
	fallbackSlogan := templateSlogans[t.rng.Intn(len(templateSlogans))]
	t.mu.Unlock()

	return &CampaignCopy{
		HeroConcept: fmt.Sprintf(concept, trend),
		Slogan:      templateSlogan(trend, category, fallbackSlogan),
		SocialPost:  fmt.Sprintf(post, trend),
		Moodboard:   moodboard + ", " + trend + "-specific elements and atmosphere",
		Source:      t.Name(),
	}, nil
}

// templateSlogan picks a trend-specific slogan when the trend names a known
// occasion, otherwise fallback.
func templateSlogan(trend string, category models.Category, fallback string) string {
	t := strings.ToLower(trend)
	switch {
	case strings.Contains(t, "bowl"):
		return "Taste the Victory"
	case strings.Contains(t, "valentine") || strings.Contains(t, "love"):
		return "Share the Love"
	case strings.Contains(t, "music") || strings.Contains(t, "festival") || strings.Contains(t, "concert"):
		return "Feel the Beat"
	case category == models.CategorySports || strings.Contains(t, "game"):
		return "Taste the Win"
	default:
		return fallback
	}
}
