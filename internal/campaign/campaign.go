// Package campaign turns a trend into a queued campaign. It is shared by the
// HTTP API and the trend scheduler.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxSceneCount caps scene_count on requests.
const MaxSceneCount = 12

var (
	ErrTrendRequired     = errors.New("trend is required")
	ErrInvalidSceneCount = fmt.Errorf("scene_count must be between 1 and %d", MaxSceneCount)
)

// Store is the persistence Creator needs; *db.DB satisfies it.
type Store interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	CreateJob(ctx context.Context, job *models.Job) error
	HasRecentCampaign(ctx context.Context, trend string) (bool, error)
}

// Queue accepts generation jobs; *queue.Queue satisfies it.
type Queue interface {
	EnqueueGenerateCampaign(ctx context.Context, campaignID, jobID uuid.UUID) error
}

// Defaults fill fields a request leaves unset.
type Defaults struct {
	BrandName   string
	SceneCount  int
	AutoPublish bool
}

type Creator struct {
	store    Store
	queue    Queue
	defaults Defaults
}

func NewCreator(store Store, q Queue, defaults Defaults) *Creator {
	if defaults.SceneCount <= 0 {
		defaults.SceneCount = 4
	}
	if defaults.BrandName == "" {
		defaults.BrandName = "Coca-Cola"
	}
	return &Creator{store: store, queue: q, defaults: defaults}
}

// Create classifies the trend and stores the campaign. Brand-unsafe trends
// are recorded as skipped and never queued.
func (c *Creator) Create(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	trend := strings.TrimSpace(req.Trend)
	if trend == "" {
		return nil, ErrTrendRequired
	}

	campaign := &models.Campaign{
		ID:          uuid.New(),
		Trend:       trend,
		Category:    services.ClassifyTrend(trend),
		Status:      models.CampaignStatusQueued,
		BrandName:   c.defaults.BrandName,
		SceneCount:  c.defaults.SceneCount,
		AutoPublish: c.defaults.AutoPublish,
	}
	if req.SceneCount != nil {
		if *req.SceneCount < 1 || *req.SceneCount > MaxSceneCount {
			return nil, ErrInvalidSceneCount
		}
		campaign.SceneCount = *req.SceneCount
	}
	if req.BrandName != nil && strings.TrimSpace(*req.BrandName) != "" {
		campaign.BrandName = strings.TrimSpace(*req.BrandName)
	}
	if req.AutoPublish != nil {
		campaign.AutoPublish = *req.AutoPublish
	}
	if campaign.Category == models.CategorySkip {
		campaign.Status = models.CampaignStatusSkipped
	}

	if err := c.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	logger := log.With().Str("campaign", campaign.ID.String()).Str("trend", trend).Str("category", string(campaign.Category)).Logger()
	if campaign.Status == models.CampaignStatusSkipped {
		logger.Info().Msg("trend skipped for brand safety")
		return campaign, nil
	}

	job := &models.Job{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		Type:       queue.TypeGenerateCampaign,
		Status:     models.JobStatusQueued,
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := c.queue.EnqueueGenerateCampaign(ctx, campaign.ID, job.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	logger.Info().Msg("campaign queued")
	return campaign, nil
}

// FromTrends queues up to limit campaigns from trends, skipping unsafe topics
// and topics that already had a campaign in the last day. It returns the
// campaigns it queued.
func (c *Creator) FromTrends(ctx context.Context, trends []string, limit int) ([]*models.Campaign, error) {
	var created []*models.Campaign
	for _, trend := range trends {
		if len(created) >= limit {
			break
		}
		if services.ClassifyTrend(trend) == models.CategorySkip {
			continue
		}
		recent, err := c.store.HasRecentCampaign(ctx, trend)
		if err != nil {
			return created, fmt.Errorf("failed to check recent campaigns: %w", err)
		}
		if recent {
			log.Debug().Str("trend", trend).Msg("trend already covered")
			continue
		}
		campaign, err := c.Create(ctx, models.CreateCampaignRequest{Trend: trend})
		if err != nil {
			return created, err
		}
		created = append(created, campaign)
	}
	return created, nil
}
