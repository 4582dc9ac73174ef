package worker

import (
	"context"
	"fmt"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/google/uuid"
)

// handlePublishPost posts the campaign to Instagram as a reel (the rendered
// video) or an image (the first scene image) and records it in post history.
func (w *Worker) handlePublishPost(ctx context.Context, job *queue.Job) error {
	campaign, err := w.store.GetCampaign(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to get campaign: %w", err)
	}
	if w.publisher == nil || !w.publisher.Enabled() {
		return w.fail(ctx, campaign.ID, "publish_disabled", fmt.Errorf("instagram publishing is not configured"))
	}

	mediaType := job.MediaType()
	mediaURL, err := w.mediaURL(campaign, mediaType)
	if err != nil {
		return w.fail(ctx, campaign.ID, "publish_failed", err)
	}

	caption := services.FormatCaption(deref(campaign.Slogan), deref(campaign.SocialPost), campaign.Trend)

	published, err := w.publisher.Publish(ctx, mediaURL, caption, mediaType)
	if err != nil {
		return w.fail(ctx, campaign.ID, "publish_failed", fmt.Errorf("failed to publish: %w", err))
	}

	post := &models.Post{
		ID:         uuid.New(),
		PostID:     published.PostID,
		CampaignID: &campaign.ID,
		Trend:      campaign.Trend,
		Caption:    services.PostSummary(caption),
		MediaURL:   mediaURL,
		MediaType:  mediaType,
		Status:     models.PostStatusActive,
	}
	if published.Permalink != "" {
		post.Permalink = strPtr(published.Permalink)
	}
	if err := w.store.SavePost(ctx, post); err != nil {
		return fmt.Errorf("post %s published but not saved: %w", published.PostID, err)
	}

	return w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusCompleted)
}

func (w *Worker) mediaURL(c *models.Campaign, mediaType string) (string, error) {
	if mediaType == services.MediaTypeReels {
		if c.VideoPath == nil {
			return "", fmt.Errorf("campaign has no rendered video")
		}
		return w.blobs.GetPublicURL(*c.VideoPath), nil
	}
	for _, u := range c.ImageURLs {
		if u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("campaign has no images")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
