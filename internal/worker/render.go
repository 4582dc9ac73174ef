package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/bobarin/trendcast/internal/video"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// handleRenderVideo assembles the campaign video from its scene images and
// narration, uploads it and, for auto-publish campaigns, queues the reel.
func (w *Worker) handleRenderVideo(ctx context.Context, job *queue.Job) error {
	campaign, err := w.store.GetCampaign(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign.NarrationPath == nil {
		return w.fail(ctx, campaign.ID, "narration_missing", fmt.Errorf("campaign has no narration"))
	}

	narration, err := w.blobs.Download(ctx, *campaign.NarrationPath)
	if err != nil {
		return w.fail(ctx, campaign.ID, "narration_missing", fmt.Errorf("failed to download narration: %w", err))
	}

	slogan := ""
	if campaign.Slogan != nil {
		slogan = *campaign.Slogan
	}

	clipLocators, cleanup, err := w.downloadClips(ctx, campaign)
	if err != nil {
		return w.fail(ctx, campaign.ID, "clips_missing", err)
	}
	defer cleanup()

	result, err := w.renderer.Render(ctx, video.Job{
		ID:            campaign.ID.String(),
		ImageLocators: campaign.ImageURLs,
		ClipLocators:  clipLocators,
		SceneCount:    campaign.SceneCount,
		Narration:     narration,
		BrandName:     campaign.BrandName,
		Slogan:        slogan,
	})
	if err != nil {
		return w.fail(ctx, campaign.ID, renderErrorCode(err), fmt.Errorf("render failed: %w", err))
	}
	defer func() {
		if err := os.Remove(result.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", result.Path).Msg("failed to remove rendered video")
		}
	}()

	videoPath := w.blobs.CampaignPath(campaign.ID, "video.mp4")
	if err := w.uploadWithLimit(ctx, "video", func() error {
		return w.blobs.UploadFile(ctx, videoPath, result.Path, "video/mp4")
	}); err != nil {
		return w.fail(ctx, campaign.ID, "upload_failed", fmt.Errorf("failed to upload video: %w", err))
	}

	var size int64
	if info, err := os.Stat(result.Path); err == nil {
		size = info.Size()
	}
	w.recordAsset(ctx, campaign.ID, models.AssetTypeVideo, videoPath, "video/mp4", size)

	if err := w.store.SetCampaignVideo(ctx, campaign.ID, videoPath, renderStats(result)); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}

	if campaign.AutoPublish && w.publisher != nil && w.publisher.Enabled() {
		if err := w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusPublishing); err != nil {
			return fmt.Errorf("failed to update campaign status: %w", err)
		}
		return w.enqueue(ctx, campaign.ID, queue.TypePublishPost, func(jobID uuid.UUID) error {
			return w.queue.EnqueuePublishPost(ctx, campaign.ID, jobID, services.MediaTypeReels)
		})
	}

	return w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusCompleted)
}

// downloadClips copies the campaign's stored scene clips to local files,
// which is what the renderer reads clips from. A clip that cannot be
// downloaded leaves an empty slot and the scene falls back to its image.
func (w *Worker) downloadClips(ctx context.Context, campaign *models.Campaign) ([]string, func(), error) {
	noop := func() {}
	if len(campaign.ClipPaths) == 0 {
		return nil, noop, nil
	}

	dir, err := os.MkdirTemp("", "clips_"+campaign.ID.String())
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create clip dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove clip dir")
		}
	}

	locators := make([]string, len(campaign.ClipPaths))
	for i, p := range campaign.ClipPaths {
		if p == "" {
			continue
		}
		data, err := w.blobs.Download(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("campaign", campaign.ID.String()).Int("scene", i).Msg("clip download failed")
			continue
		}
		local := filepath.Join(dir, fmt.Sprintf("clip%02d.mp4", i))
		if err := os.WriteFile(local, data, 0644); err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("failed to write clip: %w", err)
		}
		locators[i] = local
	}
	return locators, cleanup, nil
}

// renderErrorCode maps pipeline failures to the campaign error_code column.
func renderErrorCode(err error) string {
	switch {
	case errors.Is(err, video.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, video.ErrNarrationUnreadable):
		return "narration_unreadable"
	case errors.Is(err, video.ErrEnvironmentUnavailable):
		return "environment_unavailable"
	case errors.Is(err, video.ErrEncodingFailure):
		return "encoding_failed"
	default:
		return "render_failed"
	}
}

func renderStats(r *video.Result) models.JSONB {
	return models.JSONB{
		"duration":     r.VideoDuration,
		"narration":    r.Plan.NarrationDuration,
		"intro":        r.Plan.IntroDuration,
		"per_scene":    r.Plan.PerSceneDuration,
		"outro":        r.Plan.OutroDuration,
		"degenerate":   r.Plan.Degenerate,
		"scenes":       len(r.Timeline.Main),
		"placeholders": r.Placeholders(),
		"audio":        string(r.Audio.Action),
	}
}
