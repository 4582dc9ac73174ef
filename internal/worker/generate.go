package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// handleGenerateCampaign writes the copy, then produces scene images and
// narration concurrently and hands the campaign to the render queue.
func (w *Worker) handleGenerateCampaign(ctx context.Context, job *queue.Job) error {
	campaign, err := w.store.GetCampaign(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to get campaign: %w", err)
	}
	logger := log.With().Str("campaign", campaign.ID.String()).Str("trend", campaign.Trend).Logger()

	if campaign.Category == models.CategorySkip {
		logger.Info().Msg("trend is not brand safe, skipping")
		return w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusSkipped)
	}

	if err := w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusGenerating); err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	cp, err := w.copywriter.Generate(ctx, campaign.Trend, campaign.Category)
	if err != nil {
		return w.fail(ctx, campaign.ID, "copy_failed", fmt.Errorf("failed to generate copy: %w", err))
	}
	if err := w.store.SetCampaignCopy(ctx, campaign.ID, cp.HeroConcept, cp.Slogan, cp.SocialPost, cp.Moodboard, cp.Source); err != nil {
		return fmt.Errorf("failed to save copy: %w", err)
	}
	logger.Info().Str("source", cp.Source).Str("slogan", cp.Slogan).Msg("copy generated")

	count := campaign.SceneCount
	if count <= 0 {
		count = 1
	}
	prompts := services.ScenePrompts(services.BuildImagePrompt(campaign.Trend, cp.Moodboard), count)

	// Each image goroutine writes only its own slot; narrationPath is
	// written by one goroutine and read after Wait.
	var (
		urls          = make([]string, count)
		mu            sync.Mutex
		failedImages  int
		narrationPath string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(count + 1)

	for i, prompt := range prompts {
		g.Go(func() error {
			url, err := w.images.Generate(gctx, services.ImageRequest{
				CampaignID: campaign.ID,
				Index:      i,
				Prompt:     prompt,
				Width:      w.opts.FrameWidth,
				Height:     w.opts.FrameHeight,
			})
			if err != nil {
				// A missing scene becomes a placeholder at render time.
				logger.Warn().Err(err).Int("scene", i).Msg("image generation failed")
				mu.Lock()
				failedImages++
				mu.Unlock()
				return nil
			}
			urls[i] = url
			return nil
		})
	}

	g.Go(func() error {
		script := services.NarrationScript(cp.Slogan, cp.HeroConcept)
		speech, err := w.tts.GenerateSpeech(gctx, script, services.NarrationStyle(string(campaign.Category)))
		if err != nil {
			return fmt.Errorf("failed to generate narration: %w", err)
		}
		path := w.blobs.CampaignPath(campaign.ID, "narration."+speech.Format)
		contentType := services.AudioContentType(speech.Format)
		if err := w.uploadWithLimit(gctx, "narration", func() error {
			return w.blobs.Upload(gctx, path, speech.AudioData, contentType)
		}); err != nil {
			return fmt.Errorf("failed to upload narration: %w", err)
		}
		narrationPath = path
		w.recordAsset(gctx, campaign.ID, models.AssetTypeNarration, path, contentType, int64(len(speech.AudioData)))
		return nil
	})

	if err := g.Wait(); err != nil {
		return w.fail(ctx, campaign.ID, "narration_failed", err)
	}
	if failedImages == count {
		return w.fail(ctx, campaign.ID, "images_failed", fmt.Errorf("all %d scene images failed", count))
	}

	if err := w.store.SetCampaignImages(ctx, campaign.ID, urls); err != nil {
		return fmt.Errorf("failed to save images: %w", err)
	}
	if w.animator != nil {
		clips := w.animateScenes(ctx, campaign.ID, prompts, urls)
		if err := w.store.SetCampaignClips(ctx, campaign.ID, clips); err != nil {
			return fmt.Errorf("failed to save clips: %w", err)
		}
	}
	if err := w.store.SetCampaignNarration(ctx, campaign.ID, narrationPath); err != nil {
		return fmt.Errorf("failed to save narration: %w", err)
	}
	if err := w.store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusRendering); err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	logger.Info().Int("images", count-failedImages).Msg("assets generated")
	return w.enqueue(ctx, campaign.ID, queue.TypeRenderVideo, func(jobID uuid.UUID) error {
		return w.queue.EnqueueRenderVideo(ctx, campaign.ID, jobID)
	})
}

// maxConcurrentClips bounds in-flight Veo operations per campaign.
const maxConcurrentClips = 2

// animateScenes turns each generated scene image into a clip. A scene whose
// clip fails keeps an empty path and is animated from its image at render time.
func (w *Worker) animateScenes(ctx context.Context, campaignID uuid.UUID, prompts, imageURLs []string) []string {
	clips := make([]string, len(imageURLs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentClips)
	for i, imageURL := range imageURLs {
		if imageURL == "" {
			continue
		}
		g.Go(func() error {
			path, err := w.animator.Animate(ctx, services.ClipRequest{
				CampaignID: campaignID,
				Index:      i,
				ImageURL:   imageURL,
				Prompt:     prompts[i],
				Width:      w.opts.FrameWidth,
				Height:     w.opts.FrameHeight,
			})
			if err != nil {
				log.Warn().Err(err).Str("campaign", campaignID.String()).Int("scene", i).Msg("clip generation failed")
				return nil
			}
			clips[i] = path
			w.recordAsset(ctx, campaignID, models.AssetTypeClip, path, "video/mp4", 0)
			return nil
		})
	}
	_ = g.Wait()

	return clips
}
