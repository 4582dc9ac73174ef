package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/bobarin/trendcast/internal/video"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store is the persistence the worker needs; *db.DB satisfies it.
type Store interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error
	UpdateCampaignError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error
	SetCampaignCopy(ctx context.Context, id uuid.UUID, heroConcept, slogan, socialPost, moodboard, source string) error
	SetCampaignImages(ctx context.Context, id uuid.UUID, urls []string) error
	SetCampaignClips(ctx context.Context, id uuid.UUID, paths []string) error
	SetCampaignNarration(ctx context.Context, id uuid.UUID, path string) error
	SetCampaignVideo(ctx context.Context, id uuid.UUID, path string, stats models.JSONB) error
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
	SavePost(ctx context.Context, p *models.Post) error
	CreateAsset(ctx context.Context, asset *models.Asset) error
}

// Queue is the job queue; *queue.Queue satisfies it.
type Queue interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
	EnqueueRenderVideo(ctx context.Context, campaignID, jobID uuid.UUID) error
	EnqueuePublishPost(ctx context.Context, campaignID, jobID uuid.UUID, mediaType string) error
}

// Blobs is object storage; *storage.Storage satisfies it.
type Blobs interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	UploadFile(ctx context.Context, objectPath, localPath, contentType string) error
	Download(ctx context.Context, objectPath string) ([]byte, error)
	GetPublicURL(objectPath string) string
	CampaignPath(campaignID uuid.UUID, filename string) string
}

// Renderer assembles the campaign video; *video.Renderer satisfies it.
type Renderer interface {
	Render(ctx context.Context, job video.Job) (*video.Result, error)
}

// Publisher posts media to Instagram; *services.InstagramService satisfies it.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, mediaURL, caption, mediaType string) (*services.PublishResult, error)
}

// Options tunes the worker.
type Options struct {
	FrameWidth  int
	FrameHeight int
	// MaxUploads bounds concurrent storage uploads across all handlers.
	MaxUploads int
	// DequeueTimeout is the BLPOP timeout per poll.
	DequeueTimeout time.Duration
}

type Worker struct {
	store      Store
	queue      Queue
	blobs      Blobs
	copywriter services.Copywriter
	images     services.ImageProvider
	animator   services.ClipAnimator
	tts        services.TTSService
	renderer   Renderer
	publisher  Publisher
	opts       Options
	uploadSem  chan struct{}
}

func New(
	store Store,
	q Queue,
	blobs Blobs,
	copywriter services.Copywriter,
	images services.ImageProvider,
	animator services.ClipAnimator,
	tts services.TTSService,
	renderer Renderer,
	publisher Publisher,
	opts Options,
) *Worker {
	if opts.MaxUploads <= 0 {
		opts.MaxUploads = 4
	}
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = 5 * time.Second
	}
	return &Worker{
		store:      store,
		queue:      q,
		blobs:      blobs,
		copywriter: copywriter,
		images:     images,
		animator:   animator,
		tts:        tts,
		renderer:   renderer,
		publisher:  publisher,
		opts:       opts,
		uploadSem:  make(chan struct{}, opts.MaxUploads),
	}
}

// uploadWithLimit runs fn once an upload slot is free.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Debug().Str("upload", label).Msg("uploading")
	return fn()
}

// Start consumes all queues until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Info().Int("concurrency", concurrency).Msg("worker started")

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateCampaign, w.handleGenerateCampaign)
		go w.processQueue(ctx, queue.QueueRenderVideo, w.handleRenderVideo)
		go w.processQueue(ctx, queue.QueuePublishPost, w.handlePublishPost)
	}

	<-ctx.Done()
	log.Info().Msg("worker shutting down")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, queueName, w.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("queue", queueName).Msg("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.run(ctx, job, handler)
	}
}

// run executes one job and records its outcome.
func (w *Worker) run(ctx context.Context, job *queue.Job, handler func(context.Context, *queue.Job) error) {
	logger := log.With().Str("job", job.ID.String()).Str("type", job.Type).Str("campaign", job.CampaignID.String()).Logger()
	logger.Info().Msg("processing job")

	if err := w.store.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		logger.Warn().Err(err).Msg("failed to update job status")
	}

	if err := handler(ctx, job); err != nil {
		logger.Error().Err(err).Msg("job failed")
		if err := w.store.UpdateJobError(ctx, job.ID, err.Error()); err != nil {
			logger.Warn().Err(err).Msg("failed to record job error")
		}
		return
	}

	logger.Info().Msg("job succeeded")
	if err := w.store.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded); err != nil {
		logger.Warn().Err(err).Msg("failed to update job status")
	}
}

// enqueue records a job row and pushes it onto its queue.
func (w *Worker) enqueue(ctx context.Context, campaignID uuid.UUID, jobType string, push func(jobID uuid.UUID) error) error {
	job := &models.Job{
		ID:         uuid.New(),
		CampaignID: campaignID,
		Type:       jobType,
		Status:     models.JobStatusQueued,
	}
	if err := w.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create %s job: %w", jobType, err)
	}
	if err := push(job.ID); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", jobType, err)
	}
	return nil
}

// fail marks the campaign failed and returns err for the job record.
func (w *Worker) fail(ctx context.Context, campaignID uuid.UUID, code string, err error) error {
	if uerr := w.store.UpdateCampaignError(ctx, campaignID, code, err.Error()); uerr != nil {
		log.Warn().Err(uerr).Str("campaign", campaignID.String()).Msg("failed to record campaign error")
	}
	return err
}

// recordAsset logs an uploaded object. A missing record does not fail the job.
func (w *Worker) recordAsset(ctx context.Context, campaignID uuid.UUID, assetType models.AssetType, path, contentType string, size int64) {
	asset := &models.Asset{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		Type:        assetType,
		StoragePath: path,
		ContentType: contentType,
		ByteSize:    size,
	}
	if err := w.store.CreateAsset(ctx, asset); err != nil {
		log.Warn().Err(err).Str("campaign", campaignID.String()).Str("path", path).Msg("failed to record asset")
	}
}

func strPtr(s string) *string {
	return &s
}
