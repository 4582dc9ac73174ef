package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueGenerateCampaign = "queue:generate_campaign"
	QueueRenderVideo      = "queue:render_video"
	QueuePublishPost      = "queue:publish_post"
)

const (
	TypeGenerateCampaign = "generate_campaign"
	TypeRenderVideo      = "render_video"
	TypePublishPost      = "publish_post"
)

type Queue struct {
	client *redis.Client
}

type Job struct {
	ID         uuid.UUID              `json:"id"`
	Type       string                 `json:"type"`
	CampaignID uuid.UUID              `json:"campaign_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	return decodeJob(result)
}

func decodeJob(result []string) (*Job, error) {
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueGenerateCampaign enqueues copy, image and narration generation
func (q *Queue) EnqueueGenerateCampaign(ctx context.Context, campaignID, jobID uuid.UUID) error {
	return q.Enqueue(ctx, QueueGenerateCampaign, &Job{
		ID:         jobID,
		Type:       TypeGenerateCampaign,
		CampaignID: campaignID,
	})
}

// EnqueueRenderVideo enqueues the video assembly for a generated campaign
func (q *Queue) EnqueueRenderVideo(ctx context.Context, campaignID, jobID uuid.UUID) error {
	return q.Enqueue(ctx, QueueRenderVideo, &Job{
		ID:         jobID,
		Type:       TypeRenderVideo,
		CampaignID: campaignID,
	})
}

// EnqueuePublishPost enqueues an Instagram publish. mediaType is "IMAGE" or "REELS".
func (q *Queue) EnqueuePublishPost(ctx context.Context, campaignID, jobID uuid.UUID, mediaType string) error {
	return q.Enqueue(ctx, QueuePublishPost, &Job{
		ID:         jobID,
		Type:       TypePublishPost,
		CampaignID: campaignID,
		Data:       map[string]interface{}{"media_type": mediaType},
	})
}

// MediaType reads the publish media type, defaulting to REELS.
func (j *Job) MediaType() string {
	if v, ok := j.Data["media_type"].(string); ok && v != "" {
		return v
	}
	return "REELS"
}
