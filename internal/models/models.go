package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type CampaignStatus string

const (
	CampaignStatusQueued     CampaignStatus = "queued"
	CampaignStatusGenerating CampaignStatus = "generating"
	CampaignStatusRendering  CampaignStatus = "rendering"
	CampaignStatusPublishing CampaignStatus = "publishing"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusSkipped    CampaignStatus = "skipped"
	CampaignStatusFailed     CampaignStatus = "failed"
)

// Category is the content-safety label assigned to a trend.
type Category string

const (
	CategorySkip          Category = "skip"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryGeneral       Category = "general"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

type PostStatus string

const (
	PostStatusActive  PostStatus = "active"
	PostStatusDeleted PostStatus = "deleted"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Campaign struct {
	ID            uuid.UUID      `json:"id"`
	Trend         string         `json:"trend"`
	Category      Category       `json:"category"`
	Status        CampaignStatus `json:"status"`
	BrandName     string         `json:"brand_name"`
	SceneCount    int            `json:"scene_count"`
	AutoPublish   bool           `json:"auto_publish"`
	HeroConcept   *string        `json:"hero_concept,omitempty"`
	Slogan        *string        `json:"slogan,omitempty"`
	SocialPost    *string        `json:"social_post,omitempty"`
	Moodboard     *string        `json:"moodboard,omitempty"`
	CopySource    *string        `json:"copy_source,omitempty"` // "openai", "groq" or "template"
	ImageURLs     []string       `json:"image_urls,omitempty"`
	ClipPaths     []string       `json:"clip_paths,omitempty"`     // storage paths, "" where a scene has no clip
	NarrationPath *string        `json:"narration_path,omitempty"` // storage path
	VideoPath     *string        `json:"video_path,omitempty"`     // storage path
	RenderStats   JSONB          `json:"render_stats,omitempty"`
	ErrorCode     *string        `json:"error_code,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type AssetType string

const (
	AssetTypeNarration AssetType = "narration"
	AssetTypeClip      AssetType = "clip"
	AssetTypeVideo     AssetType = "video"
)

// Asset is one object the pipeline uploaded to storage for a campaign.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	Type        AssetType `json:"type"`
	StoragePath string    `json:"storage_path"`
	ContentType string    `json:"content_type"`
	ByteSize    int64     `json:"byte_size"`
	CreatedAt   time.Time `json:"created_at"`
}

type AssetResponse struct {
	Asset
	URL string `json:"url"`
}

// Post is one published Instagram media item.
type Post struct {
	ID         uuid.UUID  `json:"id"`
	PostID     string     `json:"post_id"` // Instagram media ID
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	Trend      string     `json:"trend"`
	Caption    string     `json:"caption"` // first 200 characters
	MediaURL   string     `json:"media_url"`
	MediaType  string     `json:"media_type"` // "IMAGE" or "REELS"
	Permalink  *string    `json:"permalink,omitempty"`
	Status     PostStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PostInsights is the engagement snapshot for a post.
type PostInsights struct {
	PostID         string  `json:"post_id"`
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Reach          int     `json:"reach"`
	Impressions    int     `json:"impressions"`
	Engagement     int     `json:"engagement"`
	EngagementRate float64 `json:"engagement_rate"` // percent of reach
	Permalink      string  `json:"permalink,omitempty"`
	Deleted        bool    `json:"deleted"`
}

// DTOs for API responses
type CampaignResponse struct {
	Campaign
	VideoURL     *string `json:"video_url,omitempty"`
	NarrationURL *string `json:"narration_url,omitempty"`
}

type ListCampaignsResponse struct {
	Campaigns []Campaign `json:"campaigns"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type CreateCampaignRequest struct {
	Trend       string  `json:"trend"`
	SceneCount  *int    `json:"scene_count,omitempty"`  // Default: env SCENE_COUNT
	BrandName   *string `json:"brand_name,omitempty"`   // Default: env BRAND_NAME
	AutoPublish *bool   `json:"auto_publish,omitempty"` // Default: env AUTO_PUBLISH
}

type CreateCampaignResponse struct {
	CampaignID uuid.UUID      `json:"campaign_id"`
	Status     CampaignStatus `json:"status"`
	Category   Category       `json:"category"`
}

type TrendItem struct {
	Topic    string   `json:"topic"`
	Category Category `json:"category"`
}

type TrendsResponse struct {
	Trends []TrendItem `json:"trends"`
}

type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}
