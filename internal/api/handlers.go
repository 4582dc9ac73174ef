package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bobarin/trendcast/internal/campaign"
	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store is the persistence the API reads; *db.DB satisfies it.
type Store interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, status string, limit, offset int) ([]models.Campaign, error)
	CountCampaigns(ctx context.Context, status string) (int, error)
	GetCampaignJobs(ctx context.Context, campaignID uuid.UUID) ([]models.Job, error)
	GetCampaignAssets(ctx context.Context, campaignID uuid.UUID) ([]models.Asset, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error
	CreateJob(ctx context.Context, job *models.Job) error
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	MarkPostDeleted(ctx context.Context, postID string) error
}

// Creator queues new campaigns; *campaign.Creator satisfies it.
type Creator interface {
	Create(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error)
}

// Queue accepts publish jobs; *queue.Queue satisfies it.
type Queue interface {
	EnqueuePublishPost(ctx context.Context, campaignID, jobID uuid.UUID, mediaType string) error
}

// Storage resolves object paths to URLs; *storage.Storage satisfies it.
type Storage interface {
	GetPublicURL(objectPath string) string
	GetSignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error)
}

// Instagram reads post insights; *services.InstagramService satisfies it.
type Instagram interface {
	Enabled() bool
	Insights(ctx context.Context, postID string) (*services.Insights, error)
}

type Handler struct {
	db        Store
	creator   Creator
	queue     Queue
	storage   Storage
	trends    services.TrendSource
	instagram Instagram
}

func NewHandler(database Store, creator Creator, q Queue, stor Storage, trends services.TrendSource, instagram Instagram) *Handler {
	return &Handler{
		db:        database,
		creator:   creator,
		queue:     q,
		storage:   stor,
		trends:    trends,
		instagram: instagram,
	}
}

// ListTrends handles GET /v1/trends
func (h *Handler) ListTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.trends.Trends(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to fetch trends")
		return
	}

	items := make([]models.TrendItem, 0, len(trends))
	for _, t := range trends {
		items = append(items, models.TrendItem{Topic: t, Category: services.ClassifyTrend(t)})
	}
	respondJSON(w, http.StatusOK, models.TrendsResponse{Trends: items})
}

// CreateCampaign handles POST /v1/campaigns
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.creator.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, campaign.ErrTrendRequired) || errors.Is(err, campaign.ErrInvalidSceneCount) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("trend", req.Trend).Msg("create campaign failed")
		respondError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	status := http.StatusCreated
	if c.Status == models.CampaignStatusSkipped {
		status = http.StatusOK
	}
	respondJSON(w, status, models.CreateCampaignResponse{
		CampaignID: c.ID,
		Status:     c.Status,
		Category:   c.Category,
	})
}

// ListCampaigns handles GET /v1/campaigns
// Query params:
//   - status: filter by campaign status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !validStatus(models.CampaignStatus(statusFilter)) {
		respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, generating, rendering, publishing, completed, skipped, failed")
		return
	}

	limit := queryInt(r, "limit", 20, 1)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0, 0)

	total, err := h.db.CountCampaigns(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count campaigns")
		return
	}

	campaigns, err := h.db.ListCampaigns(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	respondJSON(w, http.StatusOK, models.ListCampaignsResponse{
		Campaigns: campaigns,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

// GetCampaign handles GET /v1/campaigns/{id}
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}

	response := models.CampaignResponse{Campaign: *c}
	if c.VideoPath != nil {
		url := h.storage.GetPublicURL(*c.VideoPath)
		response.VideoURL = &url
	}
	if c.NarrationPath != nil {
		url := h.storage.GetPublicURL(*c.NarrationPath)
		response.NarrationURL = &url
	}

	respondJSON(w, http.StatusOK, response)
}

// GetCampaignDownload handles GET /v1/campaigns/{id}/download
func (h *Handler) GetCampaignDownload(w http.ResponseWriter, r *http.Request) {
	c, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}
	if c.VideoPath == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	// Signed URL valid for 1 hour
	signedURL, err := h.storage.GetSignedURL(r.Context(), *c.VideoPath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetCampaignJobs handles GET /v1/campaigns/{id}/debug/jobs
func (h *Handler) GetCampaignJobs(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	jobs, err := h.db.GetCampaignJobs(r.Context(), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// GetCampaignAssets handles GET /v1/campaigns/{id}/assets
func (h *Handler) GetCampaignAssets(w http.ResponseWriter, r *http.Request) {
	c, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}

	assets, err := h.db.GetCampaignAssets(r.Context(), c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get assets")
		return
	}

	response := make([]models.AssetResponse, 0, len(assets))
	for _, a := range assets {
		response = append(response, models.AssetResponse{Asset: a, URL: h.storage.GetPublicURL(a.StoragePath)})
	}
	respondJSON(w, http.StatusOK, response)
}

type publishRequest struct {
	MediaType string `json:"media_type"`
}

// PublishCampaign handles POST /v1/campaigns/{id}/publish
// Body (optional): {"media_type": "REELS" | "IMAGE"}, default REELS.
func (h *Handler) PublishCampaign(w http.ResponseWriter, r *http.Request) {
	if h.instagram == nil || !h.instagram.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Instagram publishing is not configured")
		return
	}

	c, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MediaType == "" {
		req.MediaType = services.MediaTypeReels
	}

	switch req.MediaType {
	case services.MediaTypeReels:
		if c.Status != models.CampaignStatusCompleted || c.VideoPath == nil {
			respondError(w, http.StatusConflict, "Campaign video is not ready")
			return
		}
	case services.MediaTypeImage:
		if len(c.ImageURLs) == 0 {
			respondError(w, http.StatusConflict, "Campaign has no images")
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "media_type must be REELS or IMAGE")
		return
	}

	job := &models.Job{
		ID:         uuid.New(),
		CampaignID: c.ID,
		Type:       queue.TypePublishPost,
		Status:     models.JobStatusQueued,
	}
	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}
	if err := h.db.UpdateCampaignStatus(r.Context(), c.ID, models.CampaignStatusPublishing); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update campaign")
		return
	}
	if err := h.queue.EnqueuePublishPost(r.Context(), c.ID, job.ID, req.MediaType); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"campaign_id": c.ID.String(),
		"job_id":      job.ID.String(),
		"status":      string(models.CampaignStatusPublishing),
	})
}

// ListPosts handles GET /v1/posts?limit=N
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1)
	if limit > 100 {
		limit = 100
	}

	posts, err := h.db.ListPosts(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list posts")
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	respondJSON(w, http.StatusOK, models.ListPostsResponse{Posts: posts})
}

// GetPostInsights handles GET /v1/posts/{id}/insights
// A post Instagram no longer has is marked deleted in history.
func (h *Handler) GetPostInsights(w http.ResponseWriter, r *http.Request) {
	if h.instagram == nil || !h.instagram.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "Instagram is not configured")
		return
	}

	postID := chi.URLParam(r, "id")
	if _, err := h.db.GetPost(r.Context(), postID); err != nil {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}

	insights, err := h.instagram.Insights(r.Context(), postID)
	if errors.Is(err, services.ErrPostDeleted) {
		if err := h.db.MarkPostDeleted(r.Context(), postID); err != nil {
			log.Warn().Err(err).Str("post_id", postID).Msg("failed to mark post deleted")
		}
		respondJSON(w, http.StatusOK, models.PostInsights{PostID: postID, Deleted: true})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("insights failed")
		respondError(w, http.StatusBadGateway, "Failed to fetch insights")
		return
	}

	respondJSON(w, http.StatusOK, models.PostInsights{
		PostID:         postID,
		Likes:          insights.Likes,
		Comments:       insights.Comments,
		Reach:          insights.Reach,
		Impressions:    insights.Impressions,
		Engagement:     insights.Engagement,
		EngagementRate: insights.EngagementRate,
		Permalink:      insights.Permalink,
	})
}

// DeletePost handles DELETE /v1/posts/{id}
// The Graph API cannot delete media, so this only removes the post from history.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if _, err := h.db.GetPost(r.Context(), postID); err != nil {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err := h.db.MarkPostDeleted(r.Context(), postID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) campaignFromPath(w http.ResponseWriter, r *http.Request) (*models.Campaign, bool) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid campaign ID")
		return nil, false
	}

	c, err := h.db.GetCampaign(r.Context(), campaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Campaign not found")
		return nil, false
	}
	return c, true
}

func validStatus(s models.CampaignStatus) bool {
	switch s {
	case models.CampaignStatusQueued, models.CampaignStatusGenerating,
		models.CampaignStatusRendering, models.CampaignStatusPublishing,
		models.CampaignStatusCompleted, models.CampaignStatusSkipped,
		models.CampaignStatusFailed:
		return true
	}
	return false
}

// queryInt parses an integer query parameter, falling back to def when it
// is missing, malformed or below min.
func queryInt(r *http.Request, key string, def, min int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < min {
		return def
	}
	return parsed
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
