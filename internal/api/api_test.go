package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobarin/trendcast/internal/campaign"
	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/google/uuid"
)

type stubStore struct {
	campaigns map[uuid.UUID]*models.Campaign
	posts     map[string]*models.Post
	assets    map[uuid.UUID][]models.Asset
	jobs      []*models.Job
	deleted   []string
}

func newStubStore() *stubStore {
	return &stubStore{
		campaigns: map[uuid.UUID]*models.Campaign{},
		posts:     map[string]*models.Post{},
		assets:    map[uuid.UUID][]models.Asset{},
	}
}

func (s *stubStore) GetCampaign(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign not found")
	}
	return c, nil
}

func (s *stubStore) ListCampaigns(_ context.Context, status string, limit, offset int) ([]models.Campaign, error) {
	var out []models.Campaign
	for _, c := range s.campaigns {
		if status == "" || string(c.Status) == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubStore) CountCampaigns(ctx context.Context, status string) (int, error) {
	list, _ := s.ListCampaigns(ctx, status, 0, 0)
	return len(list), nil
}

func (s *stubStore) GetCampaignJobs(_ context.Context, _ uuid.UUID) ([]models.Job, error) {
	return nil, nil
}

func (s *stubStore) GetCampaignAssets(_ context.Context, id uuid.UUID) ([]models.Asset, error) {
	return s.assets[id], nil
}

func (s *stubStore) UpdateCampaignStatus(_ context.Context, id uuid.UUID, status models.CampaignStatus) error {
	s.campaigns[id].Status = status
	return nil
}

func (s *stubStore) CreateJob(_ context.Context, job *models.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubStore) ListPosts(_ context.Context, _ int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range s.posts {
		if p.Status == models.PostStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubStore) GetPost(_ context.Context, postID string) (*models.Post, error) {
	p, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post not found")
	}
	return p, nil
}

func (s *stubStore) MarkPostDeleted(_ context.Context, postID string) error {
	s.posts[postID].Status = models.PostStatusDeleted
	s.deleted = append(s.deleted, postID)
	return nil
}

type stubCreator struct {
	err error
	got models.CreateCampaignRequest
}

func (c *stubCreator) Create(_ context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	c.got = req
	if c.err != nil {
		return nil, c.err
	}
	category := services.ClassifyTrend(req.Trend)
	status := models.CampaignStatusQueued
	if category == models.CategorySkip {
		status = models.CampaignStatusSkipped
	}
	return &models.Campaign{ID: uuid.New(), Trend: req.Trend, Category: category, Status: status}, nil
}

type stubQueue struct {
	mediaTypes []string
}

func (q *stubQueue) EnqueuePublishPost(_ context.Context, _, _ uuid.UUID, mediaType string) error {
	q.mediaTypes = append(q.mediaTypes, mediaType)
	return nil
}

type stubStorage struct{}

func (stubStorage) GetPublicURL(p string) string { return "https://cdn.test/" + p }

func (stubStorage) GetSignedURL(_ context.Context, p string, _ int) (string, error) {
	return "https://cdn.test/signed/" + p + "?token=t", nil
}

type stubTrends []string

func (s stubTrends) Trends(context.Context) ([]string, error) { return s, nil }

type stubInstagram struct {
	enabled  bool
	insights *services.Insights
	err      error
}

func (s *stubInstagram) Enabled() bool { return s.enabled }

func (s *stubInstagram) Insights(context.Context, string) (*services.Insights, error) {
	return s.insights, s.err
}

type fixture struct {
	store     *stubStore
	creator   *stubCreator
	queue     *stubQueue
	instagram *stubInstagram
	router    http.Handler
}

func newFixture(apiKey string) *fixture {
	f := &fixture{
		store:     newStubStore(),
		creator:   &stubCreator{},
		queue:     &stubQueue{},
		instagram: &stubInstagram{enabled: true},
	}
	h := NewHandler(f.store, f.creator, f.queue, stubStorage{}, stubTrends{"NBA Finals", "Election Night", "Pizza Day"}, f.instagram)
	f.router = NewRouter(h, RouterConfig{BackendAPIKey: apiKey})
	return f
}

func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addCampaign(status models.CampaignStatus, videoPath string) *models.Campaign {
	c := &models.Campaign{ID: uuid.New(), Trend: "NBA Finals", Status: status, ImageURLs: []string{"https://img.test/0.png"}}
	if videoPath != "" {
		c.VideoPath = &videoPath
	}
	f.store.campaigns[c.ID] = c
	return c
}

func TestHealthSkipsAuth(t *testing.T) {
	f := newFixture("secret")

	if rec := f.do(http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/campaigns", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/campaigns", "", "X-API-Key", "wrong"); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/campaigns", "", "Authorization", "Bearer secret"); rec.Code != http.StatusOK {
		t.Errorf("bearer key = %d", rec.Code)
	}
}

func TestListTrendsClassifies(t *testing.T) {
	f := newFixture("")

	rec := f.do(http.MethodGet, "/v1/trends", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.TrendsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := []models.Category{models.CategorySports, models.CategorySkip, models.CategoryGeneral}
	for i, item := range resp.Trends {
		if item.Category != want[i] {
			t.Errorf("%s = %s, want %s", item.Topic, item.Category, want[i])
		}
	}
}

func TestCreateCampaign(t *testing.T) {
	f := newFixture("")

	rec := f.do(http.MethodPost, "/v1/campaigns", `{"trend":"NBA Finals","scene_count":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp models.CreateCampaignResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != models.CampaignStatusQueued || resp.Category != models.CategorySports {
		t.Errorf("resp = %+v", resp)
	}
	if f.creator.got.SceneCount == nil || *f.creator.got.SceneCount != 5 {
		t.Errorf("scene_count not passed through: %+v", f.creator.got)
	}

	if rec := f.do(http.MethodPost, "/v1/campaigns", `{"trend":"Election Night"}`); rec.Code != http.StatusOK {
		t.Errorf("skipped trend = %d", rec.Code)
	}
}

func TestCreateCampaignErrors(t *testing.T) {
	f := newFixture("")

	if rec := f.do(http.MethodPost, "/v1/campaigns", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", rec.Code)
	}

	f.creator.err = campaign.ErrTrendRequired
	if rec := f.do(http.MethodPost, "/v1/campaigns", `{"trend":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing trend = %d", rec.Code)
	}

	f.creator.err = errors.New("db down")
	if rec := f.do(http.MethodPost, "/v1/campaigns", `{"trend":"Pizza"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error = %d", rec.Code)
	}
}

func TestListCampaigns(t *testing.T) {
	f := newFixture("")
	f.addCampaign(models.CampaignStatusCompleted, "campaigns/a/video.mp4")
	f.addCampaign(models.CampaignStatusFailed, "")

	rec := f.do(http.MethodGet, "/v1/campaigns?status=completed&limit=500", "")
	var resp models.ListCampaignsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Campaigns) != 1 || resp.Limit != 100 {
		t.Errorf("resp = %+v", resp)
	}

	if rec := f.do(http.MethodGet, "/v1/campaigns?status=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d", rec.Code)
	}
}

func TestGetCampaign(t *testing.T) {
	f := newFixture("")
	c := f.addCampaign(models.CampaignStatusCompleted, "campaigns/a/video.mp4")

	rec := f.do(http.MethodGet, "/v1/campaigns/"+c.ID.String(), "")
	var resp models.CampaignResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.VideoURL == nil || *resp.VideoURL != "https://cdn.test/campaigns/a/video.mp4" {
		t.Errorf("video_url = %v", resp.VideoURL)
	}

	if rec := f.do(http.MethodGet, "/v1/campaigns/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/campaigns/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d", rec.Code)
	}
}

func TestGetCampaignAssets(t *testing.T) {
	f := newFixture("")
	c := f.addCampaign(models.CampaignStatusCompleted, "campaigns/a/video.mp4")
	f.store.assets[c.ID] = []models.Asset{
		{CampaignID: c.ID, Type: models.AssetTypeNarration, StoragePath: "campaigns/a/narration.mp3"},
		{CampaignID: c.ID, Type: models.AssetTypeVideo, StoragePath: "campaigns/a/video.mp4"},
	}

	rec := f.do(http.MethodGet, "/v1/campaigns/"+c.ID.String()+"/assets", "")
	var resp []models.AssetResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 || resp[1].URL != "https://cdn.test/campaigns/a/video.mp4" {
		t.Errorf("assets = %+v", resp)
	}
}

func TestDownloadRedirects(t *testing.T) {
	f := newFixture("")
	ready := f.addCampaign(models.CampaignStatusCompleted, "campaigns/a/video.mp4")
	pending := f.addCampaign(models.CampaignStatusRendering, "")

	rec := f.do(http.MethodGet, "/v1/campaigns/"+ready.ID.String()+"/download", "")
	if rec.Code != http.StatusTemporaryRedirect || !strings.Contains(rec.Header().Get("Location"), "/signed/campaigns/a/video.mp4") {
		t.Errorf("download = %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if rec := f.do(http.MethodGet, "/v1/campaigns/"+pending.ID.String()+"/download", ""); rec.Code != http.StatusNotFound {
		t.Errorf("pending download = %d", rec.Code)
	}
}

func TestPublishCampaign(t *testing.T) {
	f := newFixture("")
	ready := f.addCampaign(models.CampaignStatusCompleted, "campaigns/a/video.mp4")
	rendering := f.addCampaign(models.CampaignStatusRendering, "")

	rec := f.do(http.MethodPost, "/v1/campaigns/"+ready.ID.String()+"/publish", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("publish = %d: %s", rec.Code, rec.Body)
	}
	if ready.Status != models.CampaignStatusPublishing || len(f.queue.mediaTypes) != 1 || f.queue.mediaTypes[0] != services.MediaTypeReels {
		t.Errorf("status = %s queued = %v", ready.Status, f.queue.mediaTypes)
	}

	if rec := f.do(http.MethodPost, "/v1/campaigns/"+rendering.ID.String()+"/publish", ""); rec.Code != http.StatusConflict {
		t.Errorf("unrendered reel = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/v1/campaigns/"+rendering.ID.String()+"/publish", `{"media_type":"IMAGE"}`); rec.Code != http.StatusAccepted {
		t.Errorf("image publish = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/v1/campaigns/"+ready.ID.String()+"/publish", `{"media_type":"STORY"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad media type = %d", rec.Code)
	}

	f.instagram.enabled = false
	if rec := f.do(http.MethodPost, "/v1/campaigns/"+ready.ID.String()+"/publish", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled = %d", rec.Code)
	}
}

func TestPostInsights(t *testing.T) {
	f := newFixture("")
	f.store.posts["ig-1"] = &models.Post{PostID: "ig-1", Status: models.PostStatusActive}
	f.instagram.insights = &services.Insights{Likes: 30, Comments: 3, Reach: 400, EngagementRate: 8.25}

	rec := f.do(http.MethodGet, "/v1/posts/ig-1/insights", "")
	var resp models.PostInsights
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.EngagementRate != 8.25 || resp.Likes != 30 || resp.Deleted {
		t.Errorf("resp = %+v", resp)
	}

	if rec := f.do(http.MethodGet, "/v1/posts/ig-2/insights", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown post = %d", rec.Code)
	}
}

func TestPostInsightsMarksDeleted(t *testing.T) {
	f := newFixture("")
	f.store.posts["ig-1"] = &models.Post{PostID: "ig-1", Status: models.PostStatusActive}
	f.instagram.err = services.ErrPostDeleted

	rec := f.do(http.MethodGet, "/v1/posts/ig-1/insights", "")
	var resp models.PostInsights
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Deleted || f.store.posts["ig-1"].Status != models.PostStatusDeleted {
		t.Errorf("post should be marked deleted: %+v", resp)
	}
}

func TestDeletePost(t *testing.T) {
	f := newFixture("")
	f.store.posts["ig-1"] = &models.Post{PostID: "ig-1", Status: models.PostStatusActive}

	if rec := f.do(http.MethodDelete, "/v1/posts/ig-1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/v1/posts", "")
	var resp models.ListPostsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Posts) != 0 {
		t.Errorf("deleted post still listed: %+v", resp.Posts)
	}
}

func TestAllowedOrigins(t *testing.T) {
	if got := allowedOrigins(""); len(got) != 1 || got[0] != "*" {
		t.Errorf("empty = %v", got)
	}
	if got := allowedOrigins(" https://a.test , ,https://b.test"); len(got) != 2 || got[1] != "https://b.test" {
		t.Errorf("list = %v", got)
	}
}
