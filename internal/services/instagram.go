package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// MaxCaptionLength is Instagram's caption limit in characters.
	MaxCaptionLength = 2200

	MediaTypeImage = "IMAGE"
	MediaTypeReels = "REELS"

	publishAttempts = 15
	publishInterval = 3 * time.Second

	// "Media not ready": the container is still being fetched or transcoded.
	errCodeMediaNotReady    = 9007
	errSubcodeMediaNotReady = 2207027
)

// ErrPostDeleted means the Graph API no longer knows the media ID.
var ErrPostDeleted = errors.New("post deleted")

// GraphError is the error envelope returned by the Graph API.
type GraphError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error %d/%d (status %d): %s", e.Code, e.Subcode, e.Status, e.Message)
}

func (e *GraphError) notReady() bool {
	return e.Code == errCodeMediaNotReady && e.Subcode == errSubcodeMediaNotReady
}

// missing covers the codes and messages Instagram uses for removed media.
func (e *GraphError) missing() bool {
	msg := strings.ToLower(e.Message)
	return e.Code == 100 || e.Code == 803 ||
		strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}

// PublishResult identifies a published post.
type PublishResult struct {
	PostID    string
	Permalink string
	Username  string
}

// Insights are the engagement numbers for one post.
type Insights struct {
	Likes          int
	Comments       int
	Reach          int
	Impressions    int
	Engagement     int
	EngagementRate float64 // percent of reach, two decimals
	Permalink      string
}

// InstagramService publishes media and reads insights through the Graph API.
type InstagramService struct {
	baseURL     string
	accessToken string
	accountID   string
	pageID      string
	client      *http.Client

	interval time.Duration
	attempts int

	mu       sync.Mutex
	username string
}

func NewInstagramService(baseURL, accessToken, accountID, pageID string) *InstagramService {
	return &InstagramService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		accountID:   accountID,
		pageID:      pageID,
		client:      &http.Client{Timeout: 30 * time.Second},
		interval:    publishInterval,
		attempts:    publishAttempts,
	}
}

// Enabled reports whether a token is configured.
func (s *InstagramService) Enabled() bool {
	return s.accessToken != ""
}

// Publish creates a media container for mediaURL and publishes it. mediaURL
// must be publicly reachable; Instagram fetches it server side.
func (s *InstagramService) Publish(ctx context.Context, mediaURL, caption, mediaType string) (*PublishResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("instagram publishing is not configured")
	}

	accountID, username, err := s.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"caption": {TruncateCaption(caption)}}
	if mediaType == MediaTypeReels {
		params.Set("media_type", MediaTypeReels)
		params.Set("video_url", mediaURL)
		params.Set("share_to_feed", "true")
	} else {
		params.Set("image_url", mediaURL)
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := s.call(ctx, http.MethodPost, accountID+"/media", params, &container); err != nil {
		return nil, fmt.Errorf("failed to create media container: %w", err)
	}
	if container.ID == "" {
		return nil, fmt.Errorf("media container response had no id")
	}

	if mediaType == MediaTypeReels {
		if err := s.waitForContainer(ctx, container.ID); err != nil {
			return nil, err
		}
	}

	postID, err := s.publishContainer(ctx, accountID, container.ID)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{PostID: postID, Username: username}
	var media struct {
		Permalink string `json:"permalink"`
	}
	if err := s.call(ctx, http.MethodGet, postID, url.Values{"fields": {"permalink"}}, &media); err == nil {
		result.Permalink = media.Permalink
	}

	log.Info().Str("component", "instagram").Str("post_id", postID).Str("media_type", mediaType).Msg("published")
	return result, nil
}

// waitForContainer polls a reel container until it finishes processing.
func (s *InstagramService) waitForContainer(ctx context.Context, containerID string) error {
	for attempt := 0; attempt < s.attempts; attempt++ {
		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := s.call(ctx, http.MethodGet, containerID, url.Values{"fields": {"status_code"}}, &status); err != nil {
			return fmt.Errorf("failed to check container status: %w", err)
		}
		switch status.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("media container %s ended in status %s", containerID, status.StatusCode)
		}
		if err := s.sleep(ctx); err != nil {
			return err
		}
	}
	return fmt.Errorf("media container still processing after %v", time.Duration(s.attempts)*s.interval)
}

// publishContainer retries while Instagram reports the media as not ready.
func (s *InstagramService) publishContainer(ctx context.Context, accountID, containerID string) (string, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		var published struct {
			ID string `json:"id"`
		}
		err := s.call(ctx, http.MethodPost, accountID+"/media_publish", url.Values{"creation_id": {containerID}}, &published)
		if err == nil {
			return published.ID, nil
		}

		var gerr *GraphError
		if !errors.As(err, &gerr) || !gerr.notReady() {
			return "", fmt.Errorf("failed to publish: %w", err)
		}
		if attempt == s.attempts-1 {
			break
		}
		if err := s.sleep(ctx); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("media still processing after %v", time.Duration(s.attempts)*s.interval)
}

// Insights fetches counters and reach for a post. It returns ErrPostDeleted
// when Instagram reports the media gone.
func (s *InstagramService) Insights(ctx context.Context, postID string) (*Insights, error) {
	var media struct {
		LikeCount     int    `json:"like_count"`
		CommentsCount int    `json:"comments_count"`
		Permalink     string `json:"permalink"`
	}
	err := s.call(ctx, http.MethodGet, postID, url.Values{"fields": {"like_count,comments_count,permalink"}}, &media)
	if err != nil {
		var gerr *GraphError
		if errors.As(err, &gerr) && gerr.missing() {
			return nil, ErrPostDeleted
		}
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}

	out := &Insights{
		Likes:     media.LikeCount,
		Comments:  media.CommentsCount,
		Permalink: media.Permalink,
	}

	var metrics struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	// Insights need a business account; the counters above are still useful without them.
	if err := s.call(ctx, http.MethodGet, postID+"/insights", url.Values{"metric": {"impressions,reach,engagement"}}, &metrics); err != nil {
		log.Debug().Err(err).Str("post_id", postID).Msg("insights unavailable")
	}
	for _, m := range metrics.Data {
		if len(m.Values) == 0 {
			continue
		}
		switch m.Name {
		case "impressions":
			out.Impressions = m.Values[0].Value
		case "reach":
			out.Reach = m.Values[0].Value
		case "engagement":
			out.Engagement = m.Values[0].Value
		}
	}

	if out.Reach > 0 {
		rate := float64(out.Likes+out.Comments) / float64(out.Reach) * 100
		out.EngagementRate = math.Round(rate*100) / 100
	}
	return out, nil
}

// resolveAccount returns the configured account ID, or looks it up from the
// page or the token owner.
func (s *InstagramService) resolveAccount(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountID != "" {
		return s.accountID, s.username, nil
	}

	if s.pageID != "" {
		var page struct {
			Account struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"instagram_business_account"`
		}
		if err := s.call(ctx, http.MethodGet, s.pageID, url.Values{"fields": {"instagram_business_account{id,username}"}}, &page); err != nil {
			return "", "", fmt.Errorf("failed to look up instagram account for page: %w", err)
		}
		s.accountID, s.username = page.Account.ID, page.Account.Username
	} else {
		var me struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		if err := s.call(ctx, http.MethodGet, "me", url.Values{"fields": {"id,username"}}, &me); err != nil {
			return "", "", fmt.Errorf("failed to get user info: %w", err)
		}
		s.accountID, s.username = me.ID, me.Username
	}

	if s.accountID == "" {
		return "", "", fmt.Errorf("could not determine instagram account id")
	}
	return s.accountID, s.username, nil
}

// call performs one Graph API request. POST parameters go in the form body.
func (s *InstagramService) call(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", s.accessToken)

	endpoint := s.baseURL + "/" + path
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error *GraphError `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			envelope.Error.Status = resp.StatusCode
			return envelope.Error
		}
		return &GraphError{Status: resp.StatusCode, Message: truncate(string(data), 300)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse graph response: %w", err)
	}
	return nil
}

func (s *InstagramService) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.interval):
		return nil
	}
}
