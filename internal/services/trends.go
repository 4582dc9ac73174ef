package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// minTrends is the size below which popular topics are mixed in.
const minTrends = 10

// TrendSource lists currently trending topics.
type TrendSource interface {
	Trends(ctx context.Context) ([]string, error)
}

// TrendsService merges the Google Trends RSS feed with upcoming cultural
// events and, when the feed is thin, a fixed list of evergreen topics.
type TrendsService struct {
	feedURL string
	client  *http.Client
	now     func() time.Time
}

func NewTrendsService(feedURL string) *TrendsService {
	return &TrendsService{
		feedURL: feedURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Trends never fails because of the feed: a feed error is logged and the
// static sources are returned instead.
func (s *TrendsService) Trends(ctx context.Context) ([]string, error) {
	combined := map[string]struct{}{}

	feed, err := s.fetchFeed(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "trends").Msg("trend feed unavailable, using static topics")
	}
	for _, t := range feed {
		combined[t] = struct{}{}
	}

	for _, e := range UpcomingEvents(s.now(), 30) {
		combined[e] = struct{}{}
	}

	if len(combined) < minTrends {
		for _, t := range popularTopics {
			combined[t] = struct{}{}
		}
	}

	return cleanTrends(combined), nil
}

func (s *TrendsService) fetchFeed(ctx context.Context) ([]string, error) {
	if s.feedURL == "" {
		return nil, fmt.Errorf("no feed configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; trendcast/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	titles := make([]string, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		titles = append(titles, item.Title)
	}
	return titles, nil
}

// cleanTrends drops blanks, very short entries, hashtags and mentions, and
// returns the rest sorted.
func cleanTrends(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		t = strings.TrimSpace(t)
		if len(t) <= 2 || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "@") {
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

type culturalEvent struct {
	name  string
	month time.Month
	day   int
}

var culturalEvents = []culturalEvent{
	{"New Year's Day", time.January, 1},
	{"Super Bowl", time.February, 9},
	{"Valentine's Day", time.February, 14},
	{"St. Patrick's Day", time.March, 17},
	{"Earth Day", time.April, 22},
	{"Coachella", time.April, 11},
	{"Mother's Day", time.May, 11},
	{"Summer Solstice", time.June, 21},
	{"Independence Day", time.July, 4},
	{"Back to School", time.August, 25},
	{"Oktoberfest", time.September, 20},
	{"Halloween", time.October, 31},
	{"Thanksgiving", time.November, 27},
	{"Christmas", time.December, 25},
	{"New Year's Eve", time.December, 31},
}

var popularTopics = []string{
	"Music", "Movies", "Sports", "Technology", "Fashion", "Food", "Travel",
	"Fitness", "Gaming", "Art", "Books", "TV Shows", "Celebrities",
	"Social Media", "Climate", "Innovation", "Wellness", "Culture",
}

// UpcomingEvents returns the cultural events falling within days of now,
// wrapping into next year in December.
func UpcomingEvents(now time.Time, days int) []string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, days)

	var out []string
	for _, e := range culturalEvents {
		for _, year := range []int{today.Year(), today.Year() + 1} {
			d := time.Date(year, e.month, e.day, 0, 0, 0, 0, now.Location())
			if !d.Before(today) && !d.After(cutoff) {
				out = append(out, e.name)
				break
			}
		}
	}
	return out
}
