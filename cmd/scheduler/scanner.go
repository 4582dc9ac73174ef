package main

import (
	"context"
	"sync"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/rs/zerolog/log"
)

type campaignCreator interface {
	FromTrends(ctx context.Context, trends []string, limit int) ([]*models.Campaign, error)
}

// scanner runs one trend sweep per cron tick. Overlapping ticks are dropped.
type scanner struct {
	trends  services.TrendSource
	creator campaignCreator
	perRun  int

	mu sync.Mutex
}

func (s *scanner) run(ctx context.Context) int {
	if !s.mu.TryLock() {
		log.Warn().Msg("previous trend sweep still running, skipping tick")
		return 0
	}
	defer s.mu.Unlock()

	trends, err := s.trends.Trends(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch trends")
		return 0
	}

	perRun := s.perRun
	if perRun <= 0 {
		perRun = 1
	}

	created, err := s.creator.FromTrends(ctx, trends, perRun)
	if err != nil {
		log.Error().Err(err).Msg("trend sweep failed")
	}
	for _, c := range created {
		log.Info().Str("campaign", c.ID.String()).Str("trend", c.Trend).Msg("campaign scheduled")
	}
	if len(created) == 0 {
		log.Info().Int("trends", len(trends)).Msg("no new trends to cover")
	}
	return len(created)
}
