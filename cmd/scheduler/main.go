// Command scheduler polls trending topics on a cron schedule and queues a
// campaign for each new brand-safe trend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobarin/trendcast/internal/campaign"
	"github.com/bobarin/trendcast/internal/config"
	"github.com/bobarin/trendcast/internal/db"
	"github.com/bobarin/trendcast/internal/logging"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	s := &scanner{
		trends: services.NewTrendsService(cfg.TrendsFeedURL),
		creator: campaign.NewCreator(database, q, campaign.Defaults{
			BrandName:   cfg.Render.BrandName,
			SceneCount:  cfg.Render.SceneCount,
			AutoPublish: cfg.AutoPublish,
		}),
		perRun: cfg.TrendsPerRun,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if _, err := c.AddFunc(cfg.TrendsSchedule, func() { s.run(ctx) }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.TrendsSchedule).Msg("invalid TRENDS_SCHEDULE")
	}
	c.Start()
	log.Info().Str("schedule", cfg.TrendsSchedule).Int("per_run", cfg.TrendsPerRun).Msg("scheduler started")

	<-ctx.Done()
	log.Info().Msg("scheduler stopping")
	<-c.Stop().Done()
}
