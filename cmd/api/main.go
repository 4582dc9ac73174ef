package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/trendcast/internal/api"
	"github.com/bobarin/trendcast/internal/campaign"
	"github.com/bobarin/trendcast/internal/config"
	"github.com/bobarin/trendcast/internal/db"
	"github.com/bobarin/trendcast/internal/logging"
	"github.com/bobarin/trendcast/internal/queue"
	"github.com/bobarin/trendcast/internal/services"
	"github.com/bobarin/trendcast/internal/storage"
	"github.com/bobarin/trendcast/internal/video"
	"github.com/bobarin/trendcast/internal/worker"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.Init()
	log.Info().Msg("starting trendcast API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()
	log.Info().Msg("connected to database")

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()
	log.Info().Msg("connected to Redis queue")

	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)

	instagram := services.NewInstagramService(cfg.GraphAPIURL, cfg.InstagramAccessToken, cfg.InstagramAccountID, cfg.InstagramPageID)
	if !instagram.Enabled() {
		log.Warn().Msg("INSTAGRAM_ACCESS_TOKEN not set, publishing disabled")
	}

	creator := campaign.NewCreator(database, q, campaign.Defaults{
		BrandName:   cfg.Render.BrandName,
		SceneCount:  cfg.Render.SceneCount,
		AutoPublish: cfg.AutoPublish,
	})

	handler := api.NewHandler(database, creator, q, stor, services.NewTrendsService(cfg.TrendsFeedURL), instagram)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey == "" {
		log.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		w, err := newWorker(cfg, database, q, stor, instagram)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize worker")
		}

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// newWorker wires the generation providers and the renderer from config.
func newWorker(cfg *config.Config, database *db.DB, q *queue.Queue, stor *storage.Storage, instagram *services.InstagramService) (*worker.Worker, error) {
	// Copy: OpenAI, then Groq, then templates. Templates never fail.
	var writers []services.Copywriter
	if cfg.OpenAIKey != "" {
		writers = append(writers, services.NewOpenAICopywriter(cfg.OpenAIKey, cfg.OpenAIModel))
	}
	if cfg.GroqKey != "" {
		writers = append(writers, services.NewGroqCopywriter(cfg.GroqKey, cfg.GroqModel, cfg.GroqBaseURL))
	}
	writers = append(writers, services.NewTemplateCopywriter(0))
	log.Info().Str("mode", cfg.CopyMode()).Msg("copywriter configured")

	// Images: Imagen when a Gemini key is set, Pollinations always last.
	var providers []services.ImageProvider
	if cfg.GeminiKey != "" {
		providers = append(providers, services.NewImagenProvider(cfg.GeminiKey, cfg.GeminiImageModel, stor))
		log.Info().Str("model", cfg.GeminiImageModel).Msg("Imagen enabled")
	}
	providers = append(providers, services.NewPollinationsProvider(cfg.PollinationsURL))

	var animator services.ClipAnimator
	if cfg.VeoEnabled {
		animator = services.NewVeoAnimator(cfg.GeminiKey, cfg.VeoModel, stor)
		log.Info().Str("model", cfg.VeoModel).Msg("Veo scene clips enabled")
	}

	// Narration: ElevenLabs preferred, Cartesia as fallback.
	var tts services.TTSService
	if cfg.ElevenLabsKey != "" {
		tts = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Info().Str("voice", cfg.ElevenLabsVoiceID).Msg("TTS provider: ElevenLabs")
	} else {
		tts = services.NewCartesiaService(cfg.CartesiaKey, cfg.CartesiaURL, cfg.CartesiaVoiceID)
		log.Info().Str("voice", cfg.CartesiaVoiceID).Msg("TTS provider: Cartesia")
	}

	toolkit := video.NewFFmpeg(cfg.Render.FFmpegPath, cfg.Render.FFprobePath)
	if err := toolkit.Check(context.Background()); err != nil {
		log.Warn().Err(err).Msg("ffmpeg not available, render jobs will fail")
	}
	renderer, err := video.NewRenderer(toolkit, video.NewHTTPFetcher(), video.Options{
		TempDir:   cfg.Render.TempDir,
		OutputDir: cfg.Render.OutputDir,
		Size:      video.FrameSize{Width: cfg.Render.FrameWidth, Height: cfg.Render.FrameHeight},
		FPS:       cfg.Render.FPS,
	})
	if err != nil {
		return nil, err
	}

	return worker.New(
		database,
		q,
		stor,
		services.NewChainCopywriter(writers...),
		services.NewChainImageProvider(providers...),
		animator,
		tts,
		renderer,
		instagram,
		worker.Options{
			FrameWidth:  cfg.Render.FrameWidth,
			FrameHeight: cfg.Render.FrameHeight,
		},
	), nil
}
