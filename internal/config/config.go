package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Copy generation. Without either key the template copywriter is used.
	OpenAIKey   string
	OpenAIModel string
	GroqKey     string
	GroqModel   string
	GroqBaseURL string

	// Image generation. Without a Gemini key images come from Pollinations.
	GeminiKey        string
	GeminiImageModel string
	PollinationsURL  string

	// Veo scene clips. Off by default; needs GEMINI_API_KEY.
	VeoEnabled bool
	VeoModel   string

	// ElevenLabs (preferred TTS provider)
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Cartesia (used when ElevenLabs key is not set)
	CartesiaKey     string
	CartesiaURL     string
	CartesiaVoiceID string

	// Instagram Graph API. Publishing is disabled when the token is empty.
	InstagramAccessToken string
	InstagramAccountID   string
	InstagramPageID      string
	GraphAPIURL          string

	// Trends
	TrendsFeedURL  string
	TrendsSchedule string // cron spec for the scheduler, e.g. "@every 6h"
	TrendsPerRun   int
	AutoPublish    bool

	Render Render

	// Worker
	MaxConcurrentJobs int
}

// Render holds everything the video pipeline needs. It is all the render CLI loads.
type Render struct {
	TempDir     string
	OutputDir   string
	FFmpegPath  string
	FFprobePath string
	BrandName   string
	FrameWidth  int
	FrameHeight int
	FPS         int
	SceneCount  int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "campaign-media"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GroqKey:               getEnv("GROQ_API_KEY", ""),
		GroqModel:             getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:           getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		GeminiImageModel:      getEnv("GEMINI_IMAGE_MODEL", "imagen-4.0-generate-001"),
		PollinationsURL:       getEnv("POLLINATIONS_URL", "https://image.pollinations.ai"),
		VeoEnabled:            getEnvBool("VEO_ENABLED", false),
		VeoModel:              getEnv("VEO_MODEL", "veo-3.1-generate-preview"),
		ElevenLabsKey:         getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:     getEnv("ELEVENLABS_VOICE_ID", ""),
		CartesiaKey:           getEnv("CARTESIA_API_KEY", ""),
		CartesiaURL:           getEnv("CARTESIA_API_URL", "https://api.cartesia.ai"),
		CartesiaVoiceID:       getEnv("CARTESIA_VOICE_ID", ""),
		InstagramAccessToken:  getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
		InstagramAccountID:    getEnv("INSTAGRAM_ACCOUNT_ID", ""),
		InstagramPageID:       getEnv("INSTAGRAM_PAGE_ID", ""),
		GraphAPIURL:           getEnv("GRAPH_API_URL", "https://graph.facebook.com/v21.0"),
		TrendsFeedURL:         getEnv("TRENDS_FEED_URL", "https://trends.google.com/trending/rss?geo=US"),
		TrendsSchedule:        getEnv("TRENDS_SCHEDULE", "@every 6h"),
		TrendsPerRun:          getEnvInt("TRENDS_PER_RUN", 1),
		AutoPublish:           getEnvBool("AUTO_PUBLISH", false),
		Render:                loadRender(),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// At least one TTS provider must be configured
	if cfg.ElevenLabsKey == "" && cfg.CartesiaKey == "" {
		return nil, fmt.Errorf("either ELEVENLABS_API_KEY or CARTESIA_API_KEY is required for narration")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if cfg.VeoEnabled && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("VEO_ENABLED requires GEMINI_API_KEY")
	}

	if cfg.AutoPublish && cfg.InstagramAccessToken == "" {
		return nil, fmt.Errorf("AUTO_PUBLISH requires INSTAGRAM_ACCESS_TOKEN")
	}

	return cfg, nil
}

// LoadRender reads only the render settings. The standalone renderer needs
// no database, queue or provider credentials.
func LoadRender() Render {
	_ = godotenv.Load()
	return loadRender()
}

func loadRender() Render {
	return Render{
		TempDir:     getEnv("TEMP_DIR", os.TempDir()),
		OutputDir:   getEnv("OUTPUT_DIR", "output"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
		BrandName:   getEnv("BRAND_NAME", "Coca-Cola"),
		FrameWidth:  getEnvInt("FRAME_WIDTH", 1080),
		FrameHeight: getEnvInt("FRAME_HEIGHT", 1080),
		FPS:         getEnvInt("VIDEO_FPS", 30),
		SceneCount:  getEnvInt("SCENE_COUNT", 4),
	}
}

// CopyMode names the copywriter chain the config selects.
func (c *Config) CopyMode() string {
	switch {
	case c.OpenAIKey != "":
		return "openai"
	case c.GroqKey != "":
		return "groq"
	default:
		return "template"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
