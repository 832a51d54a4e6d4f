package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/tubesummary/internal/captions"
	"github.com/codebuildervaibhav/tubesummary/internal/cleanup"
	"github.com/codebuildervaibhav/tubesummary/internal/config"
	"github.com/codebuildervaibhav/tubesummary/internal/handlers"
	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/presets"
	"github.com/codebuildervaibhav/tubesummary/internal/quality"
	"github.com/codebuildervaibhav/tubesummary/internal/queue"
	"github.com/codebuildervaibhav/tubesummary/internal/resolver"
	"github.com/codebuildervaibhav/tubesummary/internal/settings"
	"github.com/codebuildervaibhav/tubesummary/internal/storage"
	"github.com/codebuildervaibhav/tubesummary/internal/summary"
	"github.com/codebuildervaibhav/tubesummary/internal/transcription"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stdout and to the buffer served at /logs
	logBuffer := logging.NewLogBuffer(1000)
	out := io.MultiWriter(os.Stdout, logBuffer)
	log := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		JSONFormat: cfg.Log.JSON,
		Output:     out,
	})
	slog.SetDefault(log)

	if err := run(cfg, log, out, logBuffer); err != nil {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, out io.Writer, logBuffer *logging.LogBuffer) error {
	ctx := context.Background()
	log.Info("initializing components...")

	// Audio cache and its eviction
	cache, err := storage.NewAudioCache(cfg.Storage.AudioCacheDir)
	if err != nil {
		return err
	}
	cache.SetFetchTimeout(cfg.Speech.DownloadTimeout)
	cleanupScheduler := cleanup.NewScheduler(cache.Dir(), cleanup.Policy{
		Interval:  cfg.Cleanup.Interval,
		MaxAge:    cfg.Cleanup.MaxAge,
		MaxSizeMB: cfg.Cleanup.MaxSizeMB,
	}, log)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Worker pool for speech jobs
	workerPool := queue.NewWorkerPool(cfg.Speech.Workers, 100, log)
	workerPool.Start()
	defer workerPool.Stop()

	transcriber := transcription.NewTranscriber(
		transcription.NewYtDlp(cfg.Speech.YtDlpPath, cfg.Speech.CookiesPath, cfg.Speech.DownloadTimeout),
		cache,
		speechBackend(cfg),
		workerPool,
		transcription.Config{
			Heuristics:  transcription.DefaultHeuristics(),
			AltLanguage: cfg.Speech.AltLanguage,
			MaxUploadMB: cfg.Speech.MaxUploadMB,
		},
	)
	if !transcriber.Configured() {
		log.Warn("speech tier not configured, it will be skipped", slog.String("backend", cfg.Speech.Backend))
	}

	ytClient := youtube.NewClient(cfg.Captions.HTTPTimeout, cfg.Captions.RatePerSec)
	tiers, err := buildTiers(cfg, ytClient, transcriber)
	if err != nil {
		return err
	}
	transcripts := resolver.New(tiers...)
	log.Info("transcript tiers configured", slog.Any("tiers", transcripts.Tiers()))

	// Admin settings
	catalog, err := presets.Load()
	if err != nil {
		return err
	}
	store, err := settingsStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	presetIDs := make([]string, 0)
	for _, p := range catalog.All() {
		presetIDs = append(presetIDs, p.ID)
	}
	settingsSvc, err := settings.NewService(ctx, store, settings.Defaults{
		Model:     cfg.LLM.DefaultModel,
		MaxTokens: cfg.Settings.DefaultMaxTokens,
		PresetIDs: presetIDs,
	})
	if err != nil {
		return err
	}

	streamer := summary.NewStreamer(summary.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		SiteURL:     cfg.LLM.SiteURL,
		SiteName:    cfg.LLM.SiteName,
		Temperature: cfg.LLM.Temperature,
	})
	if !streamer.Configured() {
		log.Warn("OPENROUTER_API_KEY not set, summaries will fail")
	}

	// YouTube Data API (optional)
	var meta handlers.MetadataLookup
	metaSvc, err := youtube.NewMetadataService(ctx, youtube.MetadataConfig{
		APIKey:          cfg.YouTube.APIKey,
		CredentialsFile: cfg.YouTube.CredentialsFile,
		TokenFile:       cfg.YouTube.TokenFile,
	})
	switch {
	case err == nil:
		meta = metaSvc
		log.Info("YouTube Data API metadata enabled")
	case types.KindOf(err) == types.KindNotConfigured:
		log.Info("YouTube Data API not configured, prompts use placeholders for title and channel")
	default:
		log.Warn("YouTube Data API not available", slog.String("error", err.Error()))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Limits.MaxBodyKB * 1024,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: out}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(cfg.Server.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Initialize handlers
	transcriptHandler := handlers.NewTranscriptHandler(transcripts, transcriber, cfg.Limits.RequestTimeout, log)
	summaryHandler := handlers.NewSummaryHandler(
		transcripts,
		transcriber,
		catalog,
		settingsSvc,
		streamer,
		meta,
		handlers.SummaryConfig{
			Timeout:   cfg.Limits.RequestTimeout,
			Heartbeat: cfg.Limits.HeartbeatInterval,
			Thresholds: quality.Thresholds{
				MinChars: cfg.Limits.MinChars,
				MinWords: cfg.Limits.MinWords,
			},
		},
		log,
	)
	presetsHandler := handlers.NewPresetsHandler(catalog, settingsSvc)
	streamHandler := handlers.NewStreamHandler(summaryHandler)
	adminHandler := handlers.NewAdminHandler(settingsSvc, catalog, log)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		queued, active := workerPool.Stats()
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
			"tiers":   transcripts.Tiers(),
			"speech": fiber.Map{
				"configured": transcriber.Configured(),
				"queued":     queued,
				"active":     active,
			},
			"summary": fiber.Map{
				"configured": streamer.Configured(),
				"model":      settingsSvc.SelectedModel(),
			},
		})
	})

	api := app.Group("/api")
	api.Get("/transcript/:videoId?", transcriptHandler.Handle)
	api.Get("/summary/presets", presetsHandler.Handle)
	api.Post("/summary/generate", summaryHandler.Handle)

	if cfg.Settings.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, admin routes reject every request")
	}
	adminHandler.Register(api.Group("/admin", handlers.AdminAuth(cfg.Settings.AdminPassword)))

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/summary", websocket.New(streamHandler.Handle))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("server starting", slog.String("addr", addr))
	log.Info("endpoints",
		slog.String("GET /api/transcript/:videoId", "resolve a transcript"),
		slog.String("GET /api/summary/presets", "list summary presets"),
		slog.String("POST /api/summary/generate", "stream a summary (SSE)"),
		slog.String("GET /ws/summary", "stream a summary (WebSocket)"),
		slog.String("/api/admin/*", "admin settings"),
		slog.String("GET /logs", "view server logs"),
		slog.String("GET /health", "health check"))

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down gracefully...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()

	return app.Listen(addr)
}

// buildTiers maps configured tier names to transcript sources, in order
func buildTiers(cfg *config.Config, client *youtube.Client, speech *transcription.Transcriber) ([]resolver.Tier, error) {
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("no transcript tiers configured")
	}

	langs := cfg.Captions.Languages
	tiers := make([]resolver.Tier, 0, len(cfg.Tiers))
	for _, name := range cfg.Tiers {
		switch types.Method(strings.ToLower(strings.TrimSpace(name))) {
		case types.MethodInnertube:
			tiers = append(tiers, captions.NewInnertube(client, langs))
		case types.MethodWatchPage:
			tiers = append(tiers, captions.NewWatchPage(client, langs, captions.RetryPolicy{
				Attempts: cfg.Captions.RetryCount,
				Backoff:  cfg.Captions.RetryBackoff,
			}))
		case types.MethodBrowser:
			tiers = append(tiers, captions.NewBrowser(client, langs, cfg.Captions.BrowserWait))
		case types.MethodSpeech:
			tiers = append(tiers, speech)
		default:
			return nil, fmt.Errorf("unknown transcript tier %q", name)
		}
	}
	return tiers, nil
}

func speechBackend(cfg *config.Config) transcription.Backend {
	switch strings.ToLower(cfg.Speech.Backend) {
	case "local", "whisper":
		return transcription.NewWhisperBackend(cfg.Whisper.Python, cfg.Whisper.Model, cfg.Whisper.Threads, "")
	default:
		return transcription.NewGroqBackend(cfg.Speech.GroqAPIKey, cfg.Speech.GroqBaseURL, cfg.Speech.GroqModel)
	}
}

func settingsStore(cfg *config.Config) (settings.Store, error) {
	if strings.EqualFold(cfg.Settings.Driver, "sqlite") {
		return settings.NewSQLiteStore(cfg.Settings.Database)
	}
	return settings.NewMemoryStore(), nil
}

func allowedOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}
