package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/postplanner/internal/broadcast"
	"github.com/user/postplanner/internal/config"
	"github.com/user/postplanner/internal/delivery"
	"github.com/user/postplanner/internal/metrics"
	"github.com/user/postplanner/internal/planner"
	"github.com/user/postplanner/internal/scheduler"
	"github.com/user/postplanner/internal/storage"
	"github.com/user/postplanner/internal/telegram"
	"github.com/user/postplanner/pkg/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	debug := cfg.Log.Level == "debug"
	if err := logger.Init(debug, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting post planner bot")

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	users := storage.NewUserStore(db)
	channels := storage.NewChannelStore(db)
	posts := storage.NewPostStore(db)
	broadcasts := storage.NewBroadcastStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Register metrics
	metrics.MustRegister(prometheus.DefaultRegisterer)

	// Initialize Telegram bot
	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	// Delivery pipeline: executor publishes, engine fires timers, sweeper
	// catches whatever the timers missed.
	executor := delivery.NewExecutor(posts, bot, bot)
	engine := scheduler.NewEngine(executor.Deliver)
	sweeper := scheduler.NewSweeper(posts, executor.Deliver,
		cfg.Scheduler.SweepInterval, cfg.Scheduler.Lookahead, cfg.Scheduler.SendDelay)

	// Re-arm timers for posts that were pending across the restart.
	pending, err := posts.Pending(time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load pending posts")
	}
	entries := make(map[int64]time.Time, len(pending))
	for _, post := range pending {
		entries[post.ID] = post.ScheduledAt
	}
	engine.Rebuild(entries)
	logger.Info().Int("count", len(entries)).Msg("Re-armed timers for pending posts")

	schedCfg := planner.Config{
		MinLead:    cfg.Scheduler.MinLead,
		MaxHorizon: cfg.Scheduler.MaxHorizon,
	}
	pl := planner.New(users, channels, posts, engine, bot, schedCfg)
	bc := broadcast.New(users, broadcasts, bot, 100*time.Millisecond)

	handlers := telegram.NewHandlers(
		bot.GetAPI(), users, channels, posts, pl, bc,
		cfg.Telegram.AdminID, cfg.Limits, cfg.Tariff, schedCfg)
	handlers.SetArmedFunc(engine.Armed)
	handlers.SetStartTime(time.Now())
	bot.SetHandlers(handlers)

	sweeper.Start()
	logger.Info().
		Dur("interval", cfg.Scheduler.SweepInterval).
		Dur("lookahead", cfg.Scheduler.Lookahead).
		Msg("Sweeper started")

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start Telegram bot
	bot.Start()

	// Tell the admin the bot is back up
	if cfg.Telegram.AdminID != 0 {
		notice := fmt.Sprintf("🤖 Bot started, re-armed %d pending posts.", len(entries))
		if err := bot.Notify(context.Background(), cfg.Telegram.AdminID, notice); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify admin about startup")
		}
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeper.Stop()
	engine.Stop()

	// Stop HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stop Telegram bot
	bot.Stop()

	logger.Info().Msg("Shutdown complete")
}
