package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"joke-plugin/internal/app"
	"joke-plugin/internal/bot"
	"joke-plugin/internal/config"
	"joke-plugin/internal/database"
	"joke-plugin/internal/jokeapi"
	"joke-plugin/internal/models"
	"joke-plugin/internal/queue"
	"joke-plugin/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrEmptyBotToken) {
			fmt.Fprintln(os.Stderr, "Error: BOT_TOKEN environment variable is required")
		} else if errors.Is(err, config.ErrEmptyDBPassword) {
			fmt.Fprintln(os.Stderr, "Error: DB_PASSWORD environment variable is required")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}

	logger.Init(cfg.App.LogLevel, nil, cfg.App.LogFormat)
	logger.Info("Starting joke-plugin",
		logger.String("app", cfg.App.Name),
		logger.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		var dbErr *database.ConnectionError
		if errors.As(err, &dbErr) {
			logger.Error("Failed to connect to database",
				logger.Err(dbErr),
				logger.String("host", cfg.Database.Host),
				logger.Int("port", cfg.Database.Port),
			)
		} else {
			logger.Error("Failed to connect to database",
				logger.Err(err),
			)
		}
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to database")

	designRepo := database.NewDesignRepository(db)
	usageRepo := database.NewUsageRepository(db)
	userRepo := database.NewUserRepository(db)

	source := jokeapi.NewFromConfig(cfg.JokeAPI)
	ctrlOpts := []app.Option{}
	botOpts := []bot.Option{
		bot.WithUsers(userRepo),
		bot.WithUsageStats(usageRepo),
	}

	if cfg.NATS.Enabled {
		q, err := queue.New(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", logger.Err(err))
			os.Exit(1)
		}
		defer q.Close()
		logger.Info("Connected to NATS", logger.String("url", cfg.NATS.URL))

		ctrlOpts = append(ctrlOpts, app.WithUsagePublisher(q))
		botOpts = append(botOpts, bot.WithOutbox(q))

		go func() {
			logger.Info("Starting usage consumer...")
			if err := q.ConsumeUsage(ctx, func(u *models.JokeUsage) error {
				if err := usageRepo.Create(ctx, u); err != nil {
					logger.Error("Failed to save joke usage",
						logger.Err(err),
						logger.Design(u.DesignID),
					)
					return err
				}
				logger.Debug("Joke usage saved", logger.Design(u.DesignID))
				return nil
			}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Usage consumer error", logger.Err(err))
			}
		}()
	} else {
		ctrlOpts = append(ctrlOpts, app.WithUsagePublisher(directUsage{repo: usageRepo}))
	}

	ctrl := app.NewController(source, ctrlOpts...)
	sessions := app.NewSessions(cfg.History.Capacity)

	telegramBot, err := bot.New(cfg.Bot, ctrl, sessions, bot.FromRepository(designRepo), botOpts...)
	if err != nil {
		logger.Error("Failed to create bot", logger.Err(err))
		os.Exit(1)
	}

	tbot, err := telegramBot.Start(ctx)
	if err != nil {
		logger.Error("Failed to start bot", logger.Err(err))
		os.Exit(1)
	}
	logger.Info("Telegram bot started")

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(cfg.Health.Endpoint, func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Health server starting",
			logger.Int("port", cfg.Health.Port),
		)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	tbot.Stop()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", logger.Err(err))
	}

	logger.Info("Bot stopped gracefully", logger.Int("sessions", sessions.Len()))
}

// directUsage writes usage straight to the database when NATS is disabled.
type directUsage struct {
	repo *database.UsageRepository
}

func (d directUsage) PublishUsage(ctx context.Context, u *models.JokeUsage) error {
	return d.repo.Create(ctx, u)
}
