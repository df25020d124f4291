// cmd/waitlist-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"eldercare-waitlist/internal/common/aws"
	"eldercare-waitlist/internal/common/config"
	"eldercare-waitlist/internal/common/database"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/common/observability"
	"eldercare-waitlist/internal/notify"
	"eldercare-waitlist/internal/waitlist/admin"
	"eldercare-waitlist/internal/waitlist/referral"
	"eldercare-waitlist/internal/waitlist/repository"
	"eldercare-waitlist/internal/waitlist/statscache"
	"eldercare-waitlist/internal/waitlist/submission"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting waitlist manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("waitlist-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema bootstrap failed", zap.Error(err))
	}
	zapLog.Info("Schema verified")

	queryTimeout := time.Duration(cfg.Database.Postgres.QueryTimeout) * time.Millisecond
	repo := repository.New(pg.DB, queryTimeout)
	linker := referral.New(pg.DB, repo, queryTimeout, log)

	// --- Init Redis (optional stats cache) ---
	var stats admin.StatsProvider = repo
	if cfg.Database.Redis.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		ttl := time.Duration(cfg.Database.Redis.StatsTTL) * time.Second
		stats = statscache.New(redis, repo, ttl, log)
	} else {
		zapLog.Info("Redis disabled, stats served directly from PostgreSQL")
	}

	// --- Init SES notifier (optional) ---
	var notifier submission.Notifier
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client initialization failed", zap.Error(err))
		}
		notifier = notify.NewEmailNotifier(sesClient, cfg.Notifications.Email.FromEmail, log)
		zapLog.Info("SES notifier initialized", zap.String("region", cfg.Notifications.AWS.Region))
	} else {
		zapLog.Info("Email notifications disabled")
	}

	svc := submission.NewService(repo, linker, cfg.Site, cfg.Submission, notifier, log)
	handler := admin.NewHandler(repo, linker, svc, stats, obs, log)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	handler.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pg.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	server := &http.Server{
		Addr:         cfg.App.ListenAddress,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	if cfg.Metrics.Enabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, metricsMux); err != nil {
				zapLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Waitlist manager stopped gracefully")
}
