// cmd/assistant-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"research-assistant/internal/common/camunda"
	"research-assistant/internal/common/config"
	"research-assistant/internal/common/database"
	commonhttp "research-assistant/internal/common/http"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/observability"
	"research-assistant/internal/gateway"
	"research-assistant/internal/history"

	ar "research-assistant/internal/workers/assistant/analyze-resume"
	nar "research-assistant/internal/workers/assistant/normalize-agent-response"
	rcm "research-assistant/internal/workers/assistant/relay-chat-message"
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
			delay *= 2
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

	zapLog.Info("Starting assistant manager...",
		zap.String("environment", cfg.App.Environment),
		zap.Int("panels", len(cfg.Panels)))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- History store ---
	var store history.Store
	if cfg.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(ctx, cfg.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		store = rdb.OpenHistory(cfg.History)
		zapLog.Info("Redis history store connected", zap.String("address", cfg.Redis.Address))
	} else {
		store = history.NewMemoryStore(history.Options{
			TTL:         config.GetDuration(cfg.History.TTL),
			MaxMessages: cfg.History.MaxMessages,
		})
		zapLog.Info("Using in-memory history store")
	}

	// --- Services ---
	webhookClient := commonhttp.NewWebhookClient(commonhttp.Options{
		Timeout:      config.GetDuration(cfg.Webhook.Timeout),
		MaxRetries:   cfg.Webhook.MaxRetries,
		Backoff:      config.GetDuration(cfg.Webhook.Backoff),
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		Headers:      cfg.Webhook.Headers,
	})

	relayCfg := rcm.NewConfig(cfg)
	relay := rcm.NewService(rcm.ServiceDependencies{Client: webhookClient, History: store, Logger: log}, relayCfg)

	resumeCfg := ar.NewConfig(cfg)
	resume := ar.NewService(ar.ServiceDependencies{Client: webhookClient, History: store, Logger: log}, resumeCfg)

	normalizeCfg := nar.NewConfig(cfg)
	normalize := nar.NewService(normalizeCfg, log)

	// --- Zeebe workers ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		start := func(taskType string, enabled bool, validate func() error, h camunda.JobHandler) {
			if !enabled {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				return
			}
			if err := validate(); err != nil {
				zapLog.Warn("worker not started: invalid config", zap.String("taskType", taskType), zap.Error(err))
				return
			}
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), h, obs, zapLog))
		}

		start(rcm.TaskType, relayCfg.Enabled, relayCfg.Validate, rcm.NewHandler(relayCfg, relay, log))
		start(nar.TaskType, normalizeCfg.Enabled, normalizeCfg.Validate, nar.NewHandler(normalizeCfg, normalize, log))
		start(ar.TaskType, resumeCfg.Enabled, resumeCfg.Validate, ar.NewHandler(resumeCfg, resume, log))
		zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	} else {
		zapLog.Info("Camunda disabled, running gateway only")
	}

	// --- Gateway ---
	deps := gateway.Dependencies{
		Config:        cfg,
		Relay:         relay,
		Resume:        resume,
		Normalize:     normalize,
		History:       store,
		Observability: obs,
		Logger:        log,
	}
	if zeebe != nil {
		deps.Broker = zeebe
	}
	server := gateway.New(deps)
	go func() {
		if err := server.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("gateway failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Gateway.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping gateway", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Assistant manager stopped gracefully")
}
