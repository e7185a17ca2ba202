package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slides-server/internal/config"
	"slides-server/internal/export"
	"slides-server/internal/generator"
	"slides-server/internal/logger"
	"slides-server/internal/server"
	"slides-server/internal/storage"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- Storage Backend ---
	kv, cleanup, err := setupStorage(cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up storage backend", zap.Error(err))
	}
	defer cleanup()

	presentations := storage.NewPresentationStore(kv, log)
	snapshots := storage.NewSnapshotStore(kv, log)

	// --- Generators ---
	content, err := generator.NewContentGenerator(generator.ContentConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		Timeout:     cfg.AITimeout,
		MaxAttempts: cfg.AIMaxAttempts,
		RetryDelay:  cfg.AIBaseRetryDelay,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to create content generator", zap.Error(err))
	}

	images, err := generator.NewImageGenerator(generator.ImageConfig{
		BaseURL:     cfg.ImageAPIBaseURL,
		Timeout:     cfg.ImageAPITimeout,
		MaxAttempts: cfg.ImageMaxAttempts,
		Ratio:       cfg.ImageRatio,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to create image generator", zap.Error(err))
	}

	extractor := generator.NewURLExtractor(cfg.ExtractorTimeout, log)

	// --- Dependency Injection ---
	hub := server.NewHub(log)
	sessions := server.NewSessionManager(server.SessionDeps{
		Content:          content,
		Images:           images,
		Extractor:        extractor,
		Snapshots:        snapshots,
		AutoSaveDebounce: cfg.AutoSaveDebounce,
		Hub:              hub,
		Logger:           log,
	})
	defer sessions.Close()

	exporter := export.NewExporter(log)
	handler := server.NewHandler(sessions, presentations, snapshots, exporter, log)

	router := server.NewRouter(server.RouterConfig{
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.GetAllowedOrigins(),
	}, handler, hub, log)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // генерация изображений держит запрос долго
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupStorage выбирает бэкенд хранилища: Redis, если задан адрес,
// иначе файловое KV в DataDir.
func setupStorage(cfg *config.Config, log *zap.Logger) (storage.KV, func(), error) {
	if cfg.RedisAddr == "" {
		kv, err := storage.NewFileKV(cfg.DataDir, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using file storage backend", zap.String("dataDir", cfg.DataDir))
		return kv, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("unable to ping redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info("Using Redis storage backend", zap.String("addr", cfg.RedisAddr))
	return storage.NewRedisKV(client, log), func() { _ = client.Close() }, nil
}
