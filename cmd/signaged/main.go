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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signage-backend/config"
	"signage-backend/internal/api"
	"signage-backend/internal/changefeed"
	"signage-backend/internal/db"
	"signage-backend/internal/liveness"
	"signage-backend/internal/logger"
	"signage-backend/internal/notification"
	"signage-backend/internal/resolve"
	"signage-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "signaged")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("path", configPath))

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	engine := resolve.NewEngine(resolve.WithLogger(log.Named("resolve")))

	feed := changefeed.New(ctx, &cfg.Redis, log.Named("changefeed"))
	defer feed.Close()

	// Offline alerts need VAPID keys; without them the sweep still runs.
	var alerter liveness.Alerter
	if cfg.Push.Enabled() {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}, log.Named("alerts"))
		pool.Start(ctx)
		alerter = pool
	} else {
		log.Warn("VAPID keys not configured, offline alerts disabled")
	}

	sweeper := liveness.NewSweeper(appStore, cfg.Liveness.Window, cfg.Liveness.SweepInterval, alerter, log.Named("liveness"))
	go sweeper.Run(ctx)

	handler := api.NewHandler(appStore, engine, feed, cfg, log.Named("api"))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("Shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server Shutdown", zap.Error(err))
	}

	log.Info("Server gracefully stopped")
}
