package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/assistant"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/config"
	"go-site-builder/internal/events"
	"go-site-builder/internal/metrics"
	"go-site-builder/internal/projectmanager"
	"go-site-builder/internal/storage"
	"go-site-builder/internal/templating"
	"go-site-builder/internal/workspace"
)

func main() {
	configFile := flag.String("config", "", "Path to a config file (default ./sitebuilder.*)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)

	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret is required (set SITEBUILDER_AUTH_JWT_SECRET)")
		os.Exit(1)
	}
	verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		logger.Error("Failed to create token verifier", "error", err)
		os.Exit(1)
	}

	// --- Initialize Storage ---
	store, closer, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN, logger)
	if err != nil {
		logger.Error("Failed to initialize document store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()
	logger.Info("Using document store", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Change bus ---
	var bus events.Bus = events.NewMemoryBus()
	if cfg.Redis.Addr != "" {
		rdb, err := events.DialRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Error("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		bus = events.NewRedisBus(rdb, cfg.Redis.Channel, logger)
		logger.Info("Publishing changes to redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}
	defer bus.Close()

	// --- Object storage ---
	var objects assets.ObjectStore = assets.NewMemoryStore(localFilesURL(cfg.Server.Addr))
	if cfg.Minio.Endpoint != "" {
		ms, err := assets.NewMinioStore(assets.Config{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKey,
			SecretAccessKey: cfg.Minio.SecretKey,
			UseSSL:          cfg.Minio.UseSSL,
			PublicURL:       cfg.Minio.PublicURL,
		})
		if err != nil {
			logger.Error("Failed to create object storage client", "error", err)
			os.Exit(1)
		}
		objects = ms
		logger.Info("Using object storage", "endpoint", cfg.Minio.Endpoint)
	}

	// --- Assistant ---
	var gen assistant.Generator = assistant.Disabled{}
	if cfg.Assistant.Endpoint != "" {
		client := assistant.NewClient(cfg.Assistant.Endpoint, cfg.Assistant.APIKey, cfg.Assistant.Timeout, logger)
		gen = assistant.NewLimited(client, cfg.Assistant.RatePerMinute, 3, userKey)
	}

	lib, err := catalog.New()
	if err != nil {
		logger.Error("Failed to load library catalog", "error", err)
		os.Exit(1)
	}
	renderer, err := templating.NewEngine()
	if err != nil {
		logger.Error("Failed to parse page templates", "error", err)
		os.Exit(1)
	}
	mt := metrics.New()
	deployer := projectmanager.NewObjectDeployer(objects, logger)

	app := &application{
		logger:    logger,
		catalog:   lib,
		metrics:   mt,
		verifier:  verifier,
		assistant: gen,
		bus:       bus,
		objects:   objects,
		renderer:  renderer,
	}
	app.workspaces = workspace.NewRegistry(cfg.HistoryLimit, func(userID string, sel projectmanager.SelectionListener) *projectmanager.Manager {
		return projectmanager.NewManager(store, auth.ContextProvider{},
			projectmanager.WithLogger(logger.With("userID", userID)),
			projectmanager.WithCatalog(lib),
			projectmanager.WithBus(bus),
			projectmanager.WithMetrics(mt),
			projectmanager.WithDeployer(deployer),
			projectmanager.WithObjectStore(objects),
			projectmanager.WithSelection(sel),
			projectmanager.WithPublishBaseURL(cfg.Publish.BaseURL),
			projectmanager.WithPersistTimeout(cfg.PersistTimeout),
		)
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting server", "address", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// userKey buckets assistant rate limits by authenticated user.
func userKey(ctx context.Context) string {
	if u, ok := auth.UserFromContext(ctx); ok {
		return u.ID
	}
	return ""
}

// localFilesURL is the base URL of objects served from memory by this server.
func localFilesURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/files"
}
