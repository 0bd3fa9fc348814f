// Command server starts the Fernando Format bot HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merakitalent/fernando-format/internal/adapter/ai/openai"
	blobminio "github.com/merakitalent/fernando-format/internal/adapter/blobstore/minio"
	"github.com/merakitalent/fernando-format/internal/adapter/chat"
	"github.com/merakitalent/fernando-format/internal/adapter/extraction"
	"github.com/merakitalent/fernando-format/internal/adapter/httpserver"
	"github.com/merakitalent/fernando-format/internal/adapter/observability"
	roleconfig "github.com/merakitalent/fernando-format/internal/adapter/roleconfig/postgres"
	stateredis "github.com/merakitalent/fernando-format/internal/adapter/statestore/redis"
	"github.com/merakitalent/fernando-format/internal/adapter/textextractor/tika"
	"github.com/merakitalent/fernando-format/internal/app"
	"github.com/merakitalent/fernando-format/internal/config"
	"github.com/merakitalent/fernando-format/internal/docgen"
	"github.com/merakitalent/fernando-format/internal/domain"
	"github.com/merakitalent/fernando-format/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Conversation state store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	stateStore := stateredis.New(rdb)

	// Role registry, optionally backed by Postgres. Without a DB it serves
	// the embedded defaults.
	var roleSource domain.RoleSource
	checks := []httpserver.ReadyCheck{
		{Name: "redis", Probe: func() error { return rdb.Ping(context.Background()).Err() }},
	}
	if cfg.RoleStoreEnabled() {
		pool, err := roleconfig.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Error("postgres connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		roleSource = roleconfig.NewRoleRepo(pool)
		checks = append(checks, httpserver.ReadyCheck{
			Name:  "postgres",
			Probe: func() error { return pool.Ping(context.Background()) },
		})
	}
	registry := usecase.NewRegistry(roleSource, cfg.RoleCacheTTL)

	aiClient := openai.New(cfg)
	extractor := tika.New(cfg.TikaURL, cfg.TikaTimeout)
	sender := chat.NewSender(cfg.ReplyBearerToken, 30*time.Second)
	contentAdapter := extraction.New(sender, extractor, cfg.MaxAttachmentMB<<20)

	// Object storage is optional; without it document roles report the
	// feature as unavailable.
	var blob domain.BlobStore
	if cfg.StorageEnabled() {
		store, err := blobminio.New(ctx, cfg)
		if err != nil {
			slog.Error("object storage connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		blob = store
	} else {
		slog.Warn("object storage not configured, document delivery disabled")
	}

	render := newRenderFunc(cfg.LogoPath)

	intentRouter := usecase.NewRouter(stateStore, registry, aiClient)
	service := usecase.NewService(aiClient, blob, stateStore, sender, registry, render, cfg.DownloadLinkTTL)

	srv := httpserver.NewServer(cfg.ServiceName, contentAdapter, intentRouter, service, checks)
	handler := app.BuildRouter(cfg, srv)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
	slog.Info("server stopped")
}

// newRenderFunc loads the letterhead once and binds it into the layout
// engine. A missing or unreadable logo degrades to an unbranded header.
func newRenderFunc(logoPath string) usecase.RenderFunc {
	var logo []byte
	if logoPath != "" {
		data, err := os.ReadFile(logoPath)
		if err != nil {
			slog.Warn("logo not loaded, documents render without header", slog.String("path", logoPath), slog.Any("error", err))
		} else {
			logo = data
		}
	}
	return func(cv *domain.StructuredCV) ([]byte, error) {
		return docgen.Render(cv, docgen.Options{LogoPNG: logo})
	}
}
