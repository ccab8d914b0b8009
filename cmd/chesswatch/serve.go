package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/chesswatch/internal/archive"
	"github.com/park285/chesswatch/internal/board"
	"github.com/park285/chesswatch/internal/cache"
	appcfg "github.com/park285/chesswatch/internal/config"
	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/internal/httpapi"
	"github.com/park285/chesswatch/internal/lichess"
	"github.com/park285/chesswatch/internal/livefeed"
	"github.com/park285/chesswatch/internal/metrics"
	"github.com/park285/chesswatch/internal/msgcat"
	"github.com/park285/chesswatch/internal/obslog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP and WebSocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appcfg.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// closers run in reverse registration order on shutdown.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) run(log *zap.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn("close_failed", zap.Error(err))
		}
	}
}

func newUpstream(cfg *appcfg.AppConfig, m *metrics.Metrics) *lichess.Client {
	return lichess.NewClient(cfg.LichessBaseURL,
		lichess.WithUserAgent(cfg.LichessUserAgent),
		lichess.WithTimeout(cfg.LichessTimeout),
		lichess.WithRetry(cfg.LichessRetries),
		lichess.WithBackoff(cfg.LichessBackoff),
		lichess.WithRateLimit(cfg.LichessRatePerS, 1),
		lichess.WithObserver(m),
	)
}

func serve(ctx context.Context, cfg *appcfg.AppConfig) error {
	log := obslog.Named("serve")
	var cleanup closers
	defer cleanup.run(log)

	m := metrics.New()
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("message catalog: %w", err)
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		cleanup.add(rs.Close)
		store = rs
		log.Info("cache_backend", zap.String("kind", "redis"))
	} else {
		log.Info("cache_backend", zap.String("kind", "memory"))
	}

	var recorder archive.Recorder = archive.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		repo, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		cleanup.add(repo.Close)
		recorder = repo
		log.Info("archive_backend", zap.String("kind", "postgres"))
	}

	opts := dashboard.Options{
		TTLTop:          cfg.CacheTTLTop,
		TTLList:         cfg.CacheTTLList,
		TTLBroadcast:    cfg.CacheTTLBroadcast,
		TTLRound:        cfg.CacheTTLRound,
		GamesPerPage:    cfg.GamesPerPage,
		ListSize:        cfg.ListSize,
		ArchiveFinished: cfg.ArchiveFinished,
	}
	dash := dashboard.New(newUpstream(cfg, m),
		dashboard.WithOptions(opts),
		dashboard.WithCache(cache.NewLoader(store, m)),
		dashboard.WithRenderer(board.NewRenderer()),
		dashboard.WithRecorder(recorder),
		dashboard.WithCatalog(catalog),
		dashboard.WithMetrics(m),
	)

	hub := livefeed.NewHub(dash, livefeed.Options{
		PollInterval:   cfg.LivePollInterval,
		AllowedOrigins: cfg.WSAllowedOrigins,
	}, m)

	router := httpapi.NewRouter(httpapi.Deps{
		Dashboard: dash,
		Live:      hub,
		Metrics:   m,
		Catalog:   catalog,

		ArchiveLimit: cfg.ArchiveRecentLimit,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown_begin", zap.Duration("grace", cfg.ShutdownGrace))
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	// hijacked websocket conns are not tracked by Shutdown
	if err := hub.Close(sctx); err != nil {
		log.Warn("livefeed_close", zap.Error(err))
	}
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("shutdown_done")
	return nil
}
