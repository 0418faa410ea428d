package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pharmadash/internal/api"
	"pharmadash/internal/config"
	"pharmadash/internal/logging"
	"pharmadash/internal/source"
)

var configPath = flag.String("config", "config.toml", "path to the TOML config file")

func main() {
	flag.Parse()
	log := logging.New("server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, cached, err := buildSource(ctx, cfg)
	if err != nil {
		log.Fatalf("source: %v", err)
	}

	// 1. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}
	e.Logger = logging.New("echo")
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.SessionHeader, "If-None-Match"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, "ETag"},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// 2. Routes
	sessions := api.NewSessionStore(source.Fetcher{Source: src}, cfg.Server.SessionTTL.Duration)
	h := api.NewHandler(src, sessions)
	h.RegisterRoutes(e)

	// 3. Warm the period cache in the background; the API answers meanwhile
	if cached != nil && cfg.Warmup.Enabled {
		go func() {
			t0 := time.Now()
			periods, err := src.Periods(ctx)
			if err != nil {
				log.Warnf("warm-up skipped: %v", err)
				return
			}
			periods = periods[:min(len(periods), max(cfg.Warmup.MaxPeriods, 0))]
			n := cached.Warm(ctx, periods, cfg.Warmup.Parallel)
			log.Infof("warm-up done: %d/%d periods in %v", n, len(periods), time.Since(t0))
		}()
	}

	go sweepSessions(ctx, sessions, cfg.Server.SessionTTL.Duration)

	// 4. Start Server
	go func() {
		log.Infof("listening on %s (upstream %s)", cfg.Addr(), cfg.Upstream.Kind)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

// buildSource wires the upstream and the cache layer. cached is nil when
// caching is disabled.
func buildSource(ctx context.Context, cfg *config.AppConfig) (source.Source, *source.Cached, error) {
	var upstream source.Source
	switch cfg.Upstream.Kind {
	case "file":
		upstream = source.NewFileSource(cfg.Upstream.DataDir)
	default:
		upstream = source.NewHTTPSource(cfg.Upstream.BaseURL, source.HTTPOptions{
			Timeout:       cfg.Upstream.Timeout.Duration,
			RatePerSecond: cfg.Upstream.RatePerSecond,
			Burst:         cfg.Upstream.Burst,
		})
	}

	var cache source.Cache
	switch cfg.Cache.Kind {
	case "none":
		return upstream, nil, nil
	case "redis":
		rc, err := source.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL.Duration)
		if err != nil {
			return nil, nil, err
		}
		cache = rc
	default:
		cache = source.NewMemoryCache(cfg.Cache.TTL.Duration)
	}
	cached := source.NewCached(upstream, cache)
	return cached, cached, nil
}

func sweepSessions(ctx context.Context, sessions *api.SessionStore, ttl time.Duration) {
	interval := max(ttl/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
		}
	}
}
