package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"siteinsight/internal/alert"
	"siteinsight/internal/config"
	"siteinsight/internal/db"
	"siteinsight/internal/http/handlers"
	appmw "siteinsight/internal/http/middleware"
	"siteinsight/internal/reconcile"
	"siteinsight/internal/source"
)

var routes = []string{
	"/healthz", "/metrics",
	"/api/health", "/api/track", "/api/refresh", "/api/traffic",
	"/api/sessions", "/api/clicks", "/api/journeys", "/api/summary", "/api/files",
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *db.Store
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(cfg)
		if err != nil {
			logger.Fatal("failed to connect database", zap.Error(err))
		}
		store = db.NewStore(sqlDB, cfg.RetentionDays)
		db.StartRetentionWorker(sqlDB, logger)
		db.StartAggregationWorker(sqlDB, logger)
	} else {
		logger.Warn("APP_DATABASE_URL not set; tracking disabled, reports use remote feeds and the cache file only")
	}

	handlers.InitPrometheusMetrics()

	chain := buildChain(cfg, store, logger)
	var cache source.Cache = source.NewMemoryCache()
	if cfg.Sources.RedisURL != "" {
		rc, err := source.ConnectRedis(cfg.Sources.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory event cache", zap.Error(err))
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	events := source.NewCached(chain, cache, cfg.Sources.CacheTTL, logger)

	// Typed nils must not leak into the handler interfaces.
	var sink handlers.EventSink
	var traffic handlers.TrafficReader
	if store != nil {
		sink = store
		traffic = store
	}

	if cfg.Alert.Enabled() {
		if store == nil {
			logger.Warn("visitor alerts need APP_DATABASE_URL for the notified-session ledger; alerts disabled")
		} else {
			worker := &alert.Worker{
				Events: events,
				Ledger: store,
				Mailer: alert.NewSender(alert.MailConfig{
					Host: cfg.Alert.SMTPHost,
					Port: cfg.Alert.SMTPPort,
					User: cfg.Alert.SMTPUser,
					Pass: cfg.Alert.SMTPPass,
					From: cfg.Alert.From,
					To:   cfg.Alert.To,
				}),
				OwnerIP:  cfg.Report.OwnerIP,
				Window:   cfg.Alert.Window,
				Cooldown: cfg.Alert.Cooldown,
				Interval: cfg.Alert.Interval,
				Logger:   logger,
			}
			worker.Start(ctx)
		}
	}

	reports := &handlers.Reports{
		Events: events,
		Options: reconcile.Options{
			OwnerIP:     cfg.Report.OwnerIP,
			OwnerLabel:  cfg.Report.OwnerLabel,
			CityCountry: cfg.Report.CityCountry,
			KnownFiles:  cfg.Report.KnownFiles,
		},
		Logger: logger,
	}

	r := router.New()

	// Global middleware chain: request logger, metrics, CORS, client IP, then router
	handler := handlers.RequestLogger(logger)(
		appmw.RequestMetrics(routes...)(
			appmw.CORS(cfg.AllowedOrigins)(
				appmw.ClientIP(r.Handler))))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.MetricsHandler(prometheus.DefaultGatherer))

	r.GET("/api/health", handlers.Health())
	r.POST("/api/track", handlers.Track(sink, logger))

	r.GET("/api/sessions", reports.Sessions())
	r.GET("/api/clicks", reports.Clicks())
	r.GET("/api/journeys", reports.Journeys())
	r.GET("/api/summary", reports.Summary())
	r.GET("/api/files", reports.Files())
	r.POST("/api/refresh", reports.Refresh())

	r.GET("/api/traffic", handlers.TrafficSeries(traffic, logger))

	server := &fasthttp.Server{Handler: handler, Name: "siteinsight"}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("siteinsight listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildChain assembles the event sources in fallback order: primary feed,
// its http fallback, the mirror, the local store, then the cache file.
func buildChain(cfg *config.Config, store *db.Store, logger *zap.Logger) *source.Chain {
	sc := cfg.Sources
	file := &source.FileSource{Path: sc.CacheFile}

	var sources []source.Source
	for _, feed := range []struct{ name, url string }{
		{"primary", sc.PrimaryURL},
		{"fallback", sc.FallbackURL},
		{"mirror", sc.MirrorURL},
	} {
		if feed.url != "" {
			sources = append(sources, source.NewHTTPSource(feed.name, feed.url, sc.FetchTimeout, nil, logger))
		}
	}
	if store != nil {
		sources = append(sources, &source.StoreSource{Loader: store, Window: retentionWindow(cfg)})
	}
	sources = append(sources, file)

	return &source.Chain{Sources: sources, WriteThrough: file, Logger: logger}
}

func retentionWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RetentionDays) * 24 * time.Hour
}
