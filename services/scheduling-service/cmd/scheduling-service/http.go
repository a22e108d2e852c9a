package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitefolio/scheduling/libs/config"
	"github.com/sitefolio/scheduling/libs/httpx"
)

const (
	publicPrefix = "/api/v1/public/"
	adminPrefix  = "/api/v1/"
)

// httpConfig holds the edge settings. BrowsePerMinute meters public reads and
// BookPerMinute public writes, each per client.
type httpConfig struct {
	BodyLimit       int64
	RequestTimeout  time.Duration
	BrowsePerMinute int
	BookPerMinute   int
	RateFailOpen    bool
	RatePrefix      string
	PublicCORS      httpx.CORSPolicy
	AdminCORS       httpx.CORSPolicy
}

func loadHTTPConfig() httpConfig {
	methods := config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")
	headers := config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")
	maxAge := config.Seconds("CORS_MAX_AGE_SECONDS", 10*time.Minute)
	return httpConfig{
		BodyLimit:       int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
		RequestTimeout:  config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second),
		BrowsePerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 60),
		BookPerMinute:   config.Int("RATE_LIMIT_BOOK_PER_MINUTE", 10),
		RateFailOpen:    config.Bool("RATE_LIMIT_FAIL_OPEN", true),
		RatePrefix:      config.String("RATE_LIMIT_PREFIX", "rl:scheduling"),
		PublicCORS: httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_PUBLIC_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: headers,
			MaxAge:         maxAge,
		},
		AdminCORS: httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ADMIN_ORIGINS", ""),
			AllowedMethods:   methods,
			AllowedHeaders:   headers,
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           maxAge,
		},
	}
}

// buildHandler wraps mux with the middleware stack. Public booking routes are
// rate limited per client and class, through Redis when rdb is set.
func buildHandler(mux http.Handler, logger *slog.Logger, cfg httpConfig, rdb *redis.Client) http.Handler {
	var limiter httpx.Limiter = httpx.NewMemoryLimiter()
	if rdb != nil {
		limiter = httpx.NewRedisLimiter(rdb, cfg.RatePrefix)
	}
	book := httpx.RateClass{Name: "book", Limit: cfg.BookPerMinute}
	browse := httpx.RateClass{Name: "browse", Limit: cfg.BrowsePerMinute}
	rateLimit := httpx.RateLimit(limiter, httpx.RateLimitConfig{
		Window:   time.Minute,
		FailOpen: cfg.RateFailOpen,
		Logger:   logger,
		Classify: func(r *http.Request) (httpx.RateClass, bool) {
			switch r.Method {
			case http.MethodOptions:
				return httpx.RateClass{}, false
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				return book, true
			default:
				return browse, true
			}
		},
	})

	return httpx.Chain(mux,
		httpx.WithRouteCORS(
			httpx.CORSRoute{Prefix: publicPrefix, Policy: cfg.PublicCORS},
			httpx.CORSRoute{Prefix: adminPrefix, Policy: cfg.AdminCORS},
		),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/readyz"),
		httpx.WithRecover(logger),
		httpx.ForPrefix(publicPrefix, rateLimit),
		httpx.WithBodyLimit(cfg.BodyLimit),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
}
