package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits on key within fixed windows and returns the count so far,
// including this hit.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateClass names a group of routes that share one budget per client.
type RateClass struct {
	Name  string
	Limit int
}

type RateLimitConfig struct {
	Window time.Duration
	// Classify picks the budget for r; ok=false lets the request through unmetered.
	Classify func(r *http.Request) (class RateClass, ok bool)
	// FailOpen serves requests when the limiter itself errors.
	FailOpen bool
	Logger   *slog.Logger
}

// RateLimit meters each client separately per class, so booking attempts and
// slot browsing never eat into each other's budget.
func RateLimit(l Limiter, cfg RateLimitConfig) Middleware {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, ok := cfg.Classify(r)
			if !ok || class.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			count, err := l.Hit(r.Context(), class.Name+":"+ClientIP(r), cfg.Window)
			if err != nil {
				cfg.Logger.Warn("rate limiter error", "class", class.Name, "err", err)
				if cfg.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, r, http.StatusServiceUnavailable, "rate limiter unavailable")
				return
			}
			if count > int64(class.Limit) {
				w.Header().Set("Retry-After", retryAfter)
				WriteError(w, r, http.StatusTooManyRequests, class.Name+" rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the first X-Forwarded-For hop, or the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// MemoryLimiter keeps windows in process. It serves single-replica setups and
// deployments without Redis.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

const memoryLimiterSweepAt = 10000

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: map[string]*window{}, now: time.Now}
}

func (m *MemoryLimiter) Hit(_ context.Context, key string, d time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.windows) > memoryLimiterSweepAt {
		for k, w := range m.windows {
			if !now.Before(w.resetAt) {
				delete(m.windows, k)
			}
		}
	}
	w := m.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RedisLimiter shares windows across every replica.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisLimiter(rdb redis.Scripter, prefix string) *RedisLimiter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, d time.Duration) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, d.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected rate limit script result %T", res)
	}
	return n, nil
}
