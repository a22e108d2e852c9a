package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sitefolio/scheduling/libs/httpx"
)

func testHandler(t *testing.T, cfg httpConfig) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	return buildHandler(mux, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, nil)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	h := testHandler(t, httpConfig{BodyLimit: 1024, RequestTimeout: time.Second, BrowsePerMinute: 2, BookPerMinute: 1})

	for i := 0; i < 2; i++ {
		if rec := get(h, "/api/v1/public/slots"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := get(h, "/api/v1/public/slots"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	for i := 0; i < 3; i++ {
		if rec := get(h, "/api/v1/appointments"); rec.Code != http.StatusOK {
			t.Fatalf("admin routes should not be limited, got %d", rec.Code)
		}
	}
}

func TestHandlerSetsRequestIDAndRecovers(t *testing.T) {
	h := testHandler(t, httpConfig{BodyLimit: 1024, RequestTimeout: time.Second, BrowsePerMinute: 10, BookPerMinute: 10})

	rec := get(h, "/panic")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get(httpx.RequestIDHeader) == "" {
		t.Fatalf("expected %s header", httpx.RequestIDHeader)
	}
}

func TestLoadHTTPConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_BOOK_PER_MINUTE", "5")
	t.Setenv("CORS_PUBLIC_ORIGINS", "*")
	t.Setenv("CORS_ADMIN_ORIGINS", "https://example.com, https://admin.example.com")

	cfg := loadHTTPConfig()
	if cfg.BrowsePerMinute != 60 || cfg.BookPerMinute != 5 || cfg.RequestTimeout != 3*time.Second || cfg.BodyLimit != 1<<20 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.AdminCORS.AllowedOrigins) != 2 || cfg.AdminCORS.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected admin origins %v", cfg.AdminCORS.AllowedOrigins)
	}
	if len(cfg.PublicCORS.AllowedOrigins) != 1 || cfg.PublicCORS.AllowCredentials {
		t.Fatalf("unexpected public policy %+v", cfg.PublicCORS)
	}
}

func TestBookingAttemptsHaveTheirOwnBudget(t *testing.T) {
	h := testHandler(t, httpConfig{BodyLimit: 1024, RequestTimeout: time.Second, BrowsePerMinute: 5, BookPerMinute: 1})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/appointments", strings.NewReader("{}"))
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := post(); code != http.StatusOK {
		t.Fatalf("first booking: expected 200, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second booking: expected 429, got %d", code)
	}
	if rec := get(h, "/api/v1/public/slots"); rec.Code != http.StatusOK {
		t.Fatalf("browsing should not share the booking budget, got %d", rec.Code)
	}
}

func TestCORSIsScopedByRoute(t *testing.T) {
	h := testHandler(t, httpConfig{
		BodyLimit: 1024, RequestTimeout: time.Second, BrowsePerMinute: 10, BookPerMinute: 10,
		PublicCORS: httpx.CORSPolicy{AllowedOrigins: []string{"*"}},
		AdminCORS:  httpx.CORSPolicy{AllowedOrigins: []string{"https://admin.example.com"}},
	})

	origin := func(path string) string {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("Origin", "https://widget-host.example.org")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header().Get("Access-Control-Allow-Origin")
	}
	if got := origin("/api/v1/public/slots"); got != "*" {
		t.Fatalf("public routes should be embeddable anywhere, got %q", got)
	}
	if got := origin("/api/v1/appointments"); got != "" {
		t.Fatalf("admin routes should refuse foreign origins, got %q", got)
	}
}
