package httpx

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORSRoute applies Policy to paths under Prefix.
type CORSRoute struct {
	Prefix string
	Policy CORSPolicy
}

type corsRule struct {
	prefix      string
	origins     []string
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

// WithRouteCORS answers cross-origin requests with the policy of the longest
// matching prefix. The embeddable booking widget and the back office can then
// trust different origins. Routes without origins, and unmatched paths, get no
// CORS headers.
func WithRouteCORS(routes ...CORSRoute) Middleware {
	var rules []corsRule
	for _, rt := range routes {
		origins := normalizeList(rt.Policy.AllowedOrigins)
		if len(origins) == 0 {
			continue
		}
		rule := corsRule{
			prefix:      rt.Prefix,
			origins:     origins,
			methods:     strings.Join(normalizeList(rt.Policy.AllowedMethods), ", "),
			headers:     strings.Join(normalizeList(rt.Policy.AllowedHeaders), ", "),
			credentials: rt.Policy.AllowCredentials,
		}
		if secs := int(rt.Policy.MaxAge.Seconds()); secs > 0 {
			rule.maxAge = strconv.Itoa(secs)
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil
	}
	sort.SliceStable(rules, func(i, j int) bool { return len(rules[i].prefix) > len(rules[j].prefix) })

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			for _, rule := range rules {
				if !strings.HasPrefix(r.URL.Path, rule.prefix) {
					continue
				}
				if rule.apply(w, r, origin) {
					return
				}
				break
			}
			next.ServeHTTP(w, r)
		})
	}
}

// apply sets the response headers for an allowed origin and reports whether
// the request was a preflight that has now been answered.
func (c corsRule) apply(w http.ResponseWriter, r *http.Request, origin string) bool {
	allowOrigin, ok := matchOrigin(origin, c.origins, c.credentials)
	if !ok {
		return false
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	h.Add("Vary", "Origin")

	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// matchOrigin echoes the caller's origin for credentialed wildcards, since
// browsers reject "*" together with credentials.
func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		if candidate == "*" {
			if allowCredentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}
