package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
)

// EndpointLimit throttles one route harder than the blanket limits. Keys in
// Config.EndpointLimits are "METHOD /path".
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// Config tunes the request throttles. The per-visitor limit keys on the
// session cookie so one browser cannot spray OTP sends across many source
// addresses behind a NAT, while per-IP catches clients that refuse cookies.
type Config struct {
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	PerVisitorEnabled    bool
	PerVisitorCapacity   int
	PerVisitorRefillRate float64

	// SIDCookie names the session cookie the visitor limit keys on.
	SIDCookie string

	EndpointLimits map[string]EndpointLimit

	BucketTTL time.Duration
}

// DefaultConfig returns the blanket limits. Endpoint limits for the
// OTP-sending routes are set where the routes are mounted, the path prefix
// is not known here.
func DefaultConfig() *Config {
	return &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		PerVisitorEnabled:    true,
		PerVisitorCapacity:   60,
		PerVisitorRefillRate: 60.0 / 60.0,

		SIDCookie: "PORTAL_SID",

		EndpointLimits: make(map[string]EndpointLimit),

		BucketTTL: time.Hour,
	}
}

// Middleware throttles requests per IP, per visitor, and per sensitive
// endpoint.
type Middleware struct {
	config     *Config
	ipLimiter  *Limiter
	sidLimiter *Limiter
	endpoints  map[string]*Limiter
	logger     *slog.Logger
}

// NewMiddleware builds the middleware from config, falling back to defaults
// when nil.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Middleware{
		config:    config,
		endpoints: make(map[string]*Limiter),
		logger:    slog.Default(),
	}
	if config.PerIPEnabled {
		m.ipLimiter = NewLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerVisitorEnabled {
		m.sidLimiter = NewLimiter(config.PerVisitorCapacity, config.PerVisitorRefillRate, config.BucketTTL)
	}
	for route, limit := range config.EndpointLimits {
		m.endpoints[route] = NewLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}
	return m
}

// Handler is the chi-compatible middleware.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if m.ipLimiter != nil && ip != "" && !m.ipLimiter.Allow(ip) {
			m.reject(w, r, "ip", ip)
			return
		}

		sid := m.visitorID(r)
		if m.sidLimiter != nil && sid != "" && !m.sidLimiter.Allow(sid) {
			m.reject(w, r, "visitor", sid)
			return
		}

		route := r.Method + " " + r.URL.Path
		if limiter, ok := m.endpoints[route]; ok {
			key := sid
			if key == "" {
				key = ip
			}
			if !limiter.Allow(key + " " + route) {
				m.reject(w, r, "endpoint", route)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, kind, key string) {
	m.logger.Warn("rate limit exceeded",
		"kind", kind,
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
	)
	w.Header().Set("Retry-After", "60")
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]string{
		"error":   "rate_limit_exceeded",
		"message": "Too many requests. Please try again later.",
	})
}

func (m *Middleware) visitorID(r *http.Request) string {
	if m.config.SIDCookie == "" {
		return ""
	}
	c, err := r.Cookie(m.config.SIDCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
