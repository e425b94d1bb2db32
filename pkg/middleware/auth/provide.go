package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Config is the [auth] block of the manifest. Everything is optional; an
// empty Config yields a middleware that lets every request through
// unauthenticated, leaving route guards to decide.
type Config struct {
	SessionAPI      string `toml:"session_api"`
	SessionCookie   string `toml:"session_cookie"`
	AdminRole       string `toml:"admin_role"`
	DevBypass       bool   `toml:"dev_bypass"`
	AssertionCookie string `toml:"assertion_cookie"`  // default "assert"
	AssertionKeyURL string `toml:"assertion_key_url"` // JWKS or PEM
	AssertionKeyKID string `toml:"assertion_key_kid"`
	AssertionIssuer string `toml:"assertion_issuer"`
	AssertionAud    string `toml:"assertion_audience"`
	AssertionLeeway int    `toml:"assertion_leeway_seconds"` // default 60
	HTTPTimeoutMS   int    `toml:"http_timeout_ms"`          // default 8000
}

type Option func(*Middleware)

// WithHTTPClient swaps the client used for session and key lookups.
func WithHTTPClient(d HTTPDoer) Option {
	return func(m *Middleware) {
		if d != nil {
			m.client = d
		}
	}
}

// New builds the middleware from cfg. When an assertion key URL is set it
// fetches the key once; on success the key is refreshed in the background
// until Close. A failed first fetch only disables assertion cookies.
func New(cfg Config, opts ...Option) *Middleware {
	m := &Middleware{
		client:         &http.Client{Timeout: msOr(cfg.HTTPTimeoutMS, 8*time.Second)},
		adminRole:      strings.TrimSpace(cfg.AdminRole),
		devBypass:      cfg.DevBypass,
		sessionAPI:     strings.TrimSpace(cfg.SessionAPI),
		sessionCookie:  strings.TrimSpace(cfg.SessionCookie),
		assertCookie:   strings.TrimSpace(cfg.AssertionCookie),
		assertIssuer:   strings.TrimSpace(cfg.AssertionIssuer),
		assertAudience: strings.TrimSpace(cfg.AssertionAud),
		assertLeeway:   60 * time.Second,
	}
	if m.assertCookie == "" {
		m.assertCookie = "assert"
	}
	if cfg.AssertionLeeway > 0 {
		m.assertLeeway = time.Duration(cfg.AssertionLeeway) * time.Second
	}
	for _, o := range opts {
		o(m)
	}

	if u := strings.TrimSpace(cfg.AssertionKeyURL); u != "" {
		m.keys = newKeyCache(u, strings.TrimSpace(cfg.AssertionKeyKID), m.client)
		ctx, cancel := context.WithCancel(context.Background())
		m.stop = cancel
		if err := m.keys.refresh(ctx); err == nil {
			go m.keys.run(ctx)
		}
	}
	return m
}

// Close stops the background key refresh.
func (m *Middleware) Close() {
	if m.stop != nil {
		m.stop()
	}
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
