package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/certipop/pkg/audit"
	"github.com/joeydtaylor/certipop/pkg/bundlefx"
	"github.com/joeydtaylor/certipop/pkg/connector"
	"github.com/joeydtaylor/certipop/pkg/connector/handler"
	"github.com/joeydtaylor/certipop/pkg/core"
	"github.com/joeydtaylor/certipop/pkg/manifest"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"github.com/joeydtaylor/certipop/pkg/middleware/logger"
	"github.com/joeydtaylor/certipop/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Config struct {
	Service         string // for logs only
	ManifestEnv     string // e.g., CERTIPOP_MANIFEST
	DefaultManifest string // e.g., "manifest.toml"
	ListenEnv       string // SERVER_LISTEN_ADDRESS
	DefaultListen   string // ":4000"
	TLSCertEnv      string // SSL_SERVER_CERTIFICATE
	TLSKeyEnv       string // SSL_SERVER_KEY
}

type Option func(*Config)

func WithService(s string) Option            { return func(c *Config) { c.Service = s } }
func WithManifestEnv(k string) Option        { return func(c *Config) { c.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(c *Config) { c.DefaultManifest = path } }
func WithListenEnv(k string) Option          { return func(c *Config) { c.ListenEnv = k } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(c *Config) { c.TLSCertEnv, c.TLSKeyEnv = cert, key }
}

func defaultConfig() Config {
	return Config{
		Service:         "certipop",
		ManifestEnv:     "CERTIPOP_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenEnv:       "SERVER_LISTEN_ADDRESS",
		DefaultListen:   ":4000",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// Module returns a complete Fx option set.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		fx.Supply(cfg),
		// Manifest and its sections
		fx.Provide(provideManifest),
		fx.Provide(
			func(m manifest.Config) auth.Config { return m.Auth },
			func(m manifest.Config) logger.Config { return m.Log },
			func(m manifest.Config) connector.Config { return m.Connector },
			func(m manifest.Config) audit.Config { return m.Audit },
		),
		// Middleware
		bundlefx.Module,
		// Router impl
		fx.Provide(httpx.NewChi),
		// Domain
		fx.Provide(provideConnector),
		fx.Provide(provideAudit),
		fx.Provide(provideHandler),
		// Router
		fx.Provide(fx.Annotate(
			provideRouter,
			fx.ParamTags(``, ``, ``, `name:"metrics"`, ``, ``),
			fx.ResultTags(`name:"app"`),
		)),
		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Providers ----------

func provideManifest(cfg Config) (manifest.Config, error) {
	return core.LoadConfig(envOr(cfg.ManifestEnv, cfg.DefaultManifest))
}

func provideConnector(cfg connector.Config, zl *zap.Logger) (*connector.Client, error) {
	return connector.New(cfg, connector.WithLogger(zl.Named("connector")))
}

// provideAudit stops the relay after the HTTP server has shut down, since
// fx runs OnStop hooks in reverse registration order.
func provideAudit(lc fx.Lifecycle, cfg audit.Config, zl *zap.Logger) (audit.Publisher, error) {
	p, err := audit.New(cfg, zl.Named("audit"))
	if err != nil {
		return nil, err
	}
	if _, noop := p.(audit.Noop); noop {
		zl.Info("audit relay disabled (no target)")
	}
	closeOnStop(lc, p)
	return p, nil
}

func closeOnStop(lc fx.Lifecycle, p audit.Publisher) {
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		p.Close()
		return nil
	}})
}

func provideHandler(c *connector.Client, p audit.Publisher, a *auth.Middleware, zl *zap.Logger) *handler.Handler {
	return handler.New(c,
		handler.WithAudit(p),
		handler.WithAuth(a),
		handler.WithLogger(zl.Named("handler")),
		handler.WithMunicipality(c.Config().MunicipalityID),
	)
}

// ---------- Router ----------

func provideRouter(
	man manifest.Config,
	a *auth.Middleware,
	lm *logger.Middleware,
	/* name:"metrics" */ m http.Handler,
	h *handler.Handler,
	r httpx.Router,
) http.Handler {
	return core.BuildRouter(man, core.BuildDeps{
		Auth:     a,
		LogMW:    lm,
		Metrics:  m,
		Router:   r,
		Handlers: h.Handlers(),
	})
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Cfg    Config
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

// httpServer serves App over TLS when both cert and key files exist, and in
// plaintext otherwise.
type httpServer struct {
	srv       *http.Server
	cert, key string
	service   string
	log       *zap.Logger
}

func newHTTPServer(d serverDeps) *httpServer {
	s := &httpServer{
		srv: &http.Server{
			Addr:         envOr(d.Cfg.ListenEnv, d.Cfg.DefaultListen),
			Handler:      d.App,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		cert:    os.Getenv(d.Cfg.TLSCertEnv),
		key:     os.Getenv(d.Cfg.TLSKeyEnv),
		service: d.Cfg.Service,
		log:     d.Logger,
	}
	if s.useTLS() {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	return s
}

func (s *httpServer) useTLS() bool { return fileExists(s.cert) && fileExists(s.key) }

// start binds synchronously so a busy address fails fx start instead of
// killing the process later.
func (s *httpServer) start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	tlsOn := s.useTLS()
	s.log.Info("server starting",
		zap.String("service", s.service),
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", tlsOn),
	)
	go func() {
		var err error
		if tlsOn {
			err = s.srv.ServeTLS(ln, s.cert, s.key)
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatal("server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *httpServer) stop(ctx context.Context) error {
	s.log.Info("server stopping", zap.String("service", s.service))
	err := s.srv.Shutdown(ctx)
	_ = s.log.Sync()
	return err
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	s := newHTTPServer(d)
	lc.Append(fx.Hook{OnStart: s.start, OnStop: s.stop})
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
