package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"finsight/internal/api"
	"finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/middleware/session"
	"finsight/internal/middleware/trace"
	appweb "finsight/web"
)

const (
	loginRoute  = "/auth/login"
	logoutRoute = "/auth/logout"
)

// Options configures a Server.
type Options struct {
	Addr           string
	Client         *api.Client
	Logger         *log.Logger
	SessionCookie  string
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string

	// PublicOrigin is where the backend is reached when Client has no base
	// URL of its own (same-origin deployment behind a reverse proxy).
	PublicOrigin string

	// Templates and Static override the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	client    *api.Client
	logger    *log.Logger
	guard     *session.Guard

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New("api client is required")
	}
	client := opts.Client.ForOrigin(opts.PublicOrigin)
	if client.BaseURL() == "" {
		return nil, errors.New("backend origin is required: the api client has no base URL and no public origin is set")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	staticFS := opts.Static
	if staticFS == nil {
		sub, err := fs.Sub(appweb.StaticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("mount static assets: %w", err)
		}
		staticFS = sub
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	for _, proxy := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(proxy); err != nil {
			return nil, fmt.Errorf("trusted proxy: %w", err)
		}
	}

	s := &Server{
		templates:        t,
		client:           client,
		logger:           logger.WithComponent(log.ComponentHTTP),
		guard:            session.NewGuard(opts.SessionCookie, loginRoute, logger),
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}),
		traceMiddleware: trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:      newAppMetrics(),
	}

	mux := http.NewServeMux()
	s.routes(mux, staticFS)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, staticFS fs.FS) {
	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", s.guard.Attach(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("GET "+loginRoute, s.handleLogin)
	mux.HandleFunc("GET "+logoutRoute, s.handleLogout)

	protected := func(component string) func(http.HandlerFunc) http.Handler {
		withComponent := log.ComponentMiddleware(component)
		return func(h http.HandlerFunc) http.Handler {
			return security.NoStoreMiddleware(s.guard.Require(withComponent(h)))
		}
	}

	profile := protected(log.ComponentProfile)
	mux.Handle("GET /dashboard", profile(s.handleDashboard))
	mux.Handle("POST /profile", profile(s.handleUpdateProfile))
	mux.Handle("POST /profile/delete", profile(s.handleDeleteProfile))

	tx := protected(log.ComponentTx)
	mux.Handle("GET /transactions", tx(s.handleTransactions))
	mux.Handle("POST /transactions", tx(s.handleCreateTransaction))
	mux.Handle("POST /transactions/{id}", tx(s.handleUpdateTransaction))
	mux.Handle("POST /transactions/{id}/delete", tx(s.handleDeleteTransaction))

	categories := protected(log.ComponentCategory)
	mux.Handle("GET /categories", categories(s.handleCategories))
	mux.Handle("POST /categories", categories(s.handleCreateCategory))
	mux.Handle("POST /categories/{id}", categories(s.handleUpdateCategory))
	mux.Handle("POST /categories/{id}/delete", categories(s.handleDeleteCategory))
}

// middleware wraps the mux, outermost first: tracing spans, request
// logging, security headers, suspicious-request logging, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(next)
	h = s.securityDetector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return otelhttp.NewHandler(h, "finsight",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/readyz"
		}),
	)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
