package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/entitycache/auth"
	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/health"
	"github.com/jonwraymond/entitycache/observe"
)

// ErrNilCoordinator is returned by NewRouter without a coordinator.
var ErrNilCoordinator = errors.New("admin: coordinator is nil")

// Config configures the admin router.
type Config struct {
	// Coordinator serves every /cache route. Required.
	Coordinator *cache.Coordinator

	// Authenticator guards /cache routes. Nil leaves them open.
	Authenticator auth.Authenticator

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// RateLimit is the per-IP request budget per minute on /cache routes.
	// Zero disables rate limiting.
	RateLimit int

	// AllowedOrigins enables CORS for these origins. Empty disables CORS.
	AllowedOrigins []string

	// Logger records requests and failures.
	Logger observe.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Coordinator == nil {
		return nil, ErrNilCoordinator
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	h := &handlers{
		c:        cfg.Coordinator,
		logger:   cfg.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(cfg.Coordinator.Checks()))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/cache", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, r, http.StatusTooManyRequests, CodeTooManyRequests, "rate limit exceeded")
				}),
			))
		}
		if cfg.Authenticator != nil {
			r.Use(auth.Middleware(auth.MiddlewareConfig{
				Authenticator: cfg.Authenticator,
				RequiredRole:  auth.RoleAdmin,
				OnError:       writeAuthError,
				Logger:        cfg.Logger,
			}))
		}

		r.Get("/metrics", h.metrics)
		r.Get("/metrics/{entityType}", h.entityMetrics)
		r.Post("/reset", h.reset)
		r.Get("/health", h.health)
		r.Delete("/clear/{pattern}", h.clear)
		r.Get("/keys/{prefix}", h.keys)
	})
	return r, nil
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug(r.Context(), "admin request",
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", ww.Status()),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
				observe.F("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
