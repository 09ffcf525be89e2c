package admin

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/entitycache/auth"
	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/health"
	"github.com/jonwraymond/entitycache/metrics"
	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
)

// Key listing limits.
const (
	DefaultKeysLimit = 100
	MaxKeysLimit     = 1000
)

// PolicyView is the serializable form of a policy.
type PolicyView struct {
	TTL       int64    `json:"ttl"`
	KeyPrefix string   `json:"keyPrefix"`
	Tags      []string `json:"tags"`
}

func viewOf(p policy.Policy) PolicyView {
	return PolicyView{TTL: p.TTLSeconds(), KeyPrefix: p.KeyPrefix, Tags: p.Tags}
}

// MetricsResponse is the data of GET /cache/metrics.
type MetricsResponse struct {
	Metrics  metrics.Aggregated    `json:"metrics"`
	Policies map[string]PolicyView `json:"policies"`
}

// EntityMetricsResponse is the data of GET /cache/metrics/{entityType}.
type EntityMetricsResponse struct {
	EntityType string                `json:"entityType"`
	Known      bool                  `json:"known"`
	Metrics    metrics.EntityMetrics `json:"metrics"`
	Policy     PolicyView            `json:"policy"`
}

// ResetResponse is the data of POST /cache/reset.
type ResetResponse struct {
	Reset     bool      `json:"reset"`
	Persisted bool      `json:"persisted"`
	LastReset time.Time `json:"lastReset"`
}

// HealthResponse is the data of GET /cache/health.
type HealthResponse struct {
	Status    health.Status                 `json:"status"`
	LatencyMs any                           `json:"latencyMs"`
	Keys      any                           `json:"keys"`
	Checks    map[string]health.CheckReport `json:"checks"`
	Timestamp time.Time                     `json:"timestamp"`
}

// ClearResponse is the data of DELETE /cache/clear/{pattern}.
type ClearResponse struct {
	Pattern string `json:"pattern"`
	Deleted int64  `json:"deleted"`
}

// KeysResponse is the data of GET /cache/keys/{prefix}.
type KeysResponse struct {
	Prefix string          `json:"prefix"`
	Limit  int             `json:"limit"`
	Count  int             `json:"count"`
	Keys   []cache.KeyInfo `json:"keys"`
}

type keysQuery struct {
	Prefix string `validate:"required,max=512"`
	Limit  int    `validate:"gte=1,lte=1000"`
}

type handlers struct {
	c        *cache.Coordinator
	logger   observe.Logger
	validate *validator.Validate
}

func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	reg := h.c.Registry()
	policies := make(map[string]PolicyView)
	for et, p := range reg.Policies() {
		policies[string(et)] = viewOf(p)
	}
	writeData(w, r, http.StatusOK, MetricsResponse{
		Metrics:  h.c.Collector().Aggregated(r.Context()),
		Policies: policies,
	})
}

func (h *handlers) entityMetrics(w http.ResponseWriter, r *http.Request) {
	et := policy.EntityType(chi.URLParam(r, "entityType"))
	reg := h.c.Registry()
	writeData(w, r, http.StatusOK, EntityMetricsResponse{
		EntityType: string(et),
		Known:      reg.Known(et),
		Metrics:    h.c.Collector().Entity(et),
		Policy:     viewOf(reg.Resolve(et)),
	})
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	collector := h.c.Collector()
	err := collector.Reset(r.Context())
	h.logger.Info(r.Context(), "metrics reset",
		observe.F("subject", auth.Subject(r.Context())), observe.F("persisted", err == nil))
	writeData(w, r, http.StatusOK, ResetResponse{
		Reset:     true,
		Persisted: err == nil,
		LastReset: collector.LastReset(),
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	report := h.c.Health(r.Context())
	resp := HealthResponse{
		Status:    report.Status,
		Checks:    report.Checks,
		Timestamp: report.Timestamp,
	}
	if store, ok := report.Checks["store"]; ok {
		resp.LatencyMs = store.Details["latency_ms"]
		resp.Keys = store.Details["keys"]
	}
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeData(w, r, status, resp)
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	pattern, err := url.PathUnescape(chi.URLParam(r, "pattern"))
	if err != nil || pattern == "" {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid pattern")
		return
	}
	n, err := h.c.Clear(r.Context(), pattern)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	h.logger.Info(r.Context(), "admin clear",
		observe.F("subject", auth.Subject(r.Context())), observe.F("pattern", pattern), observe.F("deleted", n))
	writeData(w, r, http.StatusOK, ClearResponse{Pattern: pattern, Deleted: n})
}

func (h *handlers) keys(w http.ResponseWriter, r *http.Request) {
	prefix, err := url.PathUnescape(chi.URLParam(r, "prefix"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid prefix")
		return
	}
	q := keysQuery{Prefix: prefix, Limit: DefaultKeysLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "limit must be between 1 and 1000")
		return
	}

	keys, err := h.c.Keys(r.Context(), q.Prefix, q.Limit)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, KeysResponse{Prefix: q.Prefix, Limit: q.Limit, Count: len(keys), Keys: keys})
}
