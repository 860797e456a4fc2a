package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReportFunc returns the latest soak report, or nil before one exists
type ReportFunc func() interface{}

// Handler serves metrics, health and the soak report over HTTP
type Handler struct {
	collector *Collector
	gatherer  prometheus.Gatherer
	report    ReportFunc
	logger    *zap.Logger
}

// NewHandler creates a new metrics HTTP handler
func NewHandler(collector *Collector, gatherer prometheus.Gatherer, report ReportFunc, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		collector: collector,
		gatherer:  gatherer,
		report:    report,
		logger:    logger,
	}
}

// Router returns a chi router with every route registered
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware(h.collector))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the metrics server routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/v1/soak/report", h.Report)
}

// Health reports liveness and uptime
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": h.collector.Uptime().Seconds(),
	})
}

// Report returns the latest soak report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var report interface{}
	if h.report != nil {
		report = h.report()
	}
	if report == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report yet"})
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
