package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const checkTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks   map[string]Checker
	gatherer prometheus.Gatherer
}

// NewHandler serves liveness, readiness over checks, and the metrics in
// gatherer. A nil gatherer uses the default registry.
func NewHandler(checks map[string]Checker, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{checks: checks, gatherer: gatherer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/metrics", h.Metrics())
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(gin.H, len(names))
	down := false
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			results[name] = "DOWN: " + err.Error()
			down = true
			continue
		}
		results[name] = "UP"
	}

	if down {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "checks": results})
}

func (h *Handler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
