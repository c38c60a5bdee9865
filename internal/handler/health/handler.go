package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/bloodlink-api/internal/service/inbound"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB and the redis client.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts clients whose ping does not match Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type PollerStatus interface {
	Status() inbound.Status
}

type Handler struct {
	checks   map[string]Pinger
	poller   PollerStatus
	gatherer prometheus.Gatherer
}

// NewHandler takes named dependencies checked by readiness. poller may be nil
// when this process does not monitor the inbox.
func NewHandler(checks map[string]Pinger, poller PollerStatus, gatherer prometheus.Gatherer) *Handler {
	return &Handler{checks: checks, poller: poller, gatherer: gatherer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/poller", h.PollerStatus)
		health.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) PollerStatus(c *gin.Context) {
	if h.poller == nil {
		c.JSON(http.StatusOK, inbound.Status{State: inbound.StateIdle})
		return
	}
	c.JSON(http.StatusOK, h.poller.Status())
}
