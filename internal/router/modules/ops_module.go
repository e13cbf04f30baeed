package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/pkg/metrics"
)

// OpsModule exposes the health probe and, when a gatherer is set, the
// Prometheus scrape endpoint.
type OpsModule struct {
	Health   *handlers.HealthHandler
	Gatherer prometheus.Gatherer
}

func NewOpsModule(h *handlers.HealthHandler, gatherer prometheus.Gatherer) *OpsModule {
	return &OpsModule{Health: h, Gatherer: gatherer}
}

func (m *OpsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Health.Health)
	if m.Gatherer != nil {
		rg.GET("/metrics", gin.WrapH(metrics.Handler(m.Gatherer)))
	}
}
