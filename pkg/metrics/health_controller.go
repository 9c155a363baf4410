package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/httpapi"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports whether the master catalog is reachable and how
// many tenant pools are open. Tenant databases are not probed.
type HealthController struct {
	master Pinger
	pools  func() int
}

func NewHealthController(app application.Application) application.Controller {
	c := &HealthController{pools: func() int { return 0 }}
	if db := app.DB(); db != nil {
		c.master = db
	}
	if tenants := app.Tenants(); tenants != nil {
		c.pools = tenants.Len
	}
	return c
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
}

type healthResponse struct {
	Status      string `json:"status"`
	Master      string `json:"master"`
	TenantPools int    `json:"tenant_pools"`
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Master: "ok", TenantPools: c.pools()}
	status := http.StatusOK
	if c.master == nil {
		resp.Master = "unconfigured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.master.Ping(ctx); err != nil {
			resp.Status, resp.Master = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	_ = httpapi.WriteJSON(w, status, resp)
}
