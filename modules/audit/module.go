// Package audit stores and serves the per-tenant audit trail written by units of work.
package audit

import (
	"github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/audit/presentation/controllers"
	"github.com/gemelli/tenantcore/modules/audit/services"
	"github.com/gemelli/tenantcore/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewAuditService(persistence.NewAuditLogRepository()),
	)
	app.RegisterControllers(
		controllers.NewAuditLogController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "audit"
}
