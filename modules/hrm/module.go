// Package hrm keeps tenant employee records. Every mutation is committed
// through an audited unit of work on the request's tenant session.
package hrm

import (
	auditpersistence "github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/hrm/presentation/controllers"
	"github.com/gemelli/tenantcore/modules/hrm/services"
	"github.com/gemelli/tenantcore/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewEmployeeService(
			persistence.NewEmployeeRepository(),
			auditpersistence.NewAuditLogRepository(),
			app.EventPublisher(),
		),
	)
	app.RegisterControllers(
		controllers.NewEmployeeController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "hrm"
}
