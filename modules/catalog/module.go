// Package catalog owns the master catalog of per-organization data configs.
package catalog

import (
	"context"
	"time"

	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/cache"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/catalog/presentation/controllers"
	"github.com/gemelli/tenantcore/modules/catalog/services"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/configuration"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	descriptorCache, err := cache.FromConfig(ctx, conf.Cache)
	if err != nil {
		return err
	}

	app.RegisterServices(
		services.NewCatalogService(
			persistence.NewDataConfigRepository(),
			descriptorCache,
			app.Provisioner(),
			app.ProvisionMemo(),
			app.EventPublisher(),
		),
	)
	app.RegisterControllers(
		controllers.NewDataConfigController(app),
	)
	if tenants := app.Tenants(); tenants != nil {
		app.EventPublisher().Subscribe(tenants.OnDescriptorUpdated)
	}
	return nil
}

func (m *Module) Name() string {
	return "catalog"
}
