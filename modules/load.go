package modules

import (
	"github.com/gemelli/tenantcore/modules/audit"
	"github.com/gemelli/tenantcore/modules/catalog"
	"github.com/gemelli/tenantcore/modules/hrm"
	"github.com/gemelli/tenantcore/pkg/application"
)

// BuiltInModules are registered in order; hrm depends on the audit store and
// the catalog must come first so tenant resolution can find it.
var BuiltInModules = []application.Module{
	catalog.NewModule(),
	audit.NewModule(),
	hrm.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
