package composables

import (
	"context"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/constants"
	"github.com/gemelli/tenantcore/pkg/serrors"
	"github.com/gemelli/tenantcore/pkg/tenant"
)

func WithTenantContext(ctx context.Context, tc *tenant.Context) context.Context {
	return context.WithValue(ctx, constants.TenantContextKey, tc)
}

// UseTenantContext returns the request's tenant context holder, if one was installed.
func UseTenantContext(ctx context.Context) (*tenant.Context, bool) {
	tc, ok := ctx.Value(constants.TenantContextKey).(*tenant.Context)
	return tc, ok && tc != nil
}

// UseTenant returns the resolved descriptor for the current request.
func UseTenant(ctx context.Context) (*descriptor.Descriptor, error) {
	tc, ok := UseTenantContext(ctx)
	if !ok {
		return nil, serrors.TenantNotResolved("no tenant context in request")
	}
	return tc.MustGet()
}
