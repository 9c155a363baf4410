package itf

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/tenant"
)

// RequestContext builds the context a request for d would carry after the
// principal and tenant middlewares ran. A nil d leaves the tenant unresolved.
func RequestContext(tb testing.TB, d *descriptor.Descriptor, user *identity.User) context.Context {
	tb.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx := composables.WithLogger(context.Background(), logrus.NewEntry(logger).WithField("test", tb.Name()))
	tc := tenant.NewContext()
	if d != nil {
		if err := tc.Set(d); err != nil {
			tb.Fatal(err)
		}
	}
	ctx = composables.WithTenantContext(ctx, tc)
	if user != nil {
		ctx = composables.WithUser(ctx, user)
	}
	return ctx
}
