package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/serrors"
	"github.com/gemelli/tenantcore/pkg/tenant"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
)

// TenantLookup finds the descriptor for an organization claim.
type TenantLookup interface {
	Get(ctx context.Context, organization string) (*descriptor.Descriptor, error)
}

// ProvideMasterPool makes the catalog pool available to catalog repositories.
func ProvideMasterPool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// WithPrincipal stores the principal the identity collaborator supplied.
// Anonymous requests pass through untouched.
func WithPrincipal(extractor identity.Extractor) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := extractor.Extract(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := composables.WithPrincipal(r.Context(), p)
			ctx = composables.WithUser(ctx, &p.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithTenantContext gives every request its own empty tenant holder.
func WithTenantContext() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithTenantContext(r.Context(), tenant.NewContext())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveTenant fills the tenant holder from the principal's organization
// claim. It never rejects a request. Without a claim, or for an organization
// the catalog does not know, the holder stays empty and tenant-scoped access
// fails downstream with TenantNotResolved. Any other lookup failure is
// recorded on the holder and surfaces as TenantUnavailable.
func ResolveTenant(lookup TenantLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tc, ok := composables.UseTenantContext(ctx)
			if !ok {
				tc = tenant.NewContext()
				ctx = composables.WithTenantContext(ctx, tc)
			}

			p, err := composables.UsePrincipal(ctx)
			if err != nil || !p.HasOrganization() {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			logger := composables.UseLogger(ctx).WithField("organization", p.Organization)
			d, err := lookup.Get(ctx, p.Organization)
			if errors.Is(err, serrors.ErrDescriptorNotFound) {
				logger.Warn("organization has no data config")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if err != nil {
				logger.WithError(err).Error("tenant lookup failed")
				if !errors.Is(err, serrors.ErrTenantUnavailable) {
					err = &serrors.UnavailableError{Organization: p.Organization, Attempts: 1, Cause: err}
				}
				if fErr := tc.Fail(err); fErr != nil {
					logger.WithError(fErr).Warn("tenant context already populated")
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if err := tc.Set(d); err != nil {
				logger.WithError(err).Warn("tenant context already populated")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithTenantSession attaches a lazily connecting tenant session and releases
// it when the handler returns or panics.
func WithTenantSession(registry *tenantdb.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := tenantdb.NewSession(registry)
			defer session.Release()
			next.ServeHTTP(w, r.WithContext(tenantdb.WithSession(r.Context(), session)))
		})
	}
}
