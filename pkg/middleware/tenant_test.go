package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/httpapi"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
)

type stubConn struct {
	repo.Tx
	released *atomic.Int32
}

func (c *stubConn) Begin(context.Context) (pgx.Tx, error) { return nil, errors.New("not used") }
func (c *stubConn) Release()                              { c.released.Add(1) }

type stubPool struct {
	released *atomic.Int32
}

func (p *stubPool) Acquire(context.Context) (tenantdb.Conn, error) {
	return &stubConn{released: p.released}, nil
}

func (p *stubPool) Close() {}

type lookupFunc func(ctx context.Context, organization string) (*descriptor.Descriptor, error)

func (f lookupFunc) Get(ctx context.Context, organization string) (*descriptor.Descriptor, error) {
	return f(ctx, organization)
}

type harness struct {
	router   *mux.Router
	opened   atomic.Int32
	released atomic.Int32
	lookups  atomic.Int32
	lastErr  error
	resolved string
}

func newHarness(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *harness {
	t.Helper()
	h := &harness{}
	registry := tenantdb.NewRegistry(tenantdb.Options{MaxConns: 2},
		tenantdb.WithPoolFactory(func(context.Context, *descriptor.Descriptor, tenantdb.Options) (tenantdb.Pool, error) {
			h.opened.Add(1)
			return &stubPool{released: &h.released}, nil
		}),
	)
	t.Cleanup(registry.Close)

	lookup := lookupFunc(func(_ context.Context, organization string) (*descriptor.Descriptor, error) {
		h.lookups.Add(1)
		if organization == "down" {
			return nil, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
		}
		if organization != "acme" {
			return nil, serrors.ErrDescriptorNotFound
		}
		return &descriptor.Descriptor{Organization: "acme", Host: "db", Port: 5432, Database: "acme"}, nil
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h.router = mux.NewRouter()
	h.router.Use(
		WithLogger(logger, DefaultLoggerOptions()),
		WithPrincipal(identity.HeaderExtractor{UserIDHeader: "X-User-ID", OrganizationHeader: "X-Organization"}),
		WithTenantContext(),
		ResolveTenant(lookup),
		WithTenantSession(registry),
	)
	h.router.HandleFunc("/work", handler)
	return h
}

func touchTenantDB(h *harness) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := tenantdb.UseSession(r.Context())
		if err != nil {
			h.lastErr = err
			return
		}
		if d, err := session.Descriptor(r.Context()); err == nil {
			h.resolved = d.Organization
		}
		_, h.lastErr = session.Conn(r.Context())
	}
}

func do(h *harness, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/work", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestTenantPipeline_ResolvedRequestGetsItsDatabase(t *testing.T) {
	var h *harness
	h = newHarness(t, func(w http.ResponseWriter, r *http.Request) { touchTenantDB(h)(w, r) })

	rec := do(h, map[string]string{"X-User-ID": "u-1", "X-Organization": "acme", "X-Request-ID": "req-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	require.NoError(t, h.lastErr)
	require.Equal(t, "acme", h.resolved)
	require.EqualValues(t, 1, h.opened.Load())
	require.EqualValues(t, 1, h.released.Load())
}

func TestTenantPipeline_UnresolvedNeverTouchesADatabase(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		lookups int32
	}{
		{name: "anonymous", headers: nil},
		{name: "no organization claim", headers: map[string]string{"X-User-ID": "u-1"}},
		{name: "unknown organization", headers: map[string]string{"X-User-ID": "u-1", "X-Organization": "ghost"}, lookups: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var h *harness
			h = newHarness(t, func(w http.ResponseWriter, r *http.Request) { touchTenantDB(h)(w, r) })

			rec := do(h, tc.headers)
			require.Equal(t, http.StatusOK, rec.Code)
			require.ErrorIs(t, h.lastErr, serrors.ErrTenantNotResolved)
			require.Zero(t, h.opened.Load())
			require.Equal(t, tc.lookups, h.lookups.Load())
		})
	}
}

func TestTenantPipeline_CatalogOutageIsUnavailable(t *testing.T) {
	var h *harness
	h = newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		touchTenantDB(h)(w, r)
		_, err := composables.UseTenant(r.Context())
		_ = httpapi.WriteServiceError(w, "", err)
	})

	rec := do(h, map[string]string{"X-User-ID": "u-1", "X-Organization": "down"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "TENANT_UNAVAILABLE")
	require.ErrorIs(t, h.lastErr, serrors.ErrTenantUnavailable)
	require.NotErrorIs(t, h.lastErr, serrors.ErrTenantNotResolved)
	require.Zero(t, h.opened.Load())
}

func TestTenantPipeline_SessionReleasedOnPanic(t *testing.T) {
	var h *harness
	h = newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		touchTenantDB(h)(w, r)
		panic("boom")
	})

	rec := do(h, map[string]string{"X-User-ID": "u-1", "X-Organization": "acme"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL")
	require.EqualValues(t, 1, h.released.Load())
}

func TestWithPrincipal_SetsUser(t *testing.T) {
	var got *identity.User
	handler := WithPrincipal(identity.HeaderExtractor{UserIDHeader: "X-User-ID", UserEmailHeader: "X-User-Email"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = composables.UseUser(r.Context())
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u-9")
	req.Header.Set("X-User-Email", "u9@example.com")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	require.Equal(t, "u-9", got.ID)
	require.Equal(t, "u9@example.com", got.Email)
}
