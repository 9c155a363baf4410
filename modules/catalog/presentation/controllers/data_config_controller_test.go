package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/httpapi"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

type stubCatalog struct {
	items   map[string]*descriptor.Descriptor
	err     error
	lastDTO *descriptor.UpdateDTO
}

func (s *stubCatalog) Get(_ context.Context, organization string) (*descriptor.Descriptor, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.items[organization]
	if !ok {
		return nil, serrors.ErrDescriptorNotFound
	}
	return d, nil
}

func (s *stubCatalog) List(context.Context, *descriptor.FindParams) ([]*descriptor.Descriptor, int64, error) {
	out := make([]*descriptor.Descriptor, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	return out, int64(len(out)), s.err
}

func (s *stubCatalog) Create(_ context.Context, dto *descriptor.CreateDTO) (*descriptor.Descriptor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	return dto.ToEntity(), nil
}

func (s *stubCatalog) Edit(_ context.Context, organization string, dto *descriptor.UpdateDTO) (*descriptor.Descriptor, error) {
	s.lastDTO = dto
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.items[organization]
	if !ok {
		return nil, serrors.ErrDescriptorNotFound
	}
	return dto.Apply(d), nil
}

func newRouter(catalog Catalog) *mux.Router {
	r := mux.NewRouter()
	newDataConfigController(catalog).Register(r)
	return r
}

func acme() *descriptor.Descriptor {
	blob := "DefaultEndpointsProtocol=https;AccountKey=abc"
	return &descriptor.Descriptor{
		Organization:         "acme",
		Module:               "people",
		Host:                 "db.internal",
		Port:                 5432,
		User:                 "app",
		Password:             "secret",
		Database:             "acme",
		BlobConnectionString: &blob,
	}
}

func TestDataConfigController_GetRedacts(t *testing.T) {
	r := newRouter(&stubCatalog{items: map[string]*descriptor.Descriptor{"acme": acme()}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-configs/acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")
	require.NotContains(t, rec.Body.String(), "AccountKey")

	var got descriptor.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "db.internal", got.Host)
}

func TestDataConfigController_ErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "not found", method: http.MethodGet, path: "/api/data-configs/ghost", status: http.StatusNotFound, code: "DESCRIPTOR_NOT_FOUND"},
		{name: "conflict", err: serrors.ErrDescriptorConflict, method: http.MethodPost, path: "/api/data-configs", body: `{}`, status: http.StatusConflict, code: "DESCRIPTOR_CONFLICT"},
		{name: "provision", err: &serrors.ProvisionError{Organization: "acme"}, method: http.MethodPost, path: "/api/data-configs", body: `{}`, status: http.StatusServiceUnavailable, code: "PROVISION_FAILURE"},
		{name: "unknown field", method: http.MethodPatch, path: "/api/data-configs/acme", body: `{"organization":"x"}`, status: http.StatusBadRequest, code: "INVALID_BODY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&stubCatalog{items: map[string]*descriptor.Descriptor{"acme": acme()}, err: tc.err})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
			require.Equal(t, tc.status, rec.Code)

			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, tc.code, env.Code)
		})
	}
}

func TestDataConfigController_CreateValidates(t *testing.T) {
	r := newRouter(&stubCatalog{})
	rec := httptest.NewRecorder()
	body := `{"organization":"acme","host":"db.internal","port":70000,"user":"app","password":"pw","database":"acme"}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data-configs", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	body = `{"organization":"acme","host":"db.internal","port":5432,"user":"app","password":"pw","database":"acme"}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data-configs", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), `"pw"`)
}

func TestDataConfigController_EditIsPartial(t *testing.T) {
	stub := &stubCatalog{items: map[string]*descriptor.Descriptor{"acme": acme()}}
	r := newRouter(stub)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/data-configs/acme", strings.NewReader(`{"port":6543}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastDTO.Port)
	require.Nil(t, stub.lastDTO.Host)

	var got descriptor.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 6543, got.Port)
	require.Equal(t, "db.internal", got.Host)
}

func TestDataConfigController_List(t *testing.T) {
	r := newRouter(&stubCatalog{items: map[string]*descriptor.Descriptor{"acme": acme()}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-configs?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-configs?limit=x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
