package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/pkg/serrors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{serrors.TenantNotResolved("no claim"), http.StatusBadRequest},
		{fmt.Errorf("create: %w", serrors.ErrDescriptorConflict), http.StatusConflict},
		{serrors.ErrDescriptorNotFound, http.StatusNotFound},
		{&serrors.ProvisionError{Organization: "acme", Cause: errors.New("x")}, http.StatusServiceUnavailable},
		{&serrors.CommitError{Stage: "apply", Cause: errors.New("x")}, http.StatusInternalServerError},
		{&serrors.UnavailableError{Organization: "acme", Cause: errors.New("x")}, http.StatusServiceUnavailable},
		{&serrors.ValidationError{Fields: map[string]string{"host": "required"}}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestWriteServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &serrors.ValidationError{
		Fields:   map[string]string{"port": "max=65535"},
		Messages: map[string]string{"port": "port must be 65,535 or less"},
	}
	require.NoError(t, WriteServiceError(rec, "req-1", err))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "VALIDATION", env.Code)
	require.Equal(t, "req-1", env.Meta["request_id"])
	require.Equal(t, "max=65535", env.Meta["port"])
	require.Equal(t, "port must be 65,535 or less", env.Details["port"])
}

func TestWriteServiceError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, "", errors.New("password=hunter2 rejected")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "hunter2")
}
