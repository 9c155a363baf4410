package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

type stubEmployees struct {
	rows      map[uuid.UUID]*employee.Employee
	commitErr error
	salary    *employee.UpdateSalaryDTO
}

func (s *stubEmployees) GetByID(_ context.Context, id uuid.UUID) (*employee.Employee, error) {
	e, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("select employee: %w", persistence.ErrEmployeeNotFound)
	}
	return e, nil
}

func (s *stubEmployees) List(context.Context, *employee.FindParams) ([]*employee.Employee, int64, error) {
	return nil, 0, nil
}

func (s *stubEmployees) Create(_ context.Context, dto *employee.CreateDTO) (*employee.Employee, error) {
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	return dto.ToEntity(time.Now()), nil
}

func (s *stubEmployees) UpdateSalary(ctx context.Context, id uuid.UUID, dto *employee.UpdateSalaryDTO) (*employee.Employee, error) {
	s.salary = dto
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.WithSalary(dto.Salary, dto.Effective(time.Now()), time.Now()), nil
}

func (s *stubEmployees) Delete(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	return s.GetByID(ctx, id)
}

func serve(t *testing.T, s *stubEmployees, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	newEmployeeController(s).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestEmployeeController(t *testing.T) {
	id := uuid.New()
	stub := &stubEmployees{rows: map[uuid.UUID]*employee.Employee{
		id: {ID: id, FullName: "Ada", Salary: decimal.NewFromInt(1000)},
	}}

	rec := serve(t, stub, http.MethodPut, "/api/employees/"+id.String()+"/salary", `{"salary":"1200","effective_from":"2026-05-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"salary":"1200"`)
	require.True(t, stub.salary.Salary.Equal(decimal.NewFromInt(1200)))

	rec = serve(t, stub, http.MethodGet, "/api/employees/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, stub, http.MethodGet, "/api/employees/nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, stub, http.MethodPost, "/api/employees", `{"full_name":"Grace","salary":-5}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, stub, http.MethodPost, "/api/employees", `{"full_name":"Grace","salary":10.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, stub, http.MethodDelete, "/api/employees/"+id.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, stub, http.MethodGet, "/api/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[],"total":0}`, rec.Body.String())
}

func TestEmployeeController_CommitFailure(t *testing.T) {
	id := uuid.New()
	stub := &stubEmployees{
		rows:      map[uuid.UUID]*employee.Employee{id: {ID: id}},
		commitErr: &serrors.CommitError{Stage: "audit", Cause: fmt.Errorf("copy failed")},
	}
	rec := serve(t, stub, http.MethodPut, "/api/employees/"+id.String()+"/salary", `{"salary":"1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "COMMIT_FAILURE")
	require.NotContains(t, rec.Body.String(), "copy failed")

	stub.commitErr = serrors.TenantNotResolved("no organization claim")
	rec = serve(t, stub, http.MethodPut, "/api/employees/"+id.String()+"/salary", `{"salary":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
