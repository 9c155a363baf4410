package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/hrm/services"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/httpapi"
)

type Employees interface {
	GetByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error)
	List(ctx context.Context, params *employee.FindParams) ([]*employee.Employee, int64, error)
	Create(ctx context.Context, dto *employee.CreateDTO) (*employee.Employee, error)
	UpdateSalary(ctx context.Context, id uuid.UUID, dto *employee.UpdateSalaryDTO) (*employee.Employee, error)
	Delete(ctx context.Context, id uuid.UUID) (*employee.Employee, error)
}

type EmployeeController struct {
	employees Employees
	basePath  string
}

func NewEmployeeController(app application.Application) application.Controller {
	return newEmployeeController(app.Service(services.EmployeeService{}).(*services.EmployeeService))
}

func newEmployeeController(employees Employees) *EmployeeController {
	return &EmployeeController{employees: employees, basePath: "/api/employees"}
}

func (c *EmployeeController) Key() string {
	return c.basePath
}

func (c *EmployeeController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("", c.List).Methods(http.MethodGet)
	api.HandleFunc("", c.Create).Methods(http.MethodPost)
	api.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/salary", c.UpdateSalary).Methods(http.MethodPut)
}

type listResponse struct {
	Items []*employee.Employee `json:"items"`
	Total int64                `json:"total"`
}

func (c *EmployeeController) List(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	limit, offset, err := httpapi.Page(r, 20, 200)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), requestMeta(requestID))
		return
	}
	items, total, err := c.employees.List(r.Context(), &employee.FindParams{Limit: limit, Offset: offset})
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	if items == nil {
		items = []*employee.Employee{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (c *EmployeeController) Get(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}
	e, err := c.employees.GetByID(r.Context(), id)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, e)
}

func (c *EmployeeController) Create(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	var dto employee.CreateDTO
	if err := httpapi.DecodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", requestMeta(requestID))
		return
	}
	e, err := c.employees.Create(r.Context(), &dto)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, e)
}

func (c *EmployeeController) UpdateSalary(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}
	var dto employee.UpdateSalaryDTO
	if err := httpapi.DecodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", requestMeta(requestID))
		return
	}
	e, err := c.employees.UpdateSalary(r.Context(), id, &dto)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, e)
}

func (c *EmployeeController) Delete(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}
	if _, err := c.employees.Delete(r.Context(), id); err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", requestMeta(requestID))
		return uuid.Nil, false
	}
	return id, true
}

func (c *EmployeeController) fail(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	if errors.Is(err, persistence.ErrEmployeeNotFound) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "employee not found", requestMeta(requestID))
		return
	}
	if httpapi.StatusOf(err) >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("employee request failed")
	}
	_ = httpapi.WriteServiceError(w, requestID, err)
}

func requestMeta(requestID string) map[string]string {
	if requestID == "" {
		return nil
	}
	return map[string]string{"request_id": requestID}
}
