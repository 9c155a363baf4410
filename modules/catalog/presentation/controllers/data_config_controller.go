package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/services"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/httpapi"
)

// Catalog is the part of services.CatalogService the HTTP surface needs.
type Catalog interface {
	Get(ctx context.Context, organization string) (*descriptor.Descriptor, error)
	List(ctx context.Context, params *descriptor.FindParams) ([]*descriptor.Descriptor, int64, error)
	Create(ctx context.Context, dto *descriptor.CreateDTO) (*descriptor.Descriptor, error)
	Edit(ctx context.Context, organization string, dto *descriptor.UpdateDTO) (*descriptor.Descriptor, error)
}

type DataConfigController struct {
	catalog  Catalog
	basePath string
}

func NewDataConfigController(app application.Application) application.Controller {
	return newDataConfigController(app.Service(services.CatalogService{}).(*services.CatalogService))
}

func newDataConfigController(catalog Catalog) *DataConfigController {
	return &DataConfigController{
		catalog:  catalog,
		basePath: "/api/data-configs",
	}
}

func (c *DataConfigController) Key() string {
	return c.basePath
}

func (c *DataConfigController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("", c.List).Methods(http.MethodGet)
	api.HandleFunc("", c.Create).Methods(http.MethodPost)
	api.HandleFunc("/{organization}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/{organization}", c.Edit).Methods(http.MethodPatch)
}

type listResponse struct {
	Items []*descriptor.Descriptor `json:"items"`
	Total int64                    `json:"total"`
}

func (c *DataConfigController) List(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	limit, offset, err := httpapi.Page(r, 50, 500)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), requestMeta(requestID))
		return
	}
	items, total, err := c.catalog.List(r.Context(), &descriptor.FindParams{
		Module: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("module"))),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	out := make([]*descriptor.Descriptor, 0, len(items))
	for _, d := range items {
		out = append(out, d.Redacted())
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: out, Total: total})
}

func (c *DataConfigController) Get(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	d, err := c.catalog.Get(r.Context(), mux.Vars(r)["organization"])
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, d.Redacted())
}

func (c *DataConfigController) Create(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	var dto descriptor.CreateDTO
	if err := httpapi.DecodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", requestMeta(requestID))
		return
	}
	d, err := c.catalog.Create(r.Context(), &dto)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, d.Redacted())
}

func (c *DataConfigController) Edit(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	var dto descriptor.UpdateDTO
	if err := httpapi.DecodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", requestMeta(requestID))
		return
	}
	d, err := c.catalog.Edit(r.Context(), mux.Vars(r)["organization"], &dto)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, d.Redacted())
}

func (c *DataConfigController) fail(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	if httpapi.StatusOf(err) >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("data config request failed")
	}
	_ = httpapi.WriteServiceError(w, requestID, err)
}

func requestMeta(requestID string) map[string]string {
	if requestID == "" {
		return nil
	}
	return map[string]string{"request_id": requestID}
}
