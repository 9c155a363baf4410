package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wI2L/jsondiff"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/audit/services"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/httpapi"
)

type Trail interface {
	List(ctx context.Context, params *record.FindParams) ([]*record.Record, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*record.Record, error)
	Diff(r *record.Record) (jsondiff.Patch, error)
	Verify(r *record.Record) error
}

type AuditLogController struct {
	trail    Trail
	basePath string
}

func NewAuditLogController(app application.Application) application.Controller {
	return newAuditLogController(app.Service(services.AuditService{}).(*services.AuditService))
}

func newAuditLogController(trail Trail) *AuditLogController {
	return &AuditLogController{trail: trail, basePath: "/api/audit-logs"}
}

func (c *AuditLogController) Key() string {
	return c.basePath
}

func (c *AuditLogController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("", c.List).Methods(http.MethodGet)
	api.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
}

type listResponse struct {
	Items []*record.Record `json:"items"`
	Total int64            `json:"total"`
}

func (c *AuditLogController) List(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	params, err := parseFindParams(r)
	if err != nil {
		writeBadRequest(w, requestID, err.Error())
		return
	}
	items, total, err := c.trail.List(r.Context(), params)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	if items == nil {
		items = []*record.Record{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

type detailResponse struct {
	*record.Record
	Diff     jsondiff.Patch `json:"diff"`
	Verified bool           `json:"verified"`
}

func (c *AuditLogController) Get(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeBadRequest(w, requestID, "id is invalid")
		return
	}
	rec, err := c.trail.GetByID(r.Context(), id)
	if errors.Is(err, persistence.ErrAuditLogNotFound) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "AUDIT_LOG_NOT_FOUND", "audit log not found", requestMeta(requestID))
		return
	}
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	patch, err := c.trail.Diff(rec)
	if err != nil {
		c.fail(w, r, requestID, err)
		return
	}
	verified := true
	if err := c.trail.Verify(rec); err != nil {
		composables.UseLogger(r.Context()).WithError(err).WithField("audit_log_id", id).Warn("audit diff does not replay")
		verified = false
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, detailResponse{Record: rec, Diff: patch, Verified: verified})
}

func parseFindParams(r *http.Request) (*record.FindParams, error) {
	limit, offset, err := httpapi.Page(r, 50, 500)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	params := &record.FindParams{
		Entity:    strings.TrimSpace(q.Get("entity")),
		EntityKey: strings.TrimSpace(q.Get("entity_key")),
		ActorID:   strings.TrimSpace(q.Get("actor_id")),
		Limit:     limit,
		Offset:    offset,
	}
	if op := strings.TrimSpace(q.Get("operation")); op != "" {
		params.Operation = record.Operation(strings.ToLower(op))
		if !params.Operation.Valid() {
			return nil, errors.New("operation is invalid")
		}
	}
	if params.From, err = parseTime(q.Get("from")); err != nil {
		return nil, errors.New("from is invalid")
	}
	if params.To, err = parseTime(q.Get("to")); err != nil {
		return nil, errors.New("to is invalid")
	}
	return params, nil
}

func parseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *AuditLogController) fail(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	if httpapi.StatusOf(err) >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("audit log request failed")
	}
	_ = httpapi.WriteServiceError(w, requestID, err)
}

func writeBadRequest(w http.ResponseWriter, requestID, message string) {
	_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", message, requestMeta(requestID))
}

func requestMeta(requestID string) map[string]string {
	if requestID == "" {
		return nil
	}
	return map[string]string{"request_id": requestID}
}
