package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence/models"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
)

var ErrAuditLogNotFound = errors.New("audit log not found")

const selectAuditLogs = `
	SELECT id, actor_id, actor_name, actor_email, entity, entity_key, operation, prior_state, new_state, created_at
	FROM audit_logs`

var auditLogColumns = []string{
	"id", "actor_id", "actor_name", "actor_email", "entity", "entity_key",
	"operation", "prior_state", "new_state", "created_at",
}

type AuditLogRepository struct{}

func NewAuditLogRepository() record.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) List(ctx context.Context, params *record.FindParams) ([]*record.Record, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildAuditLogFilters(params)
	query := selectAuditLogs + where + " ORDER BY created_at DESC, id"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query audit logs")
	}
	defer rows.Close()

	var results []*record.Record
	for rows.Next() {
		rec, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate audit logs")
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *record.FindParams) (int64, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAuditLogFilters(params)

	var count int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count audit logs")
	}
	return count, nil
}

func (r *AuditLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*record.Record, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := scanAuditLog(tx.QueryRow(ctx, selectAuditLogs+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAuditLogNotFound
	}
	return rec, err
}

// Insert bulk-loads records with COPY on the given transaction.
func (r *AuditLogRepository) Insert(ctx context.Context, tx repo.Tx, records []*record.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		m := toDBAuditLog(rec)
		rows = append(rows, []any{
			rec.ID, m.ActorID, m.ActorName, m.ActorEmail, m.Entity, m.EntityKey,
			m.Operation, m.PriorState, m.NewState, m.CreatedAt,
		})
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"audit_logs"}, auditLogColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return errors.Wrap(err, "copy audit logs")
	}
	if n != int64(len(records)) {
		return errors.Errorf("copy audit logs: wrote %d of %d rows", n, len(records))
	}
	return nil
}

func scanAuditLog(row pgx.Row) (*record.Record, error) {
	var m models.AuditLog
	var id uuid.UUID
	if err := row.Scan(
		&id,
		&m.ActorID,
		&m.ActorName,
		&m.ActorEmail,
		&m.Entity,
		&m.EntityKey,
		&m.Operation,
		&m.PriorState,
		&m.NewState,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.ID = id.String()
	return toDomainAuditLog(&m)
}

func buildAuditLogFilters(params *record.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if entity := strings.TrimSpace(params.Entity); entity != "" {
		add("entity = $%d", entity)
	}
	if key := strings.TrimSpace(params.EntityKey); key != "" {
		add("entity_key = $%d", key)
	}
	if actor := strings.TrimSpace(params.ActorID); actor != "" {
		add("actor_id = $%d", actor)
	}
	if params.Operation != "" {
		add("operation = $%d", string(params.Operation))
	}
	if params.From != nil && !params.From.IsZero() {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil && !params.To.IsZero() {
		add("created_at <= $%d", *params.To)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}
