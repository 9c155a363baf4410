package persistence

import (
	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence/models"
)

func toDBAuditLog(r *record.Record) *models.AuditLog {
	return &models.AuditLog{
		ID:         r.ID.String(),
		ActorID:    r.ActorID,
		ActorName:  r.ActorName,
		ActorEmail: r.ActorEmail,
		Entity:     r.Entity,
		EntityKey:  r.EntityKey,
		Operation:  string(r.Operation),
		PriorState: r.Prior,
		NewState:   r.Next,
		CreatedAt:  r.CreatedAt,
	}
}

func toDomainAuditLog(row *models.AuditLog) (*record.Record, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	return &record.Record{
		ID:         id,
		ActorID:    row.ActorID,
		ActorName:  row.ActorName,
		ActorEmail: row.ActorEmail,
		Entity:     row.Entity,
		EntityKey:  row.EntityKey,
		Operation:  record.Operation(row.Operation),
		Prior:      row.PriorState,
		Next:       row.NewState,
		CreatedAt:  row.CreatedAt,
	}, nil
}
