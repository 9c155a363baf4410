package record

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/repo"
)

type Operation string

const (
	Created  Operation = "created"
	Modified Operation = "modified"
	Deleted  Operation = "deleted"
)

func (o Operation) Valid() bool {
	switch o {
	case Created, Modified, Deleted:
		return true
	}
	return false
}

// Record is one immutable audit entry. Prior and Next hold the JSON form of
// the entity before and after the change; the absent side is empty.
type Record struct {
	ID         uuid.UUID `json:"id"`
	ActorID    *string   `json:"actor_id"`
	ActorName  *string   `json:"actor_name"`
	ActorEmail *string   `json:"actor_email"`
	Entity     string    `json:"entity"`
	EntityKey  string    `json:"entity_key"`
	Operation  Operation `json:"operation"`
	Prior      string    `json:"prior"`
	Next       string    `json:"next"`
	CreatedAt  time.Time `json:"created_at"`
}

func New(entity, key string, op Operation, prior, next string, actor *identity.User, at time.Time) *Record {
	r := &Record{
		ID:        uuid.New(),
		Entity:    entity,
		EntityKey: key,
		Operation: op,
		Prior:     prior,
		Next:      next,
		CreatedAt: at.UTC(),
	}
	if actor != nil {
		r.ActorID = nonEmpty(actor.ID)
		r.ActorName = nonEmpty(actor.Name)
		r.ActorEmail = nonEmpty(actor.Email)
	}
	return r
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

type FindParams struct {
	Entity    string
	EntityKey string
	ActorID   string
	Operation Operation
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// Insert writes records on tx, which belongs to the caller's unit of work.
	Insert(ctx context.Context, tx repo.Tx, records []*Record) error
}
