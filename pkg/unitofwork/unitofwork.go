// Package unitofwork commits a business operation's data changes together
// with their audit records in one tenant transaction.
package unitofwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

var (
	ErrAlreadyCommitted = errors.New("unit of work already committed")
	ErrInvalidChange    = errors.New("invalid change")
)

// TxBeginner is satisfied by *tenantdb.Session.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type AuditSink interface {
	Insert(ctx context.Context, tx repo.Tx, records []*record.Record) error
}

// Change is one tracked mutation. Prior re-reads the current state inside the
// commit transaction and is skipped for creations. Next is ignored for deletions.
type Change struct {
	Entity string
	Kind   record.Operation
	Key    string
	Prior  func(ctx context.Context, tx repo.Tx) (any, error)
	Next   any
	Apply  func(ctx context.Context, tx repo.Tx) error
}

func (c Change) validate() error {
	switch {
	case c.Entity == "":
		return fmt.Errorf("%w: entity is required", ErrInvalidChange)
	case !c.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidChange, c.Kind)
	case c.Apply == nil:
		return fmt.Errorf("%w: %s %s has no mutation", ErrInvalidChange, c.Kind, c.Entity)
	case c.Kind != record.Created && c.Prior == nil:
		return fmt.Errorf("%w: %s %s has no prior snapshot", ErrInvalidChange, c.Kind, c.Entity)
	}
	return nil
}

// UnitOfWork is single use: Commit succeeds or fails once, and a failed unit
// of work leaves nothing behind.
type UnitOfWork struct {
	db   TxBeginner
	sink AuditSink
	now  func() time.Time

	mu        sync.Mutex
	changes   []Change
	committed bool
}

func New(db TxBeginner, sink AuditSink) *UnitOfWork {
	return &UnitOfWork{db: db, sink: sink, now: time.Now}
}

func (u *UnitOfWork) Track(c Change) error {
	if err := c.validate(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.committed {
		return ErrAlreadyCommitted
	}
	u.changes = append(u.changes, c)
	return nil
}

func (u *UnitOfWork) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.changes)
}

// Commit applies every tracked change in order and writes one audit record per
// change, all in a single transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.committed {
		return ErrAlreadyCommitted
	}
	u.committed = true
	if len(u.changes) == 0 {
		return nil
	}

	actor, err := composables.UseUser(ctx)
	if err != nil {
		actor = nil
	}
	logger := composables.UseLogger(ctx).WithField("component", "unitofwork")

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return &serrors.CommitError{Stage: "begin", Cause: err}
	}
	fail := func(stage string, cause error) error {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			cause = errors.Join(cause, rErr)
		}
		logger.WithError(cause).Warnf("unit of work rolled back at %s", stage)
		return &serrors.CommitError{Stage: stage, Cause: cause}
	}

	at := u.now()
	records := make([]*record.Record, 0, len(u.changes))
	for _, c := range u.changes {
		var prior any
		if c.Kind != record.Created {
			if prior, err = c.Prior(ctx, tx); err != nil {
				return fail("snapshot", fmt.Errorf("%s %s: %w", c.Entity, c.Key, err))
			}
		}
		if err := c.Apply(ctx, tx); err != nil {
			return fail("apply", fmt.Errorf("%s %s: %w", c.Entity, c.Key, err))
		}

		next := c.Next
		if c.Kind == record.Deleted {
			next = nil
		}
		priorJSON, err := encodeState(prior)
		if err != nil {
			return fail("serialize", err)
		}
		nextJSON, err := encodeState(next)
		if err != nil {
			return fail("serialize", err)
		}
		records = append(records, record.New(c.Entity, c.Key, c.Kind, priorJSON, nextJSON, actor, at))
	}

	if err := u.sink.Insert(ctx, tx, records); err != nil {
		return fail("audit", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return &serrors.CommitError{Stage: "commit", Cause: err}
	}
	logger.Debugf("committed %d change(s)", len(records))
	return nil
}

func encodeState(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}
