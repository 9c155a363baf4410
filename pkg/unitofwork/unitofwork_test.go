package unitofwork

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

type journal struct {
	steps []string
}

func (j *journal) add(step string) { j.steps = append(j.steps, step) }

type fakeTx struct {
	pgx.Tx
	j *journal
}

func (t *fakeTx) Commit(context.Context) error {
	t.j.add("commit")
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.j.add("rollback")
	return nil
}

type fakeDB struct {
	j     *journal
	began int
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.began++
	d.j.add("begin")
	return &fakeTx{j: d.j}, nil
}

type fakeSink struct {
	j       *journal
	err     error
	records []*record.Record
}

func (s *fakeSink) Insert(_ context.Context, _ repo.Tx, records []*record.Record) error {
	s.j.add("audit")
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

type employee struct {
	ID     string `json:"id"`
	Salary string `json:"salary"`
}

func salaryChange(j *journal, id, from, to string, applyErr error) Change {
	return Change{
		Entity: "employee",
		Kind:   record.Modified,
		Key:    id,
		Prior: func(context.Context, repo.Tx) (any, error) {
			j.add("snapshot " + id)
			return employee{ID: id, Salary: from}, nil
		},
		Next: employee{ID: id, Salary: to},
		Apply: func(context.Context, repo.Tx) error {
			j.add("apply " + id)
			return applyErr
		},
	}
}

func setup() (*journal, *fakeDB, *fakeSink) {
	j := &journal{}
	return j, &fakeDB{j: j}, &fakeSink{j: j}
}

func TestCommit_WritesOneAuditRecordPerChange(t *testing.T) {
	j, db, sink := setup()
	uow := New(db, sink)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	uow.now = func() time.Time { return at }

	require.NoError(t, uow.Track(salaryChange(j, "42", "1000", "1200", nil)))
	require.NoError(t, uow.Track(Change{
		Entity: "employee",
		Kind:   record.Created,
		Key:    "43",
		Next:   employee{ID: "43", Salary: "900"},
		Apply:  func(context.Context, repo.Tx) error { j.add("apply 43"); return nil },
	}))

	ctx := composables.WithUser(context.Background(), &identity.User{ID: "7", Name: "Ada", Email: "ada@acme.test"})
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, []string{"begin", "snapshot 42", "apply 42", "apply 43", "audit", "commit"}, j.steps)
	require.Len(t, sink.records, 2)

	modified := sink.records[0]
	require.Equal(t, record.Modified, modified.Operation)
	require.JSONEq(t, `{"id":"42","salary":"1000"}`, modified.Prior)
	require.JSONEq(t, `{"id":"42","salary":"1200"}`, modified.Next)
	require.Equal(t, "7", *modified.ActorID)
	require.Equal(t, at, modified.CreatedAt)

	created := sink.records[1]
	require.Empty(t, created.Prior)
	require.JSONEq(t, `{"id":"43","salary":"900"}`, created.Next)
}

func TestCommit_FailedMutationLeavesNothing(t *testing.T) {
	j, db, sink := setup()
	uow := New(db, sink)
	boom := errors.New("check constraint violated")

	require.NoError(t, uow.Track(salaryChange(j, "42", "1000", "1200", nil)))
	require.NoError(t, uow.Track(salaryChange(j, "43", "900", "-1", boom)))

	err := uow.Commit(context.Background())
	require.ErrorIs(t, err, serrors.ErrCommitFailure)
	require.ErrorIs(t, err, boom)

	var commitErr *serrors.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, "apply", commitErr.Stage)

	require.Equal(t, []string{"begin", "snapshot 42", "apply 42", "snapshot 43", "apply 43", "rollback"}, j.steps)
	require.Empty(t, sink.records)
}

func TestCommit_AuditFailureRollsBackData(t *testing.T) {
	j, db, sink := setup()
	sink.err = errors.New("audit_logs does not exist")
	uow := New(db, sink)
	require.NoError(t, uow.Track(salaryChange(j, "42", "1000", "1200", nil)))

	err := uow.Commit(context.Background())
	require.ErrorIs(t, err, serrors.ErrCommitFailure)
	require.Equal(t, []string{"begin", "snapshot 42", "apply 42", "audit", "rollback"}, j.steps)
}

func TestCommit_WithoutActor(t *testing.T) {
	j, db, sink := setup()
	uow := New(db, sink)
	require.NoError(t, uow.Track(Change{
		Entity: "employee",
		Kind:   record.Deleted,
		Key:    "42",
		Prior: func(context.Context, repo.Tx) (any, error) {
			return employee{ID: "42", Salary: "1000"}, nil
		},
		Next:  employee{ID: "42"},
		Apply: func(context.Context, repo.Tx) error { return nil },
	}))

	require.NoError(t, uow.Commit(context.Background()))
	require.Len(t, sink.records, 1)
	require.Nil(t, sink.records[0].ActorID)
	require.Empty(t, sink.records[0].Next)
	require.Contains(t, j.steps, "commit")
}

func TestCommit_EmptyIsNoop(t *testing.T) {
	_, db, sink := setup()
	uow := New(db, sink)
	require.NoError(t, uow.Commit(context.Background()))
	require.Zero(t, db.began)
}

func TestCommit_AtMostOnce(t *testing.T) {
	j, db, sink := setup()
	uow := New(db, sink)
	require.NoError(t, uow.Track(salaryChange(j, "42", "1000", "1200", nil)))
	require.NoError(t, uow.Commit(context.Background()))

	require.ErrorIs(t, uow.Commit(context.Background()), ErrAlreadyCommitted)
	require.ErrorIs(t, uow.Track(salaryChange(j, "42", "1200", "1300", nil)), ErrAlreadyCommitted)
	require.Equal(t, 1, db.began)
}

func TestTrack_RejectsInvalidChanges(t *testing.T) {
	_, db, sink := setup()
	uow := New(db, sink)
	apply := func(context.Context, repo.Tx) error { return nil }

	require.ErrorIs(t, uow.Track(Change{Kind: record.Created, Apply: apply}), ErrInvalidChange)
	require.ErrorIs(t, uow.Track(Change{Entity: "employee", Kind: "archived", Apply: apply}), ErrInvalidChange)
	require.ErrorIs(t, uow.Track(Change{Entity: "employee", Kind: record.Created}), ErrInvalidChange)
	require.ErrorIs(t, uow.Track(Change{Entity: "employee", Kind: record.Modified, Apply: apply}), ErrInvalidChange)
	require.Zero(t, uow.Len())
}
