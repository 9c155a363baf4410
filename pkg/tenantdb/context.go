package tenantdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/pkg/constants"
	"github.com/gemelli/tenantcore/pkg/repo"
)

var ErrNoSession = errors.New("no tenant session found in context")

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, constants.SessionKey, s)
}

func UseSession(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(constants.SessionKey).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, constants.TenantTxKey, tx)
}

// UseTx returns the open tenant transaction, or the session connection when none is open.
func UseTx(ctx context.Context) (repo.Tx, error) {
	if tx, ok := ctx.Value(constants.TenantTxKey).(pgx.Tx); ok && tx != nil {
		return tx, nil
	}
	s, err := UseSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.Conn(ctx)
}
