package repo

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// dbError marks err as an infrastructure failure so consumers can requeue it.
func dbError(ctx context.Context, op string, err error) error {
	ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
	return wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrDatabaseFailed, err))
}
