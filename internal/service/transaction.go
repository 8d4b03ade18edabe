package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// writeInTx runs fn inside a transaction. Any failure rolls back and surfaces as a write error,
// so the rows stored before the call stay untouched.
func writeInTx(ctx context.Context, provider txProvider, message string, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		if _, typed := err.(*appErrors.Error); typed {
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
		return err
	}
	return nil
}
