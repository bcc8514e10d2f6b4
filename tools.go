package dml

import (
	"context"
	"database/sql"
	"fmt"
)

// TransSession runs f inside a transaction on db. The transaction is rolled
// back when f returns an error or panics, and committed otherwise.
func TransSession(ctx context.Context, db *sql.DB, f func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, errTx := db.BeginTx(ctx, nil)
	if errTx != nil {
		return errTx
	}
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("%v", p)
			}
			if err1 := tx.Rollback(); err1 != nil {
				err = fmt.Errorf("%w, Rollback=%v", cause, err1)
			} else {
				err = cause
			}
		}
	}()

	err = f(ctx, tx)
	if err != nil {
		panic(err)
	}

	return tx.Commit()
}
