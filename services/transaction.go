package services

import (
	"context"
	"fmt"

	"github.com/upb/taskhub/repositories"
)

// WithTransaction runs fn inside a transaction managed by txMgr. The
// transaction commits when fn returns nil and rolls back otherwise. A panic in
// fn rolls back and is reported as ErrTransactionFailed.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return txMgr.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = ErrTransactionFailed.Wrap(fmt.Errorf("panic: %v", p))
			}
		}()
		return fn(ctx, tx)
	})
}

// WithTransactionResult is WithTransaction for functions that produce a value.
// The zero value of T is returned when the transaction does not commit.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		value, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
