package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/repositories"
)

// MockTransactionManager is a mock implementation of TransactionManager that
// runs the callback and commits or rolls back the supplied MockTransaction
type MockTransactionManager struct {
	mock.Mock
	tx *MockTransaction
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	if err := fn(ctx, m.tx); err != nil {
		_ = m.tx.Rollback()
		return err
	}
	return m.tx.Commit()
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

func newMockTxMgr() (*MockTransactionManager, *MockTransaction) {
	tx := new(MockTransaction)
	return &MockTransactionManager{tx: tx}, tx
}

func TestWithTransaction_Success(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Commit").Return(nil)

	called := false
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, got repositories.Transaction) error {
		called = true
		assert.Same(t, tx, got)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledback)
}

func TestWithTransaction_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Rollback").Return(nil)

	expected := errors.New("function error")
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return expected
	})

	assert.Equal(t, expected, err)
	assert.True(t, tx.rolledback)
	assert.False(t, tx.committed)
}

func TestWithTransaction_BeginError(t *testing.T) {
	ctx := context.Background()
	txMgr, _ := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(errors.New("failed to begin transaction: connection refused"))

	called := false
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Rollback").Return(nil)

	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		panic("nil map")
	})

	require.Error(t, err)
	assert.True(t, IsInternalError(err))
	assert.True(t, errors.Is(err, ErrTransactionFailed))
	assert.Contains(t, err.Error(), "nil map")
	assert.True(t, tx.rolledback)
}

func TestWithTransactionResult_Success(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Commit").Return(nil)

	result, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (string, error) {
		return "LEADER", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "LEADER", result)
	assert.True(t, tx.committed)
}

func TestWithTransactionResult_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Rollback").Return(nil)

	result, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (int, error) {
		return 42, errors.New("function error")
	})

	assert.Error(t, err)
	assert.Zero(t, result)
	assert.True(t, tx.rolledback)
}

func TestWithTransactionResult_CommitError(t *testing.T) {
	ctx := context.Background()
	txMgr, tx := newMockTxMgr()
	txMgr.On("InTransaction", ctx).Return(nil)
	tx.On("Commit").Return(errors.New("commit failed"))

	result, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (int, error) {
		return 42, nil
	})

	assert.Error(t, err)
	assert.Zero(t, result)
}
