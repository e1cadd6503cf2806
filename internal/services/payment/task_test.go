package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/repositories/memory"
	"pinkpay/internal/services/queue"
	"pinkpay/internal/services/risk"
	"pinkpay/internal/services/transaction"
)

// flakyStore fails the failOn-th UpdateLocked call once.
type flakyStore struct {
	transaction.Store

	mu     sync.Mutex
	calls  int
	failOn int
}

func (s *flakyStore) UpdateLocked(ctx context.Context, txnID string, fn func(*models.Transaction) error) (*models.Transaction, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failOn
	s.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return s.Store.UpdateLocked(ctx, txnID, fn)
}

func TestTaskHandler(t *testing.T) {
	enq := new(MockEnqueuer)
	enq.On("Enqueue", mock.Anything, TaskProcessTransaction, mock.Anything, 0).Return("task-1", nil)
	h := newHarness(t, options{queue: enq, async: true})
	h.pipeline.Only(risk.PluginName)
	ctx := context.Background()

	queued, err := h.svc.Pay(ctx, payRequest("12.00"))
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, queued.Status)

	handler := TaskHandler(h.svc)

	t.Run("processes the queued transaction", func(t *testing.T) {
		err := handler(ctx, &queue.Task{ID: "task-1", Payload: map[string]any{"txn_id": queued.TxnID}})
		require.NoError(t, err)

		txn, err := h.transactions.Get(ctx, queued.TxnID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
	})

	tests := []struct {
		name    string
		payload map[string]any
		wantIs  error
	}{
		{name: "missing txn id", payload: map[string]any{}, wantIs: domainErrors.ErrValidation},
		{name: "unknown transaction", payload: map[string]any{"txn_id": "TXN_NOPE"}, wantIs: domainErrors.ErrNotFound},
		{name: "already processed", payload: map[string]any{"txn_id": queued.TxnID}, wantIs: domainErrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler(ctx, &queue.Task{ID: "task-x", Payload: tt.payload})
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}

	enq.AssertExpectations(t)
}

func TestTaskHandler_RetryResumesProcessing(t *testing.T) {
	enq := new(MockEnqueuer)
	enq.On("Enqueue", mock.Anything, TaskProcessTransaction, mock.Anything, 0).Return("task-1", nil)
	// The first UpdateLocked moves the transaction to processing, the
	// second would complete it.
	store := &flakyStore{Store: memory.NewTransactionStore(), failOn: 2}
	h := newHarness(t, options{queue: enq, async: true, store: store})
	h.pipeline.Only(risk.PluginName)
	ctx := context.Background()

	queued, err := h.svc.Pay(ctx, payRequest("18.00"))
	require.NoError(t, err)

	handler := TaskHandler(h.svc)
	task := &queue.Task{ID: "task-1", Payload: map[string]any{"txn_id": queued.TxnID}}

	err = handler(ctx, task)
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err), "a storage failure must stay retryable")

	stuck, err := h.transactions.Get(ctx, queued.TxnID)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, stuck.Status)

	require.NoError(t, handler(ctx, task))

	txn, err := h.transactions.Get(ctx, queued.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)
}
