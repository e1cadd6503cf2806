package transaction

import (
	"context"

	"github.com/google/uuid"

	"pinkpay/internal/models"
)

// Service owns the canonical transaction record and its status changes.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Transaction, error)
	Get(ctx context.Context, txnID string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, txnID string, status models.TransactionStatus, extra map[string]any) (*models.Transaction, error)
	RecordPluginLog(ctx context.Context, entry *models.PluginLog) error
	PluginLogs(ctx context.Context, txnID string) ([]models.PluginLog, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	NewTxnID(prefix string) string
}

// Store persists transactions. UpdateLocked runs fn against the current row
// while holding a lock on it; an error from fn aborts without writing.
type Store interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error)
	UpdateLocked(ctx context.Context, txnID string, fn func(*models.Transaction) error) (*models.Transaction, error)
	AppendPluginLog(ctx context.Context, entry *models.PluginLog) error
	ListPluginLogs(ctx context.Context, transactionID uuid.UUID) ([]models.PluginLog, error)
}

// Cache is a read-through cache for settled transactions.
type Cache interface {
	GetTransaction(ctx context.Context, txnID string) (*models.Transaction, bool, error)
	SetTransaction(ctx context.Context, txn *models.Transaction) error
	DeleteTransaction(ctx context.Context, txnID string) error
}

type noopCache struct{}

func (noopCache) GetTransaction(context.Context, string) (*models.Transaction, bool, error) {
	return nil, false, nil
}
func (noopCache) SetTransaction(context.Context, *models.Transaction) error { return nil }
func (noopCache) DeleteTransaction(context.Context, string) error           { return nil }
