package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type TransactionStore struct {
	mu   sync.Mutex
	txns map[string]*models.Transaction
	logs map[uuid.UUID][]models.PluginLog
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		txns: make(map[string]*models.Transaction),
		logs: make(map[uuid.UUID][]models.PluginLog),
	}
}

func (s *TransactionStore) Create(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txns[txn.TxnID]; exists {
		return domainErrors.ErrDuplicateID.WithMessage("transaction %s already exists", txn.TxnID)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	s.txns[txn.TxnID] = txn.Clone()
	return nil
}

func (s *TransactionStore) FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[txnID]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return txn.Clone(), nil
}

func (s *TransactionStore) UpdateLocked(ctx context.Context, txnID string, fn func(*models.Transaction) error) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.txns[txnID]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.txns[txnID] = working
	return working.Clone(), nil
}

func (s *TransactionStore) AppendPluginLog(ctx context.Context, entry *models.PluginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[entry.TransactionID] = append(s.logs[entry.TransactionID], *entry)
	return nil
}

func (s *TransactionStore) ListPluginLogs(ctx context.Context, transactionID uuid.UUID) ([]models.PluginLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PluginLog, len(s.logs[transactionID]))
	copy(out, s.logs[transactionID])
	return out, nil
}

// CountByUserSince counts the user's transactions created at or after since.
func (s *TransactionStore) CountByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, txn := range s.txns {
		if s.inWindow(txn, userID, since, excludeTxnID) {
			n++
		}
	}
	return n, nil
}

// SumByUserSince sums non-failed amounts of the user's recent transactions.
func (s *TransactionStore) SumByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, txn := range s.txns {
		if s.inWindow(txn, userID, since, excludeTxnID) && txn.Status != models.StatusFailed {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

func (s *TransactionStore) inWindow(txn *models.Transaction, userID string, since time.Time, excludeTxnID string) bool {
	return txn.UserID == userID &&
		txn.TxnID != excludeTxnID &&
		txn.PaymentMethod != models.MethodRefund &&
		!txn.CreatedAt.Before(since)
}

// List returns every transaction ordered by creation time, newest first.
func (s *TransactionStore) List(ctx context.Context) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Transaction, 0, len(s.txns))
	for _, txn := range s.txns {
		out = append(out, txn.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
