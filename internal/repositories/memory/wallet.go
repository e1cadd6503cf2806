package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type WalletStore struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
}

func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[string]models.Wallet)}
}

func (s *WalletStore) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, domainErrors.ErrWalletNotFound
	}
	return &w, nil
}

func (s *WalletStore) UpsertBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		w = models.Wallet{BaseModel: models.BaseModel{ID: uuid.New()}, UserID: userID}
	}
	w.Balance = balance
	w.Currency = currency
	s.wallets[userID] = w
	return &w, nil
}
