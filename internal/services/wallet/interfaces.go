package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
)

// Service defines the wallet service interface
type Service interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error)
}

// Store persists wallets, one per user.
type Store interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	UpsertBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error)
}

type Config struct {
	DefaultCurrency string
	Currencies      []string
}
