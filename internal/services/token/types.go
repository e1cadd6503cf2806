package token

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
)

const (
	DefaultTTL              = 24 * time.Hour
	DefaultMaxActivePerUser = 5
	IDPrefix                = "TOK_"
)

var (
	DefaultMinAmount  = decimal.NewFromInt(5)
	DefaultMaxAmount  = decimal.NewFromInt(1000)
	DefaultCurrencies = []string{"MYR", "USD", "SGD"}
)

type Config struct {
	TTL              time.Duration
	MinAmount        decimal.Decimal
	MaxAmount        decimal.Decimal
	Currencies       []string
	MaxActivePerUser int
}

type CreateRequest struct {
	UserID   string
	Amount   decimal.Decimal
	Currency string
}

type VerificationResult struct {
	TokenID           string `json:"token_id"`
	TokenValid        bool   `json:"token_valid"`
	BalanceSufficient bool   `json:"balance_sufficient"`
	SignatureValid    bool   `json:"signature_valid"`
	CanProceed        bool   `json:"can_proceed"`
}

// Store persists offline tokens. Create refuses with errors.ErrTokenLimit
// when the owner already holds maxActive tokens still valid at
// token.CreatedAt; the count and the insert are atomic. UpdateLocked runs fn
// under a row lock; an error from fn aborts without writing.
type Store interface {
	Create(ctx context.Context, token *models.OfflineToken, maxActive int) error
	FindByTokenID(ctx context.Context, tokenID string) (*models.OfflineToken, error)
	UpdateLocked(ctx context.Context, tokenID string, fn func(*models.OfflineToken) error) (*models.OfflineToken, error)
	ExpireActive(ctx context.Context, now time.Time) (int64, error)
}

// WalletReader returns the wallet a user's tokens are backed by.
type WalletReader interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
}

// RateProvider supplies mid rates between currencies.
type RateProvider interface {
	Rate(from, to string) (decimal.Decimal, bool)
}
