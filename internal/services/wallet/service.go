package wallet

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type service struct {
	store  Store
	logger *zap.Logger
	config Config
}

// NewService creates a new wallet service
func NewService(store Store, logger *zap.Logger, config Config) Service {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if len(config.Currencies) == 0 {
		config.Currencies = DefaultCurrencies
	}

	return &service{store: store, logger: logger, config: config}
}

func (s *service) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domainErrors.Validation("INVALID_USER", "user id is required")
	}
	return s.store.GetWallet(ctx, userID)
}

func (s *service) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// SetBalance overwrites the user's balance, creating the wallet on first use.
func (s *service) SetBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domainErrors.Validation("INVALID_USER", "user id is required")
	}
	if balance.IsNegative() {
		return nil, domainErrors.ErrInvalidAmount.WithMessage("balance must not be negative")
	}
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if !s.supported(currency) {
		return nil, domainErrors.ErrUnsupportedCurrency.WithMessage("currency %q is not supported", currency)
	}

	w, err := s.store.UpsertBalance(ctx, userID, balance.Round(2), currency)
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet balance set",
		zap.String("user_id", userID),
		zap.String("balance", w.Balance.StringFixed(2)),
		zap.String("currency", w.Currency))
	return w, nil
}

func (s *service) supported(currency string) bool {
	for _, c := range s.config.Currencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}
