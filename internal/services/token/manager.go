// Package token issues and redeems offline tokens: signed, bounded-value,
// time-limited credentials that can be spent without a live connection to
// the issuer.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/utils"
)

type Manager struct {
	store   Store
	wallets WalletReader
	rates   RateProvider
	signer  Signer
	clock   clock.Clock
	logger  *zap.Logger
	config  Config
}

// NewManager creates a token manager. rates may be nil, in which case tokens
// can only be issued in the currency of the backing wallet.
func NewManager(store Store, wallets WalletReader, rates RateProvider, signer Signer, clk clock.Clock, logger *zap.Logger, cfg Config) *Manager {
	if store == nil {
		panic("store is required")
	}
	if wallets == nil {
		panic("wallet reader is required")
	}
	if signer == nil {
		panic("signer is required")
	}
	if clk == nil {
		panic("clock is required")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MinAmount.IsZero() {
		cfg.MinAmount = DefaultMinAmount
	}
	if cfg.MaxAmount.IsZero() {
		cfg.MaxAmount = DefaultMaxAmount
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = DefaultCurrencies
	}
	if cfg.MaxActivePerUser <= 0 {
		cfg.MaxActivePerUser = DefaultMaxActivePerUser
	}

	return &Manager{
		store:   store,
		wallets: wallets,
		rates:   rates,
		signer:  signer,
		clock:   clk,
		logger:  logger,
		config:  cfg,
	}
}

func signingPayload(tokenID, userID string, amount, balance decimal.Decimal, signedAt int64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s:%d",
		tokenID, userID, amount.StringFixed(2), balance.StringFixed(2), signedAt))
}

func (m *Manager) supported(currency string) bool {
	for _, c := range m.config.Currencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

// backing is the balance a token is checked against, in the wallet's
// currency. A user without a wallet has nothing to spend.
type backing struct {
	balance  decimal.Decimal
	currency string
}

func (m *Manager) backing(ctx context.Context, userID, fallbackCurrency string) (backing, error) {
	w, err := m.wallets.GetWallet(ctx, userID)
	if errors.Is(err, domainErrors.ErrWalletNotFound) {
		return backing{balance: decimal.Zero, currency: fallbackCurrency}, nil
	}
	if err != nil {
		return backing{}, err
	}
	return backing{balance: w.Balance, currency: strings.ToUpper(w.Currency)}, nil
}

// inWalletCurrency expresses amount, given in currency, in the wallet's
// currency at the mid rate.
func (m *Manager) inWalletCurrency(amount decimal.Decimal, currency string, b backing) (decimal.Decimal, bool) {
	if strings.EqualFold(currency, b.currency) {
		return amount, true
	}
	if m.rates == nil {
		return decimal.Zero, false
	}
	rate, ok := m.rates.Rate(currency, b.currency)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(rate).Round(2), true
}

// Create issues a token against the user's current balance. Nothing is
// persisted when validation or the balance check fails.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.OfflineToken, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domainErrors.Validation("INVALID_USER", "user id is required")
	}
	currency := strings.ToUpper(req.Currency)
	if !m.supported(currency) {
		return nil, domainErrors.ErrUnsupportedCurrency.WithMessage(
			"currency %q is not supported for offline tokens", req.Currency)
	}
	amount := req.Amount.Round(2)
	if amount.LessThan(m.config.MinAmount) || amount.GreaterThan(m.config.MaxAmount) {
		return nil, domainErrors.ErrInvalidAmount.WithMessage("token amount must be between %s and %s",
			m.config.MinAmount.StringFixed(2), m.config.MaxAmount.StringFixed(2))
	}

	b, err := m.backing(ctx, req.UserID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	required, ok := m.inWalletCurrency(amount, currency, b)
	if !ok {
		return nil, domainErrors.ErrUnsupportedCurrency.WithMessage(
			"a %s token cannot be backed by a %s wallet", currency, b.currency)
	}
	if required.GreaterThan(b.balance) {
		return nil, domainErrors.ErrBalanceTooLow.WithMessage(
			"token amount %s %s exceeds available balance %s %s",
			amount.StringFixed(2), currency, b.balance.StringFixed(2), b.currency)
	}
	balance := b.balance
	now := m.clock.Now()

	suffix, err := utils.GenerateUniqueID(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}
	tokenID := IDPrefix + suffix
	signedAt := now.Unix()

	signature, err := m.signer.Sign(signingPayload(tokenID, req.UserID, amount, balance, signedAt))
	if err != nil {
		return nil, err
	}

	token := &models.OfflineToken{
		BaseModel:         models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TokenID:           tokenID,
		UserID:            req.UserID,
		Amount:            amount,
		Currency:          currency,
		Status:            models.TokenActive,
		Signature:         signature,
		BalanceAtCreation: balance,
		SignedAt:          signedAt,
		ExpiresAt:         now.Add(m.config.TTL),
	}
	if err := m.store.Create(ctx, token, m.config.MaxActivePerUser); err != nil {
		if errors.Is(err, domainErrors.ErrTokenLimit) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	m.logger.Info("offline token created",
		zap.String("token_id", tokenID),
		zap.String("user_id", req.UserID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("expires_at", token.ExpiresAt))
	return token, nil
}

func (m *Manager) Get(ctx context.Context, tokenID string) (*models.OfflineToken, error) {
	return m.store.FindByTokenID(ctx, tokenID)
}

// Verify checks the token against the user's current balance. A balance
// change since issue invalidates the signature. It never mutates state.
func (m *Manager) Verify(ctx context.Context, tokenID string, claimed decimal.Decimal) (*VerificationResult, error) {
	token, err := m.store.FindByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	b, err := m.backing(ctx, token.UserID, token.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	res := &VerificationResult{TokenID: tokenID}
	res.TokenValid = token.IsValid(m.clock.Now()) &&
		claimed.IsPositive() && claimed.LessThanOrEqual(token.Amount)
	if required, ok := m.inWalletCurrency(claimed, token.Currency, b); ok {
		res.BalanceSufficient = b.balance.GreaterThanOrEqual(required)
	}
	res.SignatureValid = m.signer.Verify(
		signingPayload(token.TokenID, token.UserID, token.Amount, b.balance, token.SignedAt), token.Signature)
	res.CanProceed = res.TokenValid && res.BalanceSufficient && res.SignatureValid
	return res, nil
}

// Redeem spends the token exactly once.
func (m *Manager) Redeem(ctx context.Context, tokenID string) (*models.OfflineToken, error) {
	token, err := m.store.UpdateLocked(ctx, tokenID, func(t *models.OfflineToken) error {
		now := m.clock.Now()
		if t.RedeemedAt != nil || t.Status == models.TokenRedeemed {
			return domainErrors.ErrTokenRedeemed.WithMessage("token %s was already redeemed", t.TokenID)
		}
		if t.Status != models.TokenActive {
			return domainErrors.ErrTokenInactive.WithMessage("token %s is %s", t.TokenID, t.Status)
		}
		if t.IsExpired(now) {
			return domainErrors.ErrTokenExpired.WithMessage("token %s expired at %s", t.TokenID, t.ExpiresAt.Format(time.RFC3339))
		}
		payload := signingPayload(t.TokenID, t.UserID, t.Amount, t.BalanceAtCreation, t.SignedAt)
		if !m.signer.Verify(payload, t.Signature) {
			return domainErrors.ErrTokenSignature
		}

		t.Status = models.TokenRedeemed
		t.RedeemedAt = &now
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("offline token redeemed",
		zap.String("token_id", token.TokenID), zap.String("user_id", token.UserID))
	return token, nil
}

// Cancel withdraws an unused token on behalf of its owner.
func (m *Manager) Cancel(ctx context.Context, tokenID, userID string) (*models.OfflineToken, error) {
	token, err := m.store.UpdateLocked(ctx, tokenID, func(t *models.OfflineToken) error {
		now := m.clock.Now()
		if t.UserID != userID {
			return domainErrors.ErrTokenOwner
		}
		if t.RedeemedAt != nil || t.Status == models.TokenRedeemed {
			return domainErrors.ErrTokenRedeemed.WithMessage("cannot cancel redeemed token %s", t.TokenID)
		}
		if t.Status != models.TokenActive {
			return domainErrors.ErrTokenInactive.WithMessage("token %s is %s", t.TokenID, t.Status)
		}
		if t.IsExpired(now) {
			return domainErrors.ErrTokenExpired.WithMessage("cannot cancel expired token %s", t.TokenID)
		}
		t.Status = models.TokenCancelled
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("offline token cancelled", zap.String("token_id", tokenID))
	return token, nil
}

// CleanupExpired moves every active token past its deadline to expired.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.store.ExpireActive(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire tokens: %w", err)
	}
	if n > 0 {
		m.logger.Info("expired offline tokens", zap.Int64("count", n))
	}
	return n, nil
}
