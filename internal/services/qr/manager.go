// Package qr generates typed QR payment intents, tracks their scan
// lifecycle and resolves cross-wallet routing between QR types and the
// wallets scanning them.
package qr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/utils"
)

const (
	DefaultTTL      = 15 * time.Minute
	DefaultCurrency = "MYR"
)

var idPrefixes = map[models.QRType]string{
	models.QRTypeMerchant: "MERCH",
	models.QRTypeTNG:      "TNG",
	models.QRTypeBoost:    "BOOST",
}

// Store persists QR codes. UpdateLocked runs fn under a row lock; an error
// from fn aborts without writing.
type Store interface {
	Create(ctx context.Context, qr *models.QRCode) error
	FindByQRID(ctx context.Context, qrID string) (*models.QRCode, error)
	UpdateLocked(ctx context.Context, qrID string, fn func(*models.QRCode) error) (*models.QRCode, error)
	ExpireActive(ctx context.Context, now time.Time) (int64, error)
}

type GenerateRequest struct {
	Type       models.QRType
	MerchantID string
	UserID     string
	Amount     *decimal.Decimal
	Currency   string
	TTL        time.Duration
}

type Config struct {
	DefaultTTL time.Duration
}

type Manager struct {
	store  Store
	rates  RateProvider
	clock  clock.Clock
	logger *zap.Logger
	config Config
}

func NewManager(store Store, rates RateProvider, clk clock.Clock, logger *zap.Logger, cfg Config) *Manager {
	if store == nil {
		panic("store is required")
	}
	if rates == nil {
		panic("rate provider is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	return &Manager{store: store, rates: rates, clock: clk, logger: logger, config: cfg}
}

func (m *Manager) validate(req *GenerateRequest) error {
	req.Type = models.QRType(strings.ToLower(string(req.Type)))
	if _, ok := idPrefixes[req.Type]; !ok {
		return domainErrors.ErrInvalidQR.WithMessage("unsupported QR type %q", req.Type)
	}
	switch req.Type {
	case models.QRTypeMerchant, models.QRTypeTNG:
		if strings.TrimSpace(req.MerchantID) == "" {
			return domainErrors.ErrInvalidQR.WithMessage("merchant id is required for %s QR codes", req.Type)
		}
	case models.QRTypeBoost:
		if strings.TrimSpace(req.UserID) == "" {
			return domainErrors.ErrInvalidQR.WithMessage("user id is required for boost QR codes")
		}
	}
	if req.Type == models.QRTypeTNG && req.Amount == nil {
		return domainErrors.ErrInvalidAmount.WithMessage("amount is required for tng QR codes")
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return domainErrors.ErrInvalidAmount.WithMessage("amount must be positive")
	}
	if req.TTL < 0 {
		return domainErrors.ErrInvalidQR.WithMessage("ttl must not be negative")
	}
	return nil
}

func payload(req GenerateRequest, now time.Time) datatypes.JSONMap {
	var amount any
	if req.Amount != nil {
		amount = req.Amount.StringFixed(2)
	}
	p := datatypes.JSONMap{
		"amount":     amount,
		"currency":   req.Currency,
		"created_at": now.Format(time.RFC3339),
	}
	switch req.Type {
	case models.QRTypeMerchant:
		p["type"] = "merchant_payment"
		p["merchant_id"] = req.MerchantID
	case models.QRTypeTNG:
		p["type"] = "tng_payment"
		p["qr_format"] = "tng_standard"
		p["merchant_id"] = req.MerchantID
	case models.QRTypeBoost:
		p["type"] = "boost_payment"
		p["qr_format"] = "boost_standard"
		p["user_id"] = req.UserID
	}
	return p
}

// Generate creates an active QR code that expires after the requested TTL.
// A nil amount lets the scanner enter the amount.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (*models.QRCode, error) {
	if err := m.validate(&req); err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	req.Currency = strings.ToUpper(req.Currency)
	if req.TTL == 0 {
		req.TTL = m.config.DefaultTTL
	}
	if req.Amount != nil {
		rounded := req.Amount.Round(2)
		req.Amount = &rounded
	}

	now := m.clock.Now()
	suffix, err := utils.GenerateUniqueID(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR id: %w", err)
	}

	code := &models.QRCode{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		QRID:      fmt.Sprintf("%s_%s_%s", idPrefixes[req.Type], now.Format("20060102150405"), suffix),
		Type:      req.Type,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Payload:   payload(req, now),
		Status:    models.QRActive,
		ExpiresAt: now.Add(req.TTL),
	}
	if req.MerchantID != "" && req.Type != models.QRTypeBoost {
		merchantID := req.MerchantID
		code.MerchantID = &merchantID
	}
	if req.UserID != "" {
		userID := req.UserID
		code.UserID = &userID
	}

	if err := m.store.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to store QR code: %w", err)
	}

	m.logger.Info("QR code generated",
		zap.String("qr_id", code.QRID),
		zap.String("qr_type", code.Type.String()),
		zap.Time("expires_at", code.ExpiresAt))
	return code, nil
}

func (m *Manager) Get(ctx context.Context, qrID string) (*models.QRCode, error) {
	return m.store.FindByQRID(ctx, qrID)
}

// Scan moves an active, unexpired QR code to scanned. The transition is
// one-way.
func (m *Manager) Scan(ctx context.Context, qrID string) (*models.QRCode, error) {
	code, err := m.store.UpdateLocked(ctx, qrID, func(q *models.QRCode) error {
		now := m.clock.Now()
		if q.Status == models.QRExpired || (q.Status == models.QRActive && q.IsExpired(now)) {
			return domainErrors.ErrQRExpired.WithMessage("QR code %s expired at %s", q.QRID, q.ExpiresAt.Format(time.RFC3339))
		}
		if q.Status != models.QRActive {
			return domainErrors.ErrQRInactive.WithMessage("QR code %s is %s", q.QRID, q.Status)
		}
		q.Status = models.QRScanned
		q.ScannedAt = &now
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("QR code scanned", zap.String("qr_id", qrID))
	return code, nil
}

// Claim binds a scanned QR code to the transaction paying it. A QR code
// can be claimed once.
func (m *Manager) Claim(ctx context.Context, qrID, txnID string) (*models.QRCode, error) {
	return m.store.UpdateLocked(ctx, qrID, func(q *models.QRCode) error {
		if q.TransactionID != nil {
			return domainErrors.ErrQRConsumed.WithMessage("QR code %s already paid by %s", q.QRID, *q.TransactionID)
		}
		if q.Status != models.QRScanned {
			return domainErrors.ErrQRNotScanned.WithMessage("QR code %s is %s", q.QRID, q.Status)
		}
		id := txnID
		q.TransactionID = &id
		q.UpdatedAt = m.clock.Now()
		return nil
	})
}

// ResolveRouting decides how scannerWallet pays a QR code of type qrType.
func (m *Manager) ResolveRouting(qrType models.QRType, scannerWallet, qrCurrency, scannerCurrency string) RoutingDecision {
	return ResolveRouting(m.rates, qrType, scannerWallet, qrCurrency, scannerCurrency)
}

// CleanupExpired moves every active QR code past its deadline to expired.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.store.ExpireActive(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire QR codes: %w", err)
	}
	if n > 0 {
		m.logger.Info("expired QR codes", zap.Int64("count", n))
	}
	return n, nil
}
