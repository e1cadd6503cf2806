package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/qr"
	"pinkpay/internal/services/transaction"
)

// Service defines the payment service interface
type Service interface {
	// Pay records a payment and processes it inline or through the queue.
	Pay(ctx context.Context, req PayRequest) (*models.Transaction, error)
	// Process drives a pending transaction through the plugin pipeline to
	// its outcome.
	Process(ctx context.Context, txnID string) (*models.Transaction, error)

	// QR payments
	PayWithQR(ctx context.Context, req QRPaymentRequest) (*QRPaymentResult, error)

	// Offline tokens
	RedeemOffline(ctx context.Context, req RedeemRequest) (*models.Transaction, error)

	Refund(ctx context.Context, req transaction.RefundRequest) (*transaction.RefundResult, error)
	Review(ctx context.Context, txnID string, approve bool, reviewer string) (*models.Transaction, error)
}

// Dependencies required by the payment service
type Pipeline interface {
	Run(ctx context.Context, transactionID uuid.UUID, seed plugin.Context) *plugin.RunResult
}

type QRService interface {
	Get(ctx context.Context, qrID string) (*models.QRCode, error)
	Claim(ctx context.Context, qrID, txnID string) (*models.QRCode, error)
	ResolveRouting(qrType models.QRType, scannerWallet, qrCurrency, scannerCurrency string) qr.RoutingDecision
}

type TokenService interface {
	Redeem(ctx context.Context, tokenID string) (*models.OfflineToken, error)
}

// Enqueuer hands work to the background task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload map[string]any, priority int) (string, error)
}

// Settler moves money on the payment rail once a transaction is approved.
type Settler interface {
	Settle(ctx context.Context, txn *models.Transaction) error
}

type PayRequest struct {
	UserID         string
	MerchantID     string
	MerchantName   string
	Amount         decimal.Decimal
	Currency       string
	TargetCurrency string
	PaymentMethod  string
	PaymentRail    string
	TokenOperation string
	TokenID        string
	Metadata       map[string]any
}

type QRPaymentRequest struct {
	QRID          string
	ScannerWallet string
	UserID        string
	// Amount is required when the QR code leaves it to the scanner.
	Amount *decimal.Decimal
	// Currency is the scanner wallet's currency; empty means the QR's.
	Currency string
}

type QRPaymentResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Routing     qr.RoutingDecision  `json:"routing"`
}

type RedeemRequest struct {
	TokenID      string
	MerchantID   string
	MerchantName string
}
