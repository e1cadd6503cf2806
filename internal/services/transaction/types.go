package transaction

import (
	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
)

// CreateRequest describes a new transaction. TxnID is generated from Prefix
// when empty.
type CreateRequest struct {
	TxnID            string
	Prefix           string
	UserID           string
	Amount           decimal.Decimal
	Currency         string
	OriginalAmount   *decimal.Decimal
	OriginalCurrency string
	MerchantID       string
	MerchantName     string
	PaymentMethod    string
	PaymentRail      string
	QRCodeID         *string
	Metadata         map[string]any
}

// RefundRequest refunds Amount of a completed transaction; a nil Amount
// refunds it in full.
type RefundRequest struct {
	TxnID  string
	Amount *decimal.Decimal
	Reason string
}

type RefundResult struct {
	Original *models.Transaction
	Refund   *models.Transaction
}

// Config holds configuration for transaction handling
type Config struct {
	SupportedCurrencies []string
}
