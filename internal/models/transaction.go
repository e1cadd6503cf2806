package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	StatusPending           TransactionStatus = "pending"
	StatusProcessing        TransactionStatus = "processing"
	StatusCompleted         TransactionStatus = "completed"
	StatusFailed            TransactionStatus = "failed"
	StatusPendingReview     TransactionStatus = "pending_review"
	StatusRefunded          TransactionStatus = "refunded"
	StatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

func (s TransactionStatus) String() string {
	return string(s)
}

// Payment methods and rails seen by the switch.
const (
	MethodQR           = "qr"
	MethodWallet       = "wallet"
	MethodOfflineToken = "offline_token"
	MethodRefund       = "refund"

	RailDuitNow = "duitnow"
	RailPayNow  = "paynow"
	RailTNG     = "tng"
	RailBoost   = "boost"
	RailGrabPay = "grabpay"
	RailOffline = "offline"
)

var railLatency = map[string]time.Duration{
	RailDuitNow: 2 * time.Second,
	RailPayNow:  3 * time.Second,
	RailBoost:   time.Second,
	RailTNG:     1500 * time.Millisecond,
	RailGrabPay: 1500 * time.Millisecond,
	RailOffline: 500 * time.Millisecond,
}

// RailLatency is the simulated settlement time of a rail.
func RailLatency(rail string) time.Duration {
	if d, ok := railLatency[rail]; ok {
		return d
	}
	return 2 * time.Second
}

type Transaction struct {
	BaseModel
	TxnID            string            `gorm:"uniqueIndex;size:100;not null" json:"txn_id"`
	UserID           string            `gorm:"size:100;index" json:"user_id,omitempty"`
	Amount           decimal.Decimal   `gorm:"type:numeric(15,2);not null" json:"amount"`
	Currency         string            `gorm:"size:3;not null;default:'MYR'" json:"currency"`
	OriginalAmount   *decimal.Decimal  `gorm:"type:numeric(15,2)" json:"original_amount,omitempty"`
	OriginalCurrency string            `gorm:"size:3" json:"original_currency,omitempty"`
	MerchantID       string            `gorm:"size:100;index" json:"merchant_id,omitempty"`
	MerchantName     string            `gorm:"size:200" json:"merchant_name,omitempty"`
	PaymentMethod    string            `gorm:"size:50;not null" json:"payment_method"`
	PaymentRail      string            `gorm:"size:50;not null" json:"payment_rail"`
	Status           TransactionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	QRCodeID         *string           `gorm:"size:100;index" json:"qr_code_id,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	PluginLogs       []PluginLog       `gorm:"foreignKey:TransactionID" json:"plugin_logs,omitempty"`
}

// IsTerminal reports whether no further processing will happen on t.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// Clone returns a copy whose metadata map can be mutated independently.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(datatypes.JSONMap, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	c.PluginLogs = nil
	return &c
}
