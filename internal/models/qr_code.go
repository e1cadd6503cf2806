package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type QRType string

const (
	QRTypeMerchant QRType = "merchant"
	QRTypeTNG      QRType = "tng"
	QRTypeBoost    QRType = "boost"
)

func (t QRType) String() string {
	return string(t)
}

type QRStatus string

const (
	QRActive    QRStatus = "active"
	QRScanned   QRStatus = "scanned"
	QRExpired   QRStatus = "expired"
	QRCancelled QRStatus = "cancelled"
)

type QRCode struct {
	BaseModel
	QRID          string            `gorm:"uniqueIndex;size:100;not null" json:"qr_id"`
	Type          QRType            `gorm:"size:20;not null" json:"qr_type"`
	MerchantID    *string           `gorm:"size:100;index" json:"merchant_id,omitempty"`
	UserID        *string           `gorm:"size:100" json:"user_id,omitempty"`
	Amount        *decimal.Decimal  `gorm:"type:numeric(15,2)" json:"amount,omitempty"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	Payload       datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`
	Status        QRStatus          `gorm:"size:20;not null;default:'active';index" json:"status"`
	TransactionID *string           `gorm:"size:100" json:"transaction_id,omitempty"`
	ExpiresAt     time.Time         `gorm:"index;not null" json:"expires_at"`
	ScannedAt     *time.Time        `json:"scanned_at,omitempty"`
}

func (q *QRCode) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// IsValidForScan is false forever once the expiry has passed.
func (q *QRCode) IsValidForScan(now time.Time) bool {
	return q.Status == QRActive && !q.IsExpired(now)
}

// TimeRemaining is zero once expired.
func (q *QRCode) TimeRemaining(now time.Time) time.Duration {
	if q.IsExpired(now) {
		return 0
	}
	return q.ExpiresAt.Sub(now)
}
