package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TokenStatus string

const (
	TokenActive    TokenStatus = "active"
	TokenRedeemed  TokenStatus = "redeemed"
	TokenExpired   TokenStatus = "expired"
	TokenCancelled TokenStatus = "cancelled"
)

type OfflineToken struct {
	BaseModel
	TokenID           string          `gorm:"uniqueIndex;size:100;not null" json:"token_id"`
	UserID            string          `gorm:"size:100;index;not null" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Status            TokenStatus     `gorm:"size:20;not null;default:'active';index" json:"status"`
	Signature         string          `gorm:"size:128;not null" json:"-"`
	BalanceAtCreation decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"balance_at_creation"`
	SignedAt          int64           `gorm:"not null" json:"signed_at"`
	ExpiresAt         time.Time       `gorm:"index;not null" json:"expires_at"`
	RedeemedAt        *time.Time      `json:"redeemed_at,omitempty"`
}

func (t *OfflineToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether t can still be redeemed at now.
func (t *OfflineToken) IsValid(now time.Time) bool {
	return t.Status == TokenActive && t.RedeemedAt == nil && !t.IsExpired(now)
}
