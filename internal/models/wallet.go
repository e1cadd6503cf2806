package models

import (
	"github.com/shopspring/decimal"
)

// Wallet holds the available balance offline tokens are issued against.
type Wallet struct {
	BaseModel
	UserID   string          `gorm:"uniqueIndex;size:100;not null" json:"user_id"`
	Balance  decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"balance"`
	Currency string          `gorm:"size:3;not null;default:'MYR'" json:"currency"`
}
