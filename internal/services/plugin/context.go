package plugin

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known context keys.
const (
	KeyTxnID          = "txn_id"
	KeyAmount         = "amount"
	KeyCurrency       = "currency"
	KeyTargetCurrency = "target_currency"
	KeyUserID         = "user_id"
	KeyMerchantID     = "merchant_id"
	KeyPaymentMethod  = "payment_method"
	KeyPaymentRail    = "payment_rail"
	KeyCreatedAt      = "created_at"

	KeyOriginalAmount   = "original_amount"
	KeyOriginalCurrency = "original_currency"
	KeyFXConversion     = "fx_conversion"

	KeyRiskScore      = "risk_score"
	KeyRiskLevel      = "risk_level"
	KeyRiskAction     = "risk_action"
	KeyRiskAssessment = "risk_assessment"

	KeyTokenOperation = "token_operation"
	KeyTokenID        = "token_id"
	KeyToken          = "offline_token"
)

// Context is the key-value map threaded through every plugin of one run.
type Context map[string]any

// Clone returns a shallow copy.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge copies every key of data into c, overwriting existing ones.
func (c Context) Merge(data map[string]any) {
	for k, v := range data {
		c[k] = v
	}
}

func (c Context) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return ""
}

// Decimal accepts decimal, numeric and string values.
func (c Context) Decimal(key string) (decimal.Decimal, bool) {
	switch v := c[key].(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

func (c Context) Time(key string) (time.Time, bool) {
	switch v := c[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		return t, err == nil
	}
	return time.Time{}, false
}
