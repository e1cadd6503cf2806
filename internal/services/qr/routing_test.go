package qr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pinkpay/internal/models"
	"pinkpay/internal/services/fx"
)

func TestResolveRouting(t *testing.T) {
	rates := fx.NewConverter(nil, fx.DefaultMarkup)

	tests := []struct {
		name       string
		qrType     models.QRType
		scanner    string
		compatible bool
		method     string
		rail       string
		fee        string
		priority   string
		latency    time.Duration
	}{
		{"tng to boost", models.QRTypeTNG, WalletBoost, true, MethodCrossWallet, models.RailBoost, "0.10", PriorityHigh, CrossWalletLatency},
		{"boost to tng", models.QRTypeBoost, WalletTNG, true, MethodCrossWallet, models.RailTNG, "0.12", PriorityHigh, CrossWalletLatency},
		{"merchant to tng", models.QRTypeMerchant, WalletTNG, true, MethodCrossWallet, models.RailTNG, "0.05", PriorityStandard, CrossWalletLatency},
		{"merchant to boost", models.QRTypeMerchant, WalletBoost, true, MethodCrossWallet, models.RailBoost, "0.05", PriorityStandard, CrossWalletLatency},
		{"merchant to grabpay", models.QRTypeMerchant, WalletGrabPay, true, MethodCrossWallet, models.RailGrabPay, "0.05", PriorityStandard, CrossWalletLatency},
		{"tng to grabpay", models.QRTypeTNG, WalletGrabPay, true, MethodCrossWallet, models.RailGrabPay, "0.10", PriorityHigh, CrossWalletLatency},
		{"boost to grabpay", models.QRTypeBoost, WalletGrabPay, true, MethodCrossWallet, models.RailGrabPay, "0.10", PriorityHigh, CrossWalletLatency},
		{"tng direct", models.QRTypeTNG, WalletTNG, true, MethodDirect, models.RailTNG, "0.00", PriorityStandard, 1500 * time.Millisecond},
		{"boost direct", models.QRTypeBoost, "BOOST", true, MethodDirect, models.RailBoost, "0.00", PriorityStandard, time.Second},
		{"unknown wallet", models.QRTypeTNG, "alipay", false, "", "", "0.00", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ResolveRouting(rates, tt.qrType, tt.scanner, "MYR", "MYR")
			assert.Equal(t, tt.compatible, d.Compatible)
			assert.Equal(t, tt.method, d.Method)
			assert.Equal(t, tt.rail, d.TargetRail)
			assert.Equal(t, tt.fee, d.Fee.StringFixed(2))
			assert.Equal(t, tt.priority, d.Priority)
			assert.Equal(t, tt.latency, d.EstimatedLatency)
			assert.Equal(t, "1", d.ConversionRate.String())
			if !tt.compatible {
				assert.NotEmpty(t, d.Error)
			}
		})
	}
}

func TestResolveRouting_UndefinedPair(t *testing.T) {
	rates := fx.NewConverter(nil, fx.DefaultMarkup)

	// grabpay never issues QR codes, so nothing routes from it.
	d := ResolveRouting(rates, models.QRType("grabpay"), WalletTNG, "MYR", "MYR")
	assert.False(t, d.Compatible)
	assert.True(t, d.Fee.IsZero())
	assert.Contains(t, d.Error, "no routing rule")
}

func TestResolveRouting_Conversion(t *testing.T) {
	rates := fx.NewConverter(nil, fx.DefaultMarkup)

	d := ResolveRouting(rates, models.QRTypeTNG, WalletBoost, "MYR", "USD")
	assert.True(t, d.Compatible)
	assert.Equal(t, "0.21", d.ConversionRate.String())

	d = ResolveRouting(rates, models.QRTypeTNG, WalletBoost, "SGD", "THB")
	assert.False(t, d.Compatible)
	assert.Contains(t, d.Error, "no conversion rate")
}
