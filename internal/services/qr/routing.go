package qr

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
)

// Scanner wallets able to pay a QR code.
const (
	WalletTNG     = "tng"
	WalletBoost   = "boost"
	WalletGrabPay = "grabpay"
)

const (
	MethodDirect      = "direct"
	MethodCrossWallet = "cross_wallet"

	PriorityHigh     = "high"
	PriorityStandard = "standard"

	// CrossWalletLatency is how long the switch takes to hand a payment
	// between wallets.
	CrossWalletLatency = 3 * time.Second
)

type routeKey struct {
	qrType  models.QRType
	scanner string
}

type route struct {
	fee      decimal.Decimal
	priority string
}

var routes = map[routeKey]route{
	{models.QRTypeTNG, WalletBoost}:        {decimal.RequireFromString("0.10"), PriorityHigh},
	{models.QRTypeBoost, WalletTNG}:        {decimal.RequireFromString("0.12"), PriorityHigh},
	{models.QRTypeMerchant, WalletTNG}:     {decimal.RequireFromString("0.05"), PriorityStandard},
	{models.QRTypeMerchant, WalletBoost}:   {decimal.RequireFromString("0.05"), PriorityStandard},
	{models.QRTypeMerchant, WalletGrabPay}: {decimal.RequireFromString("0.05"), PriorityStandard},
	{models.QRTypeTNG, WalletGrabPay}:      {decimal.RequireFromString("0.10"), PriorityHigh},
	{models.QRTypeBoost, WalletGrabPay}:    {decimal.RequireFromString("0.10"), PriorityHigh},
}

var walletRails = map[string]string{
	WalletTNG:     models.RailTNG,
	WalletBoost:   models.RailBoost,
	WalletGrabPay: models.RailGrabPay,
}

// RateProvider supplies mid rates between currencies.
type RateProvider interface {
	Rate(from, to string) (decimal.Decimal, bool)
}

type RoutingDecision struct {
	QRType           models.QRType   `json:"qr_type"`
	ScannerWallet    string          `json:"scanner_wallet"`
	Compatible       bool            `json:"compatible"`
	Method           string          `json:"routing_method,omitempty"`
	TargetRail       string          `json:"target_rail,omitempty"`
	Fee              decimal.Decimal `json:"routing_fee"`
	Priority         string          `json:"priority,omitempty"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	EstimatedLatency time.Duration   `json:"estimated_latency"`
	Error            string          `json:"error,omitempty"`
}

// Metadata is the routing summary recorded on a routed transaction.
func (d RoutingDecision) Metadata() map[string]any {
	return map[string]any{
		"routing_type":           d.Method,
		"qr_type":                d.QRType.String(),
		"scanner_wallet":         d.ScannerWallet,
		"target_rail":            d.TargetRail,
		"routing_fee":            d.Fee.StringFixed(2),
		"routing_priority":       d.Priority,
		"conversion_rate":        d.ConversionRate.String(),
		"estimated_time_seconds": d.EstimatedLatency.Seconds(),
	}
}

// ResolveRouting decides whether a wallet can pay a QR code of the given
// type. Unknown pairs are incompatible. A wallet paying its own QR type is
// routed directly without a fee.
func ResolveRouting(rates RateProvider, qrType models.QRType, scannerWallet, qrCurrency, scannerCurrency string) RoutingDecision {
	scannerWallet = strings.ToLower(strings.TrimSpace(scannerWallet))
	d := RoutingDecision{
		QRType:         qrType,
		ScannerWallet:  scannerWallet,
		Fee:            decimal.Zero,
		ConversionRate: decimal.NewFromInt(1),
	}

	rail, known := walletRails[scannerWallet]
	if !known {
		d.Error = fmt.Sprintf("unknown scanner wallet %q", scannerWallet)
		return d
	}

	if string(qrType) == scannerWallet {
		d.Compatible = true
		d.Method = MethodDirect
		d.TargetRail = rail
		d.Priority = PriorityStandard
		d.EstimatedLatency = models.RailLatency(rail)
	} else {
		r, ok := routes[routeKey{qrType, scannerWallet}]
		if !ok {
			d.Error = fmt.Sprintf("no routing rule for %s -> %s", qrType, scannerWallet)
			return d
		}
		d.Compatible = true
		d.Method = MethodCrossWallet
		d.TargetRail = rail
		d.Fee = r.fee
		d.Priority = r.priority
		d.EstimatedLatency = CrossWalletLatency
	}

	if qrCurrency != "" && scannerCurrency != "" && !strings.EqualFold(qrCurrency, scannerCurrency) {
		rate, ok := rates.Rate(qrCurrency, scannerCurrency)
		if !ok {
			d.Compatible = false
			d.Error = fmt.Sprintf("no conversion rate %s -> %s", strings.ToUpper(qrCurrency), strings.ToUpper(scannerCurrency))
			return d
		}
		d.ConversionRate = rate
	}
	return d
}
