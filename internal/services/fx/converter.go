// Package fx converts amounts between currencies using a static rate table
// with a fixed markup, and exposes the conversion as a pipeline plugin.
package fx

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMarkup is the 2.5% spread added to the mid rate.
var DefaultMarkup = decimal.RequireFromString("0.025")

// DefaultRates are mid rates keyed by base currency.
var DefaultRates = map[string]map[string]string{
	"MYR": {
		"USD": "0.21",
		"SGD": "0.29",
		"EUR": "0.20",
		"GBP": "0.17",
		"THB": "7.50",
		"IDR": "3200",
		"MYR": "1.0",
	},
	"USD": {
		"MYR": "4.75",
		"SGD": "1.35",
		"EUR": "0.92",
		"GBP": "0.79",
		"THB": "35.0",
		"IDR": "15000",
		"USD": "1.0",
	},
}

type Conversion struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount"`
	TargetCurrency   string          `json:"target_currency"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	MarkedUpRate     decimal.Decimal `json:"marked_up_rate"`
	MarkupApplied    decimal.Decimal `json:"markup_applied"`
}

type Converter struct {
	rates  map[string]map[string]decimal.Decimal
	markup decimal.Decimal
}

// NewConverter parses the rate table. It panics on malformed rates since the
// table is compiled in or validated config.
func NewConverter(rates map[string]map[string]string, markup decimal.Decimal) *Converter {
	if rates == nil {
		rates = DefaultRates
	}
	parsed := make(map[string]map[string]decimal.Decimal, len(rates))
	for base, quotes := range rates {
		m := make(map[string]decimal.Decimal, len(quotes))
		for quote, r := range quotes {
			m[strings.ToUpper(quote)] = decimal.RequireFromString(r)
		}
		parsed[strings.ToUpper(base)] = m
	}
	return &Converter{rates: parsed, markup: markup}
}

// Rate returns the mid rate from -> to. Identical currencies always convert at 1.
func (c *Converter) Rate(from, to string) (decimal.Decimal, bool) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), true
	}
	quotes, ok := c.rates[from]
	if !ok {
		return decimal.Zero, false
	}
	r, ok := quotes[to]
	return r, ok
}

// Convert applies the marked-up rate. ok is false when no rate exists.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (Conversion, bool) {
	rate, ok := c.Rate(from, to)
	if !ok {
		return Conversion{}, false
	}
	marked := rate.Mul(decimal.NewFromInt(1).Add(c.markup))
	converted := amount.Mul(marked)
	return Conversion{
		OriginalAmount:   amount,
		OriginalCurrency: strings.ToUpper(from),
		ConvertedAmount:  converted.Round(2),
		TargetCurrency:   strings.ToUpper(to),
		ExchangeRate:     rate,
		MarkedUpRate:     marked,
		MarkupApplied:    converted.Sub(amount.Mul(rate)).Round(2),
	}, true
}
