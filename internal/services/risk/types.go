package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionApprove      Action = "APPROVE"
	ActionManualReview Action = "MANUAL_REVIEW"
	ActionBlock        Action = "BLOCK"
)

func (a Action) String() string {
	return string(a)
}

type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelHigh     Level = "HIGH"
	LevelMedium   Level = "MEDIUM"
	LevelLow      Level = "LOW"
	LevelMinimal  Level = "MINIMAL"
)

// Factor names.
const (
	FactorAmount    = "amount"
	FactorFrequency = "frequency"
	FactorVelocity  = "velocity"
	FactorTime      = "time_pattern"
	FactorMerchant  = "merchant_reputation"
)

// Input is what the assessor needs to know about one transaction.
type Input struct {
	TxnID      string
	UserID     string
	MerchantID string
	Amount     decimal.Decimal
	Currency   string
	At         time.Time
}

type Factor struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Available bool    `json:"available"`
	Detail    string  `json:"detail,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type Assessment struct {
	Score      float64   `json:"score"`
	Level      Level     `json:"level"`
	Action     Action    `json:"action"`
	Reason     string    `json:"reason"`
	Factors    []Factor  `json:"factors"`
	AssessedAt time.Time `json:"assessed_at"`
}

// Scorer produces an assessment; Assessor is the production implementation.
type Scorer interface {
	Assess(ctx context.Context, in Input) (*Assessment, error)
}

// History answers trailing-window questions about a user's activity.
type History interface {
	CountByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (int64, error)
	SumByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (decimal.Decimal, error)
}

// ReputationSource returns a 0..100 trust score for a merchant, higher is
// more trusted, plus a category label.
type ReputationSource interface {
	Reputation(ctx context.Context, merchantID string) (score int, category string, err error)
}

type Weights struct {
	Amount    float64
	Frequency float64
	Velocity  float64
	Time      float64
	Merchant  float64
}

func (w Weights) Sum() float64 {
	return w.Amount + w.Frequency + w.Velocity + w.Time + w.Merchant
}

// DefaultWeights sum to 0.95. The missing 0.05 is left unscored unless
// Config.Renormalize is set.
var DefaultWeights = Weights{
	Amount:    0.30,
	Frequency: 0.25,
	Velocity:  0.20,
	Time:      0.10,
	Merchant:  0.10,
}

// RateProvider supplies mid rates between currencies.
type RateProvider interface {
	Rate(from, to string) (decimal.Decimal, bool)
}

type Config struct {
	BaseCurrency       string
	NormalizationRates map[string]decimal.Decimal
	// Rates covers currencies missing from NormalizationRates. Without a
	// rate either way the amount is taken as already in BaseCurrency.
	Rates                 RateProvider
	HighAmount            decimal.Decimal
	VeryHighAmount        decimal.Decimal
	SuspiciousFrequency   int
	VelocityLimit         decimal.Decimal
	AutoBlockThreshold    float64
	ManualReviewThreshold float64
	Weights               Weights
	Renormalize           bool
	Location              *time.Location
}

// DefaultConfig mirrors the thresholds the switch ships with.
func DefaultConfig() Config {
	return Config{
		BaseCurrency: "MYR",
		NormalizationRates: map[string]decimal.Decimal{
			"MYR": decimal.NewFromInt(1),
			"USD": decimal.RequireFromString("4.7"),
			"SGD": decimal.RequireFromString("3.5"),
			"EUR": decimal.RequireFromString("5.1"),
		},
		HighAmount:            decimal.NewFromInt(10000),
		VeryHighAmount:        decimal.NewFromInt(50000),
		SuspiciousFrequency:   10,
		VelocityLimit:         decimal.NewFromInt(50000),
		AutoBlockThreshold:    85,
		ManualReviewThreshold: 70,
		Weights:               DefaultWeights,
		Location:              time.UTC,
	}
}
