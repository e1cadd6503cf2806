// Package risk scores transactions from five independent signals and maps
// the composite score to an approve, review or block action.
package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pinkpay/internal/clock"
)

type Assessor struct {
	history    History
	reputation ReputationSource
	clock      clock.Clock
	logger     *zap.Logger
	config     Config
}

// NewAssessor builds the production scorer. A nil history disables the
// frequency and velocity checks.
func NewAssessor(history History, reputation ReputationSource, clk clock.Clock, logger *zap.Logger, cfg Config) *Assessor {
	if clk == nil {
		panic("clock is required")
	}
	if reputation == nil {
		reputation = DefaultReputation()
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Assessor{
		history:    history,
		reputation: reputation,
		clock:      clk,
		logger:     logger,
		config:     cfg,
	}
}

type check struct {
	name   string
	weight float64
	run    func(ctx context.Context, in Input) (float64, string, error)
}

func (a *Assessor) checks() []check {
	w := a.config.Weights
	return []check{
		{FactorAmount, w.Amount, a.amountRisk},
		{FactorFrequency, w.Frequency, a.frequencyRisk},
		{FactorVelocity, w.Velocity, a.velocityRisk},
		{FactorTime, w.Time, a.timeRisk},
		{FactorMerchant, w.Merchant, a.merchantRisk},
	}
}

// Assess never fails because of a single check: a failing check is recorded
// as unavailable and contributes nothing.
func (a *Assessor) Assess(ctx context.Context, in Input) (*Assessment, error) {
	if in.At.IsZero() {
		in.At = a.clock.Now()
	}

	var total float64
	factors := make([]Factor, 0, 5)
	for _, c := range a.checks() {
		f := Factor{Name: c.name, Weight: c.weight}
		score, detail, err := c.run(ctx, in)
		if err != nil {
			f.Error = err.Error()
			a.logger.Warn("risk check failed",
				zap.String("check", c.name), zap.String("txn_id", in.TxnID), zap.Error(err))
		} else {
			f.Available = true
			f.Score = score
			f.Detail = detail
			total += score * c.weight
		}
		factors = append(factors, f)
	}

	if a.config.Renormalize {
		if sum := a.config.Weights.Sum(); sum > 0 {
			total /= sum
		}
	}
	total = math.Round(clamp(total)*100) / 100

	action, reason := a.action(total)
	return &Assessment{
		Score:      total,
		Level:      LevelFor(total),
		Action:     action,
		Reason:     reason,
		Factors:    factors,
		AssessedAt: a.clock.Now(),
	}, nil
}

func (a *Assessor) normalize(amount decimal.Decimal, currency string) decimal.Decimal {
	currency = strings.ToUpper(currency)
	if rate, ok := a.config.NormalizationRates[currency]; ok {
		return amount.Mul(rate)
	}
	if rates := a.config.Rates; rates != nil {
		if rate, ok := rates.Rate(currency, a.config.BaseCurrency); ok && rate.IsPositive() {
			return amount.Mul(rate)
		}
		if rate, ok := rates.Rate(a.config.BaseCurrency, currency); ok && rate.IsPositive() {
			return amount.Div(rate)
		}
	}
	return amount
}

func (a *Assessor) amountRisk(_ context.Context, in Input) (float64, string, error) {
	amount := a.normalize(in.Amount, in.Currency)
	high, veryHigh := a.config.HighAmount, a.config.VeryHighAmount
	detail := fmt.Sprintf("%s %s", amount.StringFixed(2), a.config.BaseCurrency)

	switch {
	case amount.GreaterThanOrEqual(veryHigh):
		return 80, "very high amount: " + detail, nil
	case amount.GreaterThanOrEqual(high):
		return 50, "high amount: " + detail, nil
	case amount.GreaterThanOrEqual(high.Div(decimal.NewFromInt(2))):
		return 25, "moderate amount: " + detail, nil
	}
	return 5, "normal amount: " + detail, nil
}

func (a *Assessor) frequencyRisk(ctx context.Context, in Input) (float64, string, error) {
	if a.history == nil {
		return 0, "", fmt.Errorf("transaction history unavailable")
	}
	count, err := a.history.CountByUserSince(ctx, in.UserID, in.At.Add(-time.Hour), in.TxnID)
	if err != nil {
		return 0, "", fmt.Errorf("count recent transactions: %w", err)
	}

	threshold := float64(a.config.SuspiciousFrequency)
	n := float64(count)
	detail := fmt.Sprintf("%d txns/hour", count)
	switch {
	case n >= threshold:
		return 70, "suspicious frequency: " + detail, nil
	case n >= threshold*0.6:
		return 40, "high frequency: " + detail, nil
	case n >= threshold*0.5:
		return 20, "moderate frequency: " + detail, nil
	}
	return 5, "normal frequency: " + detail, nil
}

func (a *Assessor) velocityRisk(ctx context.Context, in Input) (float64, string, error) {
	if a.history == nil {
		return 0, "", fmt.Errorf("transaction history unavailable")
	}
	daily, err := a.history.SumByUserSince(ctx, in.UserID, in.At.Add(-24*time.Hour), in.TxnID)
	if err != nil {
		return 0, "", fmt.Errorf("sum recent transactions: %w", err)
	}

	projected := daily.Add(a.normalize(in.Amount, in.Currency))
	limit := a.config.VelocityLimit
	detail := fmt.Sprintf("%s %s/day", projected.StringFixed(2), a.config.BaseCurrency)
	switch {
	case projected.GreaterThanOrEqual(limit):
		return 75, "velocity limit exceeded: " + detail, nil
	case projected.GreaterThanOrEqual(limit.Mul(decimal.RequireFromString("0.8"))):
		return 45, "high velocity: " + detail, nil
	case projected.GreaterThanOrEqual(limit.Mul(decimal.RequireFromString("0.5"))):
		return 20, "moderate velocity: " + detail, nil
	}
	return 5, "normal velocity: " + detail, nil
}

func (a *Assessor) timeRisk(_ context.Context, in Input) (float64, string, error) {
	hour := in.At.In(a.config.Location).Hour()
	switch {
	case hour >= 23 || hour <= 5:
		return 30, fmt.Sprintf("late night transaction: %02d:00", hour), nil
	case hour <= 7:
		return 15, fmt.Sprintf("early morning transaction: %02d:00", hour), nil
	}
	return 5, fmt.Sprintf("normal hours transaction: %02d:00", hour), nil
}

func (a *Assessor) merchantRisk(ctx context.Context, in Input) (float64, string, error) {
	score, category, err := a.reputation.Reputation(ctx, in.MerchantID)
	if err != nil {
		return 0, "", fmt.Errorf("merchant reputation lookup: %w", err)
	}
	risk := math.Max(0, float64(100-score)) * 0.3
	return risk, fmt.Sprintf("merchant reputation: %s (%d/100)", category, score), nil
}

func (a *Assessor) action(score float64) (Action, string) {
	switch {
	case score >= a.config.AutoBlockThreshold:
		return ActionBlock, "high risk transaction blocked automatically"
	case score >= a.config.ManualReviewThreshold:
		return ActionManualReview, "transaction requires manual review"
	}
	return ActionApprove, "low risk transaction approved"
}

// LevelFor labels a composite score.
func LevelFor(score float64) Level {
	switch {
	case score >= 85:
		return LevelCritical
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	}
	return LevelMinimal
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
