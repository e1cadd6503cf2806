package risk

import (
	"context"

	"pinkpay/internal/services/plugin"
)

const PluginName = "risk_checker"

// Plugin exposes a Scorer to the pipeline. It is critical: a transaction is
// never settled without a risk decision.
type Plugin struct {
	scorer Scorer
}

func NewPlugin(scorer Scorer) *Plugin {
	if scorer == nil {
		panic("scorer is required")
	}
	return &Plugin{scorer: scorer}
}

func (p *Plugin) Name() string    { return PluginName }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Critical() bool  { return true }

func (p *Plugin) Execute(ctx context.Context, data plugin.Context) (plugin.Result, error) {
	amount, ok := data.Decimal(plugin.KeyAmount)
	if !ok {
		return plugin.Failed("amount missing from context"), nil
	}
	at, _ := data.Time(plugin.KeyCreatedAt)

	assessment, err := p.scorer.Assess(ctx, Input{
		TxnID:      data.String(plugin.KeyTxnID),
		UserID:     data.String(plugin.KeyUserID),
		MerchantID: data.String(plugin.KeyMerchantID),
		Amount:     amount,
		Currency:   data.String(plugin.KeyCurrency),
		At:         at,
	})
	if err != nil {
		return plugin.Result{}, err
	}

	return plugin.Succeeded(map[string]any{
		plugin.KeyRiskScore:      assessment.Score,
		plugin.KeyRiskLevel:      string(assessment.Level),
		plugin.KeyRiskAction:     assessment.Action,
		plugin.KeyRiskAssessment: assessment,
	}), nil
}

// ActionFrom reads the risk action a run left in its context.
func ActionFrom(data plugin.Context) (Action, bool) {
	switch v := data[plugin.KeyRiskAction].(type) {
	case Action:
		return v, true
	case string:
		return Action(v), v != ""
	}
	return "", false
}

// FixedScorer always returns the same score. It is used for demos and tests
// that need a deterministic risk decision.
type FixedScorer struct {
	Score                 float64
	AutoBlockThreshold    float64
	ManualReviewThreshold float64
}

func (f FixedScorer) Assess(_ context.Context, _ Input) (*Assessment, error) {
	block, review := f.AutoBlockThreshold, f.ManualReviewThreshold
	if block == 0 {
		block = 85
	}
	if review == 0 {
		review = 70
	}

	action := ActionApprove
	switch {
	case f.Score >= block:
		action = ActionBlock
	case f.Score >= review:
		action = ActionManualReview
	}
	return &Assessment{Score: f.Score, Level: LevelFor(f.Score), Action: action}, nil
}
