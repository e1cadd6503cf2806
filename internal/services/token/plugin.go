package token

import (
	"context"
	"fmt"

	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/risk"
)

const PluginName = "token_handler"

// Token operations a payment may request through the context.
const (
	OpNone   = "none"
	OpCreate = "create"
	OpVerify = "verify"
	OpRedeem = "redeem"
)

// Plugin performs the token operation requested in the context once risk
// has approved the payment.
type Plugin struct {
	manager *Manager
}

func NewPlugin(manager *Manager) *Plugin {
	if manager == nil {
		panic("manager is required")
	}
	return &Plugin{manager: manager}
}

func (p *Plugin) Name() string    { return PluginName }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Critical() bool  { return false }

func (p *Plugin) Execute(ctx context.Context, data plugin.Context) (plugin.Result, error) {
	op := data.String(plugin.KeyTokenOperation)
	if op == "" || op == OpNone {
		return plugin.Succeeded(map[string]any{"token_operation_status": "skipped"}), nil
	}

	if action, ok := risk.ActionFrom(data); ok && action != risk.ActionApprove {
		return plugin.Succeeded(map[string]any{
			"token_operation_status": "skipped",
			"token_skip_reason":      fmt.Sprintf("risk action %s", action),
		}), nil
	}

	switch op {
	case OpCreate:
		return p.create(ctx, data)
	case OpVerify:
		return p.verify(ctx, data)
	case OpRedeem:
		return p.redeem(ctx, data)
	}
	return plugin.Failed(fmt.Sprintf("unknown token operation %q", op)), nil
}

func (p *Plugin) create(ctx context.Context, data plugin.Context) (plugin.Result, error) {
	amount, ok := data.Decimal(plugin.KeyAmount)
	if !ok {
		return plugin.Failed("amount missing from context"), nil
	}
	tok, err := p.manager.Create(ctx, CreateRequest{
		UserID:   data.String(plugin.KeyUserID),
		Amount:   amount,
		Currency: data.String(plugin.KeyCurrency),
	})
	if err != nil {
		return plugin.Failed(err.Error()), nil
	}
	return plugin.Succeeded(map[string]any{
		"token_operation_status": "created",
		plugin.KeyTokenID:        tok.TokenID,
		plugin.KeyToken: map[string]any{
			"token_id":   tok.TokenID,
			"amount":     tok.Amount.StringFixed(2),
			"currency":   tok.Currency,
			"expires_at": tok.ExpiresAt,
		},
	}), nil
}

func (p *Plugin) verify(ctx context.Context, data plugin.Context) (plugin.Result, error) {
	amount, ok := data.Decimal(plugin.KeyAmount)
	if !ok {
		return plugin.Failed("amount missing from context"), nil
	}
	res, err := p.manager.Verify(ctx, data.String(plugin.KeyTokenID), amount)
	if err != nil {
		return plugin.Failed(err.Error()), nil
	}
	if !res.CanProceed {
		return plugin.Result{Success: false, Error: "offline token verification failed", Data: map[string]any{"token_verification": res}}, nil
	}
	return plugin.Succeeded(map[string]any{
		"token_operation_status": "verified",
		"token_verification":     res,
	}), nil
}

// redeem failures are escalated: settling against an unspent token would
// double count it.
func (p *Plugin) redeem(ctx context.Context, data plugin.Context) (plugin.Result, error) {
	tokenID := data.String(plugin.KeyTokenID)
	amount, ok := data.Decimal(plugin.KeyAmount)
	if !ok {
		return plugin.Result{Success: false, Error: "amount missing from context", Critical: true}, nil
	}
	res, err := p.manager.Verify(ctx, tokenID, amount)
	if err != nil {
		return plugin.Result{Success: false, Error: err.Error(), Critical: true}, nil
	}
	if !res.TokenValid {
		return plugin.Result{Success: false, Error: "offline token cannot cover this amount", Critical: true}, nil
	}
	tok, err := p.manager.Redeem(ctx, tokenID)
	if err != nil {
		return plugin.Result{Success: false, Error: err.Error(), Critical: true}, nil
	}
	return plugin.Succeeded(map[string]any{
		"token_operation_status": "redeemed",
		plugin.KeyTokenID:        tok.TokenID,
	}), nil
}
