package fx

import (
	"context"
	"fmt"
	"strings"

	"pinkpay/internal/services/plugin"
)

const PluginName = "fx_converter"

// Plugin converts the context amount into target_currency when one is set.
type Plugin struct {
	converter *Converter
}

func NewPlugin(converter *Converter) *Plugin {
	if converter == nil {
		panic("converter is required")
	}
	return &Plugin{converter: converter}
}

func (p *Plugin) Name() string    { return PluginName }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Critical() bool  { return false }

func (p *Plugin) Execute(_ context.Context, data plugin.Context) (plugin.Result, error) {
	amount, ok := data.Decimal(plugin.KeyAmount)
	if !ok {
		return plugin.Failed("amount missing from context"), nil
	}
	from := strings.ToUpper(data.String(plugin.KeyCurrency))
	to := strings.ToUpper(data.String(plugin.KeyTargetCurrency))

	if to == "" || to == from {
		return plugin.Succeeded(map[string]any{"fx_conversion_needed": false}), nil
	}

	conv, ok := p.converter.Convert(amount, from, to)
	if !ok {
		return plugin.Failed(fmt.Sprintf("exchange rate not available for %s to %s", from, to)), nil
	}

	return plugin.Succeeded(map[string]any{
		"fx_conversion_needed":     true,
		plugin.KeyOriginalAmount:   conv.OriginalAmount.StringFixed(2),
		plugin.KeyOriginalCurrency: conv.OriginalCurrency,
		plugin.KeyAmount:           conv.ConvertedAmount,
		plugin.KeyCurrency:         conv.TargetCurrency,
		plugin.KeyFXConversion: map[string]any{
			"converted_amount": conv.ConvertedAmount.StringFixed(2),
			"exchange_rate":    conv.ExchangeRate.String(),
			"marked_up_rate":   conv.MarkedUpRate.String(),
			"markup":           conv.MarkupApplied.StringFixed(2),
		},
	}), nil
}
