package risk

import "context"

type reputationEntry struct {
	score    int
	category string
}

// StaticReputation is a fixed merchant reputation table. Unknown merchants
// get the UNKNOWN entry.
type StaticReputation map[string]reputationEntry

const unknownMerchant = "UNKNOWN"

func DefaultReputation() StaticReputation {
	return StaticReputation{
		"MERCH_001":     {score: 95, category: "trusted"},
		"MERCH_002":     {score: 60, category: "moderate"},
		unknownMerchant: {score: 30, category: "unknown"},
	}
}

// With returns a copy with merchantID set to score.
func (r StaticReputation) With(merchantID string, score int, category string) StaticReputation {
	out := make(StaticReputation, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[merchantID] = reputationEntry{score: score, category: category}
	return out
}

func (r StaticReputation) Reputation(_ context.Context, merchantID string) (int, string, error) {
	if e, ok := r[merchantID]; ok {
		return e.score, e.category, nil
	}
	e := r[unknownMerchant]
	return e.score, e.category, nil
}
