// Package events publishes transaction lifecycle changes for downstream
// consumers such as dashboards and reconciliation jobs.
package events

import (
	// Go Internal Packages
	"context"
	"time"
)

const (
	TypeTransactionCreated       = "transaction.created"
	TypeTransactionStatusChanged = "transaction.status_changed"
)

type Event struct {
	Type       string         `json:"type"`
	TxnID      string         `json:"txn_id"`
	FromStatus string         `json:"from_status,omitempty"`
	ToStatus   string         `json:"to_status"`
	Amount     string         `json:"amount"`
	Currency   string         `json:"currency"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
