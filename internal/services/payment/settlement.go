package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pinkpay/internal/models"
)

// SimulatedSettler stands in for the payment rails by waiting for the
// rail's typical settlement time.
type SimulatedSettler struct {
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSimulatedSettler(logger *zap.Logger) *SimulatedSettler {
	return &SimulatedSettler{logger: logger, sleep: sleepContext}
}

func (s *SimulatedSettler) Settle(ctx context.Context, txn *models.Transaction) error {
	delay := models.RailLatency(txn.PaymentRail)
	s.logger.Debug("settling on rail",
		zap.String("txn_id", txn.TxnID),
		zap.String("rail", txn.PaymentRail),
		zap.Duration("delay", delay))
	return s.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InstantSettler settles immediately.
type InstantSettler struct{}

func (InstantSettler) Settle(context.Context, *models.Transaction) error { return nil }
