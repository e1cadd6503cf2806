// Package sweeper periodically expires offline tokens and QR codes whose
// deadline has passed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 5 * time.Minute

// Cleaner expires stale records and reports how many it touched.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type Result struct {
	TokensExpired  int64 `json:"tokens_expired"`
	QRCodesExpired int64 `json:"qr_codes_expired"`
}

type Sweeper struct {
	tokens   Cleaner
	qrCodes  Cleaner
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(tokens, qrCodes Cleaner, interval time.Duration, logger *zap.Logger) *Sweeper {
	if tokens == nil || qrCodes == nil {
		panic("token and QR cleaners are required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{tokens: tokens, qrCodes: qrCodes, interval: interval, logger: logger}
}

// RunOnce sweeps tokens and QR codes concurrently. Both sweeps run even when
// one fails.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	var g errgroup.Group
	g.Go(func() error {
		n, err := s.tokens.CleanupExpired(ctx)
		res.TokensExpired = n
		return err
	})
	g.Go(func() error {
		n, err := s.qrCodes.CleanupExpired(ctx)
		res.QRCodesExpired = n
		return err
	})
	err := g.Wait()

	s.logger.Info("expiry sweep finished",
		zap.Int64("tokens_expired", res.TokensExpired),
		zap.Int64("qr_codes_expired", res.QRCodesExpired),
		zap.Error(err))
	return res, err
}

// Start sweeps every interval until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop halts the loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
