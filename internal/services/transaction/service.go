package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/events"
	"pinkpay/internal/models"
)

type service struct {
	store      Store
	cache      Cache
	publisher  events.Publisher
	clock      clock.Clock
	logger     *zap.Logger
	currencies map[string]bool
}

// NewService creates a new transaction service. cache and publisher may be nil.
func NewService(store Store, cache Cache, publisher events.Publisher, clk clock.Clock, logger *zap.Logger, cfg Config) Service {
	if store == nil {
		panic("store is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if len(cfg.SupportedCurrencies) == 0 {
		cfg.SupportedCurrencies = DefaultCurrencies
	}

	currencies := make(map[string]bool, len(cfg.SupportedCurrencies))
	for _, c := range cfg.SupportedCurrencies {
		currencies[strings.ToUpper(c)] = true
	}

	return &service{
		store:      store,
		cache:      cache,
		publisher:  publisher,
		clock:      clk,
		logger:     logger,
		currencies: currencies,
	}
}

// NewTxnID formats PREFIX_YYYYmmddHHMMSS_XXXXXXXX.
func (s *service) NewTxnID(prefix string) string {
	if prefix == "" {
		prefix = PrefixPayment
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s_%s_%s", prefix, s.clock.Now().Format("20060102150405"), suffix)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	txnID := req.TxnID
	if txnID == "" {
		txnID = s.NewTxnID(req.Prefix)
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	txn := &models.Transaction{
		BaseModel:        models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TxnID:            txnID,
		UserID:           req.UserID,
		Amount:           req.Amount.Round(2),
		Currency:         req.Currency,
		OriginalAmount:   req.OriginalAmount,
		OriginalCurrency: req.OriginalCurrency,
		MerchantID:       req.MerchantID,
		MerchantName:     req.MerchantName,
		PaymentMethod:    req.PaymentMethod,
		PaymentRail:      req.PaymentRail,
		Status:           models.StatusPending,
		QRCodeID:         req.QRCodeID,
		Metadata:         metadata,
	}

	if err := s.store.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info("transaction created",
		zap.String("txn_id", txn.TxnID),
		zap.String("amount", txn.Amount.StringFixed(2)),
		zap.String("currency", txn.Currency),
		zap.String("rail", txn.PaymentRail))
	s.publish(ctx, txn, events.TypeTransactionCreated, "")

	return txn, nil
}

func (s *service) validateCreate(req *CreateRequest) error {
	if !req.Amount.IsPositive() {
		return domainErrors.ErrInvalidAmount.WithMessage("amount must be greater than zero")
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(req.Currency) != 3 || !s.currencies[req.Currency] {
		return domainErrors.ErrUnsupportedCurrency.WithMessage("unsupported currency %q", req.Currency)
	}
	if req.PaymentMethod == "" {
		return domainErrors.Validation("INVALID_PAYMENT_METHOD", "payment method is required")
	}
	if req.PaymentRail == "" {
		return domainErrors.Validation("INVALID_PAYMENT_RAIL", "payment rail is required")
	}
	return nil
}

func (s *service) Get(ctx context.Context, txnID string) (*models.Transaction, error) {
	if txn, ok, err := s.cache.GetTransaction(ctx, txnID); err != nil {
		s.logger.Warn("transaction cache read failed", zap.String("txn_id", txnID), zap.Error(err))
	} else if ok {
		return txn, nil
	}

	txn, err := s.store.FindByTxnID(ctx, txnID)
	if err != nil {
		return nil, err
	}

	// Only settled rows are cached; in-flight ones change too often.
	if txn.IsTerminal() {
		if err := s.cache.SetTransaction(ctx, txn); err != nil {
			s.logger.Warn("failed to cache transaction", zap.String("txn_id", txnID), zap.Error(err))
		}
	}
	return txn, nil
}

// UpdateStatus moves the transaction along the lifecycle graph and merges
// extra into its metadata. The check and the write happen under one lock.
func (s *service) UpdateStatus(ctx context.Context, txnID string, status models.TransactionStatus, extra map[string]any) (*models.Transaction, error) {
	var from models.TransactionStatus
	txn, err := s.store.UpdateLocked(ctx, txnID, func(t *models.Transaction) error {
		from = t.Status
		if !CanTransition(t.Status, status) {
			return &InvalidTransitionError{TxnID: txnID, From: t.Status, To: status}
		}

		now := s.clock.Now()
		t.Status = status
		t.UpdatedAt = now
		if status == models.StatusProcessing {
			t.ProcessedAt = &now
		}
		if isTerminal(status) && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		if len(extra) > 0 {
			if t.Metadata == nil {
				t.Metadata = datatypes.JSONMap{}
			}
			for k, v := range extra {
				t.Metadata[k] = v
			}
		}
		return nil
	})
	if err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			s.logger.Warn("rejected status change",
				zap.String("txn_id", txnID), zap.Stringer("from", ite.From), zap.Stringer("to", ite.To))
		}
		return nil, err
	}

	if err := s.cache.DeleteTransaction(ctx, txnID); err != nil {
		s.logger.Warn("failed to invalidate cached transaction", zap.String("txn_id", txnID), zap.Error(err))
	}

	s.logger.Info("transaction status updated",
		zap.String("txn_id", txnID), zap.Stringer("from", from), zap.Stringer("to", status))
	s.publish(ctx, txn, events.TypeTransactionStatusChanged, from)

	return txn, nil
}

func (s *service) RecordPluginLog(ctx context.Context, entry *models.PluginLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if err := s.store.AppendPluginLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to record plugin log: %w", err)
	}
	return nil
}

func (s *service) PluginLogs(ctx context.Context, txnID string) ([]models.PluginLog, error) {
	txn, err := s.store.FindByTxnID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	return s.store.ListPluginLogs(ctx, txn.ID)
}

// Refund moves a completed transaction to refunded or partially_refunded
// and records the refund as its own completed transaction.
func (s *service) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	original, err := s.store.FindByTxnID(ctx, req.TxnID)
	if err != nil {
		return nil, err
	}
	if original.Status != models.StatusCompleted {
		return nil, domainErrors.ErrRefundNotAllowed.WithMessage(
			"transaction %s is %s, only completed transactions can be refunded", original.TxnID, original.Status)
	}

	amount := original.Amount
	if req.Amount != nil {
		amount = req.Amount.Round(2)
	}
	if !amount.IsPositive() {
		return nil, domainErrors.ErrInvalidAmount.WithMessage("refund amount must be greater than zero")
	}
	if amount.GreaterThan(original.Amount) {
		return nil, domainErrors.ErrRefundAmount.WithMessage(
			"refund amount %s exceeds original amount %s", amount.StringFixed(2), original.Amount.StringFixed(2))
	}

	refundType, target := RefundFull, models.StatusRefunded
	if amount.LessThan(original.Amount) {
		refundType, target = RefundPartial, models.StatusPartiallyRefunded
	}
	refundID := s.NewTxnID(PrefixRefund)

	// The refund row exists before the original moves, so a refunded
	// original always has a matching refund record.
	refund, err := s.Create(ctx, CreateRequest{
		TxnID:         refundID,
		UserID:        original.UserID,
		Amount:        amount,
		Currency:      original.Currency,
		MerchantID:    original.MerchantID,
		MerchantName:  original.MerchantName,
		PaymentMethod: models.MethodRefund,
		PaymentRail:   original.PaymentRail,
		Metadata: map[string]any{
			"original_txn_id": original.TxnID,
			"refund_reason":   req.Reason,
			"refund_type":     refundType,
		},
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.UpdateStatus(ctx, refundID, models.StatusProcessing, nil); err != nil {
		return nil, err
	}

	updated, err := s.UpdateStatus(ctx, original.TxnID, target, map[string]any{
		"refund_txn_id": refundID,
		"refund_amount": amount.StringFixed(2),
		"refund_reason": req.Reason,
		"refunded_at":   s.clock.Now().Format(time.RFC3339),
	})
	if err != nil {
		if _, ferr := s.UpdateStatus(ctx, refundID, models.StatusFailed, map[string]any{
			"failure_reason": ReasonOriginalNotUpdated,
			"error":          err.Error(),
		}); ferr != nil {
			s.logger.Error("failed to fail orphaned refund",
				zap.String("refund_txn_id", refundID), zap.Error(ferr))
		}
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			return nil, domainErrors.ErrRefundNotAllowed.WithMessage(
				"transaction %s is %s, only completed transactions can be refunded", original.TxnID, ite.From)
		}
		return nil, err
	}

	if refund, err = s.UpdateStatus(ctx, refundID, models.StatusCompleted, nil); err != nil {
		return nil, err
	}

	return &RefundResult{Original: updated, Refund: refund}, nil
}

func (s *service) publish(ctx context.Context, txn *models.Transaction, eventType string, from models.TransactionStatus) {
	event := events.Event{
		Type:       eventType,
		TxnID:      txn.TxnID,
		FromStatus: string(from),
		ToStatus:   string(txn.Status),
		Amount:     txn.Amount.StringFixed(2),
		Currency:   txn.Currency,
		OccurredAt: s.clock.Now(),
	}
	if reason, ok := txn.Metadata["failure_reason"]; ok {
		event.Metadata = map[string]any{"failure_reason": reason}
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish transaction event",
			zap.String("txn_id", txn.TxnID), zap.String("type", eventType), zap.Error(err))
	}
}
