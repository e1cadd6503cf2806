package payment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/risk"
	"pinkpay/internal/services/transaction"
)

// TaskProcessTransaction is the queue task that runs Process for the
// transaction named in its payload.
const TaskProcessTransaction = "process_transaction"

// Outcome reasons recorded in transaction metadata.
const (
	ReasonBlocked          = "blocked_by_risk_assessment"
	ReasonReview           = "risk_assessment_review_required"
	ReasonPluginFailure    = "plugin_execution_failed"
	ReasonSettlementFailed = "settlement_failed"
	ReasonRejectedInReview = "rejected_in_review"
)

// Metadata keys used to carry pipeline inputs from Pay to Process.
const (
	metaTargetCurrency = "target_currency"
	metaTokenOperation = "token_operation"
	metaTokenID        = "token_id"
)

type Config struct {
	// AsyncProcessing queues Process instead of running it inline. It has
	// no effect without an Enqueuer.
	AsyncProcessing bool
	TaskPriority    int
}

type service struct {
	transactions transaction.Service
	pipeline     Pipeline
	qr           QRService
	tokens       TokenService
	settler      Settler
	queue        Enqueuer
	logger       *zap.Logger
	config       Config
}

// NewService creates a new payment service. queue may be nil, in which case
// every payment is processed inline.
func NewService(
	transactions transaction.Service,
	pipeline Pipeline,
	qrSvc QRService,
	tokens TokenService,
	settler Settler,
	queue Enqueuer,
	logger *zap.Logger,
	config Config,
) Service {
	if transactions == nil {
		panic("transaction service is required")
	}
	if pipeline == nil {
		panic("pipeline is required")
	}
	if qrSvc == nil {
		panic("qr service is required")
	}
	if tokens == nil {
		panic("token service is required")
	}
	if settler == nil {
		panic("settler is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &service{
		transactions: transactions,
		pipeline:     pipeline,
		qr:           qrSvc,
		tokens:       tokens,
		settler:      settler,
		queue:        queue,
		logger:       logger,
		config:       config,
	}
}

func (s *service) Pay(ctx context.Context, req PayRequest) (*models.Transaction, error) {
	metadata := make(map[string]any, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.TargetCurrency != "" {
		metadata[metaTargetCurrency] = strings.ToUpper(req.TargetCurrency)
	}
	if req.TokenOperation != "" {
		metadata[metaTokenOperation] = req.TokenOperation
	}
	if req.TokenID != "" {
		metadata[metaTokenID] = req.TokenID
	}

	txn, err := s.transactions.Create(ctx, transaction.CreateRequest{
		Prefix:        transaction.PrefixPayment,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		MerchantID:    req.MerchantID,
		MerchantName:  req.MerchantName,
		PaymentMethod: req.PaymentMethod,
		PaymentRail:   req.PaymentRail,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, txn)
}

// dispatch runs Process now or leaves it to the queue.
func (s *service) dispatch(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if s.config.AsyncProcessing && s.queue != nil {
		taskID, err := s.queue.Enqueue(ctx, TaskProcessTransaction,
			map[string]any{"txn_id": txn.TxnID}, s.config.TaskPriority)
		if err == nil {
			s.logger.Info("transaction queued",
				zap.String("txn_id", txn.TxnID), zap.String("task_id", taskID))
			return txn, nil
		}
		s.logger.Warn("failed to queue transaction, processing inline",
			zap.String("txn_id", txn.TxnID), zap.Error(err))
	}
	return s.Process(ctx, txn.TxnID)
}

// Process drives a pending transaction through the pipeline to its outcome.
// A transaction already in processing was left there by an attempt that
// failed part way, and is resumed from the pipeline.
func (s *service) Process(ctx context.Context, txnID string) (*models.Transaction, error) {
	txn, err := s.transactions.Get(ctx, txnID)
	if err != nil {
		return nil, err
	}
	switch txn.Status {
	case models.StatusPending:
		if txn, err = s.transactions.UpdateStatus(ctx, txnID, models.StatusProcessing, nil); err != nil {
			return nil, err
		}
	case models.StatusProcessing:
		s.logger.Info("resuming transaction", zap.String("txn_id", txnID))
	default:
		return nil, &transaction.InvalidTransitionError{TxnID: txnID, From: txn.Status, To: models.StatusProcessing}
	}

	result := s.pipeline.Run(ctx, txn.ID, seedFor(txn))
	action, hasAction := risk.ActionFrom(result.Data)
	score := result.Data[plugin.KeyRiskScore]

	switch {
	case hasAction && action == risk.ActionBlock:
		return s.transactions.UpdateStatus(ctx, txnID, models.StatusFailed, map[string]any{
			"failure_reason": ReasonBlocked,
			"risk_score":     score,
		})
	case hasAction && action == risk.ActionManualReview:
		return s.transactions.UpdateStatus(ctx, txnID, models.StatusPendingReview, map[string]any{
			"review_reason": ReasonReview,
			"risk_score":    score,
		})
	case !result.Success:
		return s.transactions.UpdateStatus(ctx, txnID, models.StatusFailed, map[string]any{
			"failure_reason": ReasonPluginFailure,
			"errors":         result.ErrorMessages(),
		})
	}

	if err := s.settler.Settle(ctx, txn); err != nil {
		s.logger.Error("settlement failed", zap.String("txn_id", txnID), zap.Error(err))
		return s.transactions.UpdateStatus(ctx, txnID, models.StatusFailed, map[string]any{
			"failure_reason": ReasonSettlementFailed,
			"error":          err.Error(),
		})
	}
	return s.transactions.UpdateStatus(ctx, txnID, models.StatusCompleted, summary(result))
}

// seedFor builds the pipeline's starting context from a transaction.
func seedFor(txn *models.Transaction) plugin.Context {
	seed := plugin.Context{
		plugin.KeyTxnID:         txn.TxnID,
		plugin.KeyAmount:        txn.Amount,
		plugin.KeyCurrency:      txn.Currency,
		plugin.KeyUserID:        txn.UserID,
		plugin.KeyMerchantID:    txn.MerchantID,
		plugin.KeyPaymentMethod: txn.PaymentMethod,
		plugin.KeyPaymentRail:   txn.PaymentRail,
		plugin.KeyCreatedAt:     txn.CreatedAt,
	}
	for _, key := range []string{metaTargetCurrency, metaTokenOperation, metaTokenID} {
		if v, ok := txn.Metadata[key].(string); ok && v != "" {
			seed[key] = v
		}
	}
	return seed
}

// summary is what a completed transaction keeps of its pipeline run.
func summary(result *plugin.RunResult) map[string]any {
	out := map[string]any{}
	for _, key := range []string{
		plugin.KeyRiskScore,
		plugin.KeyRiskLevel,
		plugin.KeyFXConversion,
		plugin.KeyOriginalAmount,
		plugin.KeyOriginalCurrency,
		plugin.KeyTokenID,
		"token_operation_status",
	} {
		if v, ok := result.Data[key]; ok {
			out[key] = v
		}
	}
	if action, ok := risk.ActionFrom(result.Data); ok {
		out[plugin.KeyRiskAction] = action.String()
	}
	if _, converted := result.Data[plugin.KeyFXConversion]; converted {
		if amount, ok := result.Data.Decimal(plugin.KeyAmount); ok {
			out["settled_amount"] = amount.StringFixed(2)
			out["settled_currency"] = result.Data.String(plugin.KeyCurrency)
		}
	}
	if len(result.Errors) > 0 {
		out["plugin_warnings"] = result.ErrorMessages()
	}
	return out
}

// PayWithQR pays a scanned QR code from scannerWallet. The QR code is
// claimed before the transaction exists, so a code can only ever fund one
// transaction.
func (s *service) PayWithQR(ctx context.Context, req QRPaymentRequest) (*QRPaymentResult, error) {
	code, err := s.qr.Get(ctx, req.QRID)
	if err != nil {
		return nil, err
	}
	if code.TransactionID != nil {
		return nil, domainErrors.ErrQRConsumed.WithMessage("QR code %s already paid by %s", code.QRID, *code.TransactionID)
	}
	if code.Status != models.QRScanned {
		return nil, domainErrors.ErrQRNotScanned.WithMessage("QR code %s is %s", code.QRID, code.Status)
	}

	amount := code.Amount
	if amount == nil {
		amount = req.Amount
	}
	if amount == nil || !amount.IsPositive() {
		return nil, domainErrors.ErrInvalidAmount.WithMessage("amount is required for QR code %s", code.QRID)
	}

	scannerCurrency := strings.ToUpper(req.Currency)
	if scannerCurrency == "" {
		scannerCurrency = code.Currency
	}
	routing := s.qr.ResolveRouting(code.Type, req.ScannerWallet, code.Currency, scannerCurrency)
	if !routing.Compatible {
		return nil, domainErrors.ErrRoutingUnsupported.WithMessage("%s", routing.Error)
	}

	txnID := s.transactions.NewTxnID(transaction.PrefixQR)
	if _, err := s.qr.Claim(ctx, code.QRID, txnID); err != nil {
		return nil, err
	}

	metadata := routing.Metadata()
	metadata["source_wallet"] = code.Type.String()
	metadata["qr_payload"] = map[string]any(code.Payload)
	if scannerCurrency != code.Currency {
		metadata[metaTargetCurrency] = scannerCurrency
	}

	var merchantID string
	if code.MerchantID != nil {
		merchantID = *code.MerchantID
	}
	qrID := code.QRID
	txn, err := s.transactions.Create(ctx, transaction.CreateRequest{
		TxnID:         txnID,
		UserID:        req.UserID,
		Amount:        *amount,
		Currency:      code.Currency,
		MerchantID:    merchantID,
		PaymentMethod: models.MethodQR,
		PaymentRail:   routing.TargetRail,
		QRCodeID:      &qrID,
		Metadata:      metadata,
	})
	if err != nil {
		s.logger.Error("QR code claimed but transaction not recorded",
			zap.String("qr_id", code.QRID), zap.String("txn_id", txnID), zap.Error(err))
		return nil, err
	}

	txn, err = s.dispatch(ctx, txn)
	if err != nil {
		return nil, err
	}
	return &QRPaymentResult{Transaction: txn, Routing: routing}, nil
}

// RedeemOffline spends an offline token and records the matching
// transaction. The token itself is the approval, so the pipeline is not run.
func (s *service) RedeemOffline(ctx context.Context, req RedeemRequest) (*models.Transaction, error) {
	token, err := s.tokens.Redeem(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactions.Create(ctx, transaction.CreateRequest{
		Prefix:        transaction.PrefixOffline,
		UserID:        token.UserID,
		Amount:        token.Amount,
		Currency:      token.Currency,
		MerchantID:    req.MerchantID,
		MerchantName:  req.MerchantName,
		PaymentMethod: models.MethodOfflineToken,
		PaymentRail:   models.RailOffline,
		Metadata: map[string]any{
			metaTokenID:       token.TokenID,
			"token_signed_at": token.SignedAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("token %s redeemed but not recorded: %w", token.TokenID, err)
	}

	if txn, err = s.transactions.UpdateStatus(ctx, txn.TxnID, models.StatusProcessing, nil); err != nil {
		return nil, err
	}
	if err := s.settler.Settle(ctx, txn); err != nil {
		return s.transactions.UpdateStatus(ctx, txn.TxnID, models.StatusFailed, map[string]any{
			"failure_reason": ReasonSettlementFailed,
			"error":          err.Error(),
		})
	}
	return s.transactions.UpdateStatus(ctx, txn.TxnID, models.StatusCompleted, map[string]any{
		"token_operation_status": "redeemed",
	})
}

func (s *service) Refund(ctx context.Context, req transaction.RefundRequest) (*transaction.RefundResult, error) {
	return s.transactions.Refund(ctx, req)
}

// Review resolves a transaction held for manual review.
func (s *service) Review(ctx context.Context, txnID string, approve bool, reviewer string) (*models.Transaction, error) {
	txn, err := s.transactions.Get(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Status != models.StatusPendingReview {
		return nil, domainErrors.ErrNotUnderReview.WithMessage("transaction %s is %s", txnID, txn.Status)
	}

	if approve {
		return s.transactions.UpdateStatus(ctx, txnID, models.StatusCompleted, map[string]any{
			"review_decision": "approved",
			"reviewed_by":     reviewer,
		})
	}
	return s.transactions.UpdateStatus(ctx, txnID, models.StatusFailed, map[string]any{
		"review_decision": "rejected",
		"reviewed_by":     reviewer,
		"failure_reason":  ReasonRejectedInReview,
	})
}
