package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pinkpay/internal/services/payment"
	"pinkpay/internal/services/transaction"
	"pinkpay/internal/utils/response"
)

type TransactionHandler struct {
	transactionService transaction.Service
	paymentService     payment.Service
}

func NewTransactionHandler(transactionService transaction.Service, paymentService payment.Service) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		paymentService:     paymentService,
	}
}

// GetStatus returns the transaction with its current status.
func (h *TransactionHandler) GetStatus(c *fiber.Ctx) error {
	txn, err := h.transactionService.Get(c.Context(), c.Params("txn_id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction retrieved", txn)
}

// GetLogs returns the plugin audit trail of a transaction, oldest first.
func (h *TransactionHandler) GetLogs(c *fiber.Ctx) error {
	logs, err := h.transactionService.PluginLogs(c.Context(), c.Params("txn_id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Plugin logs retrieved", logs)
}

func (h *TransactionHandler) Refund(c *fiber.Ctx) error {
	var input struct {
		Amount *decimal.Decimal `json:"amount"`
		Reason string           `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request format")
		}
	}

	result, err := h.paymentService.Refund(c.Context(), transaction.RefundRequest{
		TxnID:  c.Params("txn_id"),
		Amount: input.Amount,
		Reason: input.Reason,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Refund processed", fiber.Map{
		"original": result.Original,
		"refund":   result.Refund,
	})
}

// Review approves or rejects a transaction held for manual review.
func (h *TransactionHandler) Review(c *fiber.Ctx) error {
	var input struct {
		Approve  *bool  `json:"approve"`
		Reviewer string `json:"reviewer"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Approve == nil {
		return response.BadRequest(c, "approve is required")
	}
	if input.Reviewer == "" {
		return response.BadRequest(c, "reviewer is required")
	}

	txn, err := h.paymentService.Review(c.Context(), c.Params("txn_id"), *input.Approve, input.Reviewer)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Review recorded", txn)
}
