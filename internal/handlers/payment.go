package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
	"pinkpay/internal/services/payment"
	"pinkpay/internal/utils/response"
)

type PaymentHandler struct {
	paymentService payment.Service
}

func NewPaymentHandler(paymentService payment.Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

type payInput struct {
	UserID         string          `json:"user_id"`
	MerchantID     string          `json:"merchant_id"`
	MerchantName   string          `json:"merchant_name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	TargetCurrency string          `json:"target_currency"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentRail    string          `json:"payment_rail"`
	TokenOperation string          `json:"token_operation"`
	TokenID        string          `json:"token_id"`
	Metadata       map[string]any  `json:"metadata"`
}

// Pay records a payment and runs it through the pipeline. Queued payments
// answer 202 with the pending transaction.
func (h *PaymentHandler) Pay(c *fiber.Ctx) error {
	var input payInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = models.MethodWallet
	}
	if input.PaymentRail == "" {
		input.PaymentRail = models.RailDuitNow
	}

	txn, err := h.paymentService.Pay(c.Context(), payment.PayRequest{
		UserID:         strings.TrimSpace(input.UserID),
		MerchantID:     strings.TrimSpace(input.MerchantID),
		MerchantName:   input.MerchantName,
		Amount:         input.Amount,
		Currency:       input.Currency,
		TargetCurrency: input.TargetCurrency,
		PaymentMethod:  input.PaymentMethod,
		PaymentRail:    input.PaymentRail,
		TokenOperation: input.TokenOperation,
		TokenID:        input.TokenID,
		Metadata:       input.Metadata,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	if txn.Status == models.StatusPending {
		return response.Accepted(c, "Payment queued", txn)
	}
	return response.Success(c, "Payment processed", txn)
}
