package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
	"pinkpay/internal/services/payment"
	"pinkpay/internal/services/token"
	"pinkpay/internal/utils/response"
)

// TokenService is the part of the offline token manager the HTTP layer
// needs. Redemption goes through the payment service so it is recorded as a
// transaction.
type TokenService interface {
	Create(ctx context.Context, req token.CreateRequest) (*models.OfflineToken, error)
	Verify(ctx context.Context, tokenID string, claimed decimal.Decimal) (*token.VerificationResult, error)
	Cancel(ctx context.Context, tokenID, userID string) (*models.OfflineToken, error)
}

type TokenHandler struct {
	tokenService   TokenService
	paymentService payment.Service
}

func NewTokenHandler(tokenService TokenService, paymentService payment.Service) *TokenHandler {
	return &TokenHandler{
		tokenService:   tokenService,
		paymentService: paymentService,
	}
}

// tokenView adds the signature, which the stored model keeps out of JSON.
type tokenView struct {
	*models.OfflineToken
	Signature string `json:"signature"`
}

func (h *TokenHandler) CreateToken(c *fiber.Ctx) error {
	var input struct {
		UserID   string          `json:"user_id"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	tok, err := h.tokenService.Create(c.Context(), token.CreateRequest{
		UserID:   input.UserID,
		Amount:   input.Amount,
		Currency: input.Currency,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Offline token created", tokenView{OfflineToken: tok, Signature: tok.Signature})
}

func (h *TokenHandler) VerifyToken(c *fiber.Ctx) error {
	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	result, err := h.tokenService.Verify(c.Context(), c.Params("token_id"), input.Amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Token verified", result)
}

// RedeemToken spends the token and records the offline transaction.
func (h *TokenHandler) RedeemToken(c *fiber.Ctx) error {
	var input struct {
		MerchantID   string `json:"merchant_id"`
		MerchantName string `json:"merchant_name"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request format")
		}
	}

	txn, err := h.paymentService.RedeemOffline(c.Context(), payment.RedeemRequest{
		TokenID:      c.Params("token_id"),
		MerchantID:   input.MerchantID,
		MerchantName: input.MerchantName,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Token redeemed", txn)
}

func (h *TokenHandler) CancelToken(c *fiber.Ctx) error {
	var input struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.UserID == "" {
		return response.BadRequest(c, "user_id is required")
	}

	tok, err := h.tokenService.Cancel(c.Context(), c.Params("token_id"), input.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Token cancelled", tok)
}
