package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pinkpay/internal/services/wallet"
	"pinkpay/internal/utils/response"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	w, err := h.walletService.GetWallet(c.Context(), c.Params("user_id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet retrieved", w)
}

// SetBalance overwrites the demo balance offline tokens are issued against.
func (h *WalletHandler) SetBalance(c *fiber.Ctx) error {
	var input struct {
		Balance  *decimal.Decimal `json:"balance"`
		Currency string           `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Balance == nil {
		return response.BadRequest(c, "balance is required")
	}

	w, err := h.walletService.SetBalance(c.Context(), c.Params("user_id"), *input.Balance, input.Currency)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet updated", w)
}
