package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pinkpay/internal/models"
	"pinkpay/internal/services/payment"
	"pinkpay/internal/services/qr"
	"pinkpay/internal/utils/response"
)

// QRService is the part of the QR manager the HTTP layer needs.
type QRService interface {
	Generate(ctx context.Context, req qr.GenerateRequest) (*models.QRCode, error)
	Scan(ctx context.Context, qrID string) (*models.QRCode, error)
	ResolveRouting(qrType models.QRType, scannerWallet, qrCurrency, scannerCurrency string) qr.RoutingDecision
}

type QRHandler struct {
	qrService      QRService
	paymentService payment.Service
}

func NewQRHandler(qrService QRService, paymentService payment.Service) *QRHandler {
	return &QRHandler{
		qrService:      qrService,
		paymentService: paymentService,
	}
}

// GenerateQR creates an active QR code for a merchant or a user.
func (h *QRHandler) GenerateQR(c *fiber.Ctx) error {
	var input struct {
		QRType     string           `json:"qr_type"`
		MerchantID string           `json:"merchant_id"`
		UserID     string           `json:"user_id"`
		Amount     *decimal.Decimal `json:"amount"`
		Currency   string           `json:"currency"`
		TTLMinutes int              `json:"ttl_minutes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.TTLMinutes < 0 {
		return response.BadRequest(c, "ttl_minutes must not be negative")
	}

	code, err := h.qrService.Generate(c.Context(), qr.GenerateRequest{
		Type:       models.QRType(input.QRType),
		MerchantID: input.MerchantID,
		UserID:     input.UserID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		TTL:        time.Duration(input.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "QR code generated", code)
}

func (h *QRHandler) ScanQR(c *fiber.Ctx) error {
	code, err := h.qrService.Scan(c.Context(), c.Params("qr_id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "QR code scanned", code)
}

// PayQR pays a scanned QR code from the scanner's wallet.
func (h *QRHandler) PayQR(c *fiber.Ctx) error {
	var input struct {
		ScannerWallet string           `json:"scanner_wallet"`
		UserID        string           `json:"user_id"`
		Amount        *decimal.Decimal `json:"amount"`
		Currency      string           `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.ScannerWallet == "" {
		return response.BadRequest(c, "scanner_wallet is required")
	}

	result, err := h.paymentService.PayWithQR(c.Context(), payment.QRPaymentRequest{
		QRID:          c.Params("qr_id"),
		ScannerWallet: input.ScannerWallet,
		UserID:        input.UserID,
		Amount:        input.Amount,
		Currency:      input.Currency,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "QR payment processed", result)
}

// GetRouting previews how a wallet would pay a QR code type.
func (h *QRHandler) GetRouting(c *fiber.Ctx) error {
	qrType := strings.ToLower(c.Query("qr_type"))
	scanner := c.Query("scanner_wallet")
	if qrType == "" || scanner == "" {
		return response.BadRequest(c, "qr_type and scanner_wallet are required")
	}

	decision := h.qrService.ResolveRouting(models.QRType(qrType), scanner,
		c.Query("qr_currency"), c.Query("scanner_currency"))
	return response.Success(c, "Routing resolved", decision)
}
