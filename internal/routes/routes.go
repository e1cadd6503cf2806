// Package routes defines the API routing configuration.
// It mounts every handler under /api, applies per-route rate limits and
// guards the operator endpoints.
package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"pinkpay/internal/config"
	"pinkpay/internal/handlers"
	"pinkpay/internal/middleware"
)

// Handlers bundles the HTTP handlers mounted by SetupRoutes.
type Handlers struct {
	Payment     *handlers.PaymentHandler
	Transaction *handlers.TransactionHandler
	QR          *handlers.QRHandler
	Token       *handlers.TokenHandler
	Wallet      *handlers.WalletHandler
	Admin       *handlers.AdminHandler
	Health      *handlers.HealthHandler
}

// NewApp creates the fiber app with the shared middleware stack.
func NewApp(cfg config.HTTP, appName string) *fiber.App {
	app := fiber.New(fiber.Config{AppName: appName})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.AdminKeyHeader,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	return app
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
				"code":  "RATE_LIMITED",
			})
		},
	})
}

// SetupRoutes configures all application routes. metrics is mounted on
// /metrics when not nil.
func SetupRoutes(app *fiber.App, h Handlers, cfg config.HTTP, metrics http.Handler) {
	app.Get("/health", h.Health.Health)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api")
	adminKey := middleware.RequireAdminKey(cfg.AdminKey)

	// Payments
	pay := api.Group("/pay")
	if cfg.PayLimitPerMinute > 0 {
		pay.Use(rateLimit(cfg.PayLimitPerMinute))
	}
	pay.Post("/", h.Payment.Pay)
	api.Get("/status/:txn_id", h.Transaction.GetStatus)

	// Transactions
	transactions := api.Group("/transactions/:txn_id")
	transactions.Get("/logs", h.Transaction.GetLogs)
	if cfg.RefundLimitPerMinute > 0 {
		transactions.Post("/refund", rateLimit(cfg.RefundLimitPerMinute), h.Transaction.Refund)
	} else {
		transactions.Post("/refund", h.Transaction.Refund)
	}
	transactions.Post("/review", adminKey, h.Transaction.Review)

	// QR codes
	qr := api.Group("/qr")
	qr.Post("/", h.QR.GenerateQR)
	qr.Get("/routing", h.QR.GetRouting)
	qr.Post("/:qr_id/scan", h.QR.ScanQR)
	qr.Post("/:qr_id/pay", h.QR.PayQR)

	// Offline tokens
	tokens := api.Group("/tokens")
	tokens.Post("/", h.Token.CreateToken)
	tokens.Post("/:token_id/verify", h.Token.VerifyToken)
	tokens.Post("/:token_id/redeem", h.Token.RedeemToken)
	tokens.Post("/:token_id/cancel", h.Token.CancelToken)

	// Wallets
	wallets := api.Group("/wallets")
	wallets.Get("/:user_id", h.Wallet.GetWallet)
	wallets.Put("/:user_id", h.Wallet.SetBalance)

	// Operator endpoints
	api.Get("/plugins", adminKey, h.Admin.ListPlugins)
	api.Post("/plugins/:name/enable", adminKey, h.Admin.EnablePlugin)
	api.Post("/plugins/:name/disable", adminKey, h.Admin.DisablePlugin)
	api.Get("/queue/stats", adminKey, h.Admin.QueueStats)
}
