// Package app wires the switch together from configuration: storage,
// cache, events, services, background workers and the HTTP surface.
package app

import (
	// Go Internal Packages
	"context"
	"errors"
	"fmt"
	"net/http"

	// Local Packages
	"pinkpay/internal/clock"
	"pinkpay/internal/config"
	"pinkpay/internal/events"
	"pinkpay/internal/handlers"
	"pinkpay/internal/repositories"
	"pinkpay/internal/repositories/memory"
	redisrepo "pinkpay/internal/repositories/redis"
	"pinkpay/internal/routes"
	"pinkpay/internal/services/fx"
	"pinkpay/internal/services/payment"
	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/qr"
	"pinkpay/internal/services/queue"
	"pinkpay/internal/services/risk"
	"pinkpay/internal/services/sweeper"
	"pinkpay/internal/services/token"
	"pinkpay/internal/services/transaction"
	"pinkpay/internal/services/wallet"
	"pinkpay/internal/utils"

	// External Packages
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

const (
	Version = "1.0.0"

	// TaskPriority is the queue priority of transaction processing tasks.
	TaskPriority = 5

	signingPurpose = "offline-token-signing"
)

// transactionStore is what both storage drivers provide for transactions.
type transactionStore interface {
	transaction.Store
	risk.History
}

type stores struct {
	transactions transactionStore
	tokens       token.Store
	qrCodes      qr.Store
	wallets      wallet.Store
}

// App holds the wired components of one switch process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	HTTP     *fiber.App
	Queue    *queue.Queue
	Sweeper  *sweeper.Sweeper
	Pipeline *plugin.Pipeline

	Transactions transaction.Service
	Payments     payment.Service
	Tokens       *token.Manager
	QRCodes      *qr.Manager
	Wallets      wallet.Service

	clock   clock.Clock
	closers []func(ctx context.Context) error
}

// Option adjusts an App before it is wired.
type Option func(*App)

// WithClock replaces the wall clock, e.g. with clock.Mock in tests.
func WithClock(clk clock.Clock) Option {
	return func(a *App) { a.clock = clk }
}

// New wires every component described by cfg. Connections opened here are
// released by Shutdown.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	a := &App{Config: cfg, Logger: logger, clock: clock.Real()}
	for _, opt := range opts {
		opt(a)
	}

	checks := map[string]handlers.HealthCheck{}

	st, err := a.openStores(ctx, checks)
	if err != nil {
		return nil, err
	}

	var cache transaction.Cache
	var sink queue.DeadLetterSink = queue.LogSink{Logger: logger}
	if cfg.Redis.Enabled {
		client, err := redisrepo.Connect(ctx, cfg.Redis.URI, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("cannot create redis client: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cache = redisrepo.NewTransactionCache(client, cfg.Redis.CacheTTL)
		sink = redisrepo.NewDeadLetterQueue(client, logger, cfg.Redis.DLQKey)
	}

	var publisher events.Publisher
	var metrics http.Handler
	if cfg.Kafka.Enabled {
		m := kprom.NewMetrics("pinkpay")
		kp, err := events.NewKafkaPublisher(&events.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		}, m, logger)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("cannot create kafka publisher: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) error { kp.Close(ctx); return nil })
		checks["kafka"] = kp.Ping
		publisher = kp
		metrics = m.Handler()
	}

	if err := a.wireServices(st, cache, publisher, sink); err != nil {
		a.close(ctx)
		return nil, err
	}

	a.HTTP = routes.NewApp(cfg.HTTP, cfg.Application)
	routes.SetupRoutes(a.HTTP, routes.Handlers{
		Payment:     handlers.NewPaymentHandler(a.Payments),
		Transaction: handlers.NewTransactionHandler(a.Transactions, a.Payments),
		QR:          handlers.NewQRHandler(a.QRCodes, a.Payments),
		Token:       handlers.NewTokenHandler(a.Tokens, a.Payments),
		Wallet:      handlers.NewWalletHandler(a.Wallets),
		Admin:       handlers.NewAdminHandler(a.Pipeline, a.Queue),
		Health:      handlers.NewHealthHandler(Version, checks),
	}, cfg.HTTP, metrics)

	return a, nil
}

func (a *App) openStores(ctx context.Context, checks map[string]handlers.HealthCheck) (*stores, error) {
	switch a.Config.Storage.Driver {
	case "postgres":
		db, err := repositories.Connect(a.Config.Postgres, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return repositories.Close(db) })
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return &stores{
			transactions: repositories.NewTransactionRepository(db),
			tokens:       repositories.NewTokenRepository(db),
			qrCodes:      repositories.NewQRRepository(db),
			wallets:      repositories.NewWalletRepository(db),
		}, nil
	case "memory", "":
		a.Logger.Warn("using in-memory storage, state is lost on restart")
		return &stores{
			transactions: memory.NewTransactionStore(),
			tokens:       memory.NewTokenStore(),
			qrCodes:      memory.NewQRStore(),
			wallets:      memory.NewWalletStore(),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
}

func (a *App) signingKey() ([]byte, error) {
	secret := a.Config.Tokens.SigningSecret
	if secret == "" {
		if a.Config.IsProdMode {
			return nil, errors.New("tokens.signing_secret is required in production")
		}
		var err error
		if secret, err = utils.GenerateSecureCode(); err != nil {
			return nil, err
		}
		a.Logger.Warn("no token signing secret configured, using an ephemeral one; tokens will not survive a restart")
	}
	return utils.DeriveKey([]byte(secret), signingPurpose)
}

func (a *App) wireServices(st *stores, cache transaction.Cache, publisher events.Publisher, sink queue.DeadLetterSink) error {
	cfg, logger := a.Config, a.Logger

	a.Transactions = transaction.NewService(st.transactions, cache, publisher, a.clock, logger, transaction.Config{})
	a.Wallets = wallet.NewService(st.wallets, logger, wallet.Config{})

	key, err := a.signingKey()
	if err != nil {
		return err
	}
	signer, err := token.NewHMACSigner(key)
	if err != nil {
		return err
	}
	converter := fx.NewConverter(nil, fx.DefaultMarkup)
	a.Tokens = token.NewManager(st.tokens, a.Wallets, converter, signer, a.clock, logger, token.Config{
		TTL:              cfg.Tokens.TTL,
		MinAmount:        decimal.NewFromFloat(cfg.Tokens.MinAmount),
		MaxAmount:        decimal.NewFromFloat(cfg.Tokens.MaxAmount),
		Currencies:       cfg.Tokens.Currencies,
		MaxActivePerUser: cfg.Tokens.MaxActivePerUser,
	})

	a.QRCodes = qr.NewManager(st.qrCodes, converter, a.clock, logger, qr.Config{DefaultTTL: cfg.QR.DefaultTTL})

	rc := riskConfig(cfg.Risk)
	rc.Rates = converter
	assessor := risk.NewAssessor(st.transactions, risk.DefaultReputation(), a.clock, logger, rc)
	a.Pipeline = plugin.NewPipeline(a.Transactions, a.clock, logger, cfg.Plugins.Timeout,
		fx.NewPlugin(converter),
		risk.NewPlugin(assessor),
		token.NewPlugin(a.Tokens),
	)
	a.Pipeline.Only(cfg.Plugins.Enabled...)

	var settler payment.Settler = payment.InstantSettler{}
	if cfg.Settlement.SimulateDelay {
		settler = payment.NewSimulatedSettler(logger)
	}

	a.Queue = queue.New(queue.Config{
		Workers:    cfg.Queue.Workers,
		MaxRetries: cfg.Queue.MaxRetries,
	}, sink, a.clock, logger)

	a.Payments = payment.NewService(a.Transactions, a.Pipeline, a.QRCodes, a.Tokens, settler, a.Queue, logger, payment.Config{
		AsyncProcessing: cfg.Queue.AsyncProcessing,
		TaskPriority:    TaskPriority,
	})
	a.Queue.Register(payment.TaskProcessTransaction, payment.TaskHandler(a.Payments))

	a.Sweeper = sweeper.New(a.Tokens, a.QRCodes, cfg.Sweeper.Interval, logger)
	return nil
}

func riskConfig(c config.Risk) risk.Config {
	rc := risk.DefaultConfig()
	if c.BaseCurrency != "" {
		rc.BaseCurrency = c.BaseCurrency
	}
	if c.HighAmount > 0 {
		rc.HighAmount = decimal.NewFromFloat(c.HighAmount)
	}
	if c.VeryHighAmount > 0 {
		rc.VeryHighAmount = decimal.NewFromFloat(c.VeryHighAmount)
	}
	if c.SuspiciousFrequency > 0 {
		rc.SuspiciousFrequency = c.SuspiciousFrequency
	}
	if c.VelocityLimit > 0 {
		rc.VelocityLimit = decimal.NewFromFloat(c.VelocityLimit)
	}
	if c.AutoBlockThreshold > 0 {
		rc.AutoBlockThreshold = c.AutoBlockThreshold
	}
	if c.ManualReviewThreshold > 0 {
		rc.ManualReviewThreshold = c.ManualReviewThreshold
	}
	rc.Renormalize = c.RenormalizeWeights
	return rc
}

// Start launches the task queue and the expiry sweeper.
func (a *App) Start(ctx context.Context) error {
	if err := a.Queue.Start(ctx); err != nil {
		return err
	}
	a.Sweeper.Start(ctx)
	return nil
}

// Shutdown stops the HTTP server, the background workers and then closes
// every connection, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.HTTP.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.Sweeper.Stop()
	if err := a.Queue.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("queue stop: %w", err))
	}
	if err := a.close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// close releases connections in reverse order of opening.
func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
