package token

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pinkpay/internal/clock"
	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/repositories/memory"
	"pinkpay/internal/services/fx"
	"pinkpay/internal/services/plugin"
	"pinkpay/internal/services/risk"
)

type MockWallets struct {
	mock.Mock
}

func (m *MockWallets) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func myrWallet(balance string) *models.Wallet {
	return &models.Wallet{UserID: "user_1", Balance: decimal.RequireFromString(balance), Currency: "MYR"}
}

var testKey = []byte(strings.Repeat("k", 32))

var start = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	manager *Manager
	store   *memory.TokenStore
	wallets *MockWallets
	clock   *clock.Mock
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	signer, err := NewHMACSigner(testKey)
	require.NoError(t, err)

	wallets := new(MockWallets)
	wallets.On("GetWallet", mock.Anything, "user_1").Return(myrWallet(balance), nil)
	wallets.On("GetWallet", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrWalletNotFound)

	store := memory.NewTokenStore()
	clk := clock.NewMock(start)
	return &fixture{
		manager: NewManager(store, wallets, fx.NewConverter(nil, fx.DefaultMarkup), signer, clk, zap.NewNop(), Config{}),
		store:   store,
		wallets: wallets,
		clock:   clk,
	}
}

func (f *fixture) create(t *testing.T, amount string) *models.OfflineToken {
	t.Helper()
	tok, err := f.manager.Create(context.Background(), CreateRequest{UserID: "user_1", Amount: decimal.RequireFromString(amount), Currency: "MYR"})
	require.NoError(t, err)
	return tok
}

func TestHMACSigner(t *testing.T) {
	s, err := NewHMACSigner(testKey)
	require.NoError(t, err)

	sig, err := s.Sign([]byte("TOK_1:user_1:10.00:100.00:1700000000"))
	require.NoError(t, err)
	assert.Len(t, sig, 64)
	assert.True(t, s.Verify([]byte("TOK_1:user_1:10.00:100.00:1700000000"), sig))
	assert.False(t, s.Verify([]byte("TOK_1:user_1:10.00:99.00:1700000000"), sig))
	assert.False(t, s.Verify([]byte("TOK_1:user_1:10.00:100.00:1700000000"), "not-hex"))

	_, err = NewHMACSigner([]byte("short"))
	assert.Error(t, err)
}

func TestManager_Create(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		amount   string
		currency string
		wantErr  error
	}{
		{name: "valid", userID: "user_1", amount: "50", currency: "MYR"},
		{name: "lower bound", userID: "user_1", amount: "5", currency: "MYR"},
		{name: "over balance", userID: "user_1", amount: "150", currency: "MYR", wantErr: domainErrors.ErrInsufficientBalance},
		{name: "foreign currency within converted balance", userID: "user_1", amount: "20", currency: "USD"},
		{name: "foreign currency over converted balance", userID: "user_1", amount: "100", currency: "USD", wantErr: domainErrors.ErrInsufficientBalance},
		{name: "no rate into wallet currency", userID: "user_1", amount: "10", currency: "SGD", wantErr: domainErrors.ErrUnsupportedCurrency},
		{name: "below minimum", userID: "user_1", amount: "4.99", currency: "MYR", wantErr: domainErrors.ErrInvalidAmount},
		{name: "above maximum", userID: "user_1", amount: "1000.01", currency: "MYR", wantErr: domainErrors.ErrValidation},
		{name: "unsupported currency", userID: "user_1", amount: "10", currency: "EUR", wantErr: domainErrors.ErrUnsupportedCurrency},
		{name: "no wallet", userID: "ghost", amount: "10", currency: "MYR", wantErr: domainErrors.ErrInsufficientBalance},
		{name: "missing user", amount: "10", currency: "MYR", wantErr: domainErrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "100")
			tok, err := f.manager.Create(context.Background(), CreateRequest{
				UserID:   tt.userID,
				Amount:   decimal.RequireFromString(tt.amount),
				Currency: tt.currency,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, f.store.Len(), "nothing may be persisted")
				return
			}
			require.NoError(t, err)
			assert.Regexp(t, `^TOK_[0-9A-F]{32}$`, tok.TokenID)
			assert.Equal(t, models.TokenActive, tok.Status)
			assert.Equal(t, start.Add(DefaultTTL), tok.ExpiresAt)
			assert.Equal(t, "100.00", tok.BalanceAtCreation.StringFixed(2))
			assert.NotEmpty(t, tok.Signature)
			assert.Equal(t, 1, f.store.Len())
		})
	}
}

func TestManager_Create_ActiveLimit(t *testing.T) {
	f := newFixture(t, "1000")
	for i := 0; i < DefaultMaxActivePerUser; i++ {
		f.create(t, "10")
	}
	_, err := f.manager.Create(context.Background(), CreateRequest{UserID: "user_1", Amount: decimal.NewFromInt(10), Currency: "MYR"})
	assert.ErrorIs(t, err, domainErrors.ErrTokenLimit)

	// Expired tokens no longer count.
	f.clock.Advance(DefaultTTL + time.Second)
	f.create(t, "10")
}

func TestManager_Create_ActiveLimitConcurrent(t *testing.T) {
	f := newFixture(t, "1000")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Create(ctx, CreateRequest{UserID: "user_1", Amount: decimal.NewFromInt(10), Currency: "MYR"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, limited int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domainErrors.ErrTokenLimit):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, DefaultMaxActivePerUser, created)
	assert.Equal(t, 20-DefaultMaxActivePerUser, limited)
	assert.Equal(t, DefaultMaxActivePerUser, f.store.Len())
}

func TestManager_Verify_ForeignCurrency(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	tok, err := f.manager.Create(ctx, CreateRequest{UserID: "user_1", Amount: decimal.NewFromInt(20), Currency: "USD"})
	require.NoError(t, err)

	res, err := f.manager.Verify(ctx, tok.TokenID, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, res.BalanceSufficient)
	assert.True(t, res.CanProceed)

	// 20 USD needs 95 MYR.
	f.wallets.ExpectedCalls = nil
	f.wallets.On("GetWallet", mock.Anything, "user_1").Return(myrWallet("90"), nil)
	res, err = f.manager.Verify(ctx, tok.TokenID, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.False(t, res.BalanceSufficient)
	assert.False(t, res.CanProceed)
}

func TestManager_Verify(t *testing.T) {
	f := newFixture(t, "100")
	tok := f.create(t, "40")
	ctx := context.Background()

	res, err := f.manager.Verify(ctx, tok.TokenID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, &VerificationResult{TokenID: tok.TokenID, TokenValid: true, BalanceSufficient: true, SignatureValid: true, CanProceed: true}, res)

	res, err = f.manager.Verify(ctx, tok.TokenID, decimal.NewFromInt(41))
	require.NoError(t, err)
	assert.False(t, res.TokenValid)
	assert.False(t, res.CanProceed)

	_, err = f.manager.Verify(ctx, "TOK_MISSING", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)

	stored, err := f.manager.Get(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenActive, stored.Status, "verify must not mutate")
}

func TestManager_Verify_BalanceChangeBreaksSignature(t *testing.T) {
	f := newFixture(t, "100")
	tok := f.create(t, "40")

	f.wallets.ExpectedCalls = nil
	f.wallets.On("GetWallet", mock.Anything, "user_1").Return(myrWallet("60"), nil)

	res, err := f.manager.Verify(context.Background(), tok.TokenID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.True(t, res.TokenValid)
	assert.True(t, res.BalanceSufficient)
	assert.False(t, res.SignatureValid)
	assert.False(t, res.CanProceed)
}

func TestManager_Redeem_Once(t *testing.T) {
	f := newFixture(t, "100")
	tok := f.create(t, "20")
	ctx := context.Background()

	f.clock.Advance(time.Minute)
	redeemed, err := f.manager.Redeem(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenRedeemed, redeemed.Status)
	require.NotNil(t, redeemed.RedeemedAt)
	firstRedeemedAt := *redeemed.RedeemedAt

	f.clock.Advance(time.Minute)
	_, err = f.manager.Redeem(ctx, tok.TokenID)
	assert.ErrorIs(t, err, domainErrors.ErrTokenRedeemed)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidState)

	after, err := f.manager.Get(ctx, tok.TokenID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenRedeemed, after.Status)
	assert.Equal(t, firstRedeemedAt, *after.RedeemedAt)
}

func TestManager_Redeem_Concurrent(t *testing.T) {
	f := newFixture(t, "100")
	tok := f.create(t, "20")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.Redeem(context.Background(), tok.TokenID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestManager_Redeem_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture, tok *models.OfflineToken)
		wantErr error
	}{
		{
			name:    "expired",
			prepare: func(f *fixture, _ *models.OfflineToken) { f.clock.Advance(DefaultTTL) },
			wantErr: domainErrors.ErrTokenExpired,
		},
		{
			name: "cancelled",
			prepare: func(f *fixture, tok *models.OfflineToken) {
				_, err := f.manager.Cancel(context.Background(), tok.TokenID, "user_1")
				require.NoError(t, err)
			},
			wantErr: domainErrors.ErrTokenInactive,
		},
		{
			name: "tampered amount",
			prepare: func(f *fixture, tok *models.OfflineToken) {
				_, err := f.store.UpdateLocked(context.Background(), tok.TokenID, func(t *models.OfflineToken) error {
					t.Amount = decimal.NewFromInt(99)
					return nil
				})
				require.NoError(t, err)
			},
			wantErr: domainErrors.ErrTokenSignature,
		},
		{
			name:    "unknown",
			wantErr: domainErrors.ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "100")
			tok := f.create(t, "20")
			id := tok.TokenID
			if tt.prepare != nil {
				tt.prepare(f, tok)
			} else {
				id = "TOK_UNKNOWN"
			}

			_, err := f.manager.Redeem(context.Background(), id)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManager_Cancel(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	tok := f.create(t, "20")
	_, err := f.manager.Cancel(ctx, tok.TokenID, "someone_else")
	assert.ErrorIs(t, err, domainErrors.ErrTokenOwner)

	cancelled, err := f.manager.Cancel(ctx, tok.TokenID, "user_1")
	require.NoError(t, err)
	assert.Equal(t, models.TokenCancelled, cancelled.Status)

	redeemed := f.create(t, "20")
	_, err = f.manager.Redeem(ctx, redeemed.TokenID)
	require.NoError(t, err)
	_, err = f.manager.Cancel(ctx, redeemed.TokenID, "user_1")
	assert.ErrorIs(t, err, domainErrors.ErrTokenRedeemed)
}

func TestManager_CleanupExpired(t *testing.T) {
	f := newFixture(t, "500")
	ctx := context.Background()

	old := f.create(t, "10")
	f.clock.Advance(12 * time.Hour)
	fresh := f.create(t, "10")
	used := f.create(t, "10")
	_, err := f.manager.Redeem(ctx, used.TokenID)
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	n, err := f.manager.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := f.manager.Get(ctx, old.TokenID)
	assert.Equal(t, models.TokenExpired, got.Status)
	got, _ = f.manager.Get(ctx, fresh.TokenID)
	assert.Equal(t, models.TokenActive, got.Status)
	got, _ = f.manager.Get(ctx, used.TokenID)
	assert.Equal(t, models.TokenRedeemed, got.Status)

	n, err = f.manager.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestToken_ExpiryIsMonotonic(t *testing.T) {
	f := newFixture(t, "100")
	tok := f.create(t, "10")

	assert.True(t, tok.IsValid(f.clock.Now()))
	for _, d := range []time.Duration{DefaultTTL, DefaultTTL + time.Nanosecond, 2 * DefaultTTL, 365 * 24 * time.Hour} {
		assert.False(t, tok.IsValid(start.Add(d)), "valid again after %s", d)
	}
}

func TestPlugin_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("no operation", func(t *testing.T) {
		f := newFixture(t, "100")
		res, err := NewPlugin(f.manager).Execute(ctx, plugin.Context{})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "skipped", res.Data["token_operation_status"])
	})

	t.Run("skipped when risk did not approve", func(t *testing.T) {
		f := newFixture(t, "100")
		res, err := NewPlugin(f.manager).Execute(ctx, plugin.Context{
			plugin.KeyTokenOperation: OpCreate,
			plugin.KeyRiskAction:     risk.ActionManualReview,
			plugin.KeyAmount:         decimal.NewFromInt(10),
			plugin.KeyUserID:         "user_1",
			plugin.KeyCurrency:       "MYR",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "skipped", res.Data["token_operation_status"])
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("create", func(t *testing.T) {
		f := newFixture(t, "100")
		res, err := NewPlugin(f.manager).Execute(ctx, plugin.Context{
			plugin.KeyTokenOperation: OpCreate,
			plugin.KeyRiskAction:     risk.ActionApprove,
			plugin.KeyAmount:         decimal.NewFromInt(10),
			plugin.KeyUserID:         "user_1",
			plugin.KeyCurrency:       "MYR",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, "created", res.Data["token_operation_status"])
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("redeem twice escalates", func(t *testing.T) {
		f := newFixture(t, "100")
		tok := f.create(t, "10")
		p := NewPlugin(f.manager)
		data := plugin.Context{
			plugin.KeyTokenOperation: OpRedeem,
			plugin.KeyTokenID:        tok.TokenID,
			plugin.KeyAmount:         decimal.NewFromInt(10),
		}

		res, err := p.Execute(ctx, data)
		require.NoError(t, err)
		assert.True(t, res.Success)

		res, err = p.Execute(ctx, data)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.True(t, res.Critical)
	})
}
