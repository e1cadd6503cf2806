package wallet

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
	"pinkpay/internal/repositories/memory"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpsertBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, balance, currency)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestWalletService_GetBalance(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, zap.NewNop(), Config{})

	t.Run("successful balance fetch", func(t *testing.T) {
		store.On("GetWallet", mock.Anything, "user_1").
			Return(&models.Wallet{UserID: "user_1", Balance: decimal.NewFromInt(100), Currency: "MYR"}, nil).Once()

		balance, err := svc.GetBalance(context.Background(), "user_1")
		assert.NoError(t, err)
		assert.Equal(t, "100.00", balance.StringFixed(2))
	})

	t.Run("unknown user", func(t *testing.T) {
		store.On("GetWallet", mock.Anything, "ghost").Return(nil, domainErrors.ErrWalletNotFound).Once()

		_, err := svc.GetBalance(context.Background(), "ghost")
		assert.ErrorIs(t, err, domainErrors.ErrNotFound)
	})

	store.AssertExpectations(t)
}

func TestWalletService_SetBalance(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		balance  string
		currency string
		wantCur  string
		wantErr  error
	}{
		{name: "new wallet", userID: "user_1", balance: "250", currency: "myr", wantCur: "MYR"},
		{name: "default currency", userID: "user_1", balance: "0", wantCur: "MYR"},
		{name: "other currency", userID: "user_2", balance: "10.555", currency: "SGD", wantCur: "SGD"},
		{name: "negative", userID: "user_1", balance: "-1", currency: "MYR", wantErr: domainErrors.ErrInvalidAmount},
		{name: "unsupported currency", userID: "user_1", balance: "1", currency: "XYZ", wantErr: domainErrors.ErrUnsupportedCurrency},
		{name: "missing user", balance: "1", wantErr: domainErrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWalletStore()
			svc := NewService(store, zap.NewNop(), Config{})

			w, err := svc.SetBalance(context.Background(), tt.userID, decimal.RequireFromString(tt.balance), tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, getErr := store.GetWallet(context.Background(), tt.userID)
				assert.ErrorIs(t, getErr, domainErrors.ErrWalletNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCur, w.Currency)

			got, err := svc.GetBalance(context.Background(), tt.userID)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.balance).Round(2).Equal(got))
		})
	}
}

func TestWalletService_SetBalance_Overwrites(t *testing.T) {
	svc := NewService(memory.NewWalletStore(), zap.NewNop(), Config{})
	ctx := context.Background()

	_, err := svc.SetBalance(ctx, "user_1", decimal.NewFromInt(100), "MYR")
	require.NoError(t, err)
	first, err := svc.GetWallet(ctx, "user_1")
	require.NoError(t, err)

	_, err = svc.SetBalance(ctx, "user_1", decimal.NewFromInt(40), "MYR")
	require.NoError(t, err)
	second, err := svc.GetWallet(ctx, "user_1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "40.00", second.Balance.StringFixed(2))
}
