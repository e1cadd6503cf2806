package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, translate(err, domainErrors.ErrWalletNotFound, "find wallet")
	}
	return &w, nil
}

// UpsertBalance inserts the wallet or overwrites balance and currency on
// conflict with the user id.
func (r *WalletRepository) UpsertBalance(ctx context.Context, userID string, balance decimal.Decimal, currency string) (*models.Wallet, error) {
	w := models.Wallet{UserID: userID, Balance: balance, Currency: currency}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "currency", "updated_at"}),
	}).Create(&w).Error
	if err != nil {
		return nil, translate(err, nil, "upsert wallet")
	}
	return r.GetWallet(ctx, userID)
}
