package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts token while holding a per-user advisory lock, so the
// active-token count cannot change between the check and the insert.
func (r *TokenRepository) Create(ctx context.Context, token *models.OfflineToken, maxActive int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if maxActive > 0 {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", token.UserID).Error; err != nil {
				return err
			}
			n, err := countActiveTokens(tx, token.UserID, token.CreatedAt)
			if err != nil {
				return err
			}
			if n >= int64(maxActive) {
				return domainErrors.ErrTokenLimit.WithMessage("user already holds %d active offline tokens", n)
			}
		}
		return tx.Create(token).Error
	})
	return translate(err, nil, "create token")
}

func (r *TokenRepository) FindByTokenID(ctx context.Context, tokenID string) (*models.OfflineToken, error) {
	var token models.OfflineToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return nil, translate(err, domainErrors.ErrTokenNotFound, "find token")
	}
	return &token, nil
}

func (r *TokenRepository) UpdateLocked(ctx context.Context, tokenID string, fn func(*models.OfflineToken) error) (*models.OfflineToken, error) {
	var out models.OfflineToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_id = ?", tokenID).
			First(&out).Error; err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, translate(err, domainErrors.ErrTokenNotFound, "update token")
	}
	return &out, nil
}

func countActiveTokens(tx *gorm.DB, userID string, now time.Time) (int64, error) {
	var n int64
	err := tx.Model(&models.OfflineToken{}).
		Where("user_id = ? AND status = ? AND redeemed_at IS NULL AND expires_at > ?",
			userID, models.TokenActive, now).
		Count(&n).Error
	return n, err
}

func (r *TokenRepository) ExpireActive(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.OfflineToken{}).
		Where("status = ? AND expires_at <= ?", models.TokenActive, now).
		Updates(map[string]any{"status": models.TokenExpired, "updated_at": now})
	if res.Error != nil {
		return 0, translate(res.Error, nil, "expire tokens")
	}
	return res.RowsAffected, nil
}
