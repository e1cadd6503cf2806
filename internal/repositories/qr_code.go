package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type QRRepository struct {
	db *gorm.DB
}

func NewQRRepository(db *gorm.DB) *QRRepository {
	return &QRRepository{db: db}
}

func (r *QRRepository) Create(ctx context.Context, qr *models.QRCode) error {
	return translate(r.db.WithContext(ctx).Create(qr).Error, nil, "create QR code")
}

func (r *QRRepository) FindByQRID(ctx context.Context, qrID string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := r.db.WithContext(ctx).Where("qr_id = ?", qrID).First(&qr).Error; err != nil {
		return nil, translate(err, domainErrors.ErrQRNotFound, "find QR code")
	}
	return &qr, nil
}

func (r *QRRepository) UpdateLocked(ctx context.Context, qrID string, fn func(*models.QRCode) error) (*models.QRCode, error) {
	var out models.QRCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("qr_id = ?", qrID).
			First(&out).Error; err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, translate(err, domainErrors.ErrQRNotFound, "update QR code")
	}
	return &out, nil
}

func (r *QRRepository) ExpireActive(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.QRCode{}).
		Where("status = ? AND expires_at <= ?", models.QRActive, now).
		Updates(map[string]any{"status": models.QRExpired, "updated_at": now})
	if res.Error != nil {
		return 0, translate(res.Error, nil, "expire QR codes")
	}
	return res.RowsAffected, nil
}
