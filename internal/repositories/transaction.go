package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(txn).Error
	return translate(err, nil, "create transaction")
}

func (r *TransactionRepository) FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&txn).Error
	if err != nil {
		return nil, translate(err, domainErrors.ErrTransactionNotFound, "find transaction")
	}
	return &txn, nil
}

// UpdateLocked loads the row with SELECT ... FOR UPDATE, applies fn and
// saves the result in the same database transaction.
func (r *TransactionRepository) UpdateLocked(ctx context.Context, txnID string, fn func(*models.Transaction) error) (*models.Transaction, error) {
	var out models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("txn_id = ?", txnID).
			First(&out).Error; err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&out).Error
	})
	if err != nil {
		return nil, translate(err, domainErrors.ErrTransactionNotFound, "update transaction")
	}
	return &out, nil
}

func (r *TransactionRepository) AppendPluginLog(ctx context.Context, entry *models.PluginLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(entry).Error, nil, "append plugin log")
}

func (r *TransactionRepository) ListPluginLogs(ctx context.Context, transactionID uuid.UUID) ([]models.PluginLog, error) {
	var logs []models.PluginLog
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err, nil, "list plugin logs")
	}
	return logs, nil
}

func (r *TransactionRepository) window(ctx context.Context, userID string, since time.Time, excludeTxnID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND txn_id <> ? AND payment_method <> ? AND created_at >= ?",
			userID, excludeTxnID, models.MethodRefund, since)
}

// CountByUserSince counts the user's transactions created at or after since.
func (r *TransactionRepository) CountByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (int64, error) {
	var n int64
	if err := r.window(ctx, userID, since, excludeTxnID).Count(&n).Error; err != nil {
		return 0, translate(err, nil, "count transactions")
	}
	return n, nil
}

// SumByUserSince sums non-failed amounts of the user's recent transactions.
func (r *TransactionRepository) SumByUserSince(ctx context.Context, userID string, since time.Time, excludeTxnID string) (decimal.Decimal, error) {
	total := decimal.Zero
	row := r.window(ctx, userID, since, excludeTxnID).
		Where("status <> ?", models.StatusFailed).
		Select("COALESCE(SUM(amount), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, translate(err, nil, "sum transactions")
	}
	return total, nil
}
