package transactions

import (
	"context"
	"errors"

	"github.com/catalyst/moodle-availability-paypal/internal/repo"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists payment notification rows.
type Repository struct {
	repo.Base
}

// NewRepository constructs a transactions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a transaction row.
func (r *Repository) Create(ctx context.Context, tnx *models.PayPalTransaction) error {
	return r.DB(ctx).Create(tnx).Error
}

// FindByTxnID returns the oldest row carrying the gateway transaction id, or
// nil when none exists.
func (r *Repository) FindByTxnID(ctx context.Context, txnID string) (*models.PayPalTransaction, error) {
	var tnx models.PayPalTransaction
	err := r.DB(ctx).
		Where("txn_id = ?", txnID).
		Order("id ASC").
		First(&tnx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tnx, nil
}

// CountByTxnID reports how many rows share the gateway transaction id.
func (r *Repository) CountByTxnID(ctx context.Context, txnID string) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.PayPalTransaction{}).
		Where("txn_id = ?", txnID).
		Count(&count).Error
	return count, err
}

// ListByUser returns every row written for the user, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]models.PayPalTransaction, error) {
	var rows []models.PayPalTransaction
	err := r.DB(ctx).
		Where("userid = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListByUserAndContext returns the user's rows within one context, oldest first.
func (r *Repository) ListByUserAndContext(ctx context.Context, userID, contextID int64) ([]models.PayPalTransaction, error) {
	var rows []models.PayPalTransaction
	err := r.DB(ctx).
		Where("userid = ? AND contextid = ?", userID, contextID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListContextIDsByUser returns the distinct context ids the user has rows in.
func (r *Repository) ListContextIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).
		Model(&models.PayPalTransaction{}).
		Distinct("contextid").
		Where("userid = ?", userID).
		Order("contextid ASC").
		Pluck("contextid", &ids).Error
	return ids, err
}

// ListUserIDsByContext returns the distinct user ids with rows in the context.
func (r *Repository) ListUserIDsByContext(ctx context.Context, contextID int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).
		Model(&models.PayPalTransaction{}).
		Distinct("userid").
		Where("contextid = ?", contextID).
		Order("userid ASC").
		Pluck("userid", &ids).Error
	return ids, err
}

// DeleteByContext removes every row in the context.
func (r *Repository) DeleteByContext(ctx context.Context, contextID int64) (int64, error) {
	res := r.DB(ctx).
		Where("contextid = ?", contextID).
		Delete(&models.PayPalTransaction{})
	return res.RowsAffected, res.Error
}

// DeleteByUserAndContexts removes the user's rows in the listed contexts.
func (r *Repository) DeleteByUserAndContexts(ctx context.Context, userID int64, contextIDs []int64) (int64, error) {
	if len(contextIDs) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Where("userid = ? AND contextid IN ?", userID, contextIDs).
		Delete(&models.PayPalTransaction{})
	return res.RowsAffected, res.Error
}

// DeleteByContextAndUsers removes the listed users' rows in one context.
func (r *Repository) DeleteByContextAndUsers(ctx context.Context, contextID int64, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Where("contextid = ? AND userid IN ?", contextID, userIDs).
		Delete(&models.PayPalTransaction{})
	return res.RowsAffected, res.Error
}
