package repository

import (
	"context"

	"commerce-backoffice/internal/model"

	"gorm.io/gorm"
)

type RefundRepository interface {
	Create(ctx context.Context, tx *gorm.DB, refund *model.Refund) error
	SumSuccessful(ctx context.Context, tx *gorm.DB, orderID string) (int64, error)
	CountForOrder(ctx context.Context, orderID string) (int64, error)
}

type refundRepoImpl struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepoImpl{db: db}
}

func (r *refundRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *refundRepoImpl) Create(ctx context.Context, tx *gorm.DB, refund *model.Refund) error {
	return r.conn(tx).WithContext(ctx).Create(refund).Error
}

func (r *refundRepoImpl) SumSuccessful(ctx context.Context, tx *gorm.DB, orderID string) (int64, error) {
	var total int64
	err := r.conn(tx).WithContext(ctx).Model(&model.Refund{}).
		Where("order_id = ? AND status = ?", orderID, model.RefundSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *refundRepoImpl) CountForOrder(ctx context.Context, orderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Refund{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}
