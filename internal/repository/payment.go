package repository

import (
	"context"
	"time"

	"commerce-backoffice/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	FindByGatewayTransactionID(ctx context.Context, tx *gorm.DB, gatewayTxID string) (*model.Payment, error)
	MarkAuthorized(ctx context.Context, tx *gorm.DB, paymentID string, at time.Time) (bool, error)
	MarkCaptured(ctx context.Context, tx *gorm.DB, paymentID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, paymentID string, errCode, errDesc string, at time.Time) (bool, error)
	HasCaptured(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return r.conn(tx).WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindByGatewayTransactionID(ctx context.Context, tx *gorm.DB, gatewayTxID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.conn(tx).WithContext(ctx).
		Where("gateway_transaction_id = ?", gatewayTxID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepoImpl) MarkAuthorized(ctx context.Context, tx *gorm.DB, paymentID string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":        model.PaymentAuthorized,
			"authorized_at": at,
			"updated_at":    at,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkCaptured is the no-double-capture guard: the update only matches a
// payment that is not yet captured, so a redelivered capture event reports
// updated=false and the caller skips the ledger commit.
func (r *paymentRepoImpl) MarkCaptured(ctx context.Context, tx *gorm.DB, paymentID string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status IN ?", paymentID,
			[]model.PaymentStatus{model.PaymentPending, model.PaymentAuthorized}).
		Updates(map[string]interface{}{
			"status":      model.PaymentCaptured,
			"captured_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *paymentRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, paymentID string, errCode, errDesc string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status IN ?", paymentID,
			[]model.PaymentStatus{model.PaymentPending, model.PaymentAuthorized}).
		Updates(map[string]interface{}{
			"status":            model.PaymentFailed,
			"error_code":        errCode,
			"error_description": errDesc,
			"failed_at":         at,
			"updated_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *paymentRepoImpl) HasCaptured(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.Payment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentCaptured).
		Count(&count).Error
	return count > 0, err
}
