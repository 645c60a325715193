package repository

import (
	"context"
	"time"

	"commerce-backoffice/internal/fraud"
	"commerce-backoffice/internal/model"

	"gorm.io/gorm"
)

// HistoryRepository is the read-only query surface behind the fraud signal
// families. It satisfies fraud.History; nothing here mutates state.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) OrderAmountStats(ctx context.Context, email string, since time.Time) (fraud.AmountStats, error) {
	var stats fraud.AmountStats
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("email = ? AND created_at >= ?", email, since).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total, COALESCE(MAX(total_amount), 0) AS max").
		Scan(&stats).Error
	return stats, err
}

func (r *HistoryRepository) CountOrders(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("email = ? AND created_at >= ?", email, since).
		Count(&count).Error
	return count, err
}

func (r *HistoryRepository) LatestOrderAt(ctx context.Context, email string) (*time.Time, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &order.CreatedAt, nil
}

func (r *HistoryRepository) ShippingCountries(ctx context.Context, email string, since time.Time) ([]string, error) {
	var countries []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("email = ? AND created_at >= ? AND shipping_country <> ''", email, since).
		Distinct().
		Pluck("shipping_country", &countries).Error
	return countries, err
}

func (r *HistoryRepository) DistinctPaymentMethods(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("email = ? AND created_at >= ? AND method <> ''", email, since).
		Distinct("method").
		Count(&count).Error
	return count, err
}

func (r *HistoryRepository) DistinctCardBrands(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("email = ? AND created_at >= ? AND card_brand <> ''", email, since).
		Distinct("card_brand").
		Count(&count).Error
	return count, err
}

func (r *HistoryRepository) ClientIPs(ctx context.Context, email string, since time.Time) ([]string, error) {
	var ips []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("email = ? AND created_at >= ? AND client_ip <> ''", email, since).
		Distinct().
		Pluck("client_ip", &ips).Error
	return ips, err
}

func (r *HistoryRepository) FailedPaymentCount(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("email = ? AND created_at >= ? AND status = ?", email, since, model.PaymentFailed).
		Count(&count).Error
	return count, err
}

func (r *HistoryRepository) RefundCount(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Refund{}).
		Joins("JOIN orders ON orders.id = refunds.order_id").
		Where("orders.email = ? AND refunds.created_at >= ?", email, since).
		Count(&count).Error
	return count, err
}
