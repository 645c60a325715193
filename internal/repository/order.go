package repository

import (
	"context"
	"errors"
	"time"

	"commerce-backoffice/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error)
	FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error)
	GetItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error)
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error

	// Guarded status transitions. Each returns whether a row actually moved,
	// so callers can tell "applied" from "already past this state".
	MarkPaymentAuthorized(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, tx *gorm.DB, orderID string, paymentStatus model.OrderPaymentStatus, at time.Time) (bool, error)
	SetStatus(ctx context.Context, tx *gorm.DB, orderID string, from []model.OrderStatus, to model.OrderStatus, at time.Time) (bool, error)
	SetFulfillment(ctx context.Context, tx *gorm.DB, orderID string, status model.FulfillmentStatus) error
	AddFulfilledQuantity(ctx context.Context, tx *gorm.DB, itemID uint, qty int64) (bool, error)
	ApplyRefund(ctx context.Context, tx *gorm.DB, orderID string, amount int64, paymentStatus model.OrderPaymentStatus) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) GetItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.conn(tx).WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return r.conn(tx).WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) MarkPaymentAuthorized(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", orderID, model.OrderPaymentPending).
		Updates(map[string]interface{}{
			"payment_status": model.OrderPaymentAuthorized,
			"updated_at":     at,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkPaid advances the order to processing/paid. Guarded so a redelivered
// capture or a late order.paid event is a no-op.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status IN ?", orderID,
			[]model.OrderPaymentStatus{model.OrderPaymentPending, model.OrderPaymentAuthorized}).
		Updates(map[string]interface{}{
			"status":         model.OrderProcessing,
			"payment_status": model.OrderPaymentPaid,
			"processed_at":   at,
			"updated_at":     at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *orderRepoImpl) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, orderID string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status IN ?", orderID,
			[]model.OrderPaymentStatus{model.OrderPaymentPending, model.OrderPaymentAuthorized}).
		Updates(map[string]interface{}{
			"status":         model.OrderPaymentFailed,
			"payment_status": model.OrderPaymentFailedStatus,
			"updated_at":     at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *orderRepoImpl) MarkCancelled(ctx context.Context, tx *gorm.DB, orderID string, paymentStatus model.OrderPaymentStatus, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status NOT IN ?", orderID,
			[]model.OrderStatus{model.OrderDelivered, model.OrderCancelled}).
		Updates(map[string]interface{}{
			"status":             model.OrderCancelled,
			"payment_status":     paymentStatus,
			"fulfillment_status": model.FulfillmentCancelled,
			"cancelled_at":       at,
			"updated_at":         at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *orderRepoImpl) SetStatus(ctx context.Context, tx *gorm.DB, orderID string, from []model.OrderStatus, to model.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if col := milestoneColumn(to); col != "" {
		updates[col] = at
	}
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func milestoneColumn(s model.OrderStatus) string {
	switch s {
	case model.OrderConfirmed:
		return "confirmed_at"
	case model.OrderProcessing:
		return "processed_at"
	case model.OrderShipped:
		return "shipped_at"
	case model.OrderDelivered:
		return "delivered_at"
	case model.OrderCancelled:
		return "cancelled_at"
	}
	return ""
}

func (r *orderRepoImpl) SetFulfillment(ctx context.Context, tx *gorm.DB, orderID string, status model.FulfillmentStatus) error {
	return r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"fulfillment_status": status,
			"updated_at":         time.Now(),
		}).Error
}

// AddFulfilledQuantity increments an item's fulfilled count, guarded so it
// can never exceed the ordered quantity.
func (r *orderRepoImpl) AddFulfilledQuantity(ctx context.Context, tx *gorm.DB, itemID uint, qty int64) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ? AND fulfilled_quantity + ? <= quantity", itemID, qty).
		Update("fulfilled_quantity", gorm.Expr("fulfilled_quantity + ?", qty))
	return res.RowsAffected > 0, res.Error
}

// ApplyRefund bumps refundedAmount server-side, guarded against exceeding
// the order total so refundedAmount ≤ totalAmount holds even under races.
func (r *orderRepoImpl) ApplyRefund(ctx context.Context, tx *gorm.DB, orderID string, amount int64, paymentStatus model.OrderPaymentStatus) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND refunded_amount + ? <= total_amount", orderID, amount).
		Updates(map[string]interface{}{
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
			"payment_status":  paymentStatus,
			"updated_at":      time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// IsNotFound reports whether err is the storage layer's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
