package model

import (
	"time"

	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "pending"
	OrderConfirmed     OrderStatus = "confirmed"
	OrderProcessing    OrderStatus = "processing"
	OrderShipped       OrderStatus = "shipped"
	OrderDelivered     OrderStatus = "delivered"
	OrderCancelled     OrderStatus = "cancelled"
	OrderPaymentFailed OrderStatus = "payment_failed"
)

type OrderPaymentStatus string

const (
	OrderPaymentPending           OrderPaymentStatus = "pending"
	OrderPaymentAuthorized        OrderPaymentStatus = "authorized"
	OrderPaymentPaid              OrderPaymentStatus = "paid"
	OrderPaymentPartiallyRefunded OrderPaymentStatus = "partially_refunded"
	OrderPaymentRefunded          OrderPaymentStatus = "refunded"
	OrderPaymentFailedStatus      OrderPaymentStatus = "failed"
	OrderPaymentCancelled         OrderPaymentStatus = "cancelled"
)

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled        FulfillmentStatus = "unfulfilled"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentReturned           FulfillmentStatus = "returned"
	FulfillmentCancelled          FulfillmentStatus = "cancelled"
)

// Order is the aggregate root for status. Status columns are only ever
// advanced by the state machine in internal/service.
type Order struct {
	ID             string `gorm:"primaryKey;size:36"`
	GatewayOrderID string `gorm:"size:64;uniqueIndex"` // gateway's own order id

	Status            OrderStatus        `gorm:"size:32;index;not null"`
	PaymentStatus     OrderPaymentStatus `gorm:"size:32;index;not null"`
	FulfillmentStatus FulfillmentStatus  `gorm:"size:32;not null"`

	// Amounts in minor currency units (paise).
	TotalAmount    int64  `gorm:"not null"`
	RefundedAmount int64  `gorm:"not null;default:0"`
	Currency       string `gorm:"size:8;not null"`

	Email           string         `gorm:"size:255;index"`
	ShippingAddress datatypes.JSON `gorm:"type:json"`
	BillingAddress  datatypes.JSON `gorm:"type:json"`
	ShippingCountry string         `gorm:"size:2"`
	BillingCountry  string         `gorm:"size:2"`
	ClientIP        string         `gorm:"size:45"`
	UserAgent       string         `gorm:"size:512"`

	ConfirmedAt *time.Time
	ProcessedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → orders.id
	OrderID    string `gorm:"size:36;index;not null"`
	VariantID  string `gorm:"size:64;index;not null"`
	LocationID string `gorm:"size:64;not null"`

	Quantity          int64 `gorm:"not null"`
	FulfilledQuantity int64 `gorm:"not null;default:0"`
	UnitPrice         int64 `gorm:"not null"`

	CreatedAt time.Time
}
