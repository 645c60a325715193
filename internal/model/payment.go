package model

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Payment rows are inserted by the webhook flow; one order may own several
// (retries, partial captures, negative refund mirrors).
type Payment struct {
	ID      string `gorm:"primaryKey;size:36"`
	OrderID string `gorm:"size:36;index;not null"`
	// GatewayTransactionID is the natural key for idempotent lookup against
	// the gateway's own payment/refund id.
	GatewayTransactionID string `gorm:"size:64;uniqueIndex;not null"`

	// Amount in minor units; negative for refund mirror records.
	Amount   int64         `gorm:"not null"`
	Currency string        `gorm:"size:8;not null"`
	Status   PaymentStatus `gorm:"size:32;index;not null"`
	Method   string        `gorm:"size:32"`

	// Tokenized, non-sensitive card metadata from the gateway.
	CardLast4 string `gorm:"size:4"`
	CardBrand string `gorm:"size:32"`

	Email    string `gorm:"size:255;index"`
	ClientIP string `gorm:"size:45"`

	ErrorCode        string `gorm:"size:64"`
	ErrorDescription string `gorm:"size:255"`

	AuthorizedAt *time.Time
	CapturedAt   *time.Time
	FailedAt     *time.Time
	RefundedAt   *time.Time

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

type RefundStatus string

const (
	RefundPending RefundStatus = "pending"
	RefundSuccess RefundStatus = "success"
	RefundFailed  RefundStatus = "failed"
)

type Refund struct {
	ID        string `gorm:"primaryKey;size:36"`
	OrderID   string `gorm:"size:36;index;not null"`
	PaymentID string `gorm:"size:36;index"`

	Amount int64        `gorm:"not null"`
	Reason string       `gorm:"size:255"`
	Status RefundStatus `gorm:"size:32;not null"`

	CreatedBy   string `gorm:"size:64"`
	ProcessedAt *time.Time
	CreatedAt   time.Time
}
