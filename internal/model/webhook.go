package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DeliveryProcessed = "processed"
	DeliveryDuplicate = "duplicate"
	DeliveryIgnored   = "ignored"
	DeliveryFailed    = "failed"
)

// WebhookDelivery is the observability log of every authenticated delivery,
// kept separate from the idempotency cache: the cache is for correctness,
// this is for "what happened, when, how long".
type WebhookDelivery struct {
	ID         string `gorm:"primaryKey;size:36"`
	DeliveryID string `gorm:"size:128;index"`
	Event      string `gorm:"size:64;index"`

	Payload datatypes.JSON `gorm:"type:json"`
	Outcome string         `gorm:"size:16;index;not null"`
	Error   string         `gorm:"size:512"`

	LatencyMS int64 `gorm:"not null"`

	CreatedAt time.Time `gorm:"index"`
}

// Inbound gateway notification body:
// {entity, account_id, event, contains[], payload:{payment:{entity},order:{entity}}, created_at}

type GatewayEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   GatewayPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type GatewayPayload struct {
	Payment *GatewayPaymentWrapper `json:"payment,omitempty"`
	Order   *GatewayOrderWrapper   `json:"order,omitempty"`
}

type GatewayPaymentWrapper struct {
	Entity GatewayPayment `json:"entity"`
}

type GatewayOrderWrapper struct {
	Entity GatewayOrder `json:"entity"`
}

type GatewayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`

	Email   string `json:"email"`
	Contact string `json:"contact"`

	Card *GatewayCard `json:"card,omitempty"`

	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`

	CreatedAt int64 `json:"created_at"`
}

type GatewayCard struct {
	Last4   string `json:"last4"`
	Network string `json:"network"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// ResourceID returns the gateway id of the entity the event is about, used
// as part of the idempotency key.
func (e *GatewayEvent) ResourceID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}
