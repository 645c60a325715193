package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"commerce-backoffice/internal/model"
	"commerce-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "whsec_test"

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Refund{},
		&model.InventoryLevel{},
		&model.IdempotencyRecord{},
		&model.WebhookDelivery{},
		&model.AuditLogEntry{},
	))
	return db
}

type testEnv struct {
	db       *gorm.DB
	orders   *OrderService
	webhooks *WebhookService
	audit    *AuditService
	now      time.Time
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	auditSvc := NewAuditService(repository.NewAuditRepository(db))
	orderSvc := NewOrderService(
		db,
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewRefundRepository(db),
		repository.NewInventoryRepository(db),
		auditSvc,
		nil,
	)

	env := &testEnv{
		db:     db,
		orders: orderSvc,
		audit:  auditSvc,
		now:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	orderSvc.WithClock(func() time.Time { return env.now })

	env.webhooks = NewWebhookService(
		testSecret,
		6*time.Hour,
		repository.NewIdempotencyRepository(db),
		repository.NewDeliveryRepository(db),
		orderSvc,
	)
	return env
}

func (e *testEnv) seedOrder(t *testing.T, o *model.Order, items ...*model.OrderItem) *model.Order {
	t.Helper()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.GatewayOrderID == "" {
		o.GatewayOrderID = "order_" + o.ID[:8]
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.OrderPaymentPending
	}
	if o.FulfillmentStatus == "" {
		o.FulfillmentStatus = model.FulfillmentUnfulfilled
	}
	if o.Currency == "" {
		o.Currency = "INR"
	}
	require.NoError(t, e.db.Create(o).Error)

	for _, it := range items {
		it.OrderID = o.ID
		require.NoError(t, e.db.Create(it).Error)
	}
	return o
}

func (e *testEnv) seedStock(t *testing.T, variantID, locationID string, available, reserved, committed int64) {
	t.Helper()
	require.NoError(t, e.db.Create(&model.InventoryLevel{
		VariantID:  variantID,
		LocationID: locationID,
		Available:  available,
		Reserved:   reserved,
		Committed:  committed,
	}).Error)
}

func (e *testEnv) stock(t *testing.T, variantID, locationID string) *model.InventoryLevel {
	t.Helper()
	var level model.InventoryLevel
	require.NoError(t, e.db.
		Where("variant_id = ? AND location_id = ?", variantID, locationID).
		First(&level).Error)
	return &level
}

func (e *testEnv) reloadOrder(t *testing.T, id string) *model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, e.db.First(&o, "id = ?", id).Error)
	return &o
}

func paymentEvent(event, paymentID, gatewayOrderID string, amount int64, mutate ...func(*model.GatewayPayment)) *model.GatewayEvent {
	pe := model.GatewayPayment{
		ID:       paymentID,
		OrderID:  gatewayOrderID,
		Amount:   amount,
		Currency: "INR",
		Method:   "card",
		Email:    "buyer@example.com",
		Card:     &model.GatewayCard{Last4: "4242", Network: "Visa"},
	}
	for _, m := range mutate {
		m(&pe)
	}
	return &model.GatewayEvent{
		Entity:   "event",
		Event:    event,
		Contains: []string{"payment"},
		Payload:  model.GatewayPayload{Payment: &model.GatewayPaymentWrapper{Entity: pe}},
	}
}
