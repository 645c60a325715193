package repository

import (
	"context"
	"testing"
	"time"

	"commerce-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOrder(t *testing.T, repo OrderRepository, status model.OrderStatus, paymentStatus model.OrderPaymentStatus) *model.Order {
	t.Helper()
	order := &model.Order{
		ID:                uuid.NewString(),
		GatewayOrderID:    "order_" + uuid.NewString()[:8],
		Status:            status,
		PaymentStatus:     paymentStatus,
		FulfillmentStatus: model.FulfillmentUnfulfilled,
		TotalAmount:       100_000,
		Currency:          "INR",
		Email:             "buyer@example.com",
	}
	require.NoError(t, repo.Create(context.Background(), nil, order))
	return order
}

func TestOrder_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := createOrder(t, repo, model.OrderPending, model.OrderPaymentPending)
	require.NoError(t, repo.CreateItems(ctx, nil, []*model.OrderItem{
		{OrderID: order.ID, VariantID: "var_a", LocationID: "wh_1", Quantity: 2, UnitPrice: 25_000},
		{OrderID: order.ID, VariantID: "var_b", LocationID: "wh_1", Quantity: 1, UnitPrice: 50_000},
	}))

	byGateway, err := repo.FindByGatewayOrderID(ctx, nil, order.GatewayOrderID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byGateway.ID)

	items, err := repo.GetItems(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "var_a", items[0].VariantID)

	_, err = repo.FindByID(ctx, nil, "missing")
	assert.True(t, IsNotFound(err))
}

func TestOrder_MarkPaidGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	now := time.Now()

	order := createOrder(t, repo, model.OrderPending, model.OrderPaymentAuthorized)

	moved, err := repo.MarkPaid(ctx, nil, order.ID, now)
	require.NoError(t, err)
	assert.True(t, moved)

	// Second application matches no row.
	moved, err = repo.MarkPaid(ctx, nil, order.ID, now)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderProcessing, got.Status)
	assert.Equal(t, model.OrderPaymentPaid, got.PaymentStatus)
	assert.NotNil(t, got.ProcessedAt)
}

func TestOrder_SetStatusMilestones(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := createOrder(t, repo, model.OrderShipped, model.OrderPaymentPaid)

	moved, err := repo.SetStatus(ctx, nil, order.ID,
		[]model.OrderStatus{model.OrderShipped}, model.OrderDelivered, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	got, err := repo.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, got.Status)
	assert.NotNil(t, got.DeliveredAt)

	// Stale expected state moves nothing.
	moved, err = repo.SetStatus(ctx, nil, order.ID,
		[]model.OrderStatus{model.OrderShipped}, model.OrderDelivered, time.Now())
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestOrder_AddFulfilledQuantityGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := createOrder(t, repo, model.OrderProcessing, model.OrderPaymentPaid)
	require.NoError(t, repo.CreateItems(ctx, nil, []*model.OrderItem{
		{OrderID: order.ID, VariantID: "var_a", LocationID: "wh_1", Quantity: 3, UnitPrice: 10_000},
	}))
	items, err := repo.GetItems(ctx, nil, order.ID)
	require.NoError(t, err)
	itemID := items[0].ID

	ok, err := repo.AddFulfilledQuantity(ctx, nil, itemID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// 2 + 2 > 3: the guard refuses without changing the row.
	ok, err = repo.AddFulfilledQuantity(ctx, nil, itemID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	items, err = repo.GetItems(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), items[0].FulfilledQuantity)
}

func TestOrder_ApplyRefundGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := createOrder(t, repo, model.OrderProcessing, model.OrderPaymentPaid)

	ok, err := repo.ApplyRefund(ctx, nil, order.ID, 70_000, model.OrderPaymentPartiallyRefunded)
	require.NoError(t, err)
	assert.True(t, ok)

	// 70000 + 40000 would exceed the 100000 total.
	ok, err = repo.ApplyRefund(ctx, nil, order.ID, 40_000, model.OrderPaymentRefunded)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ApplyRefund(ctx, nil, order.ID, 30_000, model.OrderPaymentRefunded)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got.RefundedAmount)
	assert.Equal(t, model.OrderPaymentRefunded, got.PaymentStatus)
}
