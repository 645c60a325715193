package service

import (
	"context"
	"fmt"
	"time"

	"commerce-backoffice/internal/fraud"
	"commerce-backoffice/internal/model"
	"commerce-backoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies who triggered an admin action; supplied by the external
// auth collaborator at the HTTP boundary.
type Actor struct {
	ID        string
	IP        string
	UserAgent string
}

// TransitionResult reports what a gateway-event transition did. Applied is
// false when the aggregate was already past the requested state, which is a
// success for webhook redelivery, not an error.
type TransitionResult struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id,omitempty"`
	Applied   bool   `json:"applied"`
	Message   string `json:"message"`
}

type FulfillmentLine struct {
	ItemID   uint  `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

type RestockLine struct {
	ItemID   uint  `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

type RefundInput struct {
	Amount          int64
	Reason          string
	GatewayRefundID string
	Restock         []RestockLine
}

type clampNote struct {
	VariantID  string
	LocationID string
	Operation  string
	Requested  int64
	Moved      int64
}

// OrderService is the order/payment state machine. Every transition runs
// inside one transaction so payment, order and inventory can never be
// observed half-applied; audit entries are appended after commit.
type OrderService struct {
	db        *gorm.DB
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	refunds   repository.RefundRepository
	inventory repository.InventoryRepository
	audit     *AuditService
	analyzer  *fraud.Analyzer
	now       func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	inventory repository.InventoryRepository,
	audit *AuditService,
	analyzer *fraud.Analyzer,
) *OrderService {
	return &OrderService{
		db:        db,
		orders:    orders,
		payments:  payments,
		refunds:   refunds,
		inventory: inventory,
		audit:     audit,
		analyzer:  analyzer,
		now:       time.Now,
	}
}

// WithClock fixes the service clock, for tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// ---- gateway-event transitions ----

func (s *OrderService) HandlePaymentAuthorized(ctx context.Context, ev *model.GatewayEvent) (*TransitionResult, error) {
	pe, err := paymentEntity(ev)
	if err != nil {
		return nil, err
	}

	var (
		result *TransitionResult
		order  *model.Order
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.findOrder(ctx, tx, pe.OrderID)
		if err != nil {
			return err
		}
		payment, created, err := s.ensurePayment(ctx, tx, order, pe, model.PaymentPending)
		if err != nil {
			return err
		}
		if !created && payment.Status != model.PaymentPending {
			result = &TransitionResult{
				OrderID: order.ID, PaymentID: payment.ID,
				Message: "payment already " + string(payment.Status),
			}
			return nil
		}

		now := s.now()
		if _, err := s.payments.MarkAuthorized(ctx, tx, payment.ID, now); err != nil {
			return fmt.Errorf("mark payment authorized: %w", err)
		}
		if _, err := s.orders.MarkPaymentAuthorized(ctx, tx, order.ID, now); err != nil {
			return fmt.Errorf("mark order authorized: %w", err)
		}

		result = &TransitionResult{
			OrderID: order.ID, PaymentID: payment.ID,
			Applied: true, Message: "payment authorized",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.audit.Append(ctx, Entry{
			Action:       model.AuditPaymentAuthorized,
			ResourceType: "payment",
			ResourceID:   pe.ID,
			Changes: map[string]interface{}{
				"order_id": result.OrderID,
				"amount":   pe.Amount,
				"status":   model.PaymentAuthorized,
			},
		})
		s.screen(ctx, order, pe, model.AuditPaymentAuthorized)
	}
	return result, nil
}

func (s *OrderService) HandlePaymentCaptured(ctx context.Context, ev *model.GatewayEvent) (*TransitionResult, error) {
	pe, err := paymentEntity(ev)
	if err != nil {
		return nil, err
	}

	var (
		result *TransitionResult
		order  *model.Order
		clamps []clampNote
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.findOrder(ctx, tx, pe.OrderID)
		if err != nil {
			return err
		}
		payment, _, err := s.ensurePayment(ctx, tx, order, pe, model.PaymentPending)
		if err != nil {
			return err
		}

		now := s.now()
		captured, err := s.payments.MarkCaptured(ctx, tx, payment.ID, now)
		if err != nil {
			return fmt.Errorf("mark payment captured: %w", err)
		}
		if !captured {
			result = &TransitionResult{
				OrderID: order.ID, PaymentID: payment.ID,
				Message: "payment already captured",
			}
			return nil
		}

		if _, err := s.orders.MarkPaid(ctx, tx, order.ID, now); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		// The only transition that moves inventory from reserved to
		// committed, in the same transaction as the status writes.
		items, err := s.orders.GetItems(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		for _, it := range items {
			mv, err := s.inventory.Commit(ctx, tx, it.VariantID, it.LocationID, it.Quantity)
			if err != nil {
				return fmt.Errorf("commit inventory %s/%s: %w", it.VariantID, it.LocationID, err)
			}
			if mv.Clamped {
				clamps = append(clamps, clampNote{
					VariantID: it.VariantID, LocationID: it.LocationID,
					Operation: "commit", Requested: mv.Requested, Moved: mv.Moved,
				})
			}
		}

		result = &TransitionResult{
			OrderID: order.ID, PaymentID: payment.ID,
			Applied: true, Message: "payment captured",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.audit.Append(ctx, Entry{
			Action:       model.AuditPaymentCaptured,
			ResourceType: "payment",
			ResourceID:   pe.ID,
			Changes: map[string]interface{}{
				"order_id":       result.OrderID,
				"amount":         pe.Amount,
				"status":         model.PaymentCaptured,
				"order_status":   model.OrderProcessing,
				"payment_status": model.OrderPaymentPaid,
			},
		})
		s.auditClamps(ctx, result.OrderID, clamps)
		s.screen(ctx, order, pe, model.AuditPaymentCaptured)
	}
	return result, nil
}

func (s *OrderService) HandlePaymentFailed(ctx context.Context, ev *model.GatewayEvent) (*TransitionResult, error) {
	pe, err := paymentEntity(ev)
	if err != nil {
		return nil, err
	}

	var (
		result *TransitionResult
		clamps []clampNote
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, pe.OrderID)
		if err != nil {
			return err
		}
		payment, _, err := s.ensurePayment(ctx, tx, order, pe, model.PaymentPending)
		if err != nil {
			return err
		}

		now := s.now()
		if _, err := s.payments.MarkFailed(ctx, tx, payment.ID, pe.ErrorCode, pe.ErrorDescription, now); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}

		moved, err := s.orders.MarkPaymentFailed(ctx, tx, order.ID, now)
		if err != nil {
			return fmt.Errorf("mark order payment failed: %w", err)
		}
		if !moved {
			// Already paid, failed or cancelled; a late failure event must
			// not regress the aggregate or touch the ledger again.
			result = &TransitionResult{
				OrderID: order.ID, PaymentID: payment.ID,
				Message: "order already past failure",
			}
			return nil
		}

		items, err := s.orders.GetItems(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		for _, it := range items {
			mv, err := s.inventory.Release(ctx, tx, it.VariantID, it.LocationID, it.Quantity)
			if err != nil {
				return fmt.Errorf("release inventory %s/%s: %w", it.VariantID, it.LocationID, err)
			}
			if mv.Clamped {
				clamps = append(clamps, clampNote{
					VariantID: it.VariantID, LocationID: it.LocationID,
					Operation: "release", Requested: mv.Requested, Moved: mv.Moved,
				})
			}
		}

		result = &TransitionResult{
			OrderID: order.ID, PaymentID: payment.ID,
			Applied: true, Message: "payment failed",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.audit.Append(ctx, Entry{
			Action:       model.AuditPaymentFailed,
			ResourceType: "payment",
			ResourceID:   pe.ID,
			Changes: map[string]interface{}{
				"order_id":   result.OrderID,
				"error_code": pe.ErrorCode,
				"status":     model.PaymentFailed,
			},
		})
		s.auditClamps(ctx, result.OrderID, clamps)
	}
	return result, nil
}

// HandleOrderPaid is the gateway's idempotent confirmation that an order is
// settled; it never touches the ledger.
func (s *OrderService) HandleOrderPaid(ctx context.Context, ev *model.GatewayEvent) (*TransitionResult, error) {
	if ev.Payload.Order == nil {
		return nil, fmt.Errorf("%w: missing order entity", ErrMalformedPayload)
	}
	oe := ev.Payload.Order.Entity

	var result *TransitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, oe.ID)
		if err != nil {
			return err
		}
		moved, err := s.orders.MarkPaid(ctx, tx, order.ID, s.now())
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		result = &TransitionResult{OrderID: order.ID, Applied: moved, Message: "order paid"}
		if !moved {
			result.Message = "order already paid"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.audit.Append(ctx, Entry{
			Action:       model.AuditOrderPaid,
			ResourceType: "order",
			ResourceID:   result.OrderID,
			Changes:      map[string]interface{}{"payment_status": model.OrderPaymentPaid},
		})
	}
	return result, nil
}

// ---- admin actions ----

var statusFlow = map[model.OrderStatus]model.OrderStatus{
	model.OrderPending:    model.OrderConfirmed,
	model.OrderConfirmed:  model.OrderProcessing,
	model.OrderProcessing: model.OrderShipped,
	model.OrderShipped:    model.OrderDelivered,
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor Actor, orderID string, status model.OrderStatus) error {
	if status == model.OrderCancelled {
		return fmt.Errorf("%w: use cancel for cancellation", ErrInvalidTransition)
	}

	var previous model.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if statusFlow[order.Status] != status {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, status)
		}
		previous = order.Status

		moved, err := s.orders.SetStatus(ctx, tx, orderID, []model.OrderStatus{order.Status}, status, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: order moved concurrently", ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Append(ctx, Entry{
		Actor: actor.ID, Action: model.AuditOrderStatusChanged,
		ResourceType: "order", ResourceID: orderID,
		Changes:   map[string]interface{}{"from": previous, "to": status},
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
	})
	return nil
}

func (s *OrderService) FulfillOrder(ctx context.Context, actor Actor, orderID string, lines []FulfillmentLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: no fulfillment lines", ErrInvalidQuantity)
	}

	var status model.FulfillmentStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status != model.OrderProcessing && order.Status != model.OrderShipped {
			return fmt.Errorf("%w: cannot fulfill order in status %s", ErrInvalidTransition, order.Status)
		}

		for _, line := range lines {
			if line.Quantity <= 0 {
				return fmt.Errorf("%w: fulfillment quantity must be positive", ErrInvalidQuantity)
			}
			ok, err := s.orders.AddFulfilledQuantity(ctx, tx, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: item %d would exceed ordered quantity", ErrInvalidQuantity, line.ItemID)
			}
		}

		items, err := s.orders.GetItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		status = fulfillmentStatus(items)
		return s.orders.SetFulfillment(ctx, tx, orderID, status)
	})
	if err != nil {
		return err
	}

	s.audit.Append(ctx, Entry{
		Actor: actor.ID, Action: model.AuditOrderFulfilled,
		ResourceType: "order", ResourceID: orderID,
		Changes:   map[string]interface{}{"fulfillment_status": status, "lines": lines},
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
	})
	return nil
}

func fulfillmentStatus(items []*model.OrderItem) model.FulfillmentStatus {
	all, any := true, false
	for _, it := range items {
		if it.FulfilledQuantity > 0 {
			any = true
		}
		if it.FulfilledQuantity < it.Quantity {
			all = false
		}
	}
	switch {
	case all && len(items) > 0:
		return model.FulfillmentFulfilled
	case any:
		return model.FulfillmentPartiallyFulfilled
	default:
		return model.FulfillmentUnfulfilled
	}
}

// CancelOrder releases any still-reserved stock. A captured payment is not
// auto-refunded; refund is a separate explicit action.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID, reason string) error {
	var clamps []clampNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status == model.OrderDelivered || order.Status == model.OrderCancelled {
			return fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
		}

		stillReserved := order.PaymentStatus == model.OrderPaymentPending ||
			order.PaymentStatus == model.OrderPaymentAuthorized

		paymentStatus := order.PaymentStatus
		if stillReserved {
			paymentStatus = model.OrderPaymentCancelled
		}

		moved, err := s.orders.MarkCancelled(ctx, tx, orderID, paymentStatus, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: order moved concurrently", ErrInvalidTransition)
		}

		if stillReserved {
			items, err := s.orders.GetItems(ctx, tx, orderID)
			if err != nil {
				return err
			}
			for _, it := range items {
				mv, err := s.inventory.Release(ctx, tx, it.VariantID, it.LocationID, it.Quantity)
				if err != nil {
					return fmt.Errorf("release inventory %s/%s: %w", it.VariantID, it.LocationID, err)
				}
				if mv.Clamped {
					clamps = append(clamps, clampNote{
						VariantID: it.VariantID, LocationID: it.LocationID,
						Operation: "release", Requested: mv.Requested, Moved: mv.Moved,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Append(ctx, Entry{
		Actor: actor.ID, Action: model.AuditOrderCancelled,
		ResourceType: "order", ResourceID: orderID,
		Changes:   map[string]interface{}{"reason": reason},
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
	})
	s.auditClamps(ctx, orderID, clamps)
	return nil
}

// ProcessRefund validates the remaining balance, records the refund with a
// negative mirror payment, and optionally restocks items — all in one
// transaction; a failure leaves no partial state.
func (s *OrderService) ProcessRefund(ctx context.Context, actor Actor, orderID string, input RefundInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: refund amount must be positive", ErrInvalidAmount)
	}

	var (
		refundID string
		clamps   []clampNote
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}

		captured, err := s.payments.HasCaptured(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !captured {
			return ErrNothingToRefund
		}

		remaining := order.TotalAmount - order.RefundedAmount
		if input.Amount > remaining {
			return fmt.Errorf("%w: %d > %d", ErrRefundExceedsBalance, input.Amount, remaining)
		}

		paymentStatus := model.OrderPaymentPartiallyRefunded
		if order.RefundedAmount+input.Amount == order.TotalAmount {
			paymentStatus = model.OrderPaymentRefunded
		}

		// Server-side guard backs up the validation above under races.
		applied, err := s.orders.ApplyRefund(ctx, tx, orderID, input.Amount, paymentStatus)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("%w: balance changed concurrently", ErrRefundExceedsBalance)
		}

		now := s.now()
		refundID = uuid.NewString()
		if err := s.refunds.Create(ctx, tx, &model.Refund{
			ID:          refundID,
			OrderID:     orderID,
			Amount:      input.Amount,
			Reason:      input.Reason,
			Status:      model.RefundSuccess,
			CreatedBy:   actor.ID,
			ProcessedAt: &now,
		}); err != nil {
			return fmt.Errorf("create refund: %w", err)
		}

		gatewayRefundID := input.GatewayRefundID
		if gatewayRefundID == "" {
			gatewayRefundID = "rfnd_" + uuid.NewString()
		}
		if err := s.payments.Create(ctx, tx, &model.Payment{
			ID:                   uuid.NewString(),
			OrderID:              orderID,
			GatewayTransactionID: gatewayRefundID,
			Amount:               -input.Amount,
			Currency:             order.Currency,
			Status:               model.PaymentRefunded,
			Email:                order.Email,
			RefundedAt:           &now,
		}); err != nil {
			return fmt.Errorf("create refund mirror payment: %w", err)
		}

		if len(input.Restock) > 0 {
			items, err := s.orders.GetItems(ctx, tx, orderID)
			if err != nil {
				return err
			}
			byID := make(map[uint]*model.OrderItem, len(items))
			for _, it := range items {
				byID[it.ID] = it
			}
			for _, line := range input.Restock {
				it, ok := byID[line.ItemID]
				if !ok || line.Quantity <= 0 || line.Quantity > it.Quantity {
					return fmt.Errorf("%w: restock line for item %d", ErrInvalidQuantity, line.ItemID)
				}
				mv, err := s.inventory.Restock(ctx, tx, it.VariantID, it.LocationID, line.Quantity)
				if err != nil {
					return fmt.Errorf("restock inventory %s/%s: %w", it.VariantID, it.LocationID, err)
				}
				if mv.Clamped {
					clamps = append(clamps, clampNote{
						VariantID: it.VariantID, LocationID: it.LocationID,
						Operation: "restock", Requested: mv.Requested, Moved: mv.Moved,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Append(ctx, Entry{
		Actor: actor.ID, Action: model.AuditRefundProcessed,
		ResourceType: "order", ResourceID: orderID,
		Changes: map[string]interface{}{
			"refund_id": refundID,
			"amount":    input.Amount,
			"reason":    input.Reason,
		},
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
	})
	s.auditClamps(ctx, orderID, clamps)
	return nil
}

// ---- helpers ----

func paymentEntity(ev *model.GatewayEvent) (*model.GatewayPayment, error) {
	if ev.Payload.Payment == nil {
		return nil, fmt.Errorf("%w: missing payment entity", ErrMalformedPayload)
	}
	pe := ev.Payload.Payment.Entity
	if pe.ID == "" || pe.OrderID == "" {
		return nil, fmt.Errorf("%w: payment entity missing ids", ErrMalformedPayload)
	}
	return &pe, nil
}

func (s *OrderService) findOrder(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error) {
	order, err := s.orders.FindByGatewayOrderID(ctx, tx, gatewayOrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: gateway order %s", ErrOrderNotFound, gatewayOrderID)
		}
		return nil, err
	}
	return order, nil
}

// ensurePayment finds the payment by the gateway's transaction id, creating
// the row on first sight — payments are inserted independently by the
// webhook flow.
func (s *OrderService) ensurePayment(ctx context.Context, tx *gorm.DB, order *model.Order, pe *model.GatewayPayment, status model.PaymentStatus) (*model.Payment, bool, error) {
	payment, err := s.payments.FindByGatewayTransactionID(ctx, tx, pe.ID)
	if err == nil {
		return payment, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, err
	}

	payment = &model.Payment{
		ID:                   uuid.NewString(),
		OrderID:              order.ID,
		GatewayTransactionID: pe.ID,
		Amount:               pe.Amount,
		Currency:             pe.Currency,
		Status:               status,
		Method:               pe.Method,
		Email:                pe.Email,
		ClientIP:             order.ClientIP,
	}
	if pe.Card != nil {
		payment.CardLast4 = pe.Card.Last4
		payment.CardBrand = pe.Card.Network
	}
	if err := s.payments.Create(ctx, tx, payment); err != nil {
		return nil, false, fmt.Errorf("create payment: %w", err)
	}
	return payment, true, nil
}

func (s *OrderService) auditClamps(ctx context.Context, orderID string, clamps []clampNote) {
	for _, c := range clamps {
		s.audit.Append(ctx, Entry{
			Action:       model.AuditInventoryClamped,
			ResourceType: "inventory",
			ResourceID:   c.VariantID + "/" + c.LocationID,
			Changes: map[string]interface{}{
				"order_id":  orderID,
				"operation": c.Operation,
				"requested": c.Requested,
				"moved":     c.Moved,
			},
		})
	}
}

// screen runs fraud analysis on first-seen authorization/capture paths and
// records the decision; the score never blocks a gateway-confirmed payment.
func (s *OrderService) screen(ctx context.Context, order *model.Order, pe *model.GatewayPayment, action string) {
	if s.analyzer == nil || order == nil {
		return
	}
	fc := fraud.Context{
		OrderID:         order.ID,
		Email:           order.Email,
		Amount:          pe.Amount,
		Currency:        pe.Currency,
		PaymentMethod:   pe.Method,
		BillingCountry:  order.BillingCountry,
		ShippingCountry: order.ShippingCountry,
		IPAddress:       order.ClientIP,
		UserAgent:       order.UserAgent,
		Now:             s.now(),
	}
	if pe.Card != nil {
		fc.CardBrand = pe.Card.Network
	}
	res := s.analyzer.Analyze(ctx, fc)
	s.audit.Append(ctx, Entry{
		Action:       model.AuditFraudAnalyzed,
		ResourceType: "payment",
		ResourceID:   pe.ID,
		Changes: map[string]interface{}{
			"trigger": action,
			"score":   res.Score,
			"level":   res.Level,
			"flags":   res.Flags,
		},
	})
}
