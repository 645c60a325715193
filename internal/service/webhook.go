package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"commerce-backoffice/internal/model"
	"commerce-backoffice/internal/repository"

	"gorm.io/datatypes"
)

// Outcome is what the HTTP boundary returns to the gateway for any
// authenticated delivery.
type Outcome struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"-"`
}

type eventHandler func(ctx context.Context, ev *model.GatewayEvent) (*TransitionResult, error)

// WebhookService authenticates, classifies and routes inbound gateway
// events. Every routed handler runs inside the idempotency store's
// claim/save cycle; every authenticated delivery lands in the delivery log
// with its latency.
type WebhookService struct {
	secret      string
	ttl         time.Duration
	idempotency repository.IdempotencyRepository
	deliveries  repository.DeliveryRepository
	handlers    map[string]eventHandler
	now         func() time.Time
}

func NewWebhookService(
	secret string,
	ttl time.Duration,
	idempotency repository.IdempotencyRepository,
	deliveries repository.DeliveryRepository,
	orders *OrderService,
) *WebhookService {
	s := &WebhookService{
		secret:      secret,
		ttl:         ttl,
		idempotency: idempotency,
		deliveries:  deliveries,
		now:         time.Now,
	}
	// Dispatch is a table edit away from a new event type; anything not
	// listed here is acknowledged but not processed.
	s.handlers = map[string]eventHandler{
		"payment.authorized": orders.HandlePaymentAuthorized,
		"payment.captured":   orders.HandlePaymentCaptured,
		"payment.failed":     orders.HandlePaymentFailed,
		"order.paid":         orders.HandleOrderPaid,
	}
	return s
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// shared secret, in constant time.
func (s *WebhookService) VerifySignature(body []byte, signature string) bool {
	if s.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Handle processes one delivery. Signature verification happens before any
// parsing or state access; a failure consumes nothing.
func (s *WebhookService) Handle(ctx context.Context, deliveryID, signature string, body []byte) (*Outcome, error) {
	if !s.VerifySignature(body, signature) {
		return nil, ErrSignatureInvalid
	}

	start := s.now()
	var ev model.GatewayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.record(ctx, deliveryID, "", body, model.DeliveryFailed, "malformed payload", start)
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	handler, known := s.handlers[ev.Event]
	if !known {
		// Acknowledge so the gateway stops retrying events this system
		// intentionally ignores.
		s.record(ctx, deliveryID, ev.Event, body, model.DeliveryIgnored, "", start)
		return &Outcome{Success: true, Message: "event ignored", Processed: false}, nil
	}

	key := repository.IdempotencyKey(deliveryID, ev.Event, ev.ResourceID())
	claim, err := s.idempotency.Claim(ctx, key, s.ttl)
	if err != nil {
		// Fail closed: report retriable so the gateway redelivers rather
		// than silently skipping a real event.
		s.record(ctx, deliveryID, ev.Event, body, model.DeliveryFailed, "idempotency store unavailable", start)
		return nil, fmt.Errorf("%w: %v", ErrIdempotencyUnavailable, err)
	}

	if !claim.IsNew {
		s.record(ctx, deliveryID, ev.Event, body, model.DeliveryDuplicate, "", start)
		msg := "already processed"
		if claim.Record.Status == model.IdempotencyPending {
			msg = "processing in flight"
		}
		return &Outcome{Success: true, Message: msg, Processed: false, Duplicate: true}, nil
	}

	result, err := handler(ctx, &ev)
	if err != nil {
		if saveErr := s.idempotency.Save(ctx, key, model.IdempotencyError, nil, err.Error()); saveErr != nil {
			log.Printf("webhook: save error result for %s: %v", key, saveErr)
		}
		s.record(ctx, deliveryID, ev.Event, body, model.DeliveryFailed, err.Error(), start)
		return nil, err
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		payload = nil
	}
	if saveErr := s.idempotency.Save(ctx, key, model.IdempotencySuccess, datatypes.JSON(payload), ""); saveErr != nil {
		log.Printf("webhook: save success result for %s: %v", key, saveErr)
	}
	s.record(ctx, deliveryID, ev.Event, body, model.DeliveryProcessed, "", start)

	return &Outcome{Success: true, Message: result.Message, Processed: true}, nil
}

// Deliveries exposes the delivery log for operational inspection.
func (s *WebhookService) Deliveries(ctx context.Context, event string, limit int) ([]*model.WebhookDelivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.deliveries.ListByEvent(ctx, event, limit)
}

func (s *WebhookService) record(ctx context.Context, deliveryID, event string, body []byte, outcome, errMsg string, start time.Time) {
	latency := s.now().Sub(start).Milliseconds()
	if err := s.deliveries.Record(ctx, deliveryID, event, datatypes.JSON(body), outcome, errMsg, latency); err != nil {
		log.Printf("webhook: record delivery %s (%s): %v", deliveryID, outcome, err)
	}
}
