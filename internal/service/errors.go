package service

import (
	"context"
	"errors"
	"net/http"
)

// Business-rule violations are returned as typed errors, never panics; the
// HTTP boundary maps them to responses.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrRefundExceedsBalance   = errors.New("refund exceeds remaining balance")
	ErrNothingToRefund        = errors.New("no captured payment to refund")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSignatureInvalid       = errors.New("webhook signature verification failed")
	ErrMalformedPayload       = errors.New("malformed webhook payload")
	ErrIdempotencyUnavailable = errors.New("idempotency store unavailable")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrPaymentNotFound):
		return "payment_not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrRefundExceedsBalance):
		return "refund_exceeds_balance"
	case errors.Is(err, ErrNothingToRefund):
		return "nothing_to_refund"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidAmount):
		return "invalid_input"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrIdempotencyUnavailable):
		return "retriable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrRefundExceedsBalance),
		errors.Is(err, ErrNothingToRefund):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrSignatureInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrIdempotencyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
