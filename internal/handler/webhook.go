package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"commerce-backoffice/internal/dto"
	"commerce-backoffice/internal/service"

	"github.com/labstack/echo/v4"
)

// Gateway request headers.
const (
	HeaderSignature  = "X-Gateway-Signature"
	HeaderDeliveryID = "X-Gateway-Event-Id"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Receive handles POST /webhooks/payments. Any authenticated payload gets a
// 2xx; infrastructure failures surface as retriable errors so the gateway
// redelivers.
func (h *WebhookHandler) Receive(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.WebhookResponse{Message: "unreadable body"})
	}

	signature := c.Request().Header.Get(HeaderSignature)
	deliveryID := c.Request().Header.Get(HeaderDeliveryID)

	outcome, err := h.webhookService.Handle(ctx, deliveryID, signature, body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureInvalid):
			return c.JSON(http.StatusUnauthorized, dto.WebhookResponse{Message: "signature verification failed"})
		case errors.Is(err, service.ErrMalformedPayload):
			return c.JSON(http.StatusBadRequest, dto.WebhookResponse{Message: "malformed payload"})
		default:
			// Retriable from the gateway's point of view.
			return c.JSON(http.StatusServiceUnavailable, dto.WebhookResponse{Message: "temporary failure, retry"})
		}
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{
		Success:   outcome.Success,
		Message:   outcome.Message,
		Processed: outcome.Processed,
	})
}

// ListDeliveries serves GET /api/webhooks/deliveries?event=&limit= for
// operational inspection of the delivery log.
func (h *WebhookHandler) ListDeliveries(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	deliveries, err := h.webhookService.Deliveries(c.Request().Context(), c.QueryParam("event"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deliveries)
}
