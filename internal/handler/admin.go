package handler

import (
	"net/http"

	"commerce-backoffice/internal/dto"
	"commerce-backoffice/internal/model"
	"commerce-backoffice/internal/service"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	orderService *service.OrderService
}

func NewAdminHandler(orderService *service.OrderService) *AdminHandler {
	return &AdminHandler{orderService: orderService}
}

func actorFromContext(c echo.Context) service.Actor {
	actorID, _ := c.Get("actor_id").(string)
	return service.Actor{
		ID:        actorID,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func adminResult(c echo.Context, err error) error {
	if err != nil {
		return c.JSON(service.HTTPStatus(err), dto.AdminActionResponse{
			Error: err.Error(),
			Kind:  service.Kind(err),
		})
	}
	return c.JSON(http.StatusOK, dto.AdminActionResponse{Success: true})
}

func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.orderService.UpdateOrderStatus(
		c.Request().Context(),
		actorFromContext(c),
		c.Param("id"),
		model.OrderStatus(req.Status),
	)
	return adminResult(c, err)
}

func (h *AdminHandler) FulfillOrder(c echo.Context) error {
	var req dto.FulfillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.orderService.FulfillOrder(
		c.Request().Context(),
		actorFromContext(c),
		c.Param("id"),
		req.Lines,
	)
	return adminResult(c, err)
}

func (h *AdminHandler) CancelOrder(c echo.Context) error {
	var req dto.CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.orderService.CancelOrder(
		c.Request().Context(),
		actorFromContext(c),
		c.Param("id"),
		req.Reason,
	)
	return adminResult(c, err)
}

func (h *AdminHandler) ProcessRefund(c echo.Context) error {
	var req dto.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.orderService.ProcessRefund(
		c.Request().Context(),
		actorFromContext(c),
		c.Param("id"),
		service.RefundInput{
			Amount:          req.Amount,
			Reason:          req.Reason,
			GatewayRefundID: req.GatewayRefundID,
			Restock:         req.Restock,
		},
	)
	return adminResult(c, err)
}
