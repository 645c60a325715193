package handler

import (
	"net/http"

	"commerce-backoffice/internal/dto"
	"commerce-backoffice/internal/fraud"

	"github.com/labstack/echo/v4"
)

type FraudHandler struct {
	analyzer *fraud.Analyzer
}

func NewFraudHandler(analyzer *fraud.Analyzer) *FraudHandler {
	return &FraudHandler{analyzer: analyzer}
}

// Analyze scores a payment attempt on demand, for the checkout flow before
// capture or for asynchronous monitoring.
func (h *FraudHandler) Analyze(c echo.Context) error {
	var req dto.FraudAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "email and positive amount required")
	}

	result := h.analyzer.Analyze(c.Request().Context(), fraud.Context{
		OrderID:         req.OrderID,
		Email:           req.Email,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
		CardBrand:       req.CardBrand,
		BillingCountry:  req.BillingCountry,
		ShippingCountry: req.ShippingCountry,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
	})

	return c.JSON(http.StatusOK, dto.FraudAnalyzeResponse{
		Level:           string(result.Level),
		Score:           result.Score,
		Reasons:         result.Reasons,
		Flags:           result.Flags,
		Recommendations: result.Recommendations,
	})
}
