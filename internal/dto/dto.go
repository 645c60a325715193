package dto

import "commerce-backoffice/internal/service"

type WebhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed bool   `json:"processed"`
}

type AdminActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type FulfillRequest struct {
	Lines []service.FulfillmentLine `json:"lines"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RefundRequest struct {
	Amount          int64                 `json:"amount"`
	Reason          string                `json:"reason"`
	GatewayRefundID string                `json:"gateway_refund_id"`
	Restock         []service.RestockLine `json:"restock,omitempty"`
}

type FraudAnalyzeRequest struct {
	OrderID         string `json:"order_id"`
	Email           string `json:"email"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethod   string `json:"payment_method"`
	CardBrand       string `json:"card_brand"`
	BillingCountry  string `json:"billing_country"`
	ShippingCountry string `json:"shipping_country"`
	IPAddress       string `json:"ip_address"`
	UserAgent       string `json:"user_agent"`
}

type FraudAnalyzeResponse struct {
	Level           string   `json:"level"`
	Score           int      `json:"score"`
	Reasons         []string `json:"reasons"`
	Flags           []string `json:"flags"`
	Recommendations []string `json:"recommendations"`
}
