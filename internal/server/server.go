package server

import (
	"commerce-backoffice/internal/fraud"
	"commerce-backoffice/internal/handler"
	custommw "commerce-backoffice/internal/middleware"
	"commerce-backoffice/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type Server struct {
	echo           *echo.Echo
	webhookHandler *handler.WebhookHandler
	adminHandler   *handler.AdminHandler
	fraudHandler   *handler.FraudHandler
	auditHandler   *handler.AuditHandler
	webhookRate    float64
}

func NewServer(
	webhookService *service.WebhookService,
	orderService *service.OrderService,
	auditService *service.AuditService,
	analyzer *fraud.Analyzer,
	webhookRate float64,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		webhookHandler: handler.NewWebhookHandler(webhookService),
		adminHandler:   handler.NewAdminHandler(orderService),
		fraudHandler:   handler.NewFraudHandler(analyzer),
		auditHandler:   handler.NewAuditHandler(auditService),
		webhookRate:    webhookRate,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/api/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- gateway webhooks --------
	webhooks := s.echo.Group("/webhooks")
	webhooks.Use(middleware.RateLimiter(
		middleware.NewRateLimiterMemoryStore(rate.Limit(s.webhookRate)),
	))
	webhooks.POST("/payments", s.webhookHandler.Receive)

	// -------- admin actions (actor identity from external auth) --------
	api := s.echo.Group("/api", custommw.ActorIdentity())

	orders := api.Group("/admin/orders")
	orders.POST("/:id/status", s.adminHandler.UpdateOrderStatus)
	orders.POST("/:id/fulfill", s.adminHandler.FulfillOrder)
	orders.POST("/:id/cancel", s.adminHandler.CancelOrder)
	orders.POST("/:id/refund", s.adminHandler.ProcessRefund)

	api.POST("/fraud/analyze", s.fraudHandler.Analyze)
	api.GET("/audit", s.auditHandler.Query)
	api.GET("/webhooks/deliveries", s.webhookHandler.ListDeliveries)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
