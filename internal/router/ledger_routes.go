package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/handler"    // payment and voucher handlers
	"github.com/taksrules/choto-api/internal/middleware" // session + role middlewares
)

// RegisterPayments registers the monetary ledger endpoints under
// /v1/payments for any authenticated role.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("/v1/payments", middleware.SessionAuth(jwtSecret))

	g.POST("", p.Create)
	// /user must register before /:id so Echo does not swallow it
	g.GET("/user", p.ListForUser)
	g.GET("/:id", p.GetByID)
	g.GET("/:id/transaction", p.GetTransaction)
}

// RegisterBorehole registers the water voucher pipeline under
// /v1/borehole, plus the public borehole listing.  Issuing an agent code
// requires the AGENT role; the other steps belong to the purchasing user.
func RegisterBorehole(e *echo.Echo, b *handler.BoreholeHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Anyone can browse dispensing points before registering.
	e.GET("/v1/boreholes", b.ListBoreholes, cache)

	g := e.Group("/v1/borehole", middleware.SessionAuth(jwtSecret))
	g.POST("/purchase", b.Purchase)
	g.POST("/agent-code", b.AgentCode, middleware.RequireRole("AGENT", "ADMIN"))
	g.POST("/token-code", b.TokenCode)
}
