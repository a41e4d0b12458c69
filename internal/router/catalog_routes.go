package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/handler"    // asset and rental handlers
	"github.com/taksrules/choto-api/internal/middleware" // session + role middlewares
)

// RegisterCatalog registers asset and rental endpoints under /v1.  Asset
// registration and status flips are agent operations; lookups and rentals
// are available to every authenticated role.  The cache middleware wraps
// the read-only projections.
func RegisterCatalog(e *echo.Echo, assets *handler.AssetHandler, rentals *handler.RentalHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.SessionAuth(jwtSecret))

	// ---- Assets ----
	agentOnly := middleware.RequireRole("AGENT", "ADMIN")
	g.POST("/assets", assets.Create, agentOnly)
	g.PATCH("/assets/:id/status", assets.UpdateStatus, agentOnly)
	g.GET("/assets/:id", assets.GetByID, cache)
	g.GET("/assets/scan/:code", assets.GetByScanCode, cache)
	g.GET("/agents/:id/assets", assets.ListByAgent, cache)

	// ---- Rentals ----
	g.POST("/rentals", rentals.Create)
	g.PATCH("/rentals/:id/return", rentals.Return)
	g.GET("/rentals/active", rentals.Active)
	g.GET("/rentals/:id", rentals.GetByID)
	g.POST("/rentals/fridge", rentals.BookFridge)
	// only the owning agent's side approves cash bookings
	g.PATCH("/rentals/:id/approve", rentals.ApproveBooking, agentOnly)
}
