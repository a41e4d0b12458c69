package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/handler"    // agent and admin handlers
	"github.com/taksrules/choto-api/internal/middleware" // session + role middlewares
)

// RegisterAgent registers agent lifecycle endpoints under /v1/agents.
// Registration is open to any authenticated user (the account becomes an
// agent once an admin approves it); distribution and verification require
// the AGENT role.
func RegisterAgent(e *echo.Echo, a *handler.AgentHandler, jwtSecret string) {
	g := e.Group("/v1/agents", middleware.SessionAuth(jwtSecret))

	g.POST("", a.Register)

	agentOnly := middleware.RequireRole("AGENT", "ADMIN")
	g.POST("/distribute", a.Distribute, agentOnly)
	g.POST("/verify-user", a.VerifyUser, agentOnly)

	g.GET("/:id", a.Profile)
	g.PATCH("/:id", a.Update, agentOnly)
	g.GET("/:id/balance", a.Balance)
	g.GET("/:id/payments", a.ListPayments, agentOnly)
	g.GET("/:id/transactions", a.ListTransactions, agentOnly)
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid session and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1/admin",
		middleware.SessionAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.PATCH("/approve-agent", a.ApproveAgent)
	g.POST("/assign-role", a.AssignRole)
	g.GET("/users", a.ListUsers)
	g.GET("/agents", a.ListAgents)
	g.GET("/overview", a.Overview)
	g.POST("/boreholes", a.CreateBorehole)
}
