package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/taksrules/choto-api/internal/handler"    // import the handlers that implement business logic
	"github.com/taksrules/choto-api/internal/middleware" // import middleware for session authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all account and session routes and applies the
// necessary middleware.  Unauthenticated operations (register, activate,
// login) live under /v1/auth; the caller-scoped projections on the same
// prefix require a valid session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Open endpoints: anyone can create an account, activate it with the
	// verification code, or exchange credentials for a session.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.PATCH("/activate", a.Activate)
	g.POST("/login", a.Login)

	// Session-scoped endpoints.  SessionAuth populates user_id/role in the
	// context; every role may read its own account.
	auth := e.Group("/v1/auth", middleware.SessionAuth(jwtSecret))
	auth.GET("/profile", a.Profile)
	auth.PATCH("/profile", a.UpdateProfile)
	auth.GET("/token-balance", a.TokenBalance)
	auth.GET("/transactions", a.Transactions)
	auth.GET("/rentals", a.Rentals)
	auth.GET("/verification-code", a.VerificationCode)
}
