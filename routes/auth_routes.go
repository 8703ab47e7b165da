// routes/auth_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/clearline-hq/partnerhub_backend/controllers"
)

// RegisterAuthRoutes sets up the public authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	auth := e.Group("/api/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
}
