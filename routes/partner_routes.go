// routes/partner_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/clearline-hq/partnerhub_backend/controllers"
	"github.com/clearline-hq/partnerhub_backend/middleware"
)

// RegisterPartnerRoutes sets up all partner-facing protected routes
func RegisterPartnerRoutes(e *echo.Echo, partnerController *controllers.PartnerController, dealController *controllers.DealController, commissionController *controllers.CommissionController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Partner profile and network
	r.GET("/partners/profile", partnerController.GetProfile)
	r.GET("/partners/referral-tree", partnerController.GetReferralTree)
	r.POST("/partners/recruit", partnerController.Recruit)

	// Deals
	r.POST("/deals", dealController.CreateDeal)
	r.GET("/deals", dealController.ListOwnDeals)
	r.GET("/deals/:id", dealController.GetDeal)
	r.POST("/deals/:id/transition", dealController.TransitionDeal)
	r.GET("/deals/:id/actions", dealController.GetActions)
	r.GET("/deals/:id/history", dealController.GetHistory)
	r.GET("/stages", dealController.GetStages)

	// Commissions
	r.GET("/commissions", commissionController.GetOwnCommissions)
}
