// routes/admin_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/clearline-hq/partnerhub_backend/controllers"
	"github.com/clearline-hq/partnerhub_backend/middleware"
	"github.com/clearline-hq/partnerhub_backend/models"
)

// RegisterAdminRoutes sets up the back-office routes: deal pipeline
// management, commission review and invoice settlement.
func RegisterAdminRoutes(e *echo.Echo, dealController *controllers.DealController, partnerController *controllers.PartnerController, commissionController *controllers.CommissionController, ledgerController *controllers.LedgerController) {
	r := e.Group("/api/admin")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.RequireUserType(string(models.RoleAdmin)))

	r.GET("/deals", dealController.ListDealsByStage)
	r.GET("/partners/referral-tree", partnerController.GetReferralTree)
	r.GET("/partners/:id/commissions", commissionController.GetPartnerCommissions)
	r.GET("/commissions/payable", commissionController.ListPayable)

	r.POST("/invoices", ledgerController.CreateInvoice)
	r.PUT("/invoices/:id/pay", ledgerController.PayInvoice)
}
