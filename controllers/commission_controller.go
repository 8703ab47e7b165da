// controllers/commission_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/repositories"
	"github.com/clearline-hq/partnerhub_backend/services"
	"github.com/clearline-hq/partnerhub_backend/utils"
)

// CommissionController exposes commission reads for partners and admins.
type CommissionController struct {
	commissions *repositories.CommissionRepository
	ledger      *services.LedgerService
}

func NewCommissionController(commissions *repositories.CommissionRepository, ledger *services.LedgerService) *CommissionController {
	return &CommissionController{commissions: commissions, ledger: ledger}
}

// GetOwnCommissions returns the authenticated partner's commission records
// and a summary totalled by status.
func (cc *CommissionController) GetOwnCommissions(c echo.Context) error {
	partnerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}
	return cc.commissionsForPartner(c, partnerID)
}

// GetPartnerCommissions returns any partner's commission records. Admin only.
func (cc *CommissionController) GetPartnerCommissions(c echo.Context) error {
	partnerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}
	return cc.commissionsForPartner(c, partnerID)
}

func (cc *CommissionController) commissionsForPartner(c echo.Context, partnerID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := cc.commissions.ByPartner(ctx, partnerID)
	if err != nil {
		return internalError(c, "Failed to fetch commissions", err)
	}

	summary, err := cc.ledger.SummaryForPartner(ctx, partnerID)
	if err != nil {
		return internalError(c, "Failed to build commission summary", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved",
		Data: map[string]interface{}{
			"records": records,
			"summary": summary,
		},
	})
}

// ListPayable returns every payable commission record. Admin only; feeds the
// invoicing workflow.
func (cc *CommissionController) ListPayable(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := cc.commissions.ListPayable(ctx)
	if err != nil {
		return internalError(c, "Failed to fetch payable commissions", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payable commissions retrieved",
		Data:    records,
	})
}
