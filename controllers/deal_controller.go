// controllers/deal_controller.go
package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/repositories"
	"github.com/clearline-hq/partnerhub_backend/services"
	"github.com/clearline-hq/partnerhub_backend/utils"
)

// DealController exposes the deal lifecycle over HTTP: intake, validated
// stage transitions, role-specific actions and the transition history.
type DealController struct {
	deals       *repositories.DealRepository
	dealService *services.DealService
	graph       *services.ReferralGraph
	cache       treeCache
}

func NewDealController(deals *repositories.DealRepository, dealService *services.DealService, graph *services.ReferralGraph, cache *redis.Client) *DealController {
	return &DealController{deals: deals, dealService: dealService, graph: graph, cache: cache}
}

// CreateDeal submits a new referral opportunity owned by the authenticated partner.
func (dc *DealController) CreateDeal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ownerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	var req models.CreateDealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	deal, err := dc.dealService.CreateDeal(ctx, ownerID, &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	// Referral counts in cached trees include this deal now.
	invalidateTreeCache(ctx, dc.cache, dc.graph, ownerID)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Deal submitted",
		Data:    deal,
	})
}

// GetDeal returns a single deal. Partners may only read their own deals.
func (dc *DealController) GetDeal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dealID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidDealID(c)
	}

	deal, err := dc.deals.GetByID(ctx, dealID)
	if errors.Is(err, services.ErrDealNotFound) {
		return dealNotFound(c)
	}
	if err != nil {
		return internalError(c, "Failed to fetch deal", err)
	}

	if utils.RoleFromContext(c) != models.RoleAdmin {
		userID, err := utils.GetUserIDFromToken(c)
		if err != nil || deal.OwnerPartnerID != userID {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "You do not own this deal",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Deal retrieved",
		Data:    deal,
	})
}

// ListOwnDeals returns the authenticated partner's deals.
func (dc *DealController) ListOwnDeals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ownerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	deals, err := dc.deals.ListByOwner(ctx, ownerID)
	if err != nil {
		return internalError(c, "Failed to fetch deals", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Deals retrieved",
		Data:    deals,
	})
}

// ListDealsByStage returns deals filtered by stage. Admin only.
func (dc *DealController) ListDealsByStage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stage := models.Stage(c.QueryParam("stage"))
	if !models.IsValidStage(stage) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown stage",
		})
	}

	deals, err := dc.deals.ListByStage(ctx, stage)
	if err != nil {
		return internalError(c, "Failed to fetch deals", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Deals retrieved",
		Data:    deals,
	})
}

// TransitionDeal moves a deal to the requested stage on behalf of the
// authenticated user's role. Commission records created by a qualifying
// transition are returned alongside the updated deal.
func (dc *DealController) TransitionDeal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dealID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidDealID(c)
	}

	var req models.TransitionDealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	role := utils.RoleFromContext(c)

	if role != models.RoleAdmin {
		userID, err := utils.GetUserIDFromToken(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: err.Error(),
			})
		}
		deal, err := dc.deals.GetByID(ctx, dealID)
		if errors.Is(err, services.ErrDealNotFound) {
			return dealNotFound(c)
		}
		if err != nil {
			return internalError(c, "Failed to fetch deal", err)
		}
		if deal.OwnerPartnerID != userID {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "You do not own this deal",
			})
		}
	}

	deal, commissions, err := dc.dealService.TransitionDeal(ctx, dealID, req.TargetStage, role)
	if err != nil {
		return transitionError(c, err)
	}

	data := map[string]interface{}{"deal": deal}
	if len(commissions) > 0 {
		data["commissions"] = commissions
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Deal transitioned",
		Data:    data,
	})
}

// GetActions returns the actions the authenticated user's role may take on
// the deal at its current stage.
func (dc *DealController) GetActions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dealID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidDealID(c)
	}

	actions, err := dc.dealService.ActionsForDeal(ctx, dealID, utils.RoleFromContext(c))
	if errors.Is(err, services.ErrDealNotFound) {
		return dealNotFound(c)
	}
	if err != nil {
		return internalError(c, "Failed to resolve actions", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Actions retrieved",
		Data:    actions,
	})
}

// GetHistory returns the deal's append-only transition log.
func (dc *DealController) GetHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dealID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return invalidDealID(c)
	}

	events, err := dc.dealService.History(ctx, dealID)
	if errors.Is(err, services.ErrDealNotFound) {
		return dealNotFound(c)
	}
	if err != nil {
		return internalError(c, "Failed to fetch history", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "History retrieved",
		Data:    events,
	})
}

// GetStages returns the full stage catalogue for UI rendering.
func (dc *DealController) GetStages(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Stages retrieved",
		Data:    models.AllStages(),
	})
}

func transitionError(c echo.Context, err error) error {
	var invalidTransition *services.InvalidTransitionError
	var cycle *services.CycleDetectedError
	switch {
	case errors.As(err, &invalidTransition):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: invalidTransition.Error(),
		})
	case errors.Is(err, services.ErrRoleNotPermitted):
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrTransitionConflict):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	case errors.As(err, &cycle):
		// Data-integrity fault, not a user error. Alert loudly.
		log.Printf("ALERT: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Referral network integrity error; commission attribution aborted",
		})
	case errors.Is(err, services.ErrDealNotFound):
		return dealNotFound(c)
	default:
		return internalError(c, "Failed to transition deal", err)
	}
}

func invalidDealID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: "Invalid deal ID format",
	})
}

func dealNotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, models.Response{
		Status:  http.StatusNotFound,
		Message: "Deal not found",
	})
}

func internalError(c echo.Context, message string, err error) error {
	log.Printf("%s: %v", message, err)
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: message,
	})
}
