// controllers/ledger_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/services"
)

// LedgerController exposes the admin reconciliation workflow: grouping
// payable commissions into invoices and settling invoices.
type LedgerController struct {
	ledger *services.LedgerService
}

func NewLedgerController(ledger *services.LedgerService) *LedgerController {
	return &LedgerController{ledger: ledger}
}

// CreateInvoice groups payable commission records into a new invoice and
// marks them invoiced atomically.
func (lc *LedgerController) CreateInvoice(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateInvoiceRequest
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

	partnerID, err := primitive.ObjectIDFromHex(req.PartnerID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}

	recordIDs := make([]primitive.ObjectID, 0, len(req.CommissionRecordIDs))
	for _, raw := range req.CommissionRecordIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid commission record ID format",
			})
		}
		recordIDs = append(recordIDs, id)
	}

	invoice, err := lc.ledger.MarkInvoiced(ctx, partnerID, recordIDs, req.Notes)
	if err != nil {
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Invoice created",
		Data:    invoice,
	})
}

// PayInvoice settles an invoice. Safe to call twice: a repeated call after
// success returns the already-settled state instead of an error.
func (lc *LedgerController) PayInvoice(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	invoiceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid invoice ID format",
		})
	}

	var req models.PayInvoiceRequest
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

	invoice, records, err := lc.ledger.MarkPaid(ctx, invoiceID, req.PaymentReference, req.Notes)
	if err != nil {
		return ledgerError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Invoice paid",
		Data: map[string]interface{}{
			"invoice": invoice,
			"records": records,
		},
	})
}

func ledgerError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidLedgerState):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrCommissionNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvoiceNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: err.Error(),
		})
	default:
		return internalError(c, "Ledger operation failed", err)
	}
}
