// services/ledger.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// LedgerService moves commission records through payable -> invoiced -> paid
// and guarantees at-most-once payment per invoice.
type LedgerService struct {
	commissions CommissionStore
	invoices    InvoiceStore
	txn         TxnRunner
}

func NewLedgerService(commissions CommissionStore, invoices InvoiceStore, txn TxnRunner) *LedgerService {
	return &LedgerService{commissions: commissions, invoices: invoices, txn: txn}
}

// MarkInvoiced groups payable records belonging to partnerID into a new
// invoice and transitions them to invoiced, atomically. Any target record not
// in payable fails the whole call with ErrInvalidLedgerState.
func (s *LedgerService) MarkInvoiced(ctx context.Context, partnerID primitive.ObjectID, recordIDs []primitive.ObjectID, notes string) (*models.Invoice, error) {
	records, err := s.commissions.ByIDs(ctx, recordIDs)
	if err != nil {
		return nil, err
	}
	if len(records) != len(recordIDs) {
		return nil, ErrCommissionNotFound
	}

	var total float64
	for _, record := range records {
		if record.Voided || record.Status != models.CommissionPayable {
			return nil, fmt.Errorf("commission record %s: %w", record.ID.Hex(), ErrInvalidLedgerState)
		}
		if record.BeneficiaryPartnerID != partnerID {
			return nil, fmt.Errorf("commission record %s does not belong to partner %s: %w",
				record.ID.Hex(), partnerID.Hex(), ErrInvalidLedgerState)
		}
		total += record.Amount
	}

	invoice := &models.Invoice{
		ID:                  primitive.NewObjectID(),
		Number:              uuid.NewString(),
		PartnerID:           partnerID,
		CommissionRecordIDs: recordIDs,
		TotalAmount:         total,
		Status:              models.InvoiceIssued,
		Notes:               notes,
		CreatedAt:           time.Now(),
	}

	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.invoices.Create(ctx, invoice); err != nil {
			return err
		}
		moved, err := s.commissions.MarkInvoiced(ctx, recordIDs, invoice.ID)
		if err != nil {
			return err
		}
		// The payable check above ran on a pre-transaction read. If another
		// invoicing run claimed a record in between, the guarded update moves
		// fewer records than requested; abort so the invoice rolls back.
		if moved != int64(len(recordIDs)) {
			return fmt.Errorf("only %d of %d commission records were still payable: %w",
				moved, len(recordIDs), ErrInvalidLedgerState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// MarkPaid settles an invoice: every invoiced record under it becomes paid,
// atomically. Calling it again after success is a no-op that returns the
// already-paid records, so a double-submitted "mark as paid" cannot double-pay.
func (s *LedgerService) MarkPaid(ctx context.Context, invoiceID primitive.ObjectID, paymentRef, notes string) (*models.Invoice, []models.CommissionRecord, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	if invoice.Status == models.InvoicePaid {
		records, err := s.commissions.ByInvoice(ctx, invoiceID)
		if err != nil {
			return nil, nil, err
		}
		return invoice, records, nil
	}

	records, err := s.commissions.ByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		if record.Voided || record.Status != models.CommissionInvoiced {
			return nil, nil, fmt.Errorf("commission record %s: %w", record.ID.Hex(), ErrInvalidLedgerState)
		}
	}

	now := time.Now()
	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.commissions.MarkPaidByInvoice(ctx, invoiceID, now); err != nil {
			return err
		}
		return s.invoices.MarkPaid(ctx, invoiceID, paymentRef, notes, now)
	})
	if err != nil {
		return nil, nil, err
	}

	invoice.Status = models.InvoicePaid
	invoice.PaymentReference = paymentRef
	if notes != "" {
		invoice.Notes = notes
	}
	invoice.PaidAt = &now
	for i := range records {
		records[i].Status = models.CommissionPaid
		records[i].PaidAt = &now
	}
	return invoice, records, nil
}

// SummaryForPartner totals a partner's non-voided commissions by status.
func (s *LedgerService) SummaryForPartner(ctx context.Context, partnerID primitive.ObjectID) (*models.CommissionSummary, error) {
	records, err := s.commissions.ByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	summary := &models.CommissionSummary{}
	for _, record := range records {
		if record.Voided {
			continue
		}
		summary.RecordCount++
		switch record.Status {
		case models.CommissionPayable:
			summary.TotalPayable += record.Amount
		case models.CommissionInvoiced:
			summary.TotalInvoiced += record.Amount
		case models.CommissionPaid:
			summary.TotalPaid += record.Amount
		}
	}
	return summary, nil
}
