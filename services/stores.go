// services/stores.go
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// The services operate against these narrow store interfaces. The mongo
// implementations live in the repositories package; tests use in-memory fakes.

// DealStore persists deals and their append-only transition log.
type DealStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) error
	// UpdateStageCAS sets the deal's stage to "to" only if it still equals
	// "from". It reports false when another writer got there first; this is
	// the per-deal single-writer guarantee.
	UpdateStageCAS(ctx context.Context, id primitive.ObjectID, from, to models.Stage, at time.Time) (bool, error)
	NextEventSeq(ctx context.Context, dealID primitive.ObjectID) (int64, error)
	AppendEvent(ctx context.Context, event *models.StageTransitionEvent) error
	EventsForDeal(ctx context.Context, dealID primitive.ObjectID) ([]models.StageTransitionEvent, error)
	ListByStage(ctx context.Context, stage models.Stage) ([]models.Deal, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Deal, error)
	CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// PartnerStore persists partner records and the sponsor links between them.
type PartnerStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error)
	ChildrenOf(ctx context.Context, id primitive.ObjectID) ([]models.Partner, error)
	// SetParentOnce writes parentPartnerId only when it is still unset;
	// reports false when the partner already has a sponsor.
	SetParentOnce(ctx context.Context, id, parentID primitive.ObjectID) (bool, error)
}

// CommissionStore persists commission records through their ledger lifecycle.
type CommissionStore interface {
	// ExistingLevels returns the levels for which a non-voided record already
	// exists for the deal; the attribution idempotency guard reads this.
	ExistingLevels(ctx context.Context, dealID primitive.ObjectID) (map[int]bool, error)
	InsertMany(ctx context.Context, records []models.CommissionRecord) error
	ByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.CommissionRecord, error)
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.CommissionRecord, error)
	ByInvoice(ctx context.Context, invoiceID primitive.ObjectID) ([]models.CommissionRecord, error)
	ListPayable(ctx context.Context) ([]models.CommissionRecord, error)
	// MarkInvoiced transitions the records that are still payable and
	// non-voided to invoiced, and reports how many actually moved. Callers
	// must treat a count below len(ids) as a lost race.
	MarkInvoiced(ctx context.Context, ids []primitive.ObjectID, invoiceID primitive.ObjectID) (int64, error)
	MarkPaidByInvoice(ctx context.Context, invoiceID primitive.ObjectID, at time.Time) error
	// VoidPendingForDeal voids (never deletes) all non-paid records of a deal
	// and returns how many were voided.
	VoidPendingForDeal(ctx context.Context, dealID primitive.ObjectID, at time.Time) (int64, error)
}

// PolicyStore resolves commission rate configuration. Get returns (nil, nil)
// when no row exists for the pair.
type PolicyStore interface {
	Get(ctx context.Context, productType models.ProductType, level int) (*models.CommissionPolicy, error)
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef, notes string, at time.Time) error
}

// TxnRunner executes fn atomically. The mongo implementation runs fn inside a
// session transaction; every store call made with the ctx it passes joins
// that transaction.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
