// models/invoice.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceStatus tracks an invoice from issue to settlement.
type InvoiceStatus string

const (
	InvoiceIssued InvoiceStatus = "issued"
	InvoicePaid   InvoiceStatus = "paid"
)

// Invoice groups a partner's invoiced commission records for settlement.
// Marking an invoice paid is idempotent: repeating the call after success is
// absorbed as a no-op so a double-submitted admin action cannot double-pay.
type Invoice struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number    string             `bson:"number" json:"number"`
	PartnerID primitive.ObjectID `bson:"partnerId" json:"partnerId"`

	CommissionRecordIDs []primitive.ObjectID `bson:"commissionRecordIds" json:"commissionRecordIds"`
	TotalAmount         float64              `bson:"totalAmount" json:"totalAmount"`

	Status           InvoiceStatus `bson:"status" json:"status"`
	PaymentReference string        `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	Notes            string        `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	PaidAt    *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// CreateInvoiceRequest groups payable commission records into a new invoice.
type CreateInvoiceRequest struct {
	PartnerID           string   `json:"partnerId" validate:"required"`
	CommissionRecordIDs []string `json:"commissionRecordIds" validate:"required,min=1"`
	Notes               string   `json:"notes,omitempty"`
}

// PayInvoiceRequest settles an issued invoice.
type PayInvoiceRequest struct {
	PaymentReference string `json:"paymentReference" validate:"required"`
	Notes            string `json:"notes,omitempty"`
}
