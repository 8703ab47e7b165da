// models/commission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionStatus tracks a commission record through the ledger.
type CommissionStatus string

const (
	CommissionPayable  CommissionStatus = "payable"
	CommissionInvoiced CommissionStatus = "invoiced"
	CommissionPaid     CommissionStatus = "paid"
)

// CommissionRecord is one beneficiary's share of one deal's value at one
// qualifying stage event. At most one non-voided record may exist per
// (dealId, level); a partial unique index enforces this in the database.
type CommissionRecord struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DealID               primitive.ObjectID `bson:"dealId" json:"dealId"`
	BeneficiaryPartnerID primitive.ObjectID `bson:"beneficiaryPartnerId" json:"beneficiaryPartnerId"`
	// Level is the beneficiary's distance from the deal owner: 1 = owner,
	// 2 = owner's sponsor, 3 = sponsor's sponsor.
	Level int `bson:"level" json:"level"`

	ProductType ProductType `bson:"productType" json:"productType"`
	Basis       RateBasis   `bson:"basis" json:"basis"`
	RatePercent float64     `bson:"ratePercent,omitempty" json:"ratePercent,omitempty"`
	Amount      float64     `bson:"amount" json:"amount"`

	Status    CommissionStatus    `bson:"status" json:"status"`
	InvoiceID *primitive.ObjectID `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`

	// Voided records stay on the books for audit; they never count toward the
	// per-level uniqueness guard and are never paid.
	Voided   bool       `bson:"voided" json:"voided"`
	VoidedAt *time.Time `bson:"voidedAt,omitempty" json:"voidedAt,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	PaidAt    *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// CommissionSummary aggregates a partner's commissions by ledger status.
type CommissionSummary struct {
	TotalPayable  float64 `json:"totalPayable"`
	TotalInvoiced float64 `json:"totalInvoiced"`
	TotalPaid     float64 `json:"totalPaid"`
	RecordCount   int     `json:"recordCount"`
}
