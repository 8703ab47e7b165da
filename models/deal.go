// models/deal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductType identifies the product line a deal is for; it drives which
// commission policy rows apply.
type ProductType string

const (
	ProductCardPayments   ProductType = "card_payments"
	ProductBusinessEnergy ProductType = "business_energy"
	ProductTelecoms       ProductType = "telecoms"
	ProductInsurance      ProductType = "insurance"
)

// IsValidProductType reports whether p is one of the known product lines.
func IsValidProductType(p ProductType) bool {
	switch p {
	case ProductCardPayments, ProductBusinessEnergy, ProductTelecoms, ProductInsurance:
		return true
	}
	return false
}

// Deal represents a referral opportunity submitted by a partner, tracked
// through the stage machine from submission to payout or decline.
type Deal struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerPartnerID primitive.ObjectID `bson:"ownerPartnerId" json:"ownerPartnerId"`

	BusinessName string `bson:"businessName" json:"businessName"`
	ContactName  string `bson:"contactName" json:"contactName"`
	ContactPhone string `bson:"contactPhone,omitempty" json:"contactPhone,omitempty"`
	ContactEmail string `bson:"contactEmail,omitempty" json:"contactEmail,omitempty"`

	Stage       Stage       `bson:"stage" json:"stage"`
	ProductType ProductType `bson:"productType" json:"productType"`

	// Advisory figures; attribution reads TotalAmount for percentage policies.
	TotalAmount            float64 `bson:"totalAmount" json:"totalAmount"`
	EstimatedMonthlySaving float64 `bson:"estimatedMonthlySaving,omitempty" json:"estimatedMonthlySaving,omitempty"`

	// SignupCompletedAt marks the sub-milestone inside the signup window; it is
	// display-only and never read by commission logic.
	SignupCompletedAt *time.Time `bson:"signupCompletedAt,omitempty" json:"signupCompletedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CreateDealRequest is the payload for submitting a new deal.
type CreateDealRequest struct {
	BusinessName           string      `json:"businessName" validate:"required"`
	ContactName            string      `json:"contactName" validate:"required"`
	ContactPhone           string      `json:"contactPhone,omitempty"`
	ContactEmail           string      `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ProductType            ProductType `json:"productType" validate:"required"`
	TotalAmount            float64     `json:"totalAmount" validate:"gte=0"`
	EstimatedMonthlySaving float64     `json:"estimatedMonthlySaving,omitempty"`
}

// TransitionDealRequest is the payload for moving a deal to another stage.
type TransitionDealRequest struct {
	TargetStage Stage `json:"targetStage" validate:"required"`
}
