// models/policy.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RateBasis selects how a policy row turns a deal into money.
type RateBasis string

const (
	// BasisPercent pays RatePercent of the deal's total amount.
	BasisPercent RateBasis = "percent"
	// BasisFlat pays FlatAmount regardless of deal size.
	BasisFlat RateBasis = "flat"
)

// CommissionPolicy declares, per product type and network level, what a
// beneficiary is paid. Rates are configuration, never compiled-in constants:
// the business has surfaced conflicting figures (percentage tiers vs flat
// tiers), so the engine treats every rate as an externally supplied row.
type CommissionPolicy struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductType ProductType        `bson:"productType" json:"productType"`
	Level       int                `bson:"level" json:"level"`
	Basis       RateBasis          `bson:"basis" json:"basis"`
	RatePercent float64            `bson:"ratePercent,omitempty" json:"ratePercent,omitempty"`
	FlatAmount  float64            `bson:"flatAmount,omitempty" json:"flatAmount,omitempty"`
}

// DefaultCommissionPolicies is the seed applied when the policies collection
// is empty. Placeholder figures pending confirmation from finance; override
// rows in the commissionPolicies collection, not here.
func DefaultCommissionPolicies() []CommissionPolicy {
	products := []ProductType{ProductCardPayments, ProductBusinessEnergy, ProductTelecoms, ProductInsurance}
	rates := map[int]float64{1: 60, 2: 20, 3: 10}

	policies := make([]CommissionPolicy, 0, len(products)*len(rates))
	for _, product := range products {
		for level := 1; level <= 3; level++ {
			policies = append(policies, CommissionPolicy{
				ProductType: product,
				Level:       level,
				Basis:       BasisPercent,
				RatePercent: rates[level],
			})
		}
	}
	return policies
}
