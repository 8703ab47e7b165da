// models/partner.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Partner is a network participant who can own deals and sponsor other
// partners. ParentPartnerID is set at most once, at recruitment time, and is
// immutable afterwards; the parent chain forms a forest.
type Partner struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`
	FullName string             `bson:"fullName" json:"fullName"`
	Business string             `bson:"business,omitempty" json:"business,omitempty"`

	ReferralCode    string              `bson:"referralCode" json:"referralCode"`
	ParentPartnerID *primitive.ObjectID `bson:"parentPartnerId,omitempty" json:"parentPartnerId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ReferralTreeNode is one partner in the referral tree with its derived
// counts. Counts are computed at read time, never stored.
type ReferralTreeNode struct {
	ID           primitive.ObjectID `json:"id"`
	FullName     string             `json:"fullName"`
	ReferralCode string             `json:"referralCode"`

	DirectRecruits int `json:"directRecruits"`
	TotalDownline  int `json:"totalDownline"`
	TotalReferrals int `json:"totalReferrals"`

	Children []*ReferralTreeNode `json:"children"`
}

// RegisterPartnerRequest is the signup payload. ReferralCode, when present,
// links the new partner under its sponsor.
type RegisterPartnerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"fullName" validate:"required"`
	Business     string `json:"business,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// RecruitRequest attaches an already-registered partner under a sponsor. The
// link can only be made while the partner has no parent yet.
type RecruitRequest struct {
	ReferralCode string `json:"referralCode" validate:"required"`
}
