// services/attribution.go
package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// networkLevels is how far up the sponsor chain commissions reach beyond the
// deal owner: level 1 is the owner, levels 2 and 3 its two nearest ancestors.
const networkLevels = 2

// AttributionService turns a qualifying stage transition into commission
// records, one per eligible network level. It is invoked inside the same
// transaction as the stage change, so either every eligible level commits or
// none does, and the per-level idempotency guard makes replays a no-op.
type AttributionService struct {
	graph       *ReferralGraph
	commissions CommissionStore
	policies    PolicyStore
}

func NewAttributionService(graph *ReferralGraph, commissions CommissionStore, policies PolicyStore) *AttributionService {
	return &AttributionService{graph: graph, commissions: commissions, policies: policies}
}

type beneficiary struct {
	level     int
	partnerID primitive.ObjectID
}

// Attribute computes and persists the commission records owed for event.
// Non-qualifying stages return (nil, nil). A graph cycle aborts the whole
// attribution; a missing policy row blocks only its level.
func (s *AttributionService) Attribute(ctx context.Context, deal *models.Deal, event *models.StageTransitionEvent) ([]models.CommissionRecord, error) {
	if !models.IsQualifyingStage(event.ToStage) {
		return nil, nil
	}

	ancestors, err := s.graph.AncestorsOf(ctx, deal.OwnerPartnerID, networkLevels)
	if err != nil {
		return nil, err
	}

	beneficiaries := []beneficiary{{level: 1, partnerID: deal.OwnerPartnerID}}
	for i, ancestorID := range ancestors {
		beneficiaries = append(beneficiaries, beneficiary{level: i + 2, partnerID: ancestorID})
	}

	existing, err := s.commissions.ExistingLevels(ctx, deal.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]models.CommissionRecord, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		if existing[b.level] {
			// Already attributed for this level; redelivered event, skip.
			continue
		}

		policy, err := s.policies.Get(ctx, deal.ProductType, b.level)
		if err != nil {
			return nil, err
		}
		if policy == nil {
			// Rate configuration gap blocks this level only.
			log.Printf("attribution: %v (deal %s)", &PolicyNotFoundError{ProductType: deal.ProductType, Level: b.level}, deal.ID.Hex())
			continue
		}

		record := models.CommissionRecord{
			ID:                   primitive.NewObjectID(),
			DealID:               deal.ID,
			BeneficiaryPartnerID: b.partnerID,
			Level:                b.level,
			ProductType:          deal.ProductType,
			Basis:                policy.Basis,
			Status:               models.CommissionPayable,
			CreatedAt:            now,
		}
		switch policy.Basis {
		case models.BasisFlat:
			record.Amount = policy.FlatAmount
		default:
			record.RatePercent = policy.RatePercent
			record.Amount = deal.TotalAmount * policy.RatePercent / 100
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, nil
	}
	if err := s.commissions.InsertMany(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}
