// services/deal.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// DealService owns the deal lifecycle: creation in the submitted stage and
// every validated stage transition, including the commission side effects a
// transition triggers.
type DealService struct {
	deals       DealStore
	commissions CommissionStore
	attribution *AttributionService
	txn         TxnRunner
}

func NewDealService(deals DealStore, commissions CommissionStore, attribution *AttributionService, txn TxnRunner) *DealService {
	return &DealService{deals: deals, commissions: commissions, attribution: attribution, txn: txn}
}

// CreateDeal registers a new referral opportunity owned by ownerID. Every
// deal starts in submitted; validated transitions are the only way to move it.
func (s *DealService) CreateDeal(ctx context.Context, ownerID primitive.ObjectID, req *models.CreateDealRequest) (*models.Deal, error) {
	if !models.IsValidProductType(req.ProductType) {
		return nil, fmt.Errorf("unknown product type %q", req.ProductType)
	}

	now := time.Now()
	deal := &models.Deal{
		ID:                     primitive.NewObjectID(),
		OwnerPartnerID:         ownerID,
		BusinessName:           req.BusinessName,
		ContactName:            req.ContactName,
		ContactPhone:           req.ContactPhone,
		ContactEmail:           req.ContactEmail,
		Stage:                  models.StageSubmitted,
		ProductType:            req.ProductType,
		TotalAmount:            req.TotalAmount,
		EstimatedMonthlySaving: req.EstimatedMonthlySaving,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.deals.Create(ctx, deal); err != nil {
		return nil, err
	}
	return deal, nil
}

// TransitionDeal moves a deal to target on behalf of role. The stage change,
// the transition event and any commission effect (attribution on a qualifying
// stage, voiding on decline) commit atomically. A concurrent writer that
// already moved the deal makes the call fail with ErrTransitionConflict.
func (s *DealService) TransitionDeal(ctx context.Context, dealID primitive.ObjectID, target models.Stage, role models.Role) (*models.Deal, []models.CommissionRecord, error) {
	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}

	from := deal.Stage
	if !models.IsValidTransition(from, target) {
		return nil, nil, &InvalidTransitionError{From: from, To: target}
	}
	if !models.CanTransition(from, target, role) {
		return nil, nil, ErrRoleNotPermitted
	}

	now := time.Now()
	var created []models.CommissionRecord

	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		applied, err := s.deals.UpdateStageCAS(ctx, deal.ID, from, target, now)
		if err != nil {
			return err
		}
		if !applied {
			return ErrTransitionConflict
		}

		seq, err := s.deals.NextEventSeq(ctx, deal.ID)
		if err != nil {
			return err
		}
		event := &models.StageTransitionEvent{
			ID:         primitive.NewObjectID(),
			DealID:     deal.ID,
			Seq:        seq,
			FromStage:  from,
			ToStage:    target,
			ActingRole: role,
			OccurredAt: now,
		}
		if err := s.deals.AppendEvent(ctx, event); err != nil {
			return err
		}

		if target == models.StageDeclined {
			voided, err := s.commissions.VoidPendingForDeal(ctx, deal.ID, now)
			if err != nil {
				return err
			}
			if voided > 0 {
				log.Printf("deal %s declined: voided %d pending commission record(s)", deal.ID.Hex(), voided)
			}
			return nil
		}

		deal.Stage = target
		created, err = s.attribution.Attribute(ctx, deal, event)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	deal.Stage = target
	deal.UpdatedAt = now
	return deal, created, nil
}

// ActionsForDeal resolves the role-specific actions available on a deal at
// its current stage.
func (s *DealService) ActionsForDeal(ctx context.Context, dealID primitive.ObjectID, role models.Role) ([]models.Action, error) {
	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return models.ActionsFor(deal.Stage, role), nil
}

// History returns the deal's append-only transition log in sequence order.
func (s *DealService) History(ctx context.Context, dealID primitive.ObjectID) ([]models.StageTransitionEvent, error) {
	if _, err := s.deals.GetByID(ctx, dealID); err != nil {
		return nil, err
	}
	return s.deals.EventsForDeal(ctx, dealID)
}
