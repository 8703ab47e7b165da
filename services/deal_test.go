// services/deal_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

func TestCreateDealStartsSubmitted(t *testing.T) {
	env := newTestEnv()
	owner := env.partners.add(nil, "Owner")

	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	assert.Equal(t, models.StageSubmitted, deal.Stage)
	assert.Equal(t, owner, deal.OwnerPartnerID)
}

func TestCreateDealRejectsUnknownProduct(t *testing.T) {
	env := newTestEnv()
	owner := env.partners.add(nil, "Owner")

	_, err := env.dealService.CreateDeal(context.Background(), owner, &models.CreateDealRequest{
		BusinessName: "Acme",
		ContactName:  "Jo",
		ProductType:  models.ProductType("timeshares"),
	})
	require.Error(t, err)
}

func TestFullPathProducesOnePayableLevelOneRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	records, err := env.commissions.ByPartner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Level)
	assert.Equal(t, models.CommissionPayable, records[0].Status)
	assert.False(t, records[0].Voided)
}

func TestInvalidTransitionRejected(t *testing.T) {
	env := newTestEnv()
	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)

	_, _, err := env.dealService.TransitionDeal(context.Background(), deal.ID, models.StageQuoteSent, models.RoleAdmin)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.StageSubmitted, invalid.From)
	assert.Equal(t, models.StageQuoteSent, invalid.To)
	assert.Contains(t, invalid.Error(), "submitted")
	assert.Contains(t, invalid.Error(), "quote_sent")

	// Nothing was applied.
	stored, err := env.deals.GetByID(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageSubmitted, stored.Stage)
	events, err := env.deals.EventsForDeal(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPartnerCannotPerformAdminTransition(t *testing.T) {
	env := newTestEnv()
	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)

	_, _, err := env.dealService.TransitionDeal(context.Background(), deal.ID, models.StageQuoteRequestReceived, models.RolePartner)
	require.ErrorIs(t, err, ErrRoleNotPermitted)
}

func TestTransitionAppendsEvents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	env.advance(deal, models.StageQuoteRequestReceived, models.StageQuoteSent)

	events, err := env.dealService.History(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, models.StageSubmitted, events[0].FromStage)
	assert.Equal(t, models.StageQuoteRequestReceived, events[0].ToStage)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, models.StageQuoteSent, events[1].ToStage)
	assert.Equal(t, models.RoleAdmin, events[1].ActingRole)
}

// staleDealStore serves a stale stage from GetByID so the CAS must catch the
// lost race.
type staleDealStore struct {
	*memDealStore
	staleStage models.Stage
}

func (s *staleDealStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deal, error) {
	deal, err := s.memDealStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	deal.Stage = s.staleStage
	return deal, nil
}

func TestConcurrentTransitionLoserGetsConflict(t *testing.T) {
	env := newTestEnv()
	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)

	// Another writer already moved the deal on.
	applied, err := env.deals.UpdateStageCAS(context.Background(), deal.ID, models.StageSubmitted, models.StageQuoteRequestReceived, time.Now())
	require.NoError(t, err)
	require.True(t, applied)

	stale := &staleDealStore{memDealStore: env.deals, staleStage: models.StageSubmitted}
	racingService := NewDealService(stale, env.commissions, env.attribution, passthroughTxn{})

	_, _, err = racingService.TransitionDeal(context.Background(), deal.ID, models.StageDeclined, models.RoleAdmin)
	require.ErrorIs(t, err, ErrTransitionConflict)
}

func TestDeclineVoidsPendingCommissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	deal := env.newDeal(b, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	env.advance(deal, models.StageDeclined)

	levels, err = env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, levels, "pending commissions are voided on decline")

	// Voided records remain on the books for audit.
	records, err := env.commissions.ByPartner(ctx, b)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Voided)
	assert.NotNil(t, records[0].VoidedAt)
}

func TestReopenedDealCanBeAttributedAgain(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)
	env.advance(deal, models.StageDeclined, models.StageSubmitted)
	env.advance(deal, pathToLive...)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 1, "voided records do not block re-attribution")

	records, err := env.commissions.ByPartner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, records, 2, "one voided, one live")
}

func TestPaidCommissionSurvivesDecline(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	records, err := env.commissions.ByPartner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 1)

	invoice, err := env.ledger.MarkInvoiced(ctx, owner, []primitive.ObjectID{records[0].ID}, "")
	require.NoError(t, err)
	_, _, err = env.ledger.MarkPaid(ctx, invoice.ID, "BACS-123", "")
	require.NoError(t, err)

	env.advance(deal, models.StageDeclined)

	records, err = env.commissions.ByPartner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Voided, "paid commissions are never voided")
	assert.Equal(t, models.CommissionPaid, records[0].Status)
}

func TestActionsForDeal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.partners.add(nil, "Owner")
	deal := env.newDeal(owner, models.ProductCardPayments, 1000)
	env.advance(deal, models.StageQuoteRequestReceived, models.StageQuoteSent)

	actions, err := env.dealService.ActionsForDeal(ctx, deal.ID, models.RolePartner)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "approve_quote", actions[0].Key)
}
