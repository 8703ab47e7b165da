// services/attribution_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

func recordsByLevel(records []models.CommissionRecord) map[int]models.CommissionRecord {
	byLevel := map[int]models.CommissionRecord{}
	for _, r := range records {
		byLevel[r.Level] = r
	}
	return byLevel
}

func TestAttributionThreeLevels(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "Partner A")
	b := env.partners.add(&a, "Partner B")
	c := env.partners.add(&b, "Partner C")

	deal := env.newDeal(c, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	records, err := env.commissions.ByPartner(ctx, c)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Level)
	assert.Equal(t, models.CommissionPayable, records[0].Status)
	assert.InDelta(t, 600.0, records[0].Amount, 0.001) // 60% of 1000

	records, err = env.commissions.ByPartner(ctx, b)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Level)
	assert.InDelta(t, 200.0, records[0].Amount, 0.001)

	records, err = env.commissions.ByPartner(ctx, a)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Level)
	assert.InDelta(t, 100.0, records[0].Amount, 0.001)
}

func TestAttributionRootOwnerGetsLevelOneOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.partners.add(nil, "Root")
	deal := env.newDeal(root, models.ProductBusinessEnergy, 2000)
	env.advance(deal, pathToLive...)

	records, err := env.commissions.ByPartner(ctx, root)
	require.NoError(t, err)
	require.Len(t, records, 1, "no substitute beneficiary for missing levels")
	assert.Equal(t, 1, records[0].Level)
}

func TestAttributionSingleSponsorGetsTwoLevels(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	deal := env.newDeal(b, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true}, levels)
}

func TestAttributionReplayIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	deal := env.newDeal(b, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)

	deal.Stage = models.StageLiveConfirmLTR
	event := &models.StageTransitionEvent{
		DealID:     deal.ID,
		FromStage:  models.StageApproved,
		ToStage:    models.StageLiveConfirmLTR,
		ActingRole: models.RoleAdmin,
	}

	// Redelivered event: nothing new is created.
	created, err := env.attribution.Attribute(ctx, deal, event)
	require.NoError(t, err)
	assert.Empty(t, created)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 2, "exactly one record per level after replay")
}

func TestCompletionAfterLiveCreatesNoDuplicates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	deal := env.newDeal(b, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive...)
	env.advance(deal, models.StageInvoiceReceived, models.StageCompleted)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}

func TestAttributionSkipsNonQualifyingStage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.partners.add(nil, "Root")
	deal := env.newDeal(root, models.ProductCardPayments, 1000)
	env.advance(deal, models.StageQuoteRequestReceived, models.StageQuoteSent)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestPolicyGapBlocksOnlyThatLevel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	c := env.partners.add(&b, "C")

	env.policies.remove(models.ProductTelecoms, 2)

	deal := env.newDeal(c, models.ProductTelecoms, 1000)
	env.advance(deal, pathToLive...)

	levels, err := env.commissions.ExistingLevels(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 3: true}, levels)
}

func TestFlatRatePolicy(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.partners.add(nil, "Root")
	env.policies.put(models.CommissionPolicy{
		ProductType: models.ProductInsurance,
		Level:       1,
		Basis:       models.BasisFlat,
		FlatAmount:  500,
	})

	deal := env.newDeal(root, models.ProductInsurance, 99999)
	env.advance(deal, pathToLive...)

	records, err := env.commissions.ByPartner(ctx, root)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.BasisFlat, records[0].Basis)
	assert.InDelta(t, 500.0, records[0].Amount, 0.001, "flat amount ignores deal size")
}

func TestAttributionAbortsOnCycle(t *testing.T) {
	env := newTestEnv()

	a := env.partners.add(nil, "A")
	b := env.partners.add(&a, "B")
	env.partners.setParent(a, b)

	deal := env.newDeal(b, models.ProductCardPayments, 1000)
	env.advance(deal, pathToLive[:len(pathToLive)-1]...)

	_, _, err := env.dealService.TransitionDeal(context.Background(), deal.ID, models.StageLiveConfirmLTR, models.RoleAdmin)
	var cycle *CycleDetectedError
	require.ErrorAs(t, err, &cycle)

	levels, lerr := env.commissions.ExistingLevels(context.Background(), deal.ID)
	require.NoError(t, lerr)
	assert.Empty(t, levels, "no partial attribution on integrity failure")
}

func TestAttributionUnknownOwnerFails(t *testing.T) {
	env := newTestEnv()
	deal := &models.Deal{
		ID:             primitive.NewObjectID(),
		OwnerPartnerID: primitive.NewObjectID(),
		ProductType:    models.ProductCardPayments,
		TotalAmount:    100,
	}
	event := &models.StageTransitionEvent{DealID: deal.ID, ToStage: models.StageLiveConfirmLTR}

	_, err := env.attribution.Attribute(context.Background(), deal, event)
	require.ErrorIs(t, err, ErrPartnerNotFound)
}
