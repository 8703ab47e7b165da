// services/fakes_test.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// In-memory store implementations used across the service tests.

type memPartnerStore struct {
	mu       sync.Mutex
	partners map[primitive.ObjectID]models.Partner
}

func newMemPartnerStore() *memPartnerStore {
	return &memPartnerStore{partners: map[primitive.ObjectID]models.Partner{}}
}

func (s *memPartnerStore) add(parent *primitive.ObjectID, name string) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	s.partners[id] = models.Partner{
		ID:              id,
		FullName:        name,
		ReferralCode:    "PTR-" + id.Hex()[:6],
		ParentPartnerID: parent,
	}
	return id
}

func (s *memPartnerStore) setParent(id, parent primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.partners[id]
	p.ParentPartnerID = &parent
	s.partners[id] = p
}

func (s *memPartnerStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, ErrPartnerNotFound
	}
	copied := p
	return &copied, nil
}

func (s *memPartnerStore) ChildrenOf(ctx context.Context, id primitive.ObjectID) ([]models.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	children := []models.Partner{}
	for _, p := range s.partners {
		if p.ParentPartnerID != nil && *p.ParentPartnerID == id {
			children = append(children, p)
		}
	}
	return children, nil
}

func (s *memPartnerStore) SetParentOnce(ctx context.Context, id, parentID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return false, ErrPartnerNotFound
	}
	if p.ParentPartnerID != nil {
		return false, nil
	}
	p.ParentPartnerID = &parentID
	s.partners[id] = p
	return true, nil
}

type memDealStore struct {
	mu     sync.Mutex
	deals  map[primitive.ObjectID]models.Deal
	events []models.StageTransitionEvent
}

func newMemDealStore() *memDealStore {
	return &memDealStore{deals: map[primitive.ObjectID]models.Deal{}}
}

func (s *memDealStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return nil, ErrDealNotFound
	}
	copied := d
	return &copied, nil
}

func (s *memDealStore) Create(ctx context.Context, deal *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[deal.ID] = *deal
	return nil
}

func (s *memDealStore) UpdateStageCAS(ctx context.Context, id primitive.ObjectID, from, to models.Stage, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok || d.Stage != from {
		return false, nil
	}
	d.Stage = to
	d.UpdatedAt = at
	s.deals[id] = d
	return true, nil
}

func (s *memDealStore) NextEventSeq(ctx context.Context, dealID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, e := range s.events {
		if e.DealID == dealID {
			count++
		}
	}
	return count + 1, nil
}

func (s *memDealStore) AppendEvent(ctx context.Context, event *models.StageTransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *memDealStore) EventsForDeal(ctx context.Context, dealID primitive.ObjectID) ([]models.StageTransitionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := []models.StageTransitionEvent{}
	for _, e := range s.events {
		if e.DealID == dealID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *memDealStore) ListByStage(ctx context.Context, stage models.Stage) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals := []models.Deal{}
	for _, d := range s.deals {
		if d.Stage == stage {
			deals = append(deals, d)
		}
	}
	return deals, nil
}

func (s *memDealStore) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deals := []models.Deal{}
	for _, d := range s.deals {
		if d.OwnerPartnerID == ownerID {
			deals = append(deals, d)
		}
	}
	return deals, nil
}

func (s *memDealStore) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	deals, _ := s.ListByOwner(ctx, ownerID)
	return int64(len(deals)), nil
}

type memCommissionStore struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]models.CommissionRecord
}

func newMemCommissionStore() *memCommissionStore {
	return &memCommissionStore{records: map[primitive.ObjectID]models.CommissionRecord{}}
}

func (s *memCommissionStore) ExistingLevels(ctx context.Context, dealID primitive.ObjectID) (map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	levels := map[int]bool{}
	for _, r := range s.records {
		if r.DealID == dealID && !r.Voided {
			levels[r.Level] = true
		}
	}
	return levels, nil
}

func (s *memCommissionStore) InsertMany(ctx context.Context, records []models.CommissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		for _, existing := range s.records {
			if existing.DealID == r.DealID && existing.Level == r.Level && !existing.Voided {
				return fmt.Errorf("duplicate commission record for deal %s level %d", r.DealID.Hex(), r.Level)
			}
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *memCommissionStore) ByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.CommissionRecord, error) {
	return s.filter(func(r models.CommissionRecord) bool { return r.BeneficiaryPartnerID == partnerID }), nil
}

func (s *memCommissionStore) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.CommissionRecord, error) {
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return s.filter(func(r models.CommissionRecord) bool { return want[r.ID] }), nil
}

func (s *memCommissionStore) ByInvoice(ctx context.Context, invoiceID primitive.ObjectID) ([]models.CommissionRecord, error) {
	return s.filter(func(r models.CommissionRecord) bool {
		return r.InvoiceID != nil && *r.InvoiceID == invoiceID
	}), nil
}

func (s *memCommissionStore) ListPayable(ctx context.Context) ([]models.CommissionRecord, error) {
	return s.filter(func(r models.CommissionRecord) bool {
		return r.Status == models.CommissionPayable && !r.Voided
	}), nil
}

func (s *memCommissionStore) MarkInvoiced(ctx context.Context, ids []primitive.ObjectID, invoiceID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moved int64
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok || r.Voided || r.Status != models.CommissionPayable {
			continue
		}
		r.Status = models.CommissionInvoiced
		r.InvoiceID = &invoiceID
		s.records[id] = r
		moved++
	}
	return moved, nil
}

func (s *memCommissionStore) MarkPaidByInvoice(ctx context.Context, invoiceID primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.InvoiceID != nil && *r.InvoiceID == invoiceID && r.Status == models.CommissionInvoiced && !r.Voided {
			r.Status = models.CommissionPaid
			paidAt := at
			r.PaidAt = &paidAt
			s.records[id] = r
		}
	}
	return nil
}

func (s *memCommissionStore) VoidPendingForDeal(ctx context.Context, dealID primitive.ObjectID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var voided int64
	for id, r := range s.records {
		if r.DealID == dealID && !r.Voided && r.Status != models.CommissionPaid {
			r.Voided = true
			voidedAt := at
			r.VoidedAt = &voidedAt
			s.records[id] = r
			voided++
		}
	}
	return voided, nil
}

func (s *memCommissionStore) filter(keep func(models.CommissionRecord) bool) []models.CommissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := []models.CommissionRecord{}
	for _, r := range s.records {
		if keep(r) {
			records = append(records, r)
		}
	}
	return records
}

type memPolicyStore struct {
	mu   sync.Mutex
	rows map[string]models.CommissionPolicy
}

func newMemPolicyStore() *memPolicyStore {
	store := &memPolicyStore{rows: map[string]models.CommissionPolicy{}}
	for _, policy := range models.DefaultCommissionPolicies() {
		store.put(policy)
	}
	return store
}

func policyKey(productType models.ProductType, level int) string {
	return fmt.Sprintf("%s/%d", productType, level)
}

func (s *memPolicyStore) put(policy models.CommissionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[policyKey(policy.ProductType, policy.Level)] = policy
}

func (s *memPolicyStore) remove(productType models.ProductType, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, policyKey(productType, level))
}

func (s *memPolicyStore) Get(ctx context.Context, productType models.ProductType, level int) (*models.CommissionPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.rows[policyKey(productType, level)]
	if !ok {
		return nil, nil
	}
	copied := policy
	return &copied, nil
}

type memInvoiceStore struct {
	mu       sync.Mutex
	invoices map[primitive.ObjectID]models.Invoice
}

func newMemInvoiceStore() *memInvoiceStore {
	return &memInvoiceStore{invoices: map[primitive.ObjectID]models.Invoice{}}
}

func (s *memInvoiceStore) Create(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = *invoice
	return nil
}

func (s *memInvoiceStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	copied := invoice
	return &copied, nil
}

func (s *memInvoiceStore) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	invoice.Status = models.InvoicePaid
	invoice.PaymentReference = paymentRef
	if notes != "" {
		invoice.Notes = notes
	}
	paidAt := at
	invoice.PaidAt = &paidAt
	s.invoices[id] = invoice
	return nil
}

// passthroughTxn satisfies TxnRunner without transactional semantics; the
// stores above are consistent enough for unit tests.
type passthroughTxn struct{}

func (passthroughTxn) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testEnv wires the full core against in-memory stores.
type testEnv struct {
	partners    *memPartnerStore
	deals       *memDealStore
	commissions *memCommissionStore
	policies    *memPolicyStore
	invoices    *memInvoiceStore

	graph       *ReferralGraph
	attribution *AttributionService
	dealService *DealService
	ledger      *LedgerService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		partners:    newMemPartnerStore(),
		deals:       newMemDealStore(),
		commissions: newMemCommissionStore(),
		policies:    newMemPolicyStore(),
		invoices:    newMemInvoiceStore(),
	}
	env.graph = NewReferralGraph(env.partners, env.deals)
	env.attribution = NewAttributionService(env.graph, env.commissions, env.policies)
	env.dealService = NewDealService(env.deals, env.commissions, env.attribution, passthroughTxn{})
	env.ledger = NewLedgerService(env.commissions, env.invoices, passthroughTxn{})
	return env
}

func (env *testEnv) newDeal(owner primitive.ObjectID, product models.ProductType, amount float64) *models.Deal {
	deal, err := env.dealService.CreateDeal(context.Background(), owner, &models.CreateDealRequest{
		BusinessName: "Acme Ltd",
		ContactName:  "Jo Bloggs",
		ProductType:  product,
		TotalAmount:  amount,
	})
	if err != nil {
		panic(err)
	}
	return deal
}

// advance walks a deal through the given stages as admin, failing the test
// helper hard on any rejection.
func (env *testEnv) advance(deal *models.Deal, stages ...models.Stage) {
	for _, stage := range stages {
		if _, _, err := env.dealService.TransitionDeal(context.Background(), deal.ID, stage, models.RoleAdmin); err != nil {
			panic(fmt.Sprintf("advance to %s: %v", stage, err))
		}
	}
}

// pathToLive is the full declared path from submitted up to live_confirm_ltr.
var pathToLive = []models.Stage{
	models.StageQuoteRequestReceived,
	models.StageQuoteSent,
	models.StageQuoteApproved,
	models.StageSignupSubmitted,
	models.StageAgreementSent,
	models.StageSignedAwaitingDocs,
	models.StageUnderReview,
	models.StageApproved,
	models.StageLiveConfirmLTR,
}
