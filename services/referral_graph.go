// services/referral_graph.go
package services

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// maxChainHops bounds any walk of the sponsor chain. A healthy network is a
// forest, so the bound is only ever hit on corrupt data.
const maxChainHops = 64

// ReferralGraph answers ancestor/descendant queries over the sponsor forest.
// Parent links are ids, never live pointers, and every traversal carries a
// cycle check; the data is never trusted to be acyclic.
type ReferralGraph struct {
	partners PartnerStore
	deals    DealStore
}

func NewReferralGraph(partners PartnerStore, deals DealStore) *ReferralGraph {
	return &ReferralGraph{partners: partners, deals: deals}
}

// AncestorsOf walks parentPartnerId upward from partnerID, stopping at
// maxDepth hops or at a root, whichever comes first. The returned list is
// ordered nearest-first (sponsor, then sponsor's sponsor) and never contains
// partnerID itself. A revisited partner is a data-integrity fault and fails
// with CycleDetectedError.
func (g *ReferralGraph) AncestorsOf(ctx context.Context, partnerID primitive.ObjectID, maxDepth int) ([]primitive.ObjectID, error) {
	if maxDepth > maxChainHops {
		maxDepth = maxChainHops
	}

	current, err := g.partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	visited := map[primitive.ObjectID]bool{partnerID: true}
	ancestors := make([]primitive.ObjectID, 0, maxDepth)

	for len(ancestors) < maxDepth {
		if current.ParentPartnerID == nil {
			break
		}
		parentID := *current.ParentPartnerID
		if visited[parentID] {
			return nil, &CycleDetectedError{PartnerID: parentID}
		}

		parent, err := g.partners.GetByID(ctx, parentID)
		if errors.Is(err, ErrPartnerNotFound) {
			// Dangling sponsor reference: traverse as if current were a root,
			// but flag it for data-quality follow-up.
			log.Printf("referral graph: partner %s has dangling parent %s", current.ID.Hex(), parentID.Hex())
			break
		}
		if err != nil {
			return nil, err
		}

		ancestors = append(ancestors, parentID)
		visited[parentID] = true
		current = parent
	}

	return ancestors, nil
}

// WouldCreateCycle reports whether linking partnerID under sponsorID would
// close a loop in the sponsor forest: the sponsor is the partner itself, or
// the partner already sits somewhere in the sponsor's own ancestor chain.
// Recruitment must consult this before writing the parent link; the link is
// immutable, so a cycle written once poisons attribution for the whole chain.
func (g *ReferralGraph) WouldCreateCycle(ctx context.Context, partnerID, sponsorID primitive.ObjectID) (bool, error) {
	if partnerID == sponsorID {
		return true, nil
	}
	ancestors, err := g.AncestorsOf(ctx, sponsorID, maxChainHops)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == partnerID {
			return true, nil
		}
	}
	return false, nil
}

// IsRoot reports whether a partner has no effective sponsor. A dangling
// parent reference counts as a root for traversal purposes.
func (g *ReferralGraph) IsRoot(ctx context.Context, partnerID primitive.ObjectID) (bool, error) {
	partner, err := g.partners.GetByID(ctx, partnerID)
	if err != nil {
		return false, err
	}
	if partner.ParentPartnerID == nil {
		return true, nil
	}
	_, err = g.partners.GetByID(ctx, *partner.ParentPartnerID)
	if errors.Is(err, ErrPartnerNotFound) {
		log.Printf("referral graph: partner %s has dangling parent %s", partnerID.Hex(), partner.ParentPartnerID.Hex())
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// DirectChildrenOf returns the partners directly sponsored by partnerID.
func (g *ReferralGraph) DirectChildrenOf(ctx context.Context, partnerID primitive.ObjectID) ([]models.Partner, error) {
	return g.partners.ChildrenOf(ctx, partnerID)
}

// BuildTree assembles the referral tree rooted at rootID with derived counts:
// directRecruits, totalDownline (all transitive descendants) and
// totalReferrals (deals owned by the subtree). Traversal is cycle-safe.
func (g *ReferralGraph) BuildTree(ctx context.Context, rootID primitive.ObjectID) (*models.ReferralTreeNode, error) {
	root, err := g.partners.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	visited := map[primitive.ObjectID]bool{}
	return g.buildSubtree(ctx, root, visited, 0)
}

func (g *ReferralGraph) buildSubtree(ctx context.Context, partner *models.Partner, visited map[primitive.ObjectID]bool, depth int) (*models.ReferralTreeNode, error) {
	if visited[partner.ID] {
		return nil, &CycleDetectedError{PartnerID: partner.ID}
	}
	if depth > maxChainHops {
		return nil, &CycleDetectedError{PartnerID: partner.ID}
	}
	visited[partner.ID] = true

	ownDeals, err := g.deals.CountByOwner(ctx, partner.ID)
	if err != nil {
		return nil, err
	}

	node := &models.ReferralTreeNode{
		ID:             partner.ID,
		FullName:       partner.FullName,
		ReferralCode:   partner.ReferralCode,
		TotalReferrals: int(ownDeals),
		Children:       []*models.ReferralTreeNode{},
	}

	children, err := g.partners.ChildrenOf(ctx, partner.ID)
	if err != nil {
		return nil, err
	}
	node.DirectRecruits = len(children)

	for i := range children {
		child, err := g.buildSubtree(ctx, &children[i], visited, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
		node.TotalDownline += child.TotalDownline + 1
		node.TotalReferrals += child.TotalReferrals
	}

	return node, nil
}
