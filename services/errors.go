// services/errors.go
package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

var (
	// ErrTransitionConflict is returned when a concurrent transition won the
	// race for the same fromStage. The losing caller must re-read and decide;
	// the core never retries on its own.
	ErrTransitionConflict = errors.New("deal was modified concurrently; transition not applied")

	// ErrRoleNotPermitted is returned when the transition is declared in the
	// stage registry but the acting role may not perform it.
	ErrRoleNotPermitted = errors.New("acting role is not permitted to perform this transition")

	// ErrInvalidLedgerState is returned when a ledger move is attempted from a
	// non-eligible commission or invoice status.
	ErrInvalidLedgerState = errors.New("record is not in an eligible status for this ledger transition")

	// ErrParentAlreadySet is returned on an attempt to re-parent a partner.
	// Sponsor links are written once, at recruitment, and never change.
	ErrParentAlreadySet = errors.New("partner already has a sponsor; re-parenting is not allowed")

	// ErrRecruitCycle is returned when linking a partner under a sponsor
	// would close a loop in the referral graph, e.g. a partner redeeming the
	// referral code of someone in its own downline.
	ErrRecruitCycle = errors.New("linking under this sponsor would create a referral cycle")

	ErrDealNotFound       = errors.New("deal not found")
	ErrPartnerNotFound    = errors.New("partner not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrCommissionNotFound = errors.New("commission record not found")
)

// InvalidTransitionError reports a stage change outside the declared
// successor set, with enough detail for the caller to explain the rejection.
type InvalidTransitionError struct {
	From models.Stage
	To   models.Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: deal in stage %q cannot move to %q", e.From, e.To)
}

// CycleDetectedError is a referral-graph integrity fault: a partner was
// revisited while walking its own sponsor chain. It aborts attribution and
// must be surfaced as a data alert, never retried blindly.
type CycleDetectedError struct {
	PartnerID primitive.ObjectID
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("referral graph cycle detected at partner %s", e.PartnerID.Hex())
}

// PolicyNotFoundError reports a missing commission rate row. It blocks
// attribution for the affected level only; other levels proceed.
type PolicyNotFoundError struct {
	ProductType models.ProductType
	Level       int
}

func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("no commission policy for product %q at level %d", e.ProductType, e.Level)
}
