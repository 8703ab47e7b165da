// models/stage.go
package models

// Stage is one discrete state in a deal's lifecycle. The set is closed;
// transitions are restricted to the successor sets declared in the registry.
type Stage string

const (
	StageSubmitted            Stage = "submitted"
	StageQuoteRequestReceived Stage = "quote_request_received"
	StageQuoteSent            Stage = "quote_sent"
	StageQuoteApproved        Stage = "quote_approved"
	StageSignupSubmitted      Stage = "signup_submitted"
	StageAgreementSent        Stage = "agreement_sent"
	StageSignedAwaitingDocs   Stage = "signed_awaiting_docs"
	StageUnderReview          Stage = "under_review"
	StageApproved             Stage = "approved"
	StageLiveConfirmLTR       Stage = "live_confirm_ltr"
	StageInvoiceReceived      Stage = "invoice_received"
	StageCompleted            Stage = "completed"
	StageDeclined             Stage = "declined"
)

// Role identifies who is acting on a deal. The core never reads the role from
// ambient session state; callers pass it explicitly.
type Role string

const (
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

// StageInfo holds the display metadata and the declared successor set for one stage.
type StageInfo struct {
	Stage       Stage   `json:"stage"`
	Order       int     `json:"order"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	AllowedNext []Stage `json:"allowedNext"`
	// Qualifying marks stages whose entry triggers commission attribution.
	Qualifying bool `json:"qualifying"`
	Terminal   bool `json:"terminal"`
}

// stageRegistry is the canonical stage catalogue. It is defined once and never
// mutated at runtime; every lookup in this file is a pure function over it.
var stageRegistry = map[Stage]StageInfo{
	StageSubmitted: {
		Stage: StageSubmitted, Order: 1, Label: "Submitted", Color: "#64748B",
		AllowedNext: []Stage{StageQuoteRequestReceived, StageDeclined},
	},
	StageQuoteRequestReceived: {
		Stage: StageQuoteRequestReceived, Order: 2, Label: "Quote Request Received", Color: "#0EA5E9",
		AllowedNext: []Stage{StageQuoteSent, StageDeclined},
	},
	StageQuoteSent: {
		Stage: StageQuoteSent, Order: 3, Label: "Quote Sent", Color: "#38BDF8",
		AllowedNext: []Stage{StageQuoteApproved, StageDeclined},
	},
	StageQuoteApproved: {
		Stage: StageQuoteApproved, Order: 4, Label: "Quote Approved", Color: "#2DD4BF",
		AllowedNext: []Stage{StageSignupSubmitted, StageDeclined},
	},
	StageSignupSubmitted: {
		Stage: StageSignupSubmitted, Order: 5, Label: "Signup Submitted", Color: "#818CF8",
		AllowedNext: []Stage{StageAgreementSent, StageDeclined},
	},
	StageAgreementSent: {
		Stage: StageAgreementSent, Order: 6, Label: "Agreement Sent", Color: "#A78BFA",
		AllowedNext: []Stage{StageSignedAwaitingDocs, StageDeclined},
	},
	StageSignedAwaitingDocs: {
		Stage: StageSignedAwaitingDocs, Order: 7, Label: "Signed - Awaiting Docs", Color: "#C084FC",
		AllowedNext: []Stage{StageUnderReview, StageDeclined},
	},
	StageUnderReview: {
		Stage: StageUnderReview, Order: 8, Label: "Under Review", Color: "#F59E0B",
		AllowedNext: []Stage{StageApproved, StageDeclined},
	},
	StageApproved: {
		Stage: StageApproved, Order: 9, Label: "Approved", Color: "#84CC16",
		AllowedNext: []Stage{StageLiveConfirmLTR, StageDeclined},
	},
	StageLiveConfirmLTR: {
		Stage: StageLiveConfirmLTR, Order: 10, Label: "Live - Confirm LTR", Color: "#22C55E",
		AllowedNext: []Stage{StageInvoiceReceived, StageCompleted, StageDeclined},
		Qualifying:  true,
	},
	StageInvoiceReceived: {
		Stage: StageInvoiceReceived, Order: 11, Label: "Invoice Received", Color: "#16A34A",
		AllowedNext: []Stage{StageCompleted, StageDeclined},
	},
	StageCompleted: {
		Stage: StageCompleted, Order: 12, Label: "Completed", Color: "#15803D",
		AllowedNext: []Stage{},
		Qualifying:  true,
		Terminal:    true,
	},
	StageDeclined: {
		Stage: StageDeclined, Order: 13, Label: "Declined", Color: "#EF4444",
		// Reopening is the only way out of declined.
		AllowedNext: []Stage{StageSubmitted},
		Terminal:    true,
	},
}

// IsValidStage reports whether s is in the registry.
func IsValidStage(s Stage) bool {
	_, ok := stageRegistry[s]
	return ok
}

// StageDetails returns the registry entry for a stage.
func StageDetails(s Stage) (StageInfo, bool) {
	info, ok := stageRegistry[s]
	return info, ok
}

// AllStages returns every stage ordered by its declared order.
func AllStages() []StageInfo {
	stages := make([]StageInfo, 0, len(stageRegistry))
	for order := 1; order <= len(stageRegistry); order++ {
		for _, info := range stageRegistry {
			if info.Order == order {
				stages = append(stages, info)
				break
			}
		}
	}
	return stages
}

// IsValidTransition reports whether to is in the declared successor set of from.
func IsValidTransition(from, to Stage) bool {
	info, ok := stageRegistry[from]
	if !ok {
		return false
	}
	for _, next := range info.AllowedNext {
		if next == to {
			return true
		}
	}
	return false
}

// IsQualifyingStage reports whether entering s triggers commission attribution.
func IsQualifyingStage(s Stage) bool {
	return stageRegistry[s].Qualifying
}

// IsTerminalStage reports whether s ends the lifecycle (declined remains
// reopenable back to submitted as the sole exception).
func IsTerminalStage(s Stage) bool {
	return stageRegistry[s].Terminal
}

// Action is one role-specific move available on a deal at its current stage.
type Action struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	TargetStage Stage  `json:"targetStage"`
}

// stageActions maps each stage to the actions each role may take there. Admin
// additionally gets a decline action at every non-terminal stage; that one is
// appended in ActionsFor rather than repeated in the table.
var stageActions = map[Stage]map[Role][]Action{
	StageSubmitted: {
		RoleAdmin:   {{Key: "confirm_quote_request", Label: "Confirm Quote Request", TargetStage: StageQuoteRequestReceived}},
		RolePartner: {{Key: "withdraw", Label: "Withdraw Deal", TargetStage: StageDeclined}},
	},
	StageQuoteRequestReceived: {
		RoleAdmin: {{Key: "generate_quote", Label: "Generate Quote", TargetStage: StageQuoteSent}},
	},
	StageQuoteSent: {
		RolePartner: {
			{Key: "approve_quote", Label: "Approve Quote", TargetStage: StageQuoteApproved},
			{Key: "reject_quote", Label: "Reject Quote", TargetStage: StageDeclined},
		},
	},
	StageQuoteApproved: {
		RolePartner: {{Key: "submit_signup", Label: "Submit Signup", TargetStage: StageSignupSubmitted}},
	},
	StageSignupSubmitted: {
		RoleAdmin: {{Key: "send_agreement", Label: "Send Agreement", TargetStage: StageAgreementSent}},
	},
	StageAgreementSent: {
		RoleAdmin: {{Key: "confirm_signed", Label: "Confirm Signed", TargetStage: StageSignedAwaitingDocs}},
	},
	StageSignedAwaitingDocs: {
		RoleAdmin: {{Key: "start_review", Label: "Start Review", TargetStage: StageUnderReview}},
	},
	StageUnderReview: {
		RoleAdmin: {{Key: "approve_deal", Label: "Approve Deal", TargetStage: StageApproved}},
	},
	StageApproved: {
		RoleAdmin: {{Key: "confirm_live", Label: "Confirm Live / LTR", TargetStage: StageLiveConfirmLTR}},
	},
	StageLiveConfirmLTR: {
		RoleAdmin: {
			{Key: "record_invoice", Label: "Record Invoice", TargetStage: StageInvoiceReceived},
			{Key: "complete_deal", Label: "Complete Deal", TargetStage: StageCompleted},
		},
	},
	StageInvoiceReceived: {
		RoleAdmin: {{Key: "complete_deal", Label: "Complete Deal", TargetStage: StageCompleted}},
	},
	StageDeclined: {
		RoleAdmin: {{Key: "reopen_deal", Label: "Reopen Deal", TargetStage: StageSubmitted}},
	},
}

// ActionsFor returns the actions role may take on a deal at stage. Pure lookup,
// no side effects.
func ActionsFor(stage Stage, role Role) []Action {
	actions := []Action{}
	if roleActions, ok := stageActions[stage]; ok {
		actions = append(actions, roleActions[role]...)
	}
	if role == RoleAdmin && !IsTerminalStage(stage) {
		actions = append(actions, Action{Key: "decline_deal", Label: "Decline Deal", TargetStage: StageDeclined})
	}
	return actions
}

// CanTransition reports whether role is permitted to move a deal from one stage
// to another. Admins may perform any declared transition; partners only the
// ones their action set at the current stage exposes.
func CanTransition(from, to Stage, role Role) bool {
	if !IsValidTransition(from, to) {
		return false
	}
	if role == RoleAdmin {
		return true
	}
	for _, action := range ActionsFor(from, role) {
		if action.TargetStage == to {
			return true
		}
	}
	return false
}
