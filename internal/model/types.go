package model

// RiskLevel classifies how a capability may be executed.
type RiskLevel string

const (
	// RiskAuto capabilities are read-only or otherwise non-destructive and
	// run immediately when the model requests them.
	RiskAuto RiskLevel = "auto"
	// RiskConfirm capabilities change user-visible state and are deferred
	// until a human confirms the proposal.
	RiskConfirm RiskLevel = "confirm"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskAuto || r == RiskConfirm
}

// ActionRequest is the model collaborator's output for one decision cycle.
// Capability may be empty (pure chat) or name something that was never
// registered; RawArgs may be malformed. The gateway trusts neither.
type ActionRequest struct {
	Capability string `json:"capability,omitempty"`
	RawArgs    string `json:"raw_args,omitempty"`
	Text       string `json:"text,omitempty"`

	// ExtraCalls counts tool calls beyond the first in the same model
	// response. Only the first is honored; the rest are dropped.
	ExtraCalls int `json:"extra_calls,omitempty"`
}

// HasCall reports whether the request carries a capability invocation.
func (r ActionRequest) HasCall() bool {
	return r.Capability != ""
}

// DecisionKind discriminates the three decision shapes.
type DecisionKind string

const (
	KindChat     DecisionKind = "chat"
	KindExecuted DecisionKind = "executed"
	KindProposed DecisionKind = "proposed"
)

// Decision is the gateway's classified output for one inbound request.
type Decision struct {
	Kind DecisionKind `json:"kind"`

	// Text is the user-facing message: chat content, execution summary,
	// or the proposal card text.
	Text string `json:"text"`

	// Set for Executed and Proposed.
	Capability string         `json:"capability,omitempty"`
	Args       map[string]any `json:"args,omitempty"`

	// Set for Executed only.
	Result any `json:"result,omitempty"`

	// Set for Proposed only.
	ProposalID string `json:"proposal_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Chat builds a text-only decision. No capability was invoked.
func Chat(text string) Decision {
	return Decision{Kind: KindChat, Text: text}
}

// Executed builds a decision for a capability that already ran.
func Executed(capability string, args map[string]any, result any, summary string) Decision {
	return Decision{
		Kind:       KindExecuted,
		Text:       summary,
		Capability: capability,
		Args:       args,
		Result:     result,
	}
}

// Proposed builds a decision for a deferred capability awaiting confirmation.
// The text matches the proposal card phrasing shown to the user.
func Proposed(proposalID, capability, label string, args map[string]any, reason string) Decision {
	return Decision{
		Kind:       KindProposed,
		Text:       "I'd like to " + label + ". " + reason,
		Capability: capability,
		Args:       args,
		ProposalID: proposalID,
		Reason:     reason,
	}
}
