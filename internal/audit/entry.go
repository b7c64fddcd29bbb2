package audit

// Entry is one line in the decision journal. Every gateway outcome —
// decide, confirm, reject — is recorded, including refusals.
type Entry struct {
	Timestamp string `json:"ts"`

	// Op is the gateway entry point: "decide", "confirm", or "reject".
	Op string `json:"op"`

	// Outcome is the decision kind: "chat", "executed", or "proposed".
	Outcome string `json:"outcome"`

	Capability string `json:"capability,omitempty"`
	ProposalID string `json:"proposal_id,omitempty"`

	// Detail carries the user-facing text: summary, reason, or refusal.
	Detail string `json:"detail,omitempty"`

	// ExtraCalls counts model tool calls that were dropped because only
	// the first call in a response is honored.
	ExtraCalls int `json:"extra_calls,omitempty"`

	// PrevHash chains this entry to the previous line.
	PrevHash string `json:"prev_hash"`
}
