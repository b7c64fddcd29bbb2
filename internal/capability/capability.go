package capability

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/bioviz-local/biocopilot/internal/model"
)

// Handler executes a capability with validated arguments. Errors returned
// here are converted to typed failures at the dispatch boundary; handlers
// should not panic, but a panic is also contained there.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Capability is a named, schema-described operation the gateway can
// authorize. Records are immutable after registration.
type Capability struct {
	// Name is the unique registry key. Lookup is case-sensitive exact match.
	Name string

	// Label is the human-readable name used in proposal cards and summaries.
	Label string

	// Description is handed to the model collaborator in the tool schema.
	Description string

	// Risk decides whether the capability runs immediately or is deferred.
	Risk model.RiskLevel

	// Params describes the accepted arguments. Arguments are validated
	// against it before the handler runs.
	Params *jsonschema.Schema

	// ContextKeys names the parameters the dispatcher may fill from ambient
	// context when the caller left them blank. Every key must name a Params
	// property; this is checked at registration, not at call time.
	ContextKeys []string

	// Handler performs the operation.
	Handler Handler

	// Summarize turns a successful result into a one-line user-facing
	// summary. Optional; a generic summary is used when nil.
	Summarize func(result any) string

	// ConfirmReason explains why this invocation needs confirmation,
	// given the requested arguments. Only consulted for confirm risk.
	// Optional; a generic reason is used when nil.
	ConfirmReason func(args map[string]any) string
}

// Summary returns the one-line summary for a successful result.
func (c *Capability) Summary(result any) string {
	if c.Summarize != nil {
		return c.Summarize(result)
	}
	return "Executed " + c.Label + " successfully."
}

// Reason returns the confirmation reason for the requested arguments.
func (c *Capability) Reason(args map[string]any) string {
	if c.ConfirmReason != nil {
		return c.ConfirmReason(args)
	}
	return "This action may modify your data or settings."
}
