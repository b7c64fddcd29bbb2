// Package gateway classifies model output into chat, immediate execution,
// or a deferred proposal, and owns the confirm/reject flow. It is the only
// place where a capability handler is ever reached.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bioviz-local/biocopilot/internal/audit"
	"github.com/bioviz-local/biocopilot/internal/capability"
	"github.com/bioviz-local/biocopilot/internal/dispatch"
	"github.com/bioviz-local/biocopilot/internal/model"
	"github.com/bioviz-local/biocopilot/internal/proposal"
)

// Options configures optional gateway collaborators.
type Options struct {
	// Audit receives one entry per decision, confirmation, and rejection.
	// Nil disables journaling.
	Audit *audit.Log

	// ExecTimeout bounds each handler invocation. Zero means no deadline.
	ExecTimeout time.Duration

	// Ambient supplies the session context snapshot injected into blank
	// context parameters. Nil means no ambient injection.
	Ambient func() map[string]any
}

// Gateway mediates between the model collaborator and the capability
// handlers. It never trusts the model's output: capability names and raw
// argument JSON are validated before anything runs.
type Gateway struct {
	reg       *capability.Registry
	proposals *proposal.Store
	disp      *dispatch.Dispatcher
	opts      Options
}

// New creates a gateway over the given registry and proposal store.
func New(reg *capability.Registry, store *proposal.Store, opts Options) *Gateway {
	return &Gateway{
		reg:       reg,
		proposals: store,
		disp:      dispatch.NewDispatcher(reg),
		opts:      opts,
	}
}

// Decide classifies one model response. The outcome is exactly one of:
// chat (no call, or a refused call), executed (auto risk, ran to
// completion or failed in a contained way), or proposed (confirm risk,
// deferred until a human approves it).
func (g *Gateway) Decide(ctx context.Context, req model.ActionRequest) model.Decision {
	if !req.HasCall() {
		return g.record("decide", model.Chat(req.Text), req.ExtraCalls)
	}

	args, err := parseArgs(req.RawArgs)
	if err != nil {
		d := model.Chat(fmt.Sprintf("error parsing arguments for %s: %v", req.Capability, err))
		d.Capability = req.Capability
		return g.record("decide", d, req.ExtraCalls)
	}

	cap := g.reg.Lookup(req.Capability)
	if cap == nil {
		d := model.Chat("unknown capability: " + req.Capability)
		d.Capability = req.Capability
		return g.record("decide", d, req.ExtraCalls)
	}

	if cap.Risk == model.RiskConfirm {
		reason := cap.Reason(args)
		id := g.proposals.Create(cap.Name, args)
		return g.record("decide", model.Proposed(id, cap.Name, cap.Label, args, reason), req.ExtraCalls)
	}

	result, err := g.invoke(ctx, cap, args)
	if err != nil {
		d := model.Chat(fmt.Sprintf("error executing %s: %v", cap.Name, failureMessage(err)))
		d.Capability = cap.Name
		return g.record("decide", d, req.ExtraCalls)
	}
	return g.record("decide", model.Executed(cap.Name, args, result, cap.Summary(result)), req.ExtraCalls)
}

// Confirm executes the pending proposal with the given id. The proposal is
// removed before the handler runs, so concurrent confirmations of the same
// id execute at most once; every other caller sees "not found or expired".
func (g *Gateway) Confirm(ctx context.Context, id string) model.Decision {
	p, ok := g.proposals.Remove(id)
	if !ok {
		d := model.Chat("proposal not found or expired")
		d.ProposalID = id
		return g.record("confirm", d, 0)
	}

	cap := g.reg.Lookup(p.Capability)
	if cap == nil {
		// Registration is static, so this means the store outlived a
		// registry rebuild. Treat it as an execution failure.
		d := model.Chat("error executing confirmed proposal: capability " + p.Capability + " is no longer registered")
		d.ProposalID = id
		return g.record("confirm", d, 0)
	}

	result, err := g.invoke(ctx, cap, p.Args)
	if err != nil {
		d := model.Chat("error executing confirmed proposal: " + failureMessage(err))
		d.Capability = cap.Name
		d.ProposalID = id
		return g.record("confirm", d, 0)
	}

	d := model.Executed(cap.Name, p.Args, result, cap.Summary(result))
	d.ProposalID = id
	return g.record("confirm", d, 0)
}

// Reject discards the pending proposal with the given id without
// executing it.
func (g *Gateway) Reject(id string) model.Decision {
	p, ok := g.proposals.Remove(id)
	if !ok {
		d := model.Chat("proposal not found")
		d.ProposalID = id
		return g.record("reject", d, 0)
	}

	d := model.Chat("action cancelled: " + p.Capability)
	d.Capability = p.Capability
	d.ProposalID = id
	return g.record("reject", d, 0)
}

// Pending returns the proposals awaiting confirmation, newest first.
func (g *Gateway) Pending() []proposal.Proposal {
	return g.proposals.List()
}

// Descriptors returns the tool schemas for the model collaborator.
func (g *Gateway) Descriptors() []capability.Descriptor {
	return g.reg.Descriptors()
}

// Names returns registered capability names, optionally filtered by risk.
func (g *Gateway) Names(levels ...model.RiskLevel) []string {
	return g.reg.Names(levels...)
}

func (g *Gateway) invoke(ctx context.Context, cap *capability.Capability, args map[string]any) (any, error) {
	var ambient map[string]any
	if g.opts.Ambient != nil {
		ambient = g.opts.Ambient()
	}
	return g.disp.InvokeWithTimeout(ctx, g.opts.ExecTimeout, cap, args, ambient)
}

func (g *Gateway) record(op string, d model.Decision, extraCalls int) model.Decision {
	if g.opts.Audit == nil {
		return d
	}
	err := g.opts.Audit.Record(audit.Entry{
		Op:         op,
		Outcome:    string(d.Kind),
		Capability: d.Capability,
		ProposalID: d.ProposalID,
		Detail:     d.Text,
		ExtraCalls: extraCalls,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: audit record failed: %v\n", err)
	}
	return d
}

// parseArgs decodes the model's raw argument JSON. Empty input is an empty
// argument map, not an error.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON %q: %w", truncate(raw, 80), err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func failureMessage(err error) string {
	var herr *dispatch.HandlerError
	if errors.As(err, &herr) {
		return herr.Message
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
