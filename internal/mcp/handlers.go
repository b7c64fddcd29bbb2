package mcp

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bioviz-local/biocopilot/internal/analysis"
	"github.com/bioviz-local/biocopilot/internal/model"
)

// --- Input/Output types ---

// RequestInput defines parameters for the bioviz_request tool.
type RequestInput struct {
	Capability string `json:"capability" jsonschema:"capability name to invoke"`
	Args       string `json:"args,omitempty" jsonschema:"capability arguments as a JSON object string"`
}

// DecisionOutput is the gateway decision shared by request and confirm.
type DecisionOutput struct {
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	Capability string `json:"capability,omitempty"`
	ProposalID string `json:"proposal_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Result     string `json:"result,omitempty"`
}

// ConfirmInput defines parameters for bioviz_confirm.
type ConfirmInput struct {
	ProposalID string `json:"proposal_id" jsonschema:"id of the proposal to confirm"`
}

// RejectInput defines parameters for bioviz_reject.
type RejectInput struct {
	ProposalID string `json:"proposal_id" jsonschema:"id of the proposal to reject"`
}

// PendingInput is empty — no parameters needed.
type PendingInput struct{}

// PendingOutput lists all pending proposals.
type PendingOutput struct {
	Proposals []PendingItem `json:"proposals"`
}

// PendingItem describes a single pending proposal.
type PendingItem struct {
	ID         string `json:"id"`
	Capability string `json:"capability"`
	Args       string `json:"args,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// CapabilitiesInput is empty — no parameters needed.
type CapabilitiesInput struct{}

// CapabilitiesOutput lists the registered capabilities.
type CapabilitiesOutput struct {
	Capabilities []CapabilityItem `json:"capabilities"`
}

// CapabilityItem describes one registered capability.
type CapabilityItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Risk        string `json:"risk"`
	Parameters  string `json:"parameters,omitempty"`
}

// LoadDataInput defines parameters for bioviz_load_data.
type LoadDataInput struct {
	Path string `json:"path" jsonschema:"path to a CSV file with gene, log2fc, and pvalue columns"`
}

// LoadDataOutput reports the loaded table size.
type LoadDataOutput struct {
	Rows        int `json:"rows"`
	Significant int `json:"significant"`
}

// --- Handlers ---

func (s *Server) handleRequest(ctx context.Context, req *mcpsdk.CallToolRequest, input RequestInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	d := s.app.Gateway.Decide(ctx, model.ActionRequest{
		Capability: input.Capability,
		RawArgs:    input.Args,
	})
	return toolResult(d), toOutput(d), nil
}

func (s *Server) handleConfirm(ctx context.Context, req *mcpsdk.CallToolRequest, input ConfirmInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	d := s.app.Gateway.Confirm(ctx, input.ProposalID)
	return toolResult(d), toOutput(d), nil
}

func (s *Server) handleReject(ctx context.Context, req *mcpsdk.CallToolRequest, input RejectInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	d := s.app.Gateway.Reject(input.ProposalID)
	return toolResult(d), toOutput(d), nil
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	pending := s.app.Gateway.Pending()
	out := PendingOutput{Proposals: make([]PendingItem, 0, len(pending))}
	for _, p := range pending {
		args, _ := json.Marshal(p.Args)
		out.Proposals = append(out.Proposals, PendingItem{
			ID:         p.ID,
			Capability: p.Capability,
			Args:       string(args),
			CreatedAt:  p.CreatedAt.Format("2006-01-02T15:04:05.000Z"),
		})
	}
	return nil, out, nil
}

func (s *Server) handleCapabilities(ctx context.Context, req *mcpsdk.CallToolRequest, input CapabilitiesInput) (*mcpsdk.CallToolResult, CapabilitiesOutput, error) {
	out := CapabilitiesOutput{}
	for _, desc := range s.app.Gateway.Descriptors() {
		item := CapabilityItem{
			Name:        desc.Name,
			Description: desc.Description,
			Risk:        riskOf(s, desc.Name),
		}
		if params, err := json.Marshal(desc.Parameters); err == nil {
			item.Parameters = string(params)
		}
		out.Capabilities = append(out.Capabilities, item)
	}
	return nil, out, nil
}

func (s *Server) handleLoadData(ctx context.Context, req *mcpsdk.CallToolRequest, input LoadDataInput) (*mcpsdk.CallToolResult, LoadDataOutput, error) {
	rows, err := analysis.LoadCSV(input.Path)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, LoadDataOutput{}, err
	}
	s.app.Session.Load(rows)
	return nil, LoadDataOutput{
		Rows:        len(rows),
		Significant: len(s.app.Session.SignificantGenes()),
	}, nil
}

// toolResult marks refused requests as errors so the calling agent sees
// them as failures rather than successful chat.
func toolResult(d model.Decision) *mcpsdk.CallToolResult {
	if d.Kind == model.KindChat && d.Capability != "" {
		return &mcpsdk.CallToolResult{IsError: true}
	}
	return nil
}

func toOutput(d model.Decision) DecisionOutput {
	out := DecisionOutput{
		Kind:       string(d.Kind),
		Text:       d.Text,
		Capability: d.Capability,
		ProposalID: d.ProposalID,
		Reason:     d.Reason,
	}
	if d.Result != nil {
		if raw, err := json.Marshal(d.Result); err == nil {
			out.Result = string(raw)
		}
	}
	return out
}

func riskOf(s *Server, name string) string {
	if c := s.app.Registry.Lookup(name); c != nil {
		return string(c.Risk)
	}
	return ""
}
