// Package app assembles the full biocopilot stack from configuration:
// session, pathway library, capability registry, proposal store, audit
// journal, and the gateway over them.
package app

import (
	"context"
	"fmt"

	"github.com/bioviz-local/biocopilot/internal/analysis"
	"github.com/bioviz-local/biocopilot/internal/audit"
	"github.com/bioviz-local/biocopilot/internal/biotools"
	"github.com/bioviz-local/biocopilot/internal/capability"
	"github.com/bioviz-local/biocopilot/internal/config"
	"github.com/bioviz-local/biocopilot/internal/gateway"
	"github.com/bioviz-local/biocopilot/internal/llm"
	"github.com/bioviz-local/biocopilot/internal/model"
	"github.com/bioviz-local/biocopilot/internal/pathway"
	"github.com/bioviz-local/biocopilot/internal/proposal"
)

// App is the assembled gateway stack.
type App struct {
	Config    *config.Config
	Session   *analysis.Session
	Library   *pathway.Library
	Registry  *capability.Registry
	Proposals *proposal.Store
	Gateway   *gateway.Gateway
	Journal   *audit.Log
}

// New loads configuration from cfgPath (empty means the default location)
// and builds the stack. The LLM endpoint is not contacted here; chat-side
// callers create a client with NewLLM when they need one.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the stack from an already-loaded configuration.
func NewWithConfig(cfg *config.Config) (*App, error) {
	session := analysis.NewSession()

	library := pathway.Builtin()
	if cfg.TemplatesDir != "" {
		if err := library.LoadDir(cfg.TemplatesDir); err != nil {
			return nil, err
		}
	}

	overrides := make(map[string]model.RiskLevel, len(cfg.RiskOverrides))
	for name, level := range cfg.RiskOverrides {
		overrides[name] = model.RiskLevel(level)
	}

	var narrator biotools.Narrator
	if client, err := llm.New(llmConfig(cfg)); err == nil {
		narrator = client
	}

	registry := capability.NewRegistry()
	err := biotools.RegisterAll(registry, biotools.Deps{
		Session:       session,
		Library:       library,
		Narrator:      narrator,
		RiskOverrides: overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("register capabilities: %w", err)
	}

	var journal *audit.Log
	if cfg.AuditLog != "" {
		journal, err = audit.Open(cfg.AuditLog)
		if err != nil {
			return nil, err
		}
	}

	store := proposal.NewStore(cfg.ProposalTTL.Std())
	gw := gateway.New(registry, store, gateway.Options{
		Audit:       journal,
		ExecTimeout: cfg.ExecTimeout.Std(),
		Ambient:     session.Ambient,
	})

	return &App{
		Config:    cfg,
		Session:   session,
		Library:   library,
		Registry:  registry,
		Proposals: store,
		Gateway:   gw,
		Journal:   journal,
	}, nil
}

// NewLLM creates the chat completions client from the loaded config.
func (a *App) NewLLM() (*llm.Client, error) {
	return llm.New(llmConfig(a.Config))
}

// NewClientFromConfig creates a chat completions client from an arbitrary
// config, used when the config file is hot-reloaded.
func NewClientFromConfig(cfg *config.Config) (*llm.Client, error) {
	return llm.New(llmConfig(cfg))
}

// StartSweeper runs the proposal expiry sweeper until ctx is cancelled.
func (a *App) StartSweeper(ctx context.Context) {
	go a.Proposals.RunSweeper(ctx, a.Config.SweepInterval.Std())
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}

func llmConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		Provider:  cfg.LLM.Provider,
		APIURL:    cfg.LLM.APIURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout.Std(),
	}
}
