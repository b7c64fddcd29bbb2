// Package llm talks to an OpenAI-compatible chat completions endpoint and
// turns tool-calling responses into action requests for the gateway.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bioviz-local/biocopilot/internal/capability"
	"github.com/bioviz-local/biocopilot/internal/model"
)

// Config holds connection parameters for the model endpoint.
type Config struct {
	Provider  string
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Provider presets for common local and hosted endpoints. A configured
// APIURL always wins.
var providerURLs = map[string]string{
	"openai":   "https://api.openai.com/v1/chat/completions",
	"deepseek": "https://api.deepseek.com/v1/chat/completions",
	"ollama":   "http://localhost:11434/v1/chat/completions",
	"lmstudio": "http://localhost:1234/v1/chat/completions",
}

// Resolve fills provider-derived defaults into the config.
func (c Config) Resolve() (Config, error) {
	if c.APIURL == "" {
		url, ok := providerURLs[strings.ToLower(c.Provider)]
		if !ok {
			return c, fmt.Errorf("llm: unknown provider %q and no api_url configured", c.Provider)
		}
		c.APIURL = url
	}
	if c.Model == "" {
		return c, fmt.Errorf("llm: model name is required")
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 900
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c, nil
}

// Message is one turn of the chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a chat completions client with tool calling.
type Client struct {
	cfg  Config
	http *http.Client
}

const systemPrompt = `You are BioCopilot, an assistant for local biological data analysis. You can call the provided tools to render pathways, compute statistics, run enrichment, adjust thresholds, and export data. Call at most one tool per response. Use only provided data, cite real statistics, and mark speculative content as 'Hypothesis (not validated)'.`

// New creates a client. The config must already resolve cleanly.
func New(cfg Config) (*Client, error) {
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:  resolved,
		http: &http.Client{Timeout: resolved.Timeout},
	}, nil
}

// Complete sends the transcript with the tool schemas and parses the reply
// into an action request. When the model emits several tool calls in one
// response, only the first is kept; the rest are counted as ExtraCalls.
func (c *Client) Complete(ctx context.Context, history []Message, tools []capability.Descriptor) (model.ActionRequest, error) {
	messages := make([]map[string]string, 0, len(history)+1)
	messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	for _, m := range history {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": 0.2,
	}
	if len(tools) > 0 {
		payload["tools"] = toolSchemas(tools)
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return model.ActionRequest{}, err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Choices) == 0 {
		return model.ActionRequest{}, fmt.Errorf("llm: empty completion response")
	}

	msg := result.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		first := msg.ToolCalls[0]
		return model.ActionRequest{
			Capability: first.Function.Name,
			RawArgs:    first.Function.Arguments,
			Text:       strings.TrimSpace(msg.Content),
			ExtraCalls: len(msg.ToolCalls) - 1,
		}, nil
	}
	return model.ActionRequest{Text: strings.TrimSpace(msg.Content)}, nil
}

// Narrate runs a single structured prompt without tools and returns the
// text reply. It satisfies the biotools narrator contract.
func (c *Client) Narrate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": 0.3,
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Choices) == 0 {
		return "", fmt.Errorf("llm: empty completion response")
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm: blank completion")
	}
	return content, nil
}

func (c *Client) post(ctx context.Context, payload map[string]any) ([]byte, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 200))
	}
	return respBody, nil
}

// toolSchemas converts registry descriptors to the OpenAI function format.
func toolSchemas(tools []capability.Descriptor) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
