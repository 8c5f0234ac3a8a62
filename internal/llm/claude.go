package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"caregiver-compass/internal/prompt"
)

// ClaudeProvider calls the Anthropic Messages API over plain HTTP.
type ClaudeProvider struct {
	apiKey  string
	apiURL  string
	model   string
	httpCli *http.Client
}

func NewClaudeProvider(apiKey, apiURL, model string, timeout time.Duration) *ClaudeProvider {
	return &ClaudeProvider{
		apiKey:  apiKey,
		apiURL:  apiURL,
		model:   model,
		httpCli: &http.Client{Timeout: timeout},
	}
}

func (c *ClaudeProvider) Name() string {
	return "claude"
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Temp      float32         `json:"temperature"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ClaudeProvider) Complete(ctx context.Context, p prompt.Prompt, opts Options) (Completion, error) {
	body, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: opts.MaxTokens,
		System:    p.System,
		Messages:  []claudeMessage{{Role: "user", Content: p.User}},
		Temp:      opts.Temperature,
	})
	if err != nil {
		return Completion{}, &ProviderError{Provider: c.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return Completion{}, &ProviderError{Provider: c.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return Completion{}, &ProviderError{Provider: c.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &ProviderError{Provider: c.Name(), Transient: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, &ProviderError{
			Provider:  c.Name(),
			Transient: transientStatus(resp.StatusCode),
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200)),
		}
	}

	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &ProviderError{Provider: c.Name(), Err: err}
	}
	if parsed.Error != nil {
		return Completion{}, &ProviderError{
			Provider: c.Name(),
			Err:      fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message),
		}
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return Completion{}, &ProviderError{Provider: c.Name(), Err: fmt.Errorf("empty completion")}
	}

	return Completion{
		Text:         text,
		TokensUsed:   parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		FinishReason: parsed.StopReason,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
