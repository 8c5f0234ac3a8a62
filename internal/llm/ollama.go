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

// OllamaProvider calls a local Ollama server. Used as the last-resort
// fallback so a fully offline deployment still produces answers.
type OllamaProvider struct {
	baseURL string
	model   string
	httpCli *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		httpCli: &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
	EvalCount  int    `json:"eval_count"`
}

func (o *OllamaProvider) Complete(ctx context.Context, p prompt.Prompt, opts Options) (Completion, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		System: p.System,
		Prompt: p.User,
		Stream: false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpCli.Do(req)
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Transient: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, &ProviderError{
			Provider:  o.Name(),
			Transient: transientStatus(resp.StatusCode),
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200)),
		}
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}
	if parsed.Response == "" {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: fmt.Errorf("empty completion")}
	}

	return Completion{
		Text:         parsed.Response,
		TokensUsed:   parsed.EvalCount,
		FinishReason: parsed.DoneReason,
	}, nil
}
