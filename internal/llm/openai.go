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

// OpenAIProvider calls the OpenAI chat completions API over plain HTTP.
type OpenAIProvider struct {
	apiKey  string
	apiURL  string
	model   string
	httpCli *http.Client
}

func NewOpenAIProvider(apiKey, apiURL, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		apiURL:  apiURL,
		model:   model,
		httpCli: &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAIProvider) Complete(ctx context.Context, p prompt.Prompt, opts Options) (Completion, error) {
	body, err := json.Marshal(openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewReader(body))
	if err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

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

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: err}
	}
	if parsed.Error != nil {
		return Completion{}, &ProviderError{
			Provider: o.Name(),
			Err:      fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return Completion{}, &ProviderError{Provider: o.Name(), Err: fmt.Errorf("empty completion")}
	}

	return Completion{
		Text:         parsed.Choices[0].Message.Content,
		TokensUsed:   parsed.Usage.TotalTokens,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}
