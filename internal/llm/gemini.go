package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/prompt"
	"caregiver-compass/internal/telemetry"
)

// GeminiProvider wraps the Google Generative AI SDK behind the Provider
// interface, with a circuit breaker and client-side rate limiting sized to
// the account tier.
type GeminiProvider struct {
	client       *genai.Client
	model        string
	timeout      time.Duration
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *tokenCounter
	limits       rateLimits
	metrics      *telemetry.Metrics // nil disables breaker state metrics
}

type tokenCounter struct {
	mu              sync.Mutex
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type rateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiProvider(apiKey, model, tier string, timeout time.Duration, metrics *telemetry.Metrics) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if metrics != nil {
				metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10+1)

	return &GeminiProvider{
		client:       client,
		model:        model,
		timeout:      timeout,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: &tokenCounter{},
		limits:       limits,
		metrics:      metrics,
	}, nil
}

func getRateLimits(tier string) rateLimits {
	switch tier {
	case "free":
		return rateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return rateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return rateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return rateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Complete(ctx context.Context, p prompt.Prompt, opts Options) (Completion, error) {
	tracer := otel.Tracer("gemini-provider")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	// The SDK carries no per-call timeout of its own; bound the dispatch
	// like the REST providers bound theirs.
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	estimated := estimateTokens(p.System, p.User)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimated),
		attribute.String("gemini.model", g.model),
	)

	if !g.tokenCounter.canConsume(estimated, 1, g.limits) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return Completion{}, &ProviderError{Provider: g.Name(), Transient: true,
			Err: errors.New("rate limit exceeded: wait before retry")}
	}

	if err := g.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return Completion{}, &ProviderError{Provider: g.Name(), Transient: true, Err: err}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.model)
		model.SetTemperature(opts.Temperature)
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}

		resp, err := model.GenerateContent(ctx, genai.Text(p.User))
		if err != nil {
			return nil, err
		}

		actual := extractTokenUsage(resp)
		g.tokenCounter.recordUsage(actual, 1)
		span.SetAttributes(attribute.Int("gemini.actual_tokens", actual))

		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return Completion{}, &ProviderError{Provider: g.Name(), Transient: true, Err: err}
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return Completion{}, &ProviderError{Provider: g.Name(), Transient: isTransientGenAI(err), Err: err}
	}

	resp := result.(*genai.GenerateContentResponse)
	text, finish := flattenResponse(resp)
	if text == "" {
		return Completion{}, &ProviderError{Provider: g.Name(), Transient: false,
			Err: errors.New("empty completion")}
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return Completion{Text: text, TokensUsed: extractTokenUsage(resp), FinishReason: finish}, nil
}

func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (tc *tokenCounter) canConsume(tokens, requests int, limits rateLimits) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}
	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	if tc.minuteRequests+requests > limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > limits.RPD {
		return false
	}

	return true
}

func (tc *tokenCounter) recordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// estimateTokens is a rough pre-flight estimate: 1 token ~ 4 characters.
func estimateTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	return total / 4
}

func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	text, _ := flattenResponse(resp)
	estimated := len(text) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

func flattenResponse(resp *genai.GenerateContentResponse) (string, string) {
	var text string
	var finish string
	for _, candidate := range resp.Candidates {
		finish = fmt.Sprint(candidate.FinishReason)
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text, finish
}

func isTransientGenAI(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "504", "deadline", "unavailable", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
