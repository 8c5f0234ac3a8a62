package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/prompt"
)

// Result is one successful orchestration outcome: the normalized completion
// plus which backend produced it and whether any fallback hop occurred.
type Result struct {
	Completion Completion
	Provider   string
	FellBack   bool
}

// Orchestrator dispatches a composed prompt across the configured backends.
// Per request: SELECT_PROVIDER, DISPATCH, then RETRY once with backoff on a
// transient failure, then FALLBACK down the priority order. A caller-pinned
// provider is never substituted: its failure surfaces as
// ErrPinnedProviderFailed.
type Orchestrator struct {
	providers map[string]Provider
	order     []string
	defaultP  string
	backoff   time.Duration
}

func NewOrchestrator(providers []Provider, order []string, defaultProvider string, backoff time.Duration) *Orchestrator {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	// Keep only configured backends in the fallback chain.
	var chain []string
	for _, name := range order {
		if _, ok := byName[name]; ok {
			chain = append(chain, name)
		}
	}

	if _, ok := byName[defaultProvider]; !ok && len(chain) > 0 {
		defaultProvider = chain[0]
	}

	return &Orchestrator{
		providers: byName,
		order:     chain,
		defaultP:  defaultProvider,
		backoff:   backoff,
	}
}

// Providers lists the configured backend names in fallback order.
func (o *Orchestrator) Providers() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Complete runs the dispatch state machine. A non-empty hint pins that
// provider: it gets the same retry-once policy but no fallback.
func (o *Orchestrator) Complete(ctx context.Context, hint string, p prompt.Prompt, opts Options) (Result, error) {
	tracer := otel.Tracer("model-orchestrator")
	ctx, span := tracer.Start(ctx, "orchestrator.complete")
	defer span.End()

	if hint != "" {
		provider, ok := o.providers[hint]
		if !ok {
			span.SetAttributes(attribute.String("orchestrator.error", "unknown_provider"))
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, hint)
		}

		completion, err := o.dispatch(ctx, provider, p, opts)
		if err != nil {
			span.SetAttributes(attribute.String("orchestrator.error", "pinned_failed"))
			return Result{}, fmt.Errorf("%w: %s: %v", ErrPinnedProviderFailed, hint, err)
		}
		span.SetAttributes(attribute.String("orchestrator.provider", hint))
		return Result{Completion: completion, Provider: hint}, nil
	}

	chain := o.chainFrom(o.defaultP)
	if len(chain) == 0 {
		return Result{}, ErrAllProvidersFailed
	}

	var lastErr error
	for i, name := range chain {
		provider := o.providers[name]
		completion, err := o.dispatch(ctx, provider, p, opts)
		if err == nil {
			span.SetAttributes(
				attribute.String("orchestrator.provider", name),
				attribute.Bool("orchestrator.fell_back", i > 0),
			)
			return Result{Completion: completion, Provider: name, FellBack: i > 0}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i < len(chain)-1 {
			logger.Warn("Provider failed, falling back", "from", name, "to", chain[i+1], "error", err)
		}
	}

	span.SetAttributes(attribute.String("orchestrator.error", "exhausted"))
	return Result{}, fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
}

// dispatch sends the prompt to one backend, retrying once with backoff on a
// transient failure.
func (o *Orchestrator) dispatch(ctx context.Context, provider Provider, p prompt.Prompt, opts Options) (Completion, error) {
	completion, err := provider.Complete(ctx, p, opts)
	if err == nil {
		return completion, nil
	}
	if !IsTransient(err) || ctx.Err() != nil {
		return Completion{}, err
	}

	logger.Debug("Transient provider failure, retrying", "provider", provider.Name(), "error", err)

	select {
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	case <-time.After(o.backoff):
	}

	return provider.Complete(ctx, p, opts)
}

// chainFrom orders the fallback chain starting with the preferred backend.
func (o *Orchestrator) chainFrom(first string) []string {
	chain := make([]string, 0, len(o.order))
	if _, ok := o.providers[first]; ok {
		chain = append(chain, first)
	}
	for _, name := range o.order {
		if name != first {
			chain = append(chain, name)
		}
	}
	return chain
}
