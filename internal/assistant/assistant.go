package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"caregiver-compass/internal/cache"
	"caregiver-compass/internal/classify"
	"caregiver-compass/internal/llm"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/prompt"
	"caregiver-compass/internal/retrieve"
	"caregiver-compass/internal/telemetry"
	"caregiver-compass/models"
)

// Options are the completion knobs the assistant applies per request.
type Options struct {
	Temperature     float32
	MaxOutputTokens int
	AdvancedTokens  int
}

func DefaultAssistantOptions() Options {
	return Options{Temperature: 0.3, MaxOutputTokens: 2048, AdvancedTokens: 3072}
}

// Assistant wires the full pipeline: classify, retrieve, compose, complete.
// It is immutable after construction and safe for concurrent requests; all
// per-request state lives on the stack of AnswerQuery.
type Assistant struct {
	classifier   *classify.Classifier
	retriever    *retrieve.Retriever
	composer     *prompt.Composer
	orchestrator *llm.Orchestrator
	answerCache  *cache.AnswerCache // nil disables memoization
	metrics      *telemetry.Metrics // nil disables metrics
	opts         Options
}

func New(
	classifier *classify.Classifier,
	retriever *retrieve.Retriever,
	composer *prompt.Composer,
	orchestrator *llm.Orchestrator,
	answerCache *cache.AnswerCache,
	metrics *telemetry.Metrics,
	opts Options,
) *Assistant {
	if opts.MaxOutputTokens <= 0 {
		opts = DefaultAssistantOptions()
	}
	return &Assistant{
		classifier:   classifier,
		retriever:    retriever,
		composer:     composer,
		orchestrator: orchestrator,
		answerCache:  answerCache,
		metrics:      metrics,
		opts:         opts,
	}
}

// AnswerQuery is the single entry point. Every outcome, including every
// failure, is returned as a well-formed Answer; this method never returns
// an error to the caller.
func (a *Assistant) AnswerQuery(ctx context.Context, q models.Query) models.Answer {
	tracer := otel.Tracer("assistant")
	ctx, span := tracer.Start(ctx, "assistant.answer_query")
	defer span.End()

	if strings.TrimSpace(q.Text) == "" {
		span.SetAttributes(attribute.String("assistant.outcome", "input_error"))
		return clarificationAnswer()
	}

	classified := a.classifier.Classify(q.Text)
	span.SetAttributes(
		attribute.Bool("query.is_emergency", classified.IsEmergency),
		attribute.String("query.category", classified.Category),
	)
	if classified.IsEmergency {
		logger.Info("Emergency query detected", "category", classified.Category)
		if a.metrics != nil {
			a.metrics.RecordEmergency(classified.Category)
		}
	}

	retrievalStart := time.Now()
	passages, degraded, err := a.retriever.Retrieve(ctx, classified)
	if err != nil {
		// No query vector means no retrieval at all: service degraded.
		logger.Error("Retrieval failed hard", "error", err)
		span.SetAttributes(attribute.String("assistant.outcome", "service_degraded"))
		return failureAnswer(CodeServiceDegraded, degradedText, classified)
	}
	if a.metrics != nil {
		a.metrics.RecordRetrieval(time.Since(retrievalStart).Seconds(), len(passages), classified.Category)
	}
	span.SetAttributes(
		attribute.Int("retrieval.passages", len(passages)),
		attribute.Bool("retrieval.degraded", degraded),
	)

	cacheKey := cache.Key(classified.NormalizedText, q.ProviderHint, passageIDs(passages))
	if cached, ok := a.answerCache.Get(ctx, cacheKey); ok {
		span.SetAttributes(attribute.String("assistant.outcome", "cache_hit"))
		return cached
	}

	composed := a.composer.Compose(classified, passages, q.PriorTurns)

	maxTokens := a.opts.MaxOutputTokens
	if q.AdvancedMode {
		maxTokens = a.opts.AdvancedTokens
	}

	result, err := a.orchestrator.Complete(ctx, q.ProviderHint, composed, llm.Options{
		Temperature: a.opts.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return a.completionFailure(span, err, classified)
	}

	if result.FellBack && a.metrics != nil {
		a.metrics.RecordFallback("", result.Provider)
	}
	if a.metrics != nil {
		a.metrics.RecordTokensUsed(int64(result.Completion.TokensUsed), result.Provider, "")
	}

	answer := models.Answer{
		Text:        result.Completion.Text,
		Citations:   prompt.Citations(passages),
		IsEmergency: classified.IsEmergency,
		Confidence:  llm.Confidence(len(passages), avgScore(passages), result.FellBack),
		ModelUsed:   result.Provider,
		Category:    classified.Category,
		Degraded:    degraded,
		Timestamp:   time.Now().UTC(),
		Diagnostics: models.AnswerDiagnostics{
			TokensUsed:   result.Completion.TokensUsed,
			FinishReason: result.Completion.FinishReason,
			FellBack:     result.FellBack,
		},
	}

	a.answerCache.Set(ctx, cacheKey, answer)

	span.SetAttributes(attribute.String("assistant.outcome", "ok"))
	return answer
}

func (a *Assistant) completionFailure(span trace.Span, err error, classified models.ClassifiedQuery) models.Answer {
	switch {
	case errors.Is(err, llm.ErrUnknownProvider):
		span.SetAttributes(attribute.String("assistant.outcome", "unknown_provider"))
		return failureAnswer(CodeUnknownProvider,
			"The requested model backend is not configured. Please retry without a model selection.", classified)
	case errors.Is(err, llm.ErrPinnedProviderFailed):
		span.SetAttributes(attribute.String("assistant.outcome", "pinned_provider_error"))
		return failureAnswer(CodePinnedProviderError,
			"The model you selected is unavailable right now. Retry without a model selection to let me pick a working one.", classified)
	default:
		logger.Error("All providers exhausted", "error", err)
		span.SetAttributes(attribute.String("assistant.outcome", "all_providers_failed"))
		return failureAnswer(CodeAllProvidersFailed, exhaustedText, classified)
	}
}

func passageIDs(passages []models.RankedPassage) []string {
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		ids = append(ids, p.Document.ID)
	}
	return ids
}

func avgScore(passages []models.RankedPassage) float64 {
	if len(passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages {
		sum += p.Score
	}
	return sum / float64(len(passages))
}
