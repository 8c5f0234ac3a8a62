package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	RetrievalLatency    metric.Float64Histogram
	PassagesReturned    metric.Int64Counter
	EmergencyQueries    metric.Int64Counter
	ProviderFallbacks   metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	StoreOperations     metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("caregiver-compass")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"model.tokens.used",
		metric.WithDescription("Total model tokens used"),
	)
	if err != nil {
		return nil, err
	}

	retrievalLatency, err := meter.Float64Histogram(
		"retrieval.duration",
		metric.WithDescription("Knowledge base retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	passagesReturned, err := meter.Int64Counter(
		"retrieval.passages.returned",
		metric.WithDescription("Total passages returned by retrieval"),
	)
	if err != nil {
		return nil, err
	}

	emergencyQueries, err := meter.Int64Counter(
		"classify.emergency.total",
		metric.WithDescription("Queries classified as emergencies"),
	)
	if err != nil {
		return nil, err
	}

	providerFallbacks, err := meter.Int64Counter(
		"model.fallbacks.total",
		metric.WithDescription("Provider fallback occurrences"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	storeOperations, err := meter.Int64Counter(
		"store.operations.total",
		metric.WithDescription("Total semantic store operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		RetrievalLatency:    retrievalLatency,
		PassagesReturned:    passagesReturned,
		EmergencyQueries:    emergencyQueries,
		ProviderFallbacks:   providerFallbacks,
		CircuitBreakerState: circuitBreakerState,
		StoreOperations:     storeOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records model token usage
func (m *Metrics) RecordTokensUsed(tokens int64, provider, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("model.provider", provider),
		attribute.String("model.name", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordRetrieval records one retrieval round trip
func (m *Metrics) RecordRetrieval(duration float64, passages int, category string) {
	attrs := []attribute.KeyValue{
		attribute.String("query.category", category),
	}

	m.RetrievalLatency.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	m.PassagesReturned.Add(context.Background(), int64(passages), metric.WithAttributes(attrs...))
}

// RecordEmergency records an emergency classification
func (m *Metrics) RecordEmergency(category string) {
	attrs := []attribute.KeyValue{
		attribute.String("query.category", category),
	}

	m.EmergencyQueries.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordFallback records a provider fallback hop
func (m *Metrics) RecordFallback(from, to string) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.from", from),
		attribute.String("provider.to", to),
	}

	m.ProviderFallbacks.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordStoreOperation records semantic store operation metrics
func (m *Metrics) RecordStoreOperation(operation, collection string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("store.operation", operation),
		attribute.String("store.collection", collection),
		attribute.Bool("store.success", success),
	}

	m.StoreOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
