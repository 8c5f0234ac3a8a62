package models

import "time"

// Turn is one prior exchange supplied by the host application. The pipeline
// treats history as opaque prompt material; nothing is stored between requests.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Query is the ephemeral input to the assistant.
type Query struct {
	Text         string `json:"text"`
	ProviderHint string `json:"provider_hint,omitempty"`
	AdvancedMode bool   `json:"advanced_mode,omitempty"`
	PriorTurns   []Turn `json:"prior_turns,omitempty"`
}

// ClassifiedQuery is the classifier's structured view of one query.
// Produced per request, never persisted.
type ClassifiedQuery struct {
	NormalizedText string  `json:"normalized_text"`
	IsEmergency    bool    `json:"is_emergency"`
	Category       string  `json:"category,omitempty"` // empty = general / out of scope
	Confidence     float64 `json:"confidence"`
	RegionHint     bool    `json:"region_hint"`
}

// RankedPassage is a retrieved Document plus its computed ranking signals.
// Exists only for the duration of one request.
type RankedPassage struct {
	Document   Document `json:"document"`
	Collection string   `json:"collection"`
	Distance   float64  `json:"distance"`
	Score      float64  `json:"score"`
	Rank       int      `json:"rank"`
}

// Citation attributes one claim source in an Answer.
type Citation struct {
	SourceName string    `json:"source_name"`
	TrustTier  TrustTier `json:"trust_tier"`
}

// AnswerDiagnostics carries optional provider metadata. Callers must never
// depend on these fields being set.
type AnswerDiagnostics struct {
	TokensUsed   int    `json:"tokens_used,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	FellBack     bool   `json:"fell_back,omitempty"`
	Cached       bool   `json:"cached,omitempty"`
}

// Answer is the assistant's structured result. Every pipeline outcome,
// including failures, is expressed as a well-formed Answer.
type Answer struct {
	Text        string            `json:"text"`
	Citations   []Citation        `json:"citations"`
	IsEmergency bool              `json:"is_emergency"`
	Confidence  float64           `json:"confidence"`
	ModelUsed   string            `json:"model_used,omitempty"` // empty when no provider produced the text
	Category    string            `json:"category,omitempty"`
	Degraded    bool              `json:"degraded,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Diagnostics AnswerDiagnostics `json:"diagnostics,omitempty"`
}
