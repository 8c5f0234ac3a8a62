package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins []string

	// Redis (answer cache + ingestion queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Provider credentials and models
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTier      string
	AnthropicAPIKey string
	ClaudeModel     string
	ClaudeAPIURL    string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIAPIURL    string
	OllamaBaseURL   string
	OllamaModel     string

	// Orchestration
	DefaultProvider string
	ProviderOrder   []string
	ProviderTimeout time.Duration
	RetryBackoff    time.Duration
	Temperature     float32
	MaxOutputTokens int
	AdvancedTokens  int

	// Embeddings
	EmbeddingsProvider    string // "google" (default), "local"
	GoogleEmbeddingsModel string
	VectorDim             int
	EmbedTimeout          time.Duration

	// Retrieval
	StoreTimeout     time.Duration
	PerCollectionK   int
	MaxPassages      int
	MaxPerSource     int
	TrustWeightAuth  float64
	TrustWeightCur   float64
	TrustWeightRaw   float64
	RegionBoost      float64
	CategoryBonus    float64
	EmergencyBoost   float64
	CategoryCutoff   float64 // classifier relevance threshold
	DeclineThreshold float64 // below this with no context, decline as out of scope

	// Classifier tables (yaml); empty = compiled-in defaults
	ClassifierTables string

	// Answer cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Per-IP request rate limiting
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// Ingestion
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int
	SourceDir    string

	// Stats snapshot schedule
	StatsInterval time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/caregiver_compass"),
		DBName:   getEnv("DB_NAME", "caregiver_compass"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ClaudeAPIURL:    getEnv("CLAUDE_API_URL", "https://api.anthropic.com/v1/messages"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIAPIURL:    getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3"),

		DefaultProvider: getEnv("DEFAULT_MODEL_PROVIDER", "claude"),
		ProviderOrder:   strings.Split(getEnv("PROVIDER_FALLBACK_ORDER", "claude,openai,gemini,ollama"), ","),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 45*time.Second),
		RetryBackoff:    getEnvDuration("PROVIDER_RETRY_BACKOFF", 2*time.Second),
		Temperature:     float32(getEnvFloat64("MODEL_TEMPERATURE", 0.3)),
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 2048),
		AdvancedTokens:  getEnvInt("ADVANCED_OUTPUT_TOKENS", 3072),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDim:             getEnvInt("VECTOR_DIM", 384),
		EmbedTimeout:          getEnvDuration("EMBED_TIMEOUT", 15*time.Second),

		StoreTimeout:     getEnvDuration("STORE_TIMEOUT", 10*time.Second),
		PerCollectionK:   getEnvInt("PER_COLLECTION_K", 4),
		MaxPassages:      getEnvInt("MAX_PASSAGES", 5),
		MaxPerSource:     getEnvInt("MAX_PER_SOURCE", 2),
		TrustWeightAuth:  getEnvFloat64("TRUST_WEIGHT_AUTHORITATIVE", 1.0),
		TrustWeightCur:   getEnvFloat64("TRUST_WEIGHT_CURATED", 0.6),
		TrustWeightRaw:   getEnvFloat64("TRUST_WEIGHT_RAW", 0.3),
		RegionBoost:      getEnvFloat64("REGION_BOOST", 2.0),
		CategoryBonus:    getEnvFloat64("CATEGORY_BONUS", 0.5),
		EmergencyBoost:   getEnvFloat64("EMERGENCY_BOOST", 1.5),
		CategoryCutoff:   getEnvFloat64("CATEGORY_THRESHOLD", 0.5),
		DeclineThreshold: getEnvFloat64("DECLINE_THRESHOLD", 0.35),

		ClassifierTables: getEnv("CLASSIFIER_TABLES", ""),

		CacheEnabled: getEnvBool("ANSWER_CACHE_ENABLED", false),
		CacheTTL:     getEnvDuration("ANSWER_CACHE_TTL", 30*time.Minute),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1200),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 300),
		SourceDir:    getEnv("SOURCE_DIR", "./data"),

		StatsInterval: getEnvDuration("STATS_INTERVAL", time.Hour),
	}

	for i := range cfg.ProviderOrder {
		cfg.ProviderOrder[i] = strings.TrimSpace(cfg.ProviderOrder[i])
	}

	if cfg.PerCollectionK < 1 {
		return nil, fmt.Errorf("PER_COLLECTION_K must be at least 1")
	}
	if cfg.MaxPassages < 1 {
		return nil, fmt.Errorf("MAX_PASSAGES must be at least 1")
	}
	if cfg.MaxPerSource < 1 {
		return nil, fmt.Errorf("MAX_PER_SOURCE must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
