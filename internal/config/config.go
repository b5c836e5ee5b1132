package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CASEGRAPH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CASEGRAPH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// LLMProvider returns the configured relation-classifier provider.
// Defaults to "openai" if not set. Valid values: openai, anthropic, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set. Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LinkSimilarityThreshold is the minimum cosine similarity for a node to be
// considered a classification candidate. Defaults to 0.82.
func LinkSimilarityThreshold() float32 {
	return envFloat32("LINK_SIMILARITY_THRESHOLD", 0.82)
}

// LinkMinConfidence is the minimum classifier confidence for an edge to be
// persisted. Defaults to 0.70.
func LinkMinConfidence() float32 {
	return envFloat32("LINK_MIN_CONFIDENCE", 0.70)
}

// WarmSimilarityThreshold is the warm-tier cosine cutoff. Defaults to 0.6.
func WarmSimilarityThreshold() float32 {
	return envFloat32("WARM_SIMILARITY_THRESHOLD", 0.6)
}

// CascadeMaxDepth bounds status propagation per triggering call.
// Defaults to 3.
func CascadeMaxDepth() int {
	d, err := strconv.Atoi(os.Getenv("CASCADE_MAX_DEPTH"))
	if err != nil || d <= 0 {
		return 3
	}
	return d
}

// ExternalCallTimeout is applied to every embedding and classification call.
// Defaults to 15s.
func ExternalCallTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("EXTERNAL_CALL_TIMEOUT"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// PlanSyncURL is the webhook for the downstream plan recalculation hook.
// Empty disables the hook.
func PlanSyncURL() string {
	return os.Getenv("PLAN_SYNC_URL")
}

// GroundingSyncURL is the webhook for the downstream grounding
// recalculation hook. Empty disables the hook.
func GroundingSyncURL() string {
	return os.Getenv("GROUNDING_SYNC_URL")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func envFloat32(key string, fallback float32) float32 {
	v, err := strconv.ParseFloat(os.Getenv(key), 32)
	if err != nil || v <= 0 || v > 1 {
		return fallback
	}
	return float32(v)
}
