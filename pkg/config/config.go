package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Vector Index persistence (MySQL-backed dish embedding store)
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// OpenAI client settings (chat completion + embeddings)
	OpenAIAPIKey                string
	OpenAITimeout               time.Duration
	OpenAIModel                 string
	OpenAITemperature           float64
	OpenAIMaxTokens             int
	OpenAIRequestTimeoutSeconds int
	EmbeddingModel              string

	Port string

	// Classification tuning
	ConfidenceThreshold      float64 // §6: default 0.70
	VectorIndexTopK          int     // §4.5: default 5
	CoordinatorWorkerBudget  int     // bounded cross-item concurrency
	RouteNonVegLowConfidence bool    // §9 open question, MUST default true

	// Vector Index seed data
	VectorIndexSeedPath string // bundled JSON seed file (§6)

	// Keyword Engine dictionary overlay
	KeywordDictDir string // optional external override dir; empty = embedded only

	// Monitoring and logging settings
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Environment & profiling/metrics
	Env            string // development, staging, production
	MetricsEnabled bool
	MetricsPort    string
	MetricsPath    string

	// Prompt templates overrides
	PromptDir string // path to external templates dir; empty = use embedded only

	// Config hot-reload (YAML overlay, §6)
	ConfigFile                  string
	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))
	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))

	enableFileLogging, _ := strconv.ParseBool(getEnv("ENABLE_FILE_LOGGING", "false"))

	env := strings.ToLower(getEnv("ENV", "development"))
	metricsDefault := env == "development" || env == "staging"
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(metricsDefault)))

	openAIModel := getEnv("OPENAI_MODEL", "gpt-4o-mini")
	openAITemp, _ := strconv.ParseFloat(getEnv("OPENAI_TEMPERATURE", "0.1"), 64)
	openAIMaxTokens, _ := strconv.Atoi(getEnv("OPENAI_MAX_TOKENS", "200"))
	openAIReqTimeoutSec, _ := strconv.Atoi(getEnv("OPENAI_REQUEST_TIMEOUT_SECONDS", "20"))
	embeddingModel := getEnv("EMBEDDING_MODEL", "text-embedding-3-small")

	confidenceThreshold, _ := strconv.ParseFloat(getEnv("CONFIDENCE_THRESHOLD", "0.70"), 64)
	vectorTopK, _ := strconv.Atoi(getEnv("VECTOR_INDEX_TOP_K", "5"))
	workerBudget, _ := strconv.Atoi(getEnv("COORDINATOR_WORKER_BUDGET", "4"))
	routeNonVeg, _ := strconv.ParseBool(getEnv("ROUTE_NON_VEG_LOW_CONFIDENCE", "true"))

	promptDir := getEnv("PROMPT_DIR", "")
	keywordDictDir := getEnv("KEYWORD_DICT_DIR", "")

	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "5"))

	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		OpenAIAPIKey:                getEnv("OPENAI_API_KEY", ""),
		OpenAITimeout:               time.Duration(openAIReqTimeoutSec) * time.Second,
		OpenAIModel:                 openAIModel,
		OpenAITemperature:           openAITemp,
		OpenAIMaxTokens:             openAIMaxTokens,
		OpenAIRequestTimeoutSeconds: openAIReqTimeoutSec,
		EmbeddingModel:              embeddingModel,

		Port: getEnv("PORT", "8080"),

		ConfidenceThreshold:      confidenceThreshold,
		VectorIndexTopK:          vectorTopK,
		CoordinatorWorkerBudget:  workerBudget,
		RouteNonVegLowConfidence: routeNonVeg,

		VectorIndexSeedPath: getEnv("VECTOR_INDEX_SEED_PATH", "./seed/vegetarian_dishes.json"),
		KeywordDictDir:      keywordDictDir,

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/menuclassify/app.log"),
		EnableFileLogging: enableFileLogging,

		Env:            env,
		MetricsEnabled: metricsEnabled,
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		MetricsPath:    getEnv("METRICS_PATH", "/metrics"),

		PromptDir: promptDir,

		ConfigFile:                  getEnv("CONFIG_FILE", ""),
		ConfigReloadIntervalSeconds: reloadIntSec,
	}

	if cfg.ConfigFile != "" {
		if err := applyYAMLOverlay(cfg.ConfigFile, cfg); err != nil {
			log.Printf("config: yaml overlay %s not applied: %v", cfg.ConfigFile, err)
		}
	}

	log.Printf("config: confidence_threshold=%.2f vector_top_k=%d worker_budget=%d",
		cfg.ConfidenceThreshold, cfg.VectorIndexTopK, cfg.CoordinatorWorkerBudget)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
