package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	RequestTimeout time.Duration

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Kafka configuration
	Kafka KafkaConfig

	// Scoring configuration
	Scoring ScoringConfig

	// Allocation configuration
	Allocation AllocationConfig

	// Classroom defaults
	Seats SeatsConfig

	// Event bus
	EventBufferSize int

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
	Enabled  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	Enabled  bool

	CacheTTL time.Duration
}

// KafkaConfig holds the event relay configuration. An empty broker list
// disables the relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ScoringConfig holds the composite score weights and time decay rate.
// Weights must sum to 1; the scoring engine rejects anything else at startup.
type ScoringConfig struct {
	Preset         string
	GPAWeight      float64
	InterestWeight float64
	TimeWeight     float64
	YearWeight     float64
	PrereqWeight   float64
	DecayLambda    float64
}

// AllocationConfig holds the batch allocation settings
type AllocationConfig struct {
	Strategy      string
	BatchInterval time.Duration
}

// SeatsConfig holds the default classroom grid dimensions
type SeatsConfig struct {
	DefaultRows        int
	DefaultSeatsPerRow int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	ApplyRequests   int           `json:"apply_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 5*time.Second),

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "coursely_db"),
			User:     getEnv("DB_USER", "coursely_user"),
			Password: getEnv("DB_PASSWORD", "coursely_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getBoolEnv("DB_ENABLED", true),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", true),

			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", 5*time.Second),
		},

		// Kafka relay configuration
		Kafka: KafkaConfig{
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{}),
			Topic:   getEnv("KAFKA_TOPIC", "registration-events"),
		},

		// Scoring configuration
		Scoring: ScoringConfig{
			Preset:         getEnv("SCORING_PRESET", ""),
			GPAWeight:      getFloatEnv("SCORING_GPA_WEIGHT", 0.35),
			InterestWeight: getFloatEnv("SCORING_INTEREST_WEIGHT", 0.30),
			TimeWeight:     getFloatEnv("SCORING_TIME_WEIGHT", 0.20),
			YearWeight:     getFloatEnv("SCORING_YEAR_WEIGHT", 0.10),
			PrereqWeight:   getFloatEnv("SCORING_PREREQ_WEIGHT", 0.05),
			DecayLambda:    getFloatEnv("TIME_DECAY_LAMBDA", 0),
		},

		// Allocation configuration
		Allocation: AllocationConfig{
			Strategy:      getEnv("ALLOCATION_STRATEGY", "balanced"),
			BatchInterval: getDurationEnv("ALLOCATION_BATCH_INTERVAL", 0),
		},

		// Classroom defaults
		Seats: SeatsConfig{
			DefaultRows:        getIntEnv("DEFAULT_ROWS", 5),
			DefaultSeatsPerRow: getIntEnv("DEFAULT_SEATS_PER_ROW", 6),
		},

		EventBufferSize: getIntEnv("EVENT_BUFFER_SIZE", 64),

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			ApplyRequests:   getIntEnv("RATE_LIMIT_APPLY_REQUESTS", 20),
			AdminRequests:   getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
