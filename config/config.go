package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort         string
	ServerHost         string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Database configuration. When DBDriver is "sqlite", DBName is the
	// file path (":memory:" for tests) and the other DB fields are unused.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (optional; webhook rate limiting only)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Single implicit user per deployment
	UserID string

	// Local timezone for day boundaries and month-to-date windows
	TZName string

	// Nutrition goals
	CaloriesMax int
	ProteinMin  int

	// Fasting goal in hours
	FastGoalHours int

	// Facts scheduler
	FactsDefaultHour int

	// Medication safety
	MedMonthlyLimits  map[string]int
	MedNearLimitFrac  float64
	MedInteractionHrs int
	MedFuzzyThreshold float64

	// Nutritionix credentials
	NutritionixAppID  string
	NutritionixAppKey string
	NutritionixURL    string
	NutritionTimeout  time.Duration

	// Twilio credentials
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	GatewayTimeout   time.Duration

	// Optional AWS Secrets Manager secret names; when set they overlay
	// the Nutritionix and Twilio credentials at startup.
	NutritionSecretName string
	TwilioSecretName    string
}

// LoadConfig creates a new Config instance from environment variables,
// loading a .env file first when one is present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerHost:         getEnv("SERVER_HOST", "0.0.0.0"),
		CORSAllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "healthtext"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "healthtext"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisURL:      os.Getenv("REDIS_URL"),

		UserID: getEnv("USER_ID", "me"),
		TZName: getEnv("TZ_NAME", "America/New_York"),

		CaloriesMax:   getEnvInt("CALORIES_MAX", 1800),
		ProteinMin:    getEnvInt("PROTEIN_MIN", 190),
		FastGoalHours: getEnvInt("FAST_GOAL_HOURS", 16),

		FactsDefaultHour: getEnvInt("FACTS_DEFAULT_HOUR", 9),

		MedMonthlyLimits: map[string]int{
			"triptan":               getEnvInt("MED_LIMIT_TRIPTAN", 9),
			"ergot":                 getEnvInt("MED_LIMIT_ERGOT", 9),
			"combination-analgesic": getEnvInt("MED_LIMIT_COMBINATION", 9),
			"simple-analgesic":      getEnvInt("MED_LIMIT_SIMPLE", 14),
		},
		MedNearLimitFrac:  getEnvFloat("MED_NEAR_LIMIT_FRAC", 0.75),
		MedInteractionHrs: getEnvInt("MED_INTERACTION_HOURS", 24),
		MedFuzzyThreshold: getEnvFloat("MED_FUZZY_THRESHOLD", 0.85),

		NutritionixAppID:  os.Getenv("NUTRITIONIX_APP_ID"),
		NutritionixAppKey: os.Getenv("NUTRITIONIX_APP_KEY"),
		NutritionixURL:    getEnv("NUTRITIONIX_URL", "https://trackapi.nutritionix.com/v2"),
		NutritionTimeout:  time.Duration(getEnvInt("NUTRITION_TIMEOUT_SECONDS", 12)) * time.Second,

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		GatewayTimeout:   time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,

		NutritionSecretName: os.Getenv("NUTRITION_SECRET_NAME"),
		TwilioSecretName:    os.Getenv("TWILIO_SECRET_NAME"),
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
