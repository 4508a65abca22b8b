package config

import (
	"errors"  // Validation errors
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For interval parsing

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For exact rate and threshold values
	"github.com/sirupsen/logrus"    // For reporting bad values
)

// Store backends
const (
	BackendMemory   = "memory"   // Process memory, lost on exit
	BackendRedis    = "redis"    // Single Redis key
	BackendMySQL    = "mysql"    // kv_entries table in MySQL
	BackendPostgres = "postgres" // kv_entries table in PostgreSQL
)

// devAdminPassword seeds the administrator outside production
const devAdminPassword = "Alperen1"

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name
	JWTSecret  string // JWT secret key
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number

	StoreBackend    string // memory, redis, mysql or postgres
	StoreKey        string // Key the ledger blob is stored under
	ConsistencyMode string // optimistic or overwrite
	WriteRetries    int    // Read-modify-write attempts on version conflicts

	EarnRate      decimal.Decimal // Amount credited per tick
	EarnInterval  time.Duration   // Time between ticks
	MinWithdrawal decimal.Decimal // Minimum balance that can be withdrawn

	DefaultLang string // Locale used on first start
	LocalesDir  string // Optional directory overriding the embedded locales

	AdminEmail    string // Seeded administrator email
	AdminUsername string // Seeded administrator username
	AdminPassword string // Seeded administrator password
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg := &Config{
		AppPort:    getEnv("APP_PORT", "8080"),     // Application port
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment
		LogLevel:   getEnv("LOG_LEVEL", "info"),    // Log level
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number

		StoreBackend:    getEnv("STORE_BACKEND", BackendMemory),   // Ledger persistence
		StoreKey:        getEnv("STORE_KEY", "earnBTCPerMinDB"),   // Ledger key
		ConsistencyMode: getEnv("CONSISTENCY_MODE", "optimistic"), // Conflict handling
		WriteRetries:    getEnvInt("WRITE_RETRIES", 5),            // Conflict retries

		EarnRate:      getEnvDecimal("EARN_RATE", "0.00000001"),     // Credit per tick
		EarnInterval:  getEnvDuration("EARN_INTERVAL", time.Second), // Tick interval
		MinWithdrawal: getEnvDecimal("MIN_WITHDRAWAL", "0.0001"),    // Withdrawal threshold

		DefaultLang: getEnv("DEFAULT_LANG", "en"), // Initial locale
		LocalesDir:  os.Getenv("LOCALES_DIR"),     // Locale override directory

		AdminEmail:    getEnv("ADMIN_EMAIL", "superadmin@example.com"), // Seeded admin email
		AdminUsername: getEnv("ADMIN_USERNAME", "superadmin"),          // Seeded admin username
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),                     // Seeded admin password
	}
	// Development builds seed a well-known administrator
	if cfg.AdminPassword == "" && !cfg.IsProd {
		cfg.AdminPassword = devAdminPassword
	}
	return cfg
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	// Production never falls back to a known admin credential
	if c.IsProd && c.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD must be set when IS_PROD=true")
	}
	return nil
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses an integer variable
func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration parses a Go duration such as "1s" or "500ms"
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logrus.WithField("key", key).Warn("invalid duration, using default")
		return fallback
	}
	return d
}

// getEnvDecimal parses a non-negative decimal
func getEnvDecimal(key, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		logrus.WithField("key", key).Warn("invalid decimal, using default")
		return decimal.RequireFromString(fallback)
	}
	return d
}
