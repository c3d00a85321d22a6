package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "your-super-secret-jwt-key-change-in-production"

type Config struct {
	// Server Configuration
	Port        string
	Environment string
	LogLevel    string

	// Database Configuration
	MongoURI       string
	DBName         string
	MetadataDriver string

	// Blob Storage Configuration
	BlobBackend     string
	UploadPath      string
	GridFSBucket    string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Prefix        string
	MaxUploadSize   int64
	AllowedExtTypes []string

	// Lifecycle Configuration
	DefaultTTLHours   int
	MaxTTLHours       int
	BcryptCost        int
	SweepSchedule     string
	ReadRetryAttempts int
	HideUnavailable   bool

	// JWT Configuration
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Security Configuration
	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRPM       int
	RateLimitBurst     int

	// Application Configuration
	AppName    string
	AppVersion string
}

// Load reads an optional .env file and then builds the configuration from
// the environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return LoadConfig(), nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		// Server Configuration
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database Configuration
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:         getEnv("DB_NAME", "secure_share"),
		MetadataDriver: getEnv("METADATA_DRIVER", "mongo"),

		// Blob Storage Configuration
		BlobBackend:   getEnv("BLOB_BACKEND", "gridfs"),
		UploadPath:    getEnv("UPLOAD_PATH", "./uploads"),
		GridFSBucket:  getEnv("GRIDFS_BUCKET", "blobs"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", ""),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		S3Prefix:      getEnv("S3_PREFIX", "files/"),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 104857600), // 100MB
		AllowedExtTypes: getEnvAsSlice("ALLOWED_EXTENSIONS", []string{
			"txt", "pdf", "png", "jpg", "jpeg", "gif",
			"doc", "docx", "xls", "xlsx", "ppt", "pptx",
			"zip", "rar", "7z",
			"mp4", "mp3", "avi", "mov", "wmv", "csv",
		}),

		// Lifecycle Configuration
		DefaultTTLHours:   getEnvAsInt("DEFAULT_TTL_HOURS", 24),
		MaxTTLHours:       getEnvAsInt("MAX_TTL_HOURS", 720),
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@every 1h"),
		ReadRetryAttempts: getEnvAsInt("READ_RETRY_ATTEMPTS", 3),
		HideUnavailable:   getEnvAsBool("HIDE_UNAVAILABLE_REASONS", false),

		// JWT Configuration
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		AccessTokenTTL: getEnvAsDuration("ACCESS_TOKEN_TTL", "24h"),

		// Security Configuration
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://localhost:8080",
		}),
		RateLimitEnabled: getEnvAsBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvAsInt("RATE_LIMIT_RPM", 120),
		RateLimitBurst:   getEnvAsInt("RATE_LIMIT_BURST", 30),

		// Application Configuration
		AppName:    getEnv("APP_NAME", "SecureShare"),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	if parsed, err := time.ParseDuration(defaultValue); err == nil {
		return parsed
	}
	return 24 * time.Hour // fallback
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetServerAddress returns the server address for listening
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// ValidateConfig validates the configuration
func (c *Config) ValidateConfig() error {
	if c.MongoURI == "" && (c.MetadataDriver == "mongo" || c.BlobBackend == "gridfs") {
		return errors.New("MONGO_URI environment variable is required")
	}

	if c.JWTSecret == defaultJWTSecret && c.IsProduction() {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	switch c.MetadataDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown METADATA_DRIVER %q", c.MetadataDriver)
	}

	switch c.BlobBackend {
	case "gridfs", "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	if len(c.AllowedExtTypes) == 0 {
		return errors.New("ALLOWED_EXTENSIONS must not be empty")
	}
	if c.DefaultTTLHours < 0 || c.MaxTTLHours < c.DefaultTTLHours {
		return errors.New("DEFAULT_TTL_HOURS must be between 0 and MAX_TTL_HOURS")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if c.ReadRetryAttempts < 1 {
		return errors.New("READ_RETRY_ATTEMPTS must be at least 1")
	}
	if c.RateLimitEnabled && (c.RateLimitRPM <= 0 || c.RateLimitBurst <= 0) {
		return errors.New("RATE_LIMIT_RPM and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
