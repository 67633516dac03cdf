package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string
	AppName  string

	// Database
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxIdleConns int
	DBMaxOpenConns int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT (admin endpoints)
	JWTSecret string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Email templates
	EmailTemplateDir      string
	EmailTemplateRegister string
	EmailTemplateVerify   string

	// SMS
	SMSEnabled   bool
	SMSProvider  string // "seven" | "clicksend"
	SMSFrom      string
	SevenAPIKey  string
	SevenBaseURL string

	// ClickSend
	ClickSendUsername string
	ClickSendAPIKey   string
	ClickSendBaseURL  string

	// Dispatch
	DispatchWorkers   int
	DispatchQueueSize int
	DispatchTimeout   time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitDuration time.Duration
}

func New() *Config {
	return &Config{
		// Server
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppName:  getEnv("APP_NAME", "Autossav"),

		// Database
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "verification"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBName:         getEnv("DB_NAME", "verification_db"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key"),

		// SMTP
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@autossav.com"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Autossav"),

		EmailTemplateDir:      getEnv("EMAIL_TEMPLATE_DIR", "templates"),
		EmailTemplateRegister: getEnv("EMAIL_TEMPLATE_REGISTER", "register_code.html"),
		EmailTemplateVerify:   getEnv("EMAIL_TEMPLATE_VERIFY", "verify_email_code.html"),

		// SMS
		SMSEnabled:   getEnvAsBool("SMS_ENABLED", true),
		SMSProvider:  getEnv("SMS_PROVIDER", "seven"),
		SMSFrom:      getEnv("SMS_FROM", "Autossav"),
		SevenAPIKey:  getEnv("SEVEN_API_KEY", ""),
		SevenBaseURL: getEnv("SEVEN_BASE_URL", "https://gateway.seven.io/api"),

		ClickSendUsername: getEnv("CLICKSEND_USERNAME", ""),
		ClickSendAPIKey:   getEnv("CLICKSEND_API_KEY", ""),
		ClickSendBaseURL:  getEnv("CLICKSEND_BASE_URL", "https://rest.clicksend.com/v3"),

		// Dispatch
		DispatchWorkers:   getEnvAsInt("DISPATCH_WORKERS", 4),
		DispatchQueueSize: getEnvAsInt("DISPATCH_QUEUE_SIZE", 256),
		DispatchTimeout:   getEnvAsDuration("DISPATCH_TIMEOUT", "30s"),

		// Rate limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),
	}
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}
