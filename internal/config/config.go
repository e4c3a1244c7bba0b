package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	CORSAllowedOrigins []string

	// Booking storage backend
	BookingStoreURL string
	UpstreamTimeout time.Duration

	// Payment provider endpoints
	PaymentAPIBaseURL  string
	PaymentKeyPath     string
	PaymentOrderPath   string
	PaymentCallbackURL string
	PaymentDryRun      bool

	// DemoBackend mounts local stand-ins for the storage and payment
	// endpoints under /demo. Development only.
	DemoBackend bool

	// Checkout overlay display
	CheckoutCurrency       string
	CheckoutName           string
	CheckoutDescription    string
	CheckoutImageURL       string
	CheckoutThemeColor     string
	CheckoutAddressNote    string
	CheckoutPrefillName    string
	CheckoutPrefillEmail   string
	CheckoutPrefillContact string

	// Form behaviour
	CouponRules    string
	FormResetDelay time.Duration
	SessionIdleTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	// Checkout ledger
	LedgerBackend string
	LedgerTTL     time.Duration
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	paymentBase := strings.TrimRight(getEnv("PAYMENT_API_BASE_URL", "http://localhost:10000"), "/")
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		BookingStoreURL: getEnv("BOOKING_STORE_URL", "http://localhost:10000/user-details-bookform"),
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		PaymentAPIBaseURL:  paymentBase,
		PaymentKeyPath:     getEnv("PAYMENT_KEY_PATH", "/api/getkey"),
		PaymentOrderPath:   getEnv("PAYMENT_ORDER_PATH", "/api/checkout"),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", paymentBase+"/api/paymentverification"),
		PaymentDryRun:      getEnvAsBool("PAYMENT_DRY_RUN", false),

		DemoBackend: getEnvAsBool("DEMO_BACKEND", false),

		CheckoutCurrency:       strings.ToUpper(getEnv("CHECKOUT_CURRENCY", "INR")),
		CheckoutName:           getEnv("CHECKOUT_NAME", "Snyllo Éstetica Appointment"),
		CheckoutDescription:    getEnv("CHECKOUT_DESCRIPTION", "Treatment booking"),
		CheckoutImageURL:       getEnv("CHECKOUT_IMAGE_URL", ""),
		CheckoutThemeColor:     getEnv("CHECKOUT_THEME_COLOR", "#121212"),
		CheckoutAddressNote:    getEnv("CHECKOUT_ADDRESS_NOTE", ""),
		CheckoutPrefillName:    getEnv("CHECKOUT_PREFILL_NAME", ""),
		CheckoutPrefillEmail:   getEnv("CHECKOUT_PREFILL_EMAIL", ""),
		CheckoutPrefillContact: getEnv("CHECKOUT_PREFILL_CONTACT", ""),

		CouponRules:    getEnv("COUPON_RULES", "SNYLLO25:25,SNYLLO40:40"),
		FormResetDelay: getEnvAsDuration("FORM_RESET_DELAY", 4*time.Second),
		SessionIdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),

		LedgerBackend: strings.ToLower(strings.TrimSpace(getEnv("LEDGER_BACKEND", "memory"))),
		LedgerTTL:     getEnvAsDuration("LEDGER_TTL", 30*24*time.Hour),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
