package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only suitable for local development: anyone who knows it
// can sign a session.
const DefaultJWTSecret = "dev-secret-change-me"

var ErrDefaultJWTSecret = errors.New("JWT_SECRET must be set when the live catalog is enabled")

type Config struct {
	HTTPPort        string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Live catalog. An empty MongoURI runs the storefront on the static catalog only.
	MongoURI     string
	MongoDBName  string
	ProbeTimeout time.Duration

	// Fallback catalog: URL wins over path when both are set.
	StaticCatalogURL  string
	StaticCatalogPath string

	// Cart persistence. An empty RedisAddr keeps the cart in memory.
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	KafkaBrokers []string
	ShopperID    string

	JWTSecret   string
	SessionTTL  time.Duration
	ShippingFee float64
	Locale      string
	Currency    string
}

// Load reads the environment, after merging an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDBName:       getEnv("MONGO_DB_NAME", "storefront"),
		ProbeTimeout:      getEnvDuration("PROBE_TIMEOUT", 5*time.Second),
		StaticCatalogURL:  getEnv("STATIC_CATALOG_URL", ""),
		StaticCatalogPath: getEnv("STATIC_CATALOG_PATH", "./assets/bd.json"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:       getEnv("REDIS_PREFIX", "storefront"),
		KafkaBrokers:      getEnvList("KAFKA_BROKERS"),
		ShopperID:         getEnv("SHOPPER_ID", "local"),
		JWTSecret:         getEnv("JWT_SECRET", DefaultJWTSecret),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		ShippingFee:       getEnvFloat("SHIPPING_FEE", 150),
		Locale:            getEnv("LOCALE", "es-MX"),
		Currency:          getEnv("CURRENCY", "MXN"),
	}
}

// UsesDefaultSecret reports whether sessions are signed with DefaultJWTSecret.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// Validate rejects the public default secret once sessions gate the live catalog.
func (c *Config) Validate() error {
	if c.MongoURI != "" && c.UsesDefaultSecret() {
		return ErrDefaultJWTSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return defaultValue
	}
	return f
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
