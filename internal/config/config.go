package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env        string
	TerminalID string
	VenueName  string
	HTTPAddr   string

	DatabaseURL string

	CartServiceURL      string
	PaymentServiceURL   string
	FiscalServiceURL    string
	DirectoryServiceURL string
	ProbeURL            string

	JWTSecret        string
	JWTExpirySeconds int64

	RabbitMQURL string

	TableSlotCount int64

	NetProbeInterval     time.Duration
	RemoteTimeout        time.Duration
	ReconcileInterval    time.Duration
	WSStatusPushInterval time.Duration

	CorsAllowedOrigins []string

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	cfg := Config{
		Env:        getEnv("APP_ENV", "development"),
		TerminalID: getEnv("TERMINAL_ID", "till-1"),
		VenueName:  getEnv("VENUE_NAME", ""),
		HTTPAddr:   getEnv("HTTP_ADDR", "127.0.0.1:8091"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CartServiceURL:      getEnv("CART_SERVICE_URL", ""),
		PaymentServiceURL:   getEnv("PAYMENT_SERVICE_URL", ""),
		FiscalServiceURL:    getEnv("FISCAL_SERVICE_URL", ""),
		DirectoryServiceURL: getEnv("DIRECTORY_SERVICE_URL", ""),
		ProbeURL:            getEnv("PROBE_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTExpirySeconds: getEnvInt64("JWT_EXPIRY", 3600),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		TableSlotCount: getEnvInt64("TABLE_SLOT_COUNT", 24),

		// Probing stays coarse to bound bandwidth; submissions call ProbeNow themselves.
		NetProbeInterval:     getEnvDuration("NET_PROBE_INTERVAL", 2*time.Minute),
		RemoteTimeout:        getEnvDuration("REMOTE_TIMEOUT", 8*time.Second),
		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		WSStatusPushInterval: getEnvDuration("WS_STATUS_PUSH_INTERVAL", 10*time.Second),

		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),
		ObjectStoreStorageClass:    getEnv("OBJECT_STORE_STORAGE_CLASS", "STANDARD"),
	}

	if cfg.TableSlotCount <= 0 {
		cfg.TableSlotCount = 24
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 8 * time.Second
	}

	return cfg
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
