package config

import "os"

// Config collects every runtime knob from the environment, with defaults
// suitable for local development.
type Config struct {
	ServiceName string
	Env         string
	Addr        string

	// PublicBaseURL is where the payment provider sends the customer back and
	// where it posts webhooks.
	PublicBaseURL string
	Currency      string

	// Provider selects the configured payment provider by name.
	Provider      string
	MollieAPIKey  string
	MollieBaseURL string

	// OrderStore selects the storage backend: "memory" or "postgres".
	OrderStore  string
	DatabaseURL string

	// RedisAddr enables the redis-backed webhook dedup cache when set.
	RedisAddr string

	// AdminToken gates the admin endpoints; empty disables admin access.
	AdminToken string
}

func FromEnv() Config {
	return Config{
		ServiceName:   getenvDefault("SERVICE_NAME", "ministore"),
		Env:           getenvDefault("ENV", "dev"),
		Addr:          getenvDefault("ADDR", ":8080"),
		PublicBaseURL: getenvDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		Currency:      getenvDefault("CURRENCY", "EUR"),
		Provider:      getenvDefault("PAYMENT_PROVIDER", "mockpay"),
		MollieAPIKey:  os.Getenv("MOLLIE_API_KEY"),
		MollieBaseURL: getenvDefault("MOLLIE_BASE_URL", "https://api.mollie.com"),
		OrderStore:    getenvDefault("ORDER_STORE", "memory"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
