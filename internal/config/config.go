// Package config loads process configuration from the environment.
// Provider credentials are env-sourced secrets, never hard-coded.
package config

import "os"

// Config carries everything cmd/server needs to wire the payment core.
type Config struct {
	Port string

	StripeAPIKey    string
	StripeAPIURL    string // optional override, e.g. a sandbox or test server
	BraintreeAPIKey string
	BraintreeAPIURL string
	PayPalAPIKey    string
	PayPalAPIURL    string

	RedisAddr     string // empty means the in-memory idempotency store
	RedisPassword string
}

// Load reads configuration from environment variables, applying defaults
// where a value is optional.
func Load() Config {
	return Config{
		Port:            getenv("PORT", "8080"),
		StripeAPIKey:    os.Getenv("STRIPE_API_KEY"),
		StripeAPIURL:    os.Getenv("STRIPE_API_URL"),
		BraintreeAPIKey: os.Getenv("BRAINTREE_API_KEY"),
		BraintreeAPIURL: os.Getenv("BRAINTREE_API_URL"),
		PayPalAPIKey:    os.Getenv("PAYPAL_API_KEY"),
		PayPalAPIURL:    os.Getenv("PAYPAL_API_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
