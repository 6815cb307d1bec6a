// Package config reads process configuration from the environment. There
// is no config file or flags layer — the reference backend reads env vars
// directly at wiring time rather than pulling in a config library, and
// this follows the same house style.
package config

import (
	"os"
	"strconv"
)

// Config holds every environment-driven setting the process needs, plus a
// few settings the engine itself never consumes (auth introspection) so
// that this is the single place an operator configures every collaborator.
type Config struct {
	MongoURI      string
	MongoDatabase string

	Port    string
	BaseURL string

	CacheTTLSeconds        int
	OpenAPICacheTTLSeconds int

	DefaultBlockTimeoutSeconds int
	DefaultFlowTimeoutSeconds  int

	LogQueueCapacity int

	// Not consumed by the engine; declared so deployment tooling has one
	// source of truth for every collaborator's settings.
	AuthIntrospectURL   string
	AuthIntrospectToken string
}

// Load reads Config from the environment, applying defaults for local
// development.
func Load() Config {
	return Config{
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "codeblock_bff"),

		Port:    getenv("PORT", "3003"),
		BaseURL: getenv("BASE_URL", "http://localhost:3003"),

		CacheTTLSeconds:        getenvInt("CACHE_TTL_SECONDS", 300),
		OpenAPICacheTTLSeconds: getenvInt("OPENAPI_CACHE_TTL_SECONDS", 600),

		DefaultBlockTimeoutSeconds: getenvInt("DEFAULT_BLOCK_TIMEOUT_SECONDS", 30),
		DefaultFlowTimeoutSeconds:  getenvInt("DEFAULT_FLOW_TIMEOUT_SECONDS", 60),

		LogQueueCapacity: getenvInt("LOG_QUEUE_CAPACITY", 256),

		AuthIntrospectURL:   getenv("AUTH_INTROSPECT_URL", ""),
		AuthIntrospectToken: getenv("AUTH_INTROSPECT_TOKEN", ""),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
