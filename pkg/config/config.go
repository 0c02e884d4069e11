package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store backend names accepted in KG_STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Record store
	StoreBackend string
	SQLitePath   string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// LLM (used by the kg-chat pipeline)
	LLMBaseURL string
	LLMAPIKey  string
	ModelID    string

	// Context formatting
	ContextMaxChars int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		StoreBackend:    getEnv("KG_STORE_BACKEND", BackendMemory),
		SQLitePath:      getEnv("KG_SQLITE_PATH", "kgraph.db"),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "password"),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		ModelID:         getEnv("MODEL_ID", "gpt-4o-mini"),
		ContextMaxChars: getEnvInt("KG_CONTEXT_MAX_CHARS", 4000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("KG_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required for the neo4j backend")
		}
		if c.Neo4jUser == "" {
			return fmt.Errorf("NEO4J_USER is required for the neo4j backend")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required for the neo4j backend")
		}
	default:
		return fmt.Errorf("unknown KG_STORE_BACKEND: %s", c.StoreBackend)
	}
	if c.ContextMaxChars <= 0 {
		return fmt.Errorf("KG_CONTEXT_MAX_CHARS must be positive")
	}
	// LLM settings are optional; the chat endpoint reports its own error
	// when no backend is reachable.
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
