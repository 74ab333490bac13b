// Package config provides configuration management for bunqsplit.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

// Config represents the application configuration.
type Config struct {
	Bunq      BunqConfig
	HistoryDB string
	Debug     bool
}

// BunqConfig represents bunq API configuration.
type BunqConfig struct {
	APIURL   string
	APIKey   string
	IBAN     string
	Sandbox  bool
	Currency string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	sandbox := os.Getenv("BUNQ_SANDBOX") == "true"

	apiURL := os.Getenv("BUNQ_API_URL")
	if apiURL == "" {
		if sandbox {
			apiURL = bunq.SandboxURL
		} else {
			apiURL = bunq.ProductionURL
		}
	}

	config := &Config{
		Bunq: BunqConfig{
			APIURL:   apiURL,
			APIKey:   os.Getenv("BUNQ_API_KEY"),
			IBAN:     os.Getenv("BUNQ_IBAN"),
			Sandbox:  sandbox,
			Currency: getEnvOrDefault("BUNQ_CURRENCY", "EUR"),
		},
		HistoryDB: getEnvOrDefault("BUNQ_HISTORY_DB", defaultHistoryPath()),
		Debug:     os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) == 0 {
			continue
		}

		var value string
		switch path[0] {
		case "bunq":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "apiKey":
				value = c.Bunq.APIKey
			case "apiUrl":
				value = c.Bunq.APIURL
			case "iban":
				value = c.Bunq.IBAN
			case "currency":
				value = c.Bunq.Currency
			}
		case "historyDb":
			value = c.HistoryDB
		}

		if value == "" {
			missing = append(missing, joinPath(path))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// defaultHistoryPath returns the default run-history database path.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bunqsplit", "history.db")
	}
	return filepath.Join(home, ".bunqsplit", "history.db")
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// joinPath joins a path slice into a dot-separated string.
func joinPath(path []string) string {
	result := ""
	for i, p := range path {
		if i > 0 {
			result += "."
		}
		result += p
	}
	return result
}
