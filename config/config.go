package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven setting recognized by the service.
// Only DownloadDirectory and StateStorageDirectory are "core" per spec.md §6
// ("Configuration recognized by the core"); everything else configures the
// ambient HTTP surface and the out-of-scope collaborator adapters.
type Config struct {
	// Core.
	DownloadDirectory     string
	StateStorageDirectory string

	// HTTP surface.
	BindAddress     string
	ShutdownTimeout time.Duration

	// Auth — protects request-creation / suggestion endpoints.
	OperatorUsername string
	OperatorPassword string
	JWTSecret        string

	// Search provider (rutracker-style indexing forum).
	SearchUsername string
	SearchPassword string
	SearchBaseURL  string

	// Torrent engine (Transmission RPC).
	TransmissionRPCEndpoint string
	TransmissionUsername    string
	TransmissionPassword    string

	// Broadcast backend (radio manager).
	RadioManagerEndpoint string
	RadioManagerUsername string
	RadioManagerPassword string

	// LLM "suggest more tracks" helper.
	SuggestAPIBaseURL string
	SuggestAPIKey     string
	SuggestModel      string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		DownloadDirectory:     getEnv("DOWNLOAD_DIRECTORY", "./downloads"),
		StateStorageDirectory: getEnv("STATE_STORAGE_DIRECTORY", "./data/state"),

		BindAddress:     getEnv("BIND_ADDRESS", "0.0.0.0:8080"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),

		OperatorUsername: getEnv("OPERATOR_USERNAME", "operator"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", "change-me"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production-please"),

		SearchUsername: getEnv("SEARCH_USERNAME", ""),
		SearchPassword: getEnv("SEARCH_PASSWORD", ""),
		SearchBaseURL:  getEnv("SEARCH_BASE_URL", "https://rutracker.org"),

		TransmissionRPCEndpoint: getEnv("TRANSMISSION_RPC_ENDPOINT", "http://127.0.0.1:9091/transmission/rpc"),
		TransmissionUsername:    getEnv("TRANSMISSION_USERNAME", ""),
		TransmissionPassword:    getEnv("TRANSMISSION_PASSWORD", ""),

		RadioManagerEndpoint: getEnv("RADIOMANAGER_ENDPOINT", ""),
		RadioManagerUsername: getEnv("RADIOMANAGER_USERNAME", ""),
		RadioManagerPassword: getEnv("RADIOMANAGER_PASSWORD", ""),

		SuggestAPIBaseURL: getEnv("SUGGEST_API_BASE_URL", ""),
		SuggestAPIKey:     getEnv("SUGGEST_API_KEY", ""),
		SuggestModel:      getEnv("SUGGEST_MODEL", "gpt-4o-mini"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if seconds, err := strconv.Atoi(valueStr); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultVal
}
