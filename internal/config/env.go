package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Server holds settings for the HTTP API, read from the environment.
type Server struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string
}

const (
	defaultPort     = "8000"
	defaultDataPath = "fixtures.db"
)

// LoadDotEnv loads the first .env file found in the working directory or
// its parents. Missing files are not an error.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// ServerFromEnv reads server settings. DATABASE_URL wins over DATA_PATH;
// without either a local sqlite file is used.
func ServerFromEnv() Server {
	s := Server{
		Port:        getenv("PORT", defaultPort),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "text"),
	}
	if s.DatabaseURL == "" {
		s.DatabaseURL = getenv("DATA_PATH", defaultDataPath)
	}
	return s
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
