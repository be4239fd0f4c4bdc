package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	DBDriver        string // "postgres" or "sqlite"
	DBDSN           string
	EvolutionAPIURL string
	EvolutionAPIKey string
	WebhookTimeout  time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBDSN:           getEnv("DB_DSN", "./gateway.db"),
		EvolutionAPIURL: getEnv("EVOLUTION_API_URL", "http://localhost:8081"),
		EvolutionAPIKey: getEnv("EVOLUTION_API_KEY", ""),
		WebhookTimeout:  getDurationEnv("WEBHOOK_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("Invalid duration %q for %s, using %s", value, key, fallback)
		return fallback
	}
	return d
}
