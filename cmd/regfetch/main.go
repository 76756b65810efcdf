package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/insightsgpt/regfetch/pkg/logging"
)

func main() {
	// Optional .env for local runs.
	_ = godotenv.Load()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("REGFETCH_LOG_LEVEL", "info")),
		Pretty: os.Getenv("REGFETCH_LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
