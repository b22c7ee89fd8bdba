package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dwcli/internal/models"
)

type Config struct {
	Protocol string
	Host     string
	APIKey   string
	Insecure bool
	RetryMax int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables only")
	}

	retryMax, err := strconv.Atoi(getEnv("DW_RETRY_MAX", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid DW_RETRY_MAX: %w", err)
	}

	config := &Config{
		Protocol: strings.ToLower(getEnv("DW_PROTOCOL", "https")),
		Host:     getEnv("DW_HOST", ""),
		APIKey:   getEnv("DW_API_KEY", ""),
		Insecure: getEnvBool("DW_INSECURE", false),
		RetryMax: retryMax,
	}

	return config, nil
}

// Credential resolves the transfer credential handed to the engines.
func (c *Config) Credential() (models.TransferCredential, error) {
	cred := models.TransferCredential{
		Protocol:    c.Protocol,
		Host:        c.Host,
		BearerToken: c.APIKey,
	}
	if err := cred.Validate(); err != nil {
		return models.TransferCredential{}, err
	}
	return cred, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
