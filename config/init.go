package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
)

type Config struct {
	AppConfig         *AppConfig
	Logger            *logger.Config
	Tracing           *tracing.JaegerConfig
	DatabaseConfig    *DatabaseConfig
	GoogleOAuthConfig *GoogleOAuthConfig
	SyncConfig        *SyncConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:         &AppConfig{},
		Logger:            &logger.Config{},
		Tracing:           &tracing.JaegerConfig{},
		DatabaseConfig:    &DatabaseConfig{},
		GoogleOAuthConfig: &GoogleOAuthConfig{},
		SyncConfig:        &SyncConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailsync config: %v", err)
	}

	return config, nil
}
