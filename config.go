package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Env holds all the environment variables that are used in the app.
type Env struct {
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	EIAAPIKey   string `mapstructure:"EIA_API_KEY"`
	FREDAPIKey  string `mapstructure:"FRED_API_KEY"`
	SentryDSN   string `mapstructure:"SENTRY_DSN"`
}

var envKeys = []string{"POSTGRES_DSN", "EIA_API_KEY", "FRED_API_KEY", "SENTRY_DSN"}

// loadEnv reads the environment into an Env and checks the required keys.
func loadEnv() (*Env, error) {
	v := viper.New()
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return nil, err
	}
	if env.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	return &env, nil
}

type Config struct {
	env            *Env          // Holds all the environment variables that are used in the app
	retryAttempts  uint          // Attempts per job before it is marked failed
	retryDelay     time.Duration // Fixed delay between attempts
	scrapeInterval time.Duration // Full-set interval in scheduler mode
	withFullText   bool          // Fetch article pages for full news text
}

// NewConfig creates a new Config object with the given Env and default values
// from DefaultConfig.
func NewConfig(env *Env) *Config {
	c := DefaultConfig()
	c.env = env
	return c
}

// DefaultConfig creates a new Config object with default values.
func DefaultConfig() *Config {
	return &Config{
		env:            &Env{},
		retryAttempts:  3,
		retryDelay:     30 * time.Second,
		scrapeInterval: 6 * time.Hour,
	}
}
