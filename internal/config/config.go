package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"reconcileai/internal/matching"
)

type Config struct {
	ServerAddress string
	Environment   string
	Database      DatabaseConfig
	Migration     MigrationConfig
	Matching      MatchingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   string
}

type MigrationConfig struct {
	Dir string
}

// MatchingConfig carries the engine tuning knobs sourced from the
// environment. Values are validated by the engine at startup, not here.
type MatchingConfig struct {
	AmountToleranceMinor int64
	DateWindowDays       int
	MaxGroupSize         int
	WeightAmount         float64
	WeightDate           float64
	WeightReference      float64
	WeightPrior          float64
	AcceptanceThreshold  float64
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine when everything comes from the process
		// environment.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	defaults := matching.DefaultConfig()
	viper.SetDefault("MATCH_AMOUNT_TOLERANCE_MINOR", defaults.AmountToleranceMinor)
	viper.SetDefault("MATCH_DATE_WINDOW_DAYS", defaults.DateWindowDays)
	viper.SetDefault("MATCH_MAX_GROUP_SIZE", defaults.MaxGroupSize)
	viper.SetDefault("MATCH_WEIGHT_AMOUNT", defaults.Weights.Amount)
	viper.SetDefault("MATCH_WEIGHT_DATE", defaults.Weights.Date)
	viper.SetDefault("MATCH_WEIGHT_REFERENCE", defaults.Weights.Reference)
	viper.SetDefault("MATCH_WEIGHT_PRIOR", defaults.Weights.Prior)
	viper.SetDefault("MATCH_ACCEPTANCE_THRESHOLD", defaults.AcceptanceThreshold)

	config := &Config{
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		Environment:   viper.GetString("ENVIRONMENT"),
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			Params:   viper.GetString("DB_PARAMS"),
		},
		Migration: MigrationConfig{
			Dir: viper.GetString("MIGRATION_DIR"),
		},
		Matching: MatchingConfig{
			AmountToleranceMinor: viper.GetInt64("MATCH_AMOUNT_TOLERANCE_MINOR"),
			DateWindowDays:       viper.GetInt("MATCH_DATE_WINDOW_DAYS"),
			MaxGroupSize:         viper.GetInt("MATCH_MAX_GROUP_SIZE"),
			WeightAmount:         viper.GetFloat64("MATCH_WEIGHT_AMOUNT"),
			WeightDate:           viper.GetFloat64("MATCH_WEIGHT_DATE"),
			WeightReference:      viper.GetFloat64("MATCH_WEIGHT_REFERENCE"),
			WeightPrior:          viper.GetFloat64("MATCH_WEIGHT_PRIOR"),
			AcceptanceThreshold:  viper.GetFloat64("MATCH_ACCEPTANCE_THRESHOLD"),
		},
	}

	return config, nil
}

// EngineConfig converts the environment-sourced matching section into the
// engine's config type.
func (c *Config) EngineConfig() matching.Config {
	return matching.Config{
		AmountToleranceMinor: c.Matching.AmountToleranceMinor,
		DateWindowDays:       c.Matching.DateWindowDays,
		MaxGroupSize:         c.Matching.MaxGroupSize,
		Weights: matching.Weights{
			Amount:    c.Matching.WeightAmount,
			Date:      c.Matching.WeightDate,
			Reference: c.Matching.WeightReference,
			Prior:     c.Matching.WeightPrior,
		},
		AcceptanceThreshold: c.Matching.AcceptanceThreshold,
	}
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// GetMigrationDBURL returns the database URL for migrations
func (c *Config) GetMigrationDBURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}
