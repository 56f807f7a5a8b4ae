/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the transfer-service.
// These values are loaded from environment variables. Monetary limits are read as
// floats and converted to exact decimals at wiring time.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	SettlementEventQueue string `mapstructure:"SETTLEMENT_EVENT_QUEUE"`
	JWKSURL              string `mapstructure:"JWKS_URL"`

	TransferRateLimitPerMinute int `mapstructure:"TRANSFER_RATE_LIMIT_PER_MINUTE"`

	ZellePerTransactionLimit float64 `mapstructure:"ZELLE_PER_TRANSACTION_LIMIT"`
	ZelleDailyLimit          float64 `mapstructure:"ZELLE_DAILY_LIMIT"`
	ZelleMonthlyLimit        float64 `mapstructure:"ZELLE_MONTHLY_LIMIT"`
	ExternalReviewCeiling    float64 `mapstructure:"EXTERNAL_REVIEW_CEILING"`

	PendingReviewAfterHours int    `mapstructure:"PENDING_REVIEW_AFTER_HOURS"`
	ReconcileSchedule       string `mapstructure:"RECONCILE_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SETTLEMENT_EVENT_QUEUE", "transfer_service.settlement_updates")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "meridian:rate_limit")
	viper.SetDefault("TRANSFER_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("ZELLE_PER_TRANSACTION_LIMIT", 2500.0)
	viper.SetDefault("ZELLE_DAILY_LIMIT", 2500.0)
	viper.SetDefault("ZELLE_MONTHLY_LIMIT", 20000.0)
	viper.SetDefault("EXTERNAL_REVIEW_CEILING", 25000.0)
	viper.SetDefault("PENDING_REVIEW_AFTER_HOURS", 72)
	viper.SetDefault("RECONCILE_SCHEDULE", "0 * * * *")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "TRANSFER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SETTLEMENT_EVENT_QUEUE")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("TRANSFER_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("ZELLE_PER_TRANSACTION_LIMIT")
	_ = viper.BindEnv("ZELLE_DAILY_LIMIT")
	_ = viper.BindEnv("ZELLE_MONTHLY_LIMIT")
	_ = viper.BindEnv("EXTERNAL_REVIEW_CEILING")
	_ = viper.BindEnv("PENDING_REVIEW_AFTER_HOURS")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "meridian:rate_limit"
	}
	config.ReconcileSchedule = strings.TrimSpace(config.ReconcileSchedule)
	if config.ReconcileSchedule == "" {
		config.ReconcileSchedule = "0 * * * *"
	}

	if config.TransferRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative transfer rate limit configured; disabling throttle\" limit=%d", config.TransferRateLimitPerMinute)
		config.TransferRateLimitPerMinute = 0
	}

	if config.ZellePerTransactionLimit <= 0 {
		log.Printf("level=warn component=config msg=\"invalid zelle per-transaction limit; using default\" limit=%f", config.ZellePerTransactionLimit)
		config.ZellePerTransactionLimit = 2500.0
	}
	if config.ZelleDailyLimit <= 0 {
		log.Printf("level=warn component=config msg=\"invalid zelle daily limit; using default\" limit=%f", config.ZelleDailyLimit)
		config.ZelleDailyLimit = 2500.0
	}
	if config.ZelleMonthlyLimit <= 0 {
		log.Printf("level=warn component=config msg=\"invalid zelle monthly limit; using default\" limit=%f", config.ZelleMonthlyLimit)
		config.ZelleMonthlyLimit = 20000.0
	}
	if config.ExternalReviewCeiling <= 0 {
		log.Printf("level=warn component=config msg=\"invalid external review ceiling; using default\" limit=%f", config.ExternalReviewCeiling)
		config.ExternalReviewCeiling = 25000.0
	}
	if config.PendingReviewAfterHours <= 0 {
		config.PendingReviewAfterHours = 72
	}

	return
}
