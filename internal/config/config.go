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
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payments-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string  `mapstructure:"SERVER_PORT"`
	DatabaseURL             string  `mapstructure:"DATABASE_URL"`
	RedisURL                string  `mapstructure:"REDIS_URL"`
	RedisEventDedupePrefix  string  `mapstructure:"REDIS_EVENT_DEDUPE_PREFIX"`
	RabbitMQURL             string  `mapstructure:"RABBITMQ_URL"`
	OnboardingEventQueue    string  `mapstructure:"ONBOARDING_EVENT_QUEUE"`
	ProcessorAPIBaseURL     string  `mapstructure:"PROCESSOR_API_BASE_URL"`
	ProcessorAPIKey         string  `mapstructure:"PROCESSOR_API_KEY"`
	ProcessorWebhookSecret  string  `mapstructure:"PROCESSOR_WEBHOOK_SECRET"`
	VerificationServiceURL  string  `mapstructure:"VERIFICATION_SERVICE_URL"`
	VerificationAPIKey      string  `mapstructure:"VERIFICATION_SERVICE_API_KEY"`
	InternalAPIKey          string  `mapstructure:"INTERNAL_API_KEY"`
	PlatformFeePercent      float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	ManagementFeePercent    float64 `mapstructure:"MANAGEMENT_FEE_PERCENT"`
	LeaseTermDays           int     `mapstructure:"LEASE_TERM_DAYS"`
	Currency                string  `mapstructure:"CURRENCY"`
	EventDedupeTTLMinutes   int     `mapstructure:"EVENT_DEDUPE_TTL_MINUTES"`
	RequireVerification     bool    `mapstructure:"REQUIRE_VERIFICATION"`
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
	viper.SetDefault("ONBOARDING_EVENT_QUEUE", "payments_service.owner_onboarding")
	viper.SetDefault("REDIS_EVENT_DEDUPE_PREFIX", "gdc:payments:webhook_event")
	viper.SetDefault("PLATFORM_FEE_PERCENT", 5.0)
	viper.SetDefault("MANAGEMENT_FEE_PERCENT", 0.0)
	viper.SetDefault("LEASE_TERM_DAYS", 365)
	viper.SetDefault("CURRENCY", "usd")
	viper.SetDefault("EVENT_DEDUPE_TTL_MINUTES", 1440)
	viper.SetDefault("REQUIRE_VERIFICATION", true)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "PAYMENTS_REDIS_URL")
	_ = viper.BindEnv("REDIS_EVENT_DEDUPE_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ONBOARDING_EVENT_QUEUE")
	_ = viper.BindEnv("PROCESSOR_API_BASE_URL")
	_ = viper.BindEnv("PROCESSOR_API_KEY")
	_ = viper.BindEnv("PROCESSOR_WEBHOOK_SECRET")
	_ = viper.BindEnv("VERIFICATION_SERVICE_URL")
	_ = viper.BindEnv("VERIFICATION_SERVICE_API_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "PAYMENTS_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENTAGE")
	_ = viper.BindEnv("MANAGEMENT_FEE_PERCENT")
	_ = viper.BindEnv("MANAGEMENT_FEE_PERCENTAGE")
	_ = viper.BindEnv("LEASE_TERM_DAYS")
	_ = viper.BindEnv("CURRENCY")
	_ = viper.BindEnv("EVENT_DEDUPE_TTL_MINUTES")
	_ = viper.BindEnv("REQUIRE_VERIFICATION")

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
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("PAYMENTS_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisEventDedupePrefix = strings.TrimSpace(config.RedisEventDedupePrefix)
	if config.RedisEventDedupePrefix == "" {
		config.RedisEventDedupePrefix = "gdc:payments:webhook_event"
	}

	// Allow the long-form PLATFORM_FEE_PERCENTAGE spelling to override.
	if viper.IsSet("PLATFORM_FEE_PERCENTAGE") {
		percentStr := strings.TrimSpace(viper.GetString("PLATFORM_FEE_PERCENTAGE"))
		if percentStr != "" {
			percentValue, parseErr := strconv.ParseFloat(percentStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid PLATFORM_FEE_PERCENTAGE\" value=%q err=%v", percentStr, parseErr)
			} else {
				config.PlatformFeePercent = percentValue
			}
		}
	}
	if viper.IsSet("MANAGEMENT_FEE_PERCENTAGE") {
		percentStr := strings.TrimSpace(viper.GetString("MANAGEMENT_FEE_PERCENTAGE"))
		if percentStr != "" {
			percentValue, parseErr := strconv.ParseFloat(percentStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid MANAGEMENT_FEE_PERCENTAGE\" value=%q err=%v", percentStr, parseErr)
			} else {
				config.ManagementFeePercent = percentValue
			}
		}
	}

	if config.PlatformFeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative platform fee percent configured; coercing to zero\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 0
	}
	if config.PlatformFeePercent > 100 {
		log.Printf("level=warn component=config msg=\"platform fee percent too high; capping at 100\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 100
	}
	if config.ManagementFeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative management fee percent configured; coercing to zero\" fee_percent=%f", config.ManagementFeePercent)
		config.ManagementFeePercent = 0
	}
	if config.PlatformFeePercent+config.ManagementFeePercent > 100 {
		log.Printf("level=warn component=config msg=\"combined fee percent exceeds 100; coercing management fee to zero\" platform=%f management=%f", config.PlatformFeePercent, config.ManagementFeePercent)
		config.ManagementFeePercent = 0
	}

	if config.LeaseTermDays <= 0 {
		config.LeaseTermDays = 365
	}
	config.Currency = strings.ToLower(strings.TrimSpace(config.Currency))
	if config.Currency == "" {
		config.Currency = "usd"
	}
	if config.EventDedupeTTLMinutes <= 0 {
		config.EventDedupeTTLMinutes = 1440
	}

	return
}
