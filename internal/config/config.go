package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/scrambletron/")
	viper.AddConfigPath("$HOME/.scrambletron/")

	// Environment variable overrides
	viper.SetEnvPrefix("SCRAMBLETRON")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Anonymize.Operator != "counter" && config.Anonymize.Operator != "replacer" {
		return fmt.Errorf("invalid anonymize operator: %s (must be counter or replacer)", config.Anonymize.Operator)
	}

	if config.Anonymize.Format != "plain" && config.Anonymize.Format != "indexed" {
		return fmt.Errorf("invalid anonymize format: %s (must be plain or indexed)", config.Anonymize.Format)
	}

	if config.Anonymize.Language == "" {
		return fmt.Errorf("anonymize language must be set")
	}

	if config.Classifier.Type != "static" && config.Classifier.Type != "dataset" {
		return fmt.Errorf("invalid classifier type: %s (must be static or dataset)", config.Classifier.Type)
	}

	if config.Analyzer.ScoreThreshold < 0 || config.Analyzer.ScoreThreshold > 1 {
		return fmt.Errorf("invalid score threshold: %f (must be between 0 and 1)", config.Analyzer.ScoreThreshold)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %f requests per second", config.RateLimit.RequestsPerSecond)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Overlay the changed file onto defaults so omitted keys keep
		// their default values instead of zeroing out.
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
