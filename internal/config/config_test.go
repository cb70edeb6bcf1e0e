package config

import "testing"

func TestGetDefaultsIsValid(t *testing.T) {
	if err := validateConfig(GetDefaults()); err != nil {
		t.Fatalf("default configuration does not validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadPort", func(c *Config) { c.Server.Port = 0 }},
		{"BadOperator", func(c *Config) { c.Anonymize.Operator = "redact" }},
		{"BadFormat", func(c *Config) { c.Anonymize.Format = "fancy" }},
		{"EmptyLanguage", func(c *Config) { c.Anonymize.Language = "" }},
		{"BadClassifierType", func(c *Config) { c.Classifier.Type = "neural" }},
		{"ThresholdAboveOne", func(c *Config) { c.Analyzer.ScoreThreshold = 1.5 }},
		{"NegativeThreshold", func(c *Config) { c.Analyzer.ScoreThreshold = -0.1 }},
		{"ZeroRateLimit", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := GetDefaults()
			tc.mutate(config)
			if err := validateConfig(config); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
