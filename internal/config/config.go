// Package config loads the client configuration from YAML with environment
// overrides for deploy-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the multiplayer core. Durations are stored
// as integers so the YAML stays trivially editable.
type Config struct {
	// RelayURL points at the hosted pub/sub relay. Empty selects the local
	// in-process transport.
	RelayURL string `yaml:"relay_url"`

	QuestionsPath string `yaml:"questions_path"`
	DataDir       string `yaml:"data_dir"`

	RoundSeconds        int `yaml:"round_seconds"`
	RoundTotal          int `yaml:"round_total"`
	RoundAdvanceDelayMs int `yaml:"round_advance_delay_ms"`
	PresenceTTLMs       int `yaml:"presence_ttl_ms"`
	HeartbeatMs         int `yaml:"heartbeat_ms"`
	PingIntervalMs      int `yaml:"ping_interval_ms"`
	TickMs              int `yaml:"tick_ms"`
	BotOfferAfterMs     int `yaml:"bot_offer_after_ms"`
}

// Default returns the production tunables.
func Default() Config {
	return Config{
		RelayURL:            "",
		QuestionsPath:       "questions.yaml",
		DataDir:             ".ecoplay",
		RoundSeconds:        60,
		RoundTotal:          10,
		RoundAdvanceDelayMs: 2600,
		PresenceTTLMs:       8000,
		HeartbeatMs:         2000,
		PingIntervalMs:      2500,
		TickMs:              500,
		BotOfferAfterMs:     6000,
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path skips the file and still honors the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.RelayURL = getEnv("ECOPLAY_RELAY_URL", cfg.RelayURL)
	cfg.QuestionsPath = getEnv("ECOPLAY_QUESTIONS", cfg.QuestionsPath)
	cfg.DataDir = getEnv("ECOPLAY_DATA_DIR", cfg.DataDir)
	cfg.RoundSeconds = getEnvAsInt("ECOPLAY_ROUND_SECONDS", cfg.RoundSeconds)
	cfg.RoundTotal = getEnvAsInt("ECOPLAY_ROUND_TOTAL", cfg.RoundTotal)

	cfg.sanitize()
	return cfg, nil
}

// sanitize falls back to defaults for non-positive tunables so a sparse YAML
// file never zeroes a timer.
func (c *Config) sanitize() {
	def := Default()
	if c.RoundSeconds <= 0 {
		c.RoundSeconds = def.RoundSeconds
	}
	if c.RoundTotal <= 0 {
		c.RoundTotal = def.RoundTotal
	}
	if c.RoundAdvanceDelayMs <= 0 {
		c.RoundAdvanceDelayMs = def.RoundAdvanceDelayMs
	}
	if c.PresenceTTLMs <= 0 {
		c.PresenceTTLMs = def.PresenceTTLMs
	}
	if c.HeartbeatMs <= 0 {
		c.HeartbeatMs = def.HeartbeatMs
	}
	if c.PingIntervalMs <= 0 {
		c.PingIntervalMs = def.PingIntervalMs
	}
	if c.TickMs <= 0 {
		c.TickMs = def.TickMs
	}
	if c.BotOfferAfterMs <= 0 {
		c.BotOfferAfterMs = def.BotOfferAfterMs
	}
}

func (c Config) RoundAdvanceDelay() time.Duration { return msDur(c.RoundAdvanceDelayMs) }
func (c Config) PresenceTTL() time.Duration       { return msDur(c.PresenceTTLMs) }
func (c Config) Heartbeat() time.Duration         { return msDur(c.HeartbeatMs) }
func (c Config) PingInterval() time.Duration      { return msDur(c.PingIntervalMs) }
func (c Config) Tick() time.Duration              { return msDur(c.TickMs) }
func (c Config) BotOfferAfter() time.Duration     { return msDur(c.BotOfferAfterMs) }

func msDur(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
