package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTunables(t *testing.T) {
	cfg := Default()
	if cfg.RoundSeconds != 60 || cfg.RoundTotal != 10 {
		t.Fatalf("round defaults: %+v", cfg)
	}
	if cfg.RoundAdvanceDelay() != 2600*time.Millisecond {
		t.Fatalf("advance delay = %v", cfg.RoundAdvanceDelay())
	}
	if cfg.BotOfferAfter() != 6*time.Second {
		t.Fatalf("bot offer = %v", cfg.BotOfferAfter())
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `relay_url: nats://relay:4222
round_total: 5
round_seconds: 30
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayURL != "nats://relay:4222" || cfg.RoundTotal != 5 || cfg.RoundSeconds != 30 {
		t.Fatalf("loaded %+v", cfg)
	}
	// untouched fields keep defaults
	if cfg.PingIntervalMs != 2500 {
		t.Fatalf("ping interval = %d", cfg.PingIntervalMs)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("relay_url: nats://file:4222\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ECOPLAY_RELAY_URL", "nats://env:4222")
	t.Setenv("ECOPLAY_ROUND_TOTAL", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RelayURL != "nats://env:4222" || cfg.RoundTotal != 3 {
		t.Fatalf("loaded %+v", cfg)
	}
}

func TestSanitizeRejectsNonPositiveTunables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tick_ms: 0\nround_seconds: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickMs != 500 || cfg.RoundSeconds != 60 {
		t.Fatalf("sanitize failed: %+v", cfg)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
