package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Addr    string `env:"ORBA_TEST_ADDR" envDefault:"localhost:8080"`
	Retries int    `env:"ORBA_TEST_RETRIES" envDefault:"3"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Retries != 3 {
		t.Fatalf("expected default retries 3, got %d", cfg.Retries)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("ORBA_TEST_ADDR", "0.0.0.0:9999")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9999" {
		t.Fatalf("expected env override, got %q", cfg.Addr)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("ORBA_TEST_RETRIES", "not-an-int")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
