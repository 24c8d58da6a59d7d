package board

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "jobtracker.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigEnvFallback(t *testing.T) {
	lookup := func(key string) (string, bool) {
		switch key {
		case "ORBA_BOARD_HTTP_ADDR":
			return "env-addr:9090", true
		case "ORBA_BOARD_DB_PATH":
			return "/var/lib/orba/board.db", true
		}
		return "", false
	}

	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "env-addr:9090" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/var/lib/orba/board.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	lookup := func(key string) (string, bool) {
		return "env-value", true
	}

	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	args := []string{"-http-addr", "flag-addr:7000", "-db-path", "flag.db"}
	cfg, err := ParseConfig(fs, args, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-addr:7000" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("expected flag db path, got %q", cfg.DBPath)
	}
}
