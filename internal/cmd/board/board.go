// Package board wires the board server command: configuration, storage, and
// graceful shutdown.
package board

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/orba/jobtracker/internal/board/app"
	"github.com/orba/jobtracker/internal/board/engine"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	"github.com/orba/jobtracker/internal/board/storage/memory"
	"github.com/orba/jobtracker/internal/board/storage/sqlite"
	"github.com/orba/jobtracker/internal/platform/otel"
)

// Config holds board command configuration.
type Config struct {
	HTTPAddr string
	DBPath   string
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		HTTPAddr: envOrDefault(lookup, []string{"ORBA_BOARD_HTTP_ADDR"}, "localhost:8080"),
		DBPath:   envOrDefault(lookup, []string{"ORBA_BOARD_DB_PATH"}, "jobtracker.db"),
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The board HTTP server address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the SQLite database file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the board server and blocks until ctx ends. Persistent scopes
// are backed by SQLite, ephemeral guest scopes by memory only.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "board")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := identity.LoadTokenConfigFromEnv(time.Now)
	if err != nil {
		return err
	}

	guestRecords := memory.New()
	records := &storage.Router{
		Persistent: db,
		Ephemeral:  guestRecords,
	}

	server := app.NewServer(cfg.HTTPAddr, app.Dependencies{
		Records:  records,
		Profiles: db,
		Tokens:   tokens,
		Purger:   guestRecords,
		Report:   logOutcome,
	})
	return server.ListenAndServe(ctx)
}

func logOutcome(o engine.Outcome) {
	if o.Err != nil {
		log.Printf("dispatch %s for %s in %s failed: %v", o.Op, o.RecordID, o.Scope.Key(), o.Err)
	}
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
