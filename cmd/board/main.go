package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	boardcmd "github.com/orba/jobtracker/internal/cmd/board"
	"github.com/orba/jobtracker/internal/platform/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := boardcmd.ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[BOARD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := boardcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
