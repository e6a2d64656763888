package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/dbmigrate"
	"github.com/fdg312/nutricart/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: go run ./cmd/migrate [%s] [args...]\n", strings.Join(dbmigrate.Commands, "|"))
		os.Exit(2)
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	command := os.Args[1]
	dbURL, source, warning, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		logging.Fatal().Err(err).Msg("migrate")
	}

	if warning != "" {
		logging.Warn().Msg("migrate: " + warning)
	}
	logging.Info().Str("command", command).Str("using", source).Msg("migrate")

	if err := dbmigrate.Run(context.Background(), command, dbURL, os.Args[2:]...); err != nil {
		logging.Fatal().Err(err).Msg("migrate failed")
	}

	logging.Info().Str("command", command).Msg("migrate: completed successfully")
}
