package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/dbmigrate"
	"github.com/fdg312/nutricart/internal/httpserver"
	"github.com/fdg312/nutricart/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range cfg.Warnings {
		logging.Warn().Str("component", "config").Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printStartupBanner(cfg)

	if cfg.RunMigrationsOnStartup {
		dbURL, source, _, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			logging.Fatal().Err(err).Msg("startup migrations")
		}

		logging.Info().Str("using", source).Msg("startup migrations: command=up")
		if err := dbmigrate.Run(ctx, "up", dbURL); err != nil {
			logging.Fatal().Err(err).Msg("startup migrations failed")
		}
		logging.Info().Msg("startup migrations: completed")
	}

	validateProductionConfig(cfg)

	server, err := httpserver.New(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("server init failed")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Fatal().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are reported as "set" / "not set" only.
func printStartupBanner(cfg *config.Config) {
	logging.Info().
		Str("env", cfg.Env).
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("nutricart api")

	logging.Info().
		Str("runtime_url", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled)).
		Str("direct", setOrNot(cfg.DatabaseURLDirect)).
		Bool("migrations_on_startup", cfg.RunMigrationsOnStartup).
		Msg("database")

	catalogEvent := logging.Info().Str("source", cfg.CatalogSource)
	switch cfg.CatalogSource {
	case config.CatalogSourceS3:
		catalogEvent = catalogEvent.Str("key", cfg.CatalogS3Key)
	case config.CatalogSourceFile:
		catalogEvent = catalogEvent.Str("path", cfg.CatalogPath)
	}
	catalogEvent.Msg("catalog")

	logging.Info().
		Bool("auth_required", cfg.AuthRequired).
		Str("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")).
		Int("jwt_ttl_minutes", cfg.JWTTTLMinutes).
		Msg("sessions")

	blobEvent := logging.Info().Str("blob_mode", cfg.Blob.Mode)
	if cfg.Blob.Mode != config.BlobModeLocal {
		blobEvent = blobEvent.Str("s3", cfg.Blob.S3.DiagnosticsSummary())
	}
	blobEvent.Msg("blob")

	seed := "random"
	if cfg.SuggestSeed != 0 {
		seed = "fixed"
	}
	logging.Info().
		Int("sample_size", cfg.SuggestSampleSize).
		Int("max_attempts", cfg.SuggestMaxAttempts).
		Int("timeout_seconds", cfg.SuggestTimeoutSeconds).
		Int("solver_max_nodes", cfg.SolverMaxNodes).
		Str("seed", seed).
		Msg("suggestions")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "prod" || cfg.Env == "staging"

	needsS3 := cfg.Blob.Mode == config.BlobModeS3 || cfg.CatalogSource == config.CatalogSourceS3
	if needsS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			logging.Fatal().Str("missing", strings.Join(missing, ", ")).Msg("blob: S3 is required but its config is incomplete")
		}
	}

	if cfg.CatalogSource == config.CatalogSourcePostgres && cfg.DatabaseURL == "" {
		logging.Fatal().Msg("catalog: CATALOG_SOURCE=postgres but no DATABASE_URL configured")
	}

	if isProd && cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		logging.Fatal().Str("env", cfg.Env).Msg("auth: JWT_SECRET must not be 'change_me' with AUTH_REQUIRED=1")
	}
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return "set (DEFAULT, insecure)"
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
