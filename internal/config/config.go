package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	CatalogSourceFile     = "file"
	CatalogSourceS3       = "s3"
	CatalogSourcePostgres = "postgres"
)

// Config содержит конфигурацию приложения
type Config struct {
	Env       string // local | staging | prod
	Port      int
	LogLevel  string
	LogFormat string // console | json

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Blob storage (catalog objects, reports)
	Blob BlobConfig

	// Catalog
	CatalogSource string // file | s3 | postgres
	CatalogPath   string
	CatalogS3Key  string

	// Sessions
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// Suggestions
	SuggestSampleSize     int
	SuggestMaxAttempts    int
	SuggestSeed           int64 // 0 = random per request
	SuggestTimeoutSeconds int
	SolverMaxNodes        int

	// Migrations
	RunMigrationsOnStartup bool

	// Warnings collected while loading; logged once the logger is up.
	Warnings []string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	var warnings []string
	warnf := func(format string, v ...any) {
		warnings = append(warnings, fmt.Sprintf(format, v...))
	}

	// APP_ENV (fallback to ENV for backward compat, default: local)
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = "local"
	}

	// PORT (default: 8080)
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		} else {
			warnf("invalid PORT=%q, fallback to %d", portStr, port)
		}
	}

	// LOG_LEVEL (default: debug locally, info elsewhere)
	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "info"
		if env == "local" {
			logLevel = "debug"
		}
	}

	logFormat := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if logFormat == "" {
		logFormat = "json"
		if env == "local" {
			logFormat = "console"
		}
	}
	if logFormat != "json" && logFormat != "console" {
		warnf("unknown LOG_FORMAT=%q, fallback to json", logFormat)
		logFormat = "json"
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))

	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	runMigrationsOnStartup := parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Rate Limiting ----------
	rateLimitRPS := envInt("RATE_LIMIT_RPS", 0)
	rateLimitBurst := envInt("RATE_LIMIT_BURST", 0)

	// ---------- Blob / S3 ----------
	blobMode := strings.ToLower(strings.TrimSpace(os.Getenv("BLOB_MODE")))
	switch blobMode {
	case "":
		blobMode = BlobModeLocal
	case BlobModeLocal, BlobModeS3, BlobModeAuto:
	default:
		warnf("unknown BLOB_MODE=%q, fallback to %s", blobMode, BlobModeLocal)
		blobMode = BlobModeLocal
	}

	// S3_PRESIGN_TTL_SECONDS (default: 900, enforce > 0)
	s3PresignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if s3PresignTTL <= 0 {
		s3PresignTTL = 900
	}

	blobCfg := BlobConfig{
		Mode: blobMode,
		S3: S3Config{
			Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
			Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
			PresignTTLSeconds: s3PresignTTL,
		},
	}

	// ---------- Catalog ----------
	catalogSource := strings.ToLower(strings.TrimSpace(os.Getenv("CATALOG_SOURCE")))
	switch catalogSource {
	case "":
		catalogSource = CatalogSourceFile
	case CatalogSourceFile, CatalogSourceS3, CatalogSourcePostgres:
	default:
		warnf("unknown CATALOG_SOURCE=%q, fallback to %s", catalogSource, CatalogSourceFile)
		catalogSource = CatalogSourceFile
	}

	catalogPath := strings.TrimSpace(os.Getenv("CATALOG_PATH"))
	if catalogPath == "" {
		catalogPath = "data/products.csv"
	}

	catalogS3Key := strings.TrimSpace(os.Getenv("CATALOG_S3_KEY"))
	if catalogS3Key == "" {
		catalogS3Key = "catalog/products.csv"
	}

	// ---------- Sessions ----------
	authRequired := parseBoolEnv("AUTH_REQUIRED")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "change_me"
	}
	if jwtSecret == "change_me" && env != "local" {
		warnf("JWT_SECRET is set to 'change_me' in non-local environment")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "nutricart"
	}

	// JWT_TTL_MINUTES (default: 1440 = 1 day)
	jwtTTLMinutes := envInt("JWT_TTL_MINUTES", 1440)
	if jwtTTLMinutes <= 0 {
		jwtTTLMinutes = 1440
	}

	// ---------- Suggestions ----------
	sampleSize := envInt("SUGGEST_SAMPLE_SIZE", 200)
	if sampleSize <= 0 {
		warnf("SUGGEST_SAMPLE_SIZE must be positive, fallback to 200")
		sampleSize = 200
	}

	maxAttempts := envInt("SUGGEST_MAX_ATTEMPTS", 5)
	if maxAttempts <= 0 {
		warnf("SUGGEST_MAX_ATTEMPTS must be positive, fallback to 5")
		maxAttempts = 5
	}

	suggestSeed := envInt64("SUGGEST_SEED", 0)

	suggestTimeout := envInt("SUGGEST_TIMEOUT_SECONDS", 20)
	if suggestTimeout <= 0 {
		suggestTimeout = 20
	}

	solverMaxNodes := envInt("SOLVER_MAX_NODES", 5000)
	if solverMaxNodes <= 0 {
		solverMaxNodes = 5000
	}

	return &Config{
		Env:               env,
		Port:              port,
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: rateLimitBurst,

		Blob: blobCfg,

		CatalogSource: catalogSource,
		CatalogPath:   catalogPath,
		CatalogS3Key:  catalogS3Key,

		AuthRequired:  authRequired,
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: jwtTTLMinutes,

		SuggestSampleSize:     sampleSize,
		SuggestMaxAttempts:    maxAttempts,
		SuggestSeed:           suggestSeed,
		SuggestTimeoutSeconds: suggestTimeout,
		SolverMaxNodes:        solverMaxNodes,

		RunMigrationsOnStartup: runMigrationsOnStartup,

		Warnings: warnings,
	}
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func envInt64(key string, defaultVal int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
