package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/nutricart/internal/blob"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/storage"
	"github.com/fdg312/nutricart/internal/storage/postgres"
)

// catalog-import loads a product CSV into the products table or uploads it
// to the bucket the API reads with CATALOG_SOURCE=s3.
func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	file := flag.String("file", cfg.CatalogPath, "product CSV to import")
	target := flag.String("target", config.CatalogSourcePostgres, "postgres | s3")
	key := flag.String("key", cfg.CatalogS3Key, "object key for -target=s3")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *file).Msg("read catalog")
	}

	// разбор и проверка кодов до записи
	c, err := catalog.LoadCSV(bytes.NewReader(data))
	if err != nil {
		logging.Fatal().Err(err).Str("file", *file).Msg("invalid catalog")
	}

	switch *target {
	case config.CatalogSourcePostgres:
		err = importPostgres(ctx, cfg, c)
	case config.CatalogSourceS3:
		err = uploadS3(ctx, cfg, *key, data)
	default:
		err = fmt.Errorf("unknown target %q (want postgres or s3)", *target)
	}
	if err != nil {
		logging.Fatal().Err(err).Str("target", *target).Msg("catalog import failed")
	}

	logging.Info().Str("target", *target).Int("products", c.Len()).Msg("catalog imported")
}

func importPostgres(ctx context.Context, cfg *config.Config, c *catalog.Catalog) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	products := c.Products()
	rows := make([]storage.ProductRow, len(products))
	for i, p := range products {
		rows[i] = catalog.ToRow(p)
	}

	n, err := pg.ReplaceProducts(ctx, rows)
	if err != nil {
		return err
	}
	logging.Info().Int64("rows", n).Msg("products table replaced")
	return nil
}

func uploadS3(ctx context.Context, cfg *config.Config, key string, data []byte) error {
	blobCfg := cfg.Blob
	blobCfg.Mode = config.BlobModeS3

	store, _, err := blob.NewBlobStore(ctx, blobCfg, logging.Printer{})
	if err != nil {
		return err
	}

	size, err := store.PutObject(ctx, key, data, "text/csv")
	if err != nil {
		return err
	}
	logging.Info().Str("key", key).Int64("bytes", size).Msg("catalog object uploaded")
	return nil
}
