package httpserver

import (
	"context"
	"fmt"

	"github.com/fdg312/nutricart/internal/blob"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/storage/postgres"
)

// LoadCatalog reads the product catalog from the configured source. The
// catalog is loaded once; a restart picks up changes.
func LoadCatalog(ctx context.Context, cfg *config.Config, store blob.Store) (*catalog.Catalog, error) {
	switch cfg.CatalogSource {
	case config.CatalogSourceS3:
		if store == nil {
			return nil, fmt.Errorf("CATALOG_SOURCE=s3 requires BLOB_MODE=s3 (or auto with S3 configured)")
		}
		return catalog.LoadObject(ctx, store, cfg.CatalogS3Key)

	case config.CatalogSourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("CATALOG_SOURCE=postgres requires DATABASE_URL")
		}
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		return catalog.LoadStore(ctx, pg)

	default:
		return catalog.LoadFile(cfg.CatalogPath)
	}
}
