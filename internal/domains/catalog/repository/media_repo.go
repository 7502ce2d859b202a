package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type mediaRepository struct {
	pool *pgxpool.Pool
}

// NewMediaRepository creates the pgx-backed gallery writer.
func NewMediaRepository(pool *pgxpool.Pool) MediaRepository {
	return &mediaRepository{pool: pool}
}

func (r *mediaRepository) ReplaceGalleryEntries(ctx context.Context, entityID int64, urls []string) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM media_gallery WHERE entity_id = $1`, entityID)
	for i, url := range urls {
		batch.Queue(`
			INSERT INTO media_gallery (entity_id, url, position)
			VALUES ($1, $2, $3)`,
			entityID, url, i)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write gallery entries: %w", err)
		}
	}
	return nil
}
