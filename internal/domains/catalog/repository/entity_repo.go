package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// entityRepository - raw SQL against catalog_entity with pgxpool
type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates the pgx-backed entity repository.
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{pool: pool}
}

func (r *entityRepository) GetExistingIDs(ctx context.Context, skus []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(skus))
	if len(skus) == 0 {
		return ids, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT sku, entity_id FROM catalog_entity WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to look up skus: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		var id int64
		if err := rows.Scan(&sku, &id); err != nil {
			return nil, fmt.Errorf("failed to scan sku row: %w", err)
		}
		ids[sku] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// Insert creates entity rows and assigns ids by sku. The upsert keeps the
// operation idempotent when a concurrent batch created the same sku first.
func (r *entityRepository) Insert(ctx context.Context, entities []*model.CatalogEntity) error {
	if len(entities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entities {
		batch.Queue(`
			INSERT INTO catalog_entity (sku, type_id, attribute_set_id, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (sku) DO UPDATE SET updated_at = now()
			RETURNING entity_id`,
			e.SKU, string(e.Type), e.AttributeSetID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, e := range entities {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.SKU, err)
		}
		e.ID = &id
	}

	log.Debug().Int("count", len(entities)).Msg("Inserted catalog entities")
	return nil
}

func (r *entityRepository) Update(ctx context.Context, entities []*model.CatalogEntity) error {
	if len(entities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entities {
		batch.Queue(`
			UPDATE catalog_entity
			SET type_id = $2,
			    attribute_set_id = COALESCE($3, attribute_set_id),
			    updated_at = now()
			WHERE entity_id = $1`,
			e.ID, string(e.Type), e.AttributeSetID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, e := range entities {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update entity %s: %w", e.SKU, err)
		}
	}

	return nil
}

func (r *entityRepository) CheckIDsExist(ctx context.Context, ids []int64) (map[int64]bool, error) {
	existing := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT entity_id FROM catalog_entity WHERE entity_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check entity ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return existing, nil
}
