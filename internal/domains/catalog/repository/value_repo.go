package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type valueRepository struct {
	pool *pgxpool.Pool
}

// NewValueRepository creates the pgx-backed attribute value writer.
func NewValueRepository(pool *pgxpool.Pool) ValueRepository {
	return &valueRepository{pool: pool}
}

// valueTable maps a backend type to its value table. The identifier is
// quoted so the dynamic table name is safe to interpolate.
func valueTable(backend model.BackendType) (string, error) {
	switch backend {
	case model.BackendVarchar, model.BackendText, model.BackendDecimal,
		model.BackendDatetime, model.BackendInt:
		return pq.QuoteIdentifier("catalog_entity_" + string(backend)), nil
	case model.BackendStatic:
		return "", fmt.Errorf("static attributes have no value table")
	default:
		return "", fmt.Errorf("unknown backend type: %s", backend)
	}
}

// UpsertValues writes the rows grouped per backend type. The unique key
// (entity_id, attribute_id, store_id) makes re-imports idempotent.
func (r *valueRepository) UpsertValues(ctx context.Context, rows []AttributeValueRow) error {
	if len(rows) == 0 {
		return nil
	}

	grouped := map[model.BackendType][]AttributeValueRow{}
	for _, row := range rows {
		grouped[row.Backend] = append(grouped[row.Backend], row)
	}

	for backend, group := range grouped {
		table, err := valueTable(backend)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, row := range group {
			batch.Queue(fmt.Sprintf(`
				INSERT INTO %s (entity_id, attribute_id, store_id, value)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (entity_id, attribute_id, store_id)
				DO UPDATE SET value = EXCLUDED.value`, table),
				row.EntityID, row.AttributeID, row.StoreID, row.Value)
		}

		results := r.pool.SendBatch(ctx, batch)
		for range group {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert %s values: %w", backend, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close %s batch: %w", backend, err)
		}
	}

	log.Debug().Int("rows", len(rows)).Msg("Upserted attribute values")
	return nil
}
