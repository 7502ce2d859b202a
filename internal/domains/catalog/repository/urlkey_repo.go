package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type urlKeyRepository struct {
	pool *pgxpool.Pool
}

// NewURLKeyRepository creates the pgx-backed URL key lookups. URL keys are
// plain url_key rows in the varchar value table; these queries exist so the
// allocator can seed its session map without loading the whole table.
func NewURLKeyRepository(pool *pgxpool.Pool) URLKeyRepository {
	return &urlKeyRepository{pool: pool}
}

func (r *urlKeyRepository) FindOwners(ctx context.Context, storeID int64, keys []string) (map[string]int64, error) {
	owners := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return owners, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT v.value, v.entity_id
		FROM catalog_entity_varchar v
		JOIN eav_attribute a ON a.attribute_id = v.attribute_id
		WHERE a.attribute_code = 'url_key'
		  AND v.store_id = $1
		  AND v.value = ANY($2)`,
		storeID, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to look up url key owners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var entityID int64
		if err := rows.Scan(&key, &entityID); err != nil {
			return nil, fmt.Errorf("failed to scan url key owner: %w", err)
		}
		owners[key] = entityID
	}
	return owners, rows.Err()
}

func (r *urlKeyRepository) FindExistingKeys(ctx context.Context, entityIDs []int64) (map[int64]map[int64]string, error) {
	keys := map[int64]map[int64]string{}
	if len(entityIDs) == 0 {
		return keys, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT v.entity_id, v.store_id, v.value
		FROM catalog_entity_varchar v
		JOIN eav_attribute a ON a.attribute_id = v.attribute_id
		WHERE a.attribute_code = 'url_key'
		  AND v.entity_id = ANY($1)`,
		entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing url keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, storeID int64
		var value string
		if err := rows.Scan(&entityID, &storeID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan url key: %w", err)
		}
		if keys[entityID] == nil {
			keys[entityID] = map[int64]string{}
		}
		keys[entityID][storeID] = value
	}
	return keys, rows.Err()
}

// FindKeysWithBase returns keys equal to base or carrying a suffix after it.
// Slugs contain no LIKE metacharacters, so the pattern needs no escaping.
func (r *urlKeyRepository) FindKeysWithBase(ctx context.Context, storeID int64, base string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.value
		FROM catalog_entity_varchar v
		JOIN eav_attribute a ON a.attribute_id = v.attribute_id
		WHERE a.attribute_code = 'url_key'
		  AND v.store_id = $1
		  AND (v.value = $2 OR v.value LIKE $2 || '-%')`,
		storeID, base)
	if err != nil {
		return nil, fmt.Errorf("failed to scan url key base %q: %w", base, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan url key: %w", err)
		}
		keys = append(keys, value)
	}
	return keys, rows.Err()
}
