package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates the pgx-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

// LoadTree reads the whole category table plus per-store name/url_key values.
// The tree is a read snapshot; auto-created categories are added to it by the
// resolver after CreateChild succeeds.
func (r *categoryRepository) LoadTree(ctx context.Context) (map[int64]*model.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category_id, COALESCE(parent_id, 0), path, level
		FROM catalog_category`)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	tree := map[int64]*model.Category{}
	for rows.Next() {
		c := &model.Category{URLKeys: map[int64]string{}}
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Path, &c.Level); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		tree[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	// Names and URL keys live in the category varchar value table.
	valRows, err := r.pool.Query(ctx, `
		SELECT v.entity_id, v.store_id, a.attribute_code, v.value
		FROM catalog_category_varchar v
		JOIN eav_attribute a ON a.attribute_id = v.attribute_id
		WHERE a.attribute_code IN ('name', 'url_key')`)
	if err != nil {
		return nil, fmt.Errorf("failed to load category values: %w", err)
	}
	defer valRows.Close()

	for valRows.Next() {
		var categoryID, storeID int64
		var code, value string
		if err := valRows.Scan(&categoryID, &storeID, &code, &value); err != nil {
			return nil, fmt.Errorf("failed to scan category value: %w", err)
		}
		c, ok := tree[categoryID]
		if !ok {
			continue
		}
		switch code {
		case "name":
			if storeID == model.GlobalStoreID {
				c.Name = value
			}
		case "url_key":
			c.URLKeys[storeID] = value
		}
	}
	if err := valRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	log.Debug().Int("categories", len(tree)).Msg("Loaded category tree")
	return tree, nil
}

// CreateChild inserts a category under parent with the materialized path
// chain extended by the new id.
func (r *categoryRepository) CreateChild(ctx context.Context, parent *model.Category, name, urlKey string) (*model.Category, error) {
	child := &model.Category{
		ParentID: parent.ID,
		Level:    parent.Level + 1,
		Name:     name,
		URLKeys:  map[int64]string{model.GlobalStoreID: urlKey},
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_category (parent_id, level, position, path)
		VALUES ($1, $2, 0, '')
		RETURNING category_id`,
		parent.ID, child.Level).Scan(&child.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert category %q: %w", name, err)
	}

	child.Path = fmt.Sprintf("%s/%d", parent.Path, child.ID)
	if _, err := r.pool.Exec(ctx,
		`UPDATE catalog_category SET path = $2 WHERE category_id = $1`,
		child.ID, child.Path); err != nil {
		return nil, fmt.Errorf("failed to materialize category path: %w", err)
	}

	// Global-scope name and url_key rows.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO catalog_category_varchar (entity_id, attribute_id, store_id, value)
		SELECT $1, attribute_id, $2, CASE attribute_code WHEN 'name' THEN $3 ELSE $4 END
		FROM eav_attribute
		WHERE attribute_code IN ('name', 'url_key')
		ON CONFLICT (entity_id, attribute_id, store_id) DO UPDATE SET value = EXCLUDED.value`,
		child.ID, model.GlobalStoreID, name, urlKey)
	if err != nil {
		return nil, fmt.Errorf("failed to write category values: %w", err)
	}

	log.Info().
		Int64("category_id", child.ID).
		Str("name", name).
		Str("path", child.Path).
		Msg("Created category")

	return child, nil
}
