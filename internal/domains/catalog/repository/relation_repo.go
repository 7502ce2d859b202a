package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type relationRepository struct {
	pool *pgxpool.Pool
}

// NewRelationRepository creates the pgx-backed relation writers.
func NewRelationRepository(pool *pgxpool.Pool) RelationRepository {
	return &relationRepository{pool: pool}
}

// ReplaceLinks swaps the stored link set of one type for the given rows.
// Delete-then-insert keeps the write idempotent under re-import.
func (r *relationRepository) ReplaceLinks(ctx context.Context, entityID int64, linkType model.LinkType, rows []LinkRow) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM product_link WHERE entity_id = $1 AND link_type = $2`,
		entityID, string(linkType))
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO product_link (entity_id, linked_entity_id, link_type, position, qty)
			VALUES ($1, $2, $3, $4, $5)`,
			entityID, row.LinkedID, string(linkType), row.Position, row.Qty)
	}
	return r.runBatch(ctx, batch, "product links")
}

func (r *relationRepository) ReplaceVariantLinks(ctx context.Context, parentID int64, childIDs []int64) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM super_link WHERE parent_id = $1`, parentID)
	for _, childID := range childIDs {
		batch.Queue(`INSERT INTO super_link (parent_id, child_id) VALUES ($1, $2)`,
			parentID, childID)
	}
	return r.runBatch(ctx, batch, "variant links")
}

func (r *relationRepository) ReplaceBundleOptions(ctx context.Context, entityID int64, options []model.BundleOption) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		// Selections cascade via FK on bundle_option.
		if _, err := tx.Exec(ctx,
			`DELETE FROM bundle_option WHERE entity_id = $1`, entityID); err != nil {
			return fmt.Errorf("failed to clear bundle options: %w", err)
		}

		for _, opt := range options {
			var optionID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO bundle_option (entity_id, title, input_type, required, position)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING option_id`,
				entityID, opt.Title, opt.InputType, opt.Required, opt.Position).Scan(&optionID)
			if err != nil {
				return fmt.Errorf("failed to insert bundle option %q: %w", opt.Title, err)
			}

			for _, sel := range opt.Selections {
				if sel.ID == nil {
					return fmt.Errorf("bundle selection %s has no resolved id", sel.SKU)
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO bundle_selection (option_id, parent_entity_id, selection_entity_id, qty, price, is_default, position)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					optionID, entityID, *sel.ID, sel.Qty, sel.Price, sel.IsDefault, sel.Position); err != nil {
					return fmt.Errorf("failed to insert bundle selection %s: %w", sel.SKU, err)
				}
			}
		}
		return nil
	})
}

func (r *relationRepository) ReplaceCustomOptions(ctx context.Context, entityID int64, options []model.CustomOption) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM custom_option WHERE entity_id = $1`, entityID); err != nil {
			return fmt.Errorf("failed to clear custom options: %w", err)
		}

		for _, opt := range options {
			var optionID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO custom_option (entity_id, title, type, required, price, price_type, sku, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING option_id`,
				entityID, opt.Title, opt.Type, opt.Required, opt.Price, opt.PriceType, opt.SKU, opt.SortOrder).Scan(&optionID)
			if err != nil {
				return fmt.Errorf("failed to insert custom option %q: %w", opt.Title, err)
			}

			for _, val := range opt.Values {
				if _, err := tx.Exec(ctx, `
					INSERT INTO custom_option_value (option_id, title, price, price_type, sku, sort_order)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					optionID, val.Title, val.Price, val.PriceType, val.SKU, val.SortOrder); err != nil {
					return fmt.Errorf("failed to insert custom option value %q: %w", val.Title, err)
				}
			}
		}

		// Flag on the entity row so storefront queries can skip the join.
		if _, err := tx.Exec(ctx,
			`UPDATE catalog_entity SET has_options = $2 WHERE entity_id = $1`,
			entityID, len(options) > 0); err != nil {
			return fmt.Errorf("failed to flag custom options: %w", err)
		}
		return nil
	})
}

func (r *relationRepository) ReplaceTierPrices(ctx context.Context, entityID int64, rows []model.TierPrice) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM tier_price WHERE entity_id = $1`, entityID)
	for _, tp := range rows {
		var websiteID int64
		if tp.WebsiteID != nil {
			websiteID = *tp.WebsiteID
		}
		batch.Queue(`
			INSERT INTO tier_price (entity_id, website_id, customer_group_id, qty, price)
			VALUES ($1, $2, $3, $4, $5)`,
			entityID, websiteID, tp.CustomerGroupID, tp.Qty, tp.Price)
	}
	return r.runBatch(ctx, batch, "tier prices")
}

func (r *relationRepository) ReplaceWebsites(ctx context.Context, entityID int64, websiteIDs []int64) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM catalog_entity_website WHERE entity_id = $1`, entityID)
	for _, websiteID := range websiteIDs {
		batch.Queue(`
			INSERT INTO catalog_entity_website (entity_id, website_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			entityID, websiteID)
	}
	return r.runBatch(ctx, batch, "website assignments")
}

func (r *relationRepository) UpsertStock(ctx context.Context, entityID int64, stock model.StockItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stock_item (entity_id, qty, is_in_stock, manage_stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id)
		DO UPDATE SET qty = EXCLUDED.qty,
		              is_in_stock = EXCLUDED.is_in_stock,
		              manage_stock = EXCLUDED.manage_stock`,
		entityID, stock.Qty, stock.IsInStock, stock.ManageStock)
	if err != nil {
		return fmt.Errorf("failed to upsert stock item: %w", err)
	}
	return nil
}

func (r *relationRepository) runBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write %s: %w", what, err)
		}
	}
	return nil
}
