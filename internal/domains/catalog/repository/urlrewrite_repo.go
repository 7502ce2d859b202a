package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type urlRewriteRepository struct {
	pool *pgxpool.Pool
}

// NewUrlRewriteRepository creates the pgx-backed rewrite repository.
func NewUrlRewriteRepository(pool *pgxpool.Pool) UrlRewriteRepository {
	return &urlRewriteRepository{pool: pool}
}

func (r *urlRewriteRepository) FindByEntityIDs(ctx context.Context, entityIDs []int64) ([]*model.UrlRewrite, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT url_rewrite_id, entity_type, entity_id, request_path, target_path,
		       redirect_type, store_id, is_autogenerated, category_id
		FROM url_rewrite
		WHERE entity_type = $1 AND entity_id = ANY($2)`,
		model.RewriteEntityProduct, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load url rewrites: %w", err)
	}
	defer rows.Close()

	var rewrites []*model.UrlRewrite
	for rows.Next() {
		rw := &model.UrlRewrite{}
		if err := rows.Scan(&rw.ID, &rw.EntityType, &rw.EntityID, &rw.RequestPath,
			&rw.TargetPath, &rw.RedirectType, &rw.StoreID, &rw.IsAutogenerated,
			&rw.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan url rewrite: %w", err)
		}
		rewrites = append(rewrites, rw)
	}
	return rewrites, rows.Err()
}

// InsertIgnore writes the rows with ON CONFLICT DO NOTHING on the unique
// (store_id, request_path) pair. Rows that survive the conflict check get
// their ID populated; conflicting rows keep ID == 0 and the first write wins.
func (r *urlRewriteRepository) InsertIgnore(ctx context.Context, rewrites []*model.UrlRewrite) error {
	if len(rewrites) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rw := range rewrites {
		batch.Queue(`
			INSERT INTO url_rewrite
				(entity_type, entity_id, request_path, target_path, redirect_type,
				 store_id, is_autogenerated, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (store_id, request_path) DO NOTHING
			RETURNING url_rewrite_id`,
			rw.EntityType, rw.EntityID, rw.RequestPath, rw.TargetPath,
			rw.RedirectType, rw.StoreID, rw.IsAutogenerated, rw.CategoryID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, rw := range rewrites {
		var id int64
		err := results.QueryRow().Scan(&id)
		switch {
		case err == pgx.ErrNoRows:
			// Conflict: another record already owns (store, path).
			log.Debug().
				Str("request_path", rw.RequestPath).
				Int64("store_id", rw.StoreID).
				Msg("URL rewrite collision ignored, first write wins")
		case err != nil:
			return fmt.Errorf("failed to insert url rewrite %q: %w", rw.RequestPath, err)
		default:
			rw.ID = id
		}
	}
	return nil
}

func (r *urlRewriteRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	// Index rows first; no FK cascade on the derived table.
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM url_rewrite_product_category WHERE url_rewrite_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete category index rows: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM url_rewrite WHERE url_rewrite_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete url rewrites: %w", err)
	}
	return nil
}

func (r *urlRewriteRepository) ReplaceCategoryIndex(ctx context.Context, rows []CategoryIndexRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO url_rewrite_product_category (url_rewrite_id, category_id, product_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (url_rewrite_id) DO UPDATE
			SET category_id = EXCLUDED.category_id, product_id = EXCLUDED.product_id`,
			row.UrlRewriteID, row.CategoryID, row.ProductID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write category index: %w", err)
		}
	}
	return nil
}
