package repository

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type metadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository creates the pgx-backed metadata repository.
func NewMetadataRepository(pool *pgxpool.Pool) MetadataRepository {
	return &metadataRepository{pool: pool}
}

func (r *metadataRepository) LoadAttributes(ctx context.Context) (map[string]*model.Attribute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT attribute_id, attribute_code, backend_type, frontend_input, is_required
		FROM eav_attribute`)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	defer rows.Close()

	attrs := map[string]*model.Attribute{}
	byID := map[int64]*model.Attribute{}
	for rows.Next() {
		a := &model.Attribute{Options: map[string]int64{}}
		var backend, input string
		if err := rows.Scan(&a.ID, &a.Code, &backend, &input, &a.IsRequired); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		a.BackendType = model.BackendType(backend)
		a.FrontendInput = input
		attrs[a.Code] = a
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	// Option values for select/multiselect attributes
	optRows, err := r.pool.Query(ctx,
		`SELECT attribute_id, option_id, value FROM eav_attribute_option`)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribute options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var attrID, optionID int64
		var value string
		if err := optRows.Scan(&attrID, &optionID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if a, ok := byID[attrID]; ok {
			a.Options[value] = optionID
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	log.Debug().Int("attributes", len(attrs)).Msg("Loaded attribute metadata")
	return attrs, nil
}

func (r *metadataRepository) loadNameIDMap(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

func (r *metadataRepository) LoadAttributeSets(ctx context.Context) (map[string]int64, error) {
	m, err := r.loadNameIDMap(ctx,
		`SELECT attribute_set_name, attribute_set_id FROM eav_attribute_set`)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribute sets: %w", err)
	}
	return m, nil
}

func (r *metadataRepository) LoadStoreViews(ctx context.Context) (map[string]int64, error) {
	m, err := r.loadNameIDMap(ctx, `SELECT code, store_id FROM store_view`)
	if err != nil {
		return nil, fmt.Errorf("failed to load store views: %w", err)
	}
	return m, nil
}

func (r *metadataRepository) LoadWebsites(ctx context.Context) (map[string]int64, error) {
	m, err := r.loadNameIDMap(ctx, `SELECT code, website_id FROM store_website`)
	if err != nil {
		return nil, fmt.Errorf("failed to load websites: %w", err)
	}
	return m, nil
}

func (r *metadataRepository) LoadTaxClasses(ctx context.Context) (map[string]int64, error) {
	m, err := r.loadNameIDMap(ctx, `SELECT class_name, class_id FROM tax_class`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax classes: %w", err)
	}
	return m, nil
}

func (r *metadataRepository) CreateOption(ctx context.Context, attributeID int64, label string) (int64, error) {
	var optionID int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO eav_attribute_option (attribute_id, value)
		VALUES ($1, $2)
		ON CONFLICT (attribute_id, value) DO UPDATE SET value = EXCLUDED.value
		RETURNING option_id`,
		attributeID, label).Scan(&optionID)
	if err != nil {
		return 0, fmt.Errorf("failed to create option %q: %w", label, err)
	}

	log.Info().
		Int64("attribute_id", attributeID).
		Str("label", label).
		Int64("option_id", optionID).
		Msg("Created attribute option")

	return optionID, nil
}
