package service

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"
	"catalog-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// maxBatchEntities bounds the work done by one flush.
const maxBatchEntities = 1000

// ImportServiceInterface defines the catalog import operations.
type ImportServiceInterface interface {
	// ImportProducts runs one batch through the pipeline and reports
	// per-product outcomes.
	ImportProducts(ctx context.Context, req *model.ImportRequest) (*model.ImportResult, error)

	// RefreshMetadata drops the metadata cache and snapshot and re-reads
	// everything from storage.
	RefreshMetadata(ctx context.Context) error
}

type importService struct {
	meta     *MetadataCache
	defaults model.ImportConfig

	entityRepo   repository.EntityRepository
	valueRepo    repository.ValueRepository
	relationRepo repository.RelationRepository
	urlKeyRepo   repository.URLKeyRepository
	rewriteRepo  repository.UrlRewriteRepository

	asynqClient *asynq.Client
}

// NewImportService creates the import service. asynqClient may be nil to
// disable media transfer enqueueing.
func NewImportService(
	meta *MetadataCache,
	defaults model.ImportConfig,
	entityRepo repository.EntityRepository,
	valueRepo repository.ValueRepository,
	relationRepo repository.RelationRepository,
	urlKeyRepo repository.URLKeyRepository,
	rewriteRepo repository.UrlRewriteRepository,
	asynqClient *asynq.Client,
) ImportServiceInterface {
	return &importService{
		meta:         meta,
		defaults:     defaults,
		entityRepo:   entityRepo,
		valueRepo:    valueRepo,
		relationRepo: relationRepo,
		urlKeyRepo:   urlKeyRepo,
		rewriteRepo:  rewriteRepo,
		asynqClient:  asynqClient,
	}
}

func (s *importService) ImportProducts(ctx context.Context, req *model.ImportRequest) (*model.ImportResult, error) {
	if len(req.Products) == 0 {
		return nil, model.ErrEmptyBatch
	}
	if len(req.Products) > maxBatchEntities {
		return nil, fmt.Errorf("batch exceeds %d products", maxBatchEntities)
	}

	cfg := s.sessionConfig(req.Config)

	entities := make([]*model.CatalogEntity, 0, len(req.Products))
	for _, p := range req.Products {
		entities = append(entities, p.ToEntity())
	}

	log.Info().
		Int("products", len(entities)).
		Str("url_key_scheme", string(cfg.URLKeyScheme)).
		Str("duplicate_strategy", string(cfg.DuplicateStrategy)).
		Msg("Starting product import")

	// One pipeline per flush: the resolver's path cache and the
	// allocator's claims map must not leak across sessions.
	pipeline := NewImportPipeline(s.meta, cfg,
		s.entityRepo, s.valueRepo, s.relationRepo, s.urlKeyRepo, s.rewriteRepo)

	result, err := pipeline.Flush(ctx, entities)
	if err != nil {
		return nil, err
	}

	s.enqueueMediaTransfers(entities)
	return result, nil
}

func (s *importService) RefreshMetadata(ctx context.Context) error {
	return s.meta.Reload(ctx)
}

// sessionConfig merges a per-request override over the service defaults.
// Empty separator and suffix fall back so an override touching only the
// duplicate strategy does not break path building.
func (s *importService) sessionConfig(override *model.ImportConfig) model.ImportConfig {
	if override == nil {
		return s.defaults
	}
	cfg := *override
	if cfg.URLKeyScheme == "" {
		cfg.URLKeyScheme = s.defaults.URLKeyScheme
	}
	if cfg.DuplicateStrategy == "" {
		cfg.DuplicateStrategy = s.defaults.DuplicateStrategy
	}
	if cfg.CategoryPathSeparator == "" {
		cfg.CategoryPathSeparator = s.defaults.CategoryPathSeparator
	}
	if cfg.ProductURLSuffix == "" {
		cfg.ProductURLSuffix = s.defaults.ProductURLSuffix
	}
	return cfg
}

// enqueueMediaTransfers hands image URLs of successfully stored products to
// the worker. Enqueue failures are logged, not fatal: the catalog data is
// already committed.
func (s *importService) enqueueMediaTransfers(entities []*model.CatalogEntity) {
	if s.asynqClient == nil {
		return
	}

	for _, e := range entities {
		if !e.OK() || e.ID == nil || len(e.ImageURLs) == 0 {
			continue
		}

		payload, err := json.Marshal(shared.MediaTransferPayload{
			EntityID:  *e.ID,
			SKU:       e.SKU,
			ImageURLs: e.ImageURLs,
		})
		if err != nil {
			log.Warn().Err(err).Str("sku", e.SKU).Msg("Failed to marshal media transfer payload")
			continue
		}

		task := asynq.NewTask(shared.TypeTransferProductMedia, payload)
		if _, err := s.asynqClient.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(3)); err != nil {
			log.Warn().Err(err).Str("sku", e.SKU).Msg("Failed to enqueue media transfer")
		}
	}
}
