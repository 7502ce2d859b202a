package service

import (
	"context"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"

	"github.com/rs/zerolog/log"
)

// ImportPipeline runs one batch through resolve → placeholders → validate →
// id assignment → URL keys → storage writers → rewrite reconciliation.
// Single-threaded per batch: every step depends on the previous step's
// completed whole-batch state. The resolver and allocator inside are
// session-scoped; build one pipeline per flush.
type ImportPipeline struct {
	meta *MetadataCache
	cfg  model.ImportConfig

	resolver     *ReferenceResolver
	placeholders *PlaceholderManager
	validator    *EntityValidator
	allocator    *URLKeyAllocator
	reconciler   *RewriteReconciler

	entityRepo   repository.EntityRepository
	valueRepo    repository.ValueRepository
	relationRepo repository.RelationRepository
}

// NewImportPipeline wires a pipeline for one import session over a shared
// metadata cache.
func NewImportPipeline(
	meta *MetadataCache,
	cfg model.ImportConfig,
	entityRepo repository.EntityRepository,
	valueRepo repository.ValueRepository,
	relationRepo repository.RelationRepository,
	urlKeyRepo repository.URLKeyRepository,
	rewriteRepo repository.UrlRewriteRepository,
) *ImportPipeline {
	return &ImportPipeline{
		meta:         meta,
		cfg:          cfg,
		resolver:     NewReferenceResolver(meta, cfg),
		placeholders: NewPlaceholderManager(entityRepo),
		validator:    NewEntityValidator(meta),
		allocator:    NewURLKeyAllocator(urlKeyRepo, cfg),
		reconciler:   NewRewriteReconciler(rewriteRepo, meta, cfg),
		entityRepo:   entityRepo,
		valueRepo:    valueRepo,
		relationRepo: relationRepo,
	}
}

// Flush runs the whole sequence once. Per-entity problems stay on the
// entities; a fatal storage error marks every entity in the batch not-ok
// with the propagated message and is returned to the caller.
func (p *ImportPipeline) Flush(ctx context.Context, entities []*model.CatalogEntity) (*model.ImportResult, error) {
	if len(entities) == 0 {
		return nil, model.ErrEmptyBatch
	}
	if err := p.meta.Load(ctx); err != nil {
		return nil, p.fatal(entities, err)
	}

	batch := NewBatch(entities)
	for _, e := range batch.Entities {
		p.resolver.ResolveIDs(ctx, e)
	}

	callerCount := len(batch.Entities)
	if err := p.placeholders.EnsureReferencedEntitiesExist(ctx, batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}
	// Placeholders entered the arena unresolved; run them through the
	// resolver like everything else.
	for _, e := range batch.Entities[callerCount:] {
		p.resolver.ResolveIDs(ctx, e)
	}

	stored, err := p.entityRepo.GetExistingIDs(ctx, batch.SKUs())
	if err != nil {
		return nil, p.fatal(batch.Entities, err)
	}
	batch.SetExistingIDs(stored)

	if err := p.checkExplicitIDs(ctx, batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	for _, e := range batch.Entities {
		_, exists := batch.ExistingID(e.SKU)
		p.validator.Validate(e, e.ID == nil && !exists)
	}

	if err := p.assignIDs(ctx, batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	if err := p.placeholders.ResolveMemberIDs(batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	if err := p.allocator.ResolveAndValidateURLKeys(ctx, batch.Entities); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	if err := p.writeValues(ctx, batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}
	if err := p.writeRelations(ctx, batch); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	if err := p.reconciler.Reconcile(ctx, batch.Entities); err != nil {
		return nil, p.fatal(batch.Entities, err)
	}

	result := model.BuildImportResult(batch.Entities)
	log.Info().
		Int("entities", len(batch.Entities)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Import batch flushed")
	return result, nil
}

// fatal marks every entity not-ok with the propagated error text, per the
// all-or-visible-failure contract, and passes the error through.
func (p *ImportPipeline) fatal(entities []*model.CatalogEntity, err error) error {
	for _, e := range entities {
		e.AddError(err.Error())
	}
	log.Error().Err(err).Msg("Import batch failed")
	return err
}

// checkExplicitIDs verifies caller-supplied ids against storage. An unknown
// id downgrades the entity; the rest of the batch proceeds.
func (p *ImportPipeline) checkExplicitIDs(ctx context.Context, batch *Batch) error {
	var ids []int64
	for _, e := range batch.Entities {
		if e.ID != nil {
			ids = append(ids, *e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	exists, err := p.entityRepo.CheckIDsExist(ctx, ids)
	if err != nil {
		return err
	}
	for _, e := range batch.Entities {
		if e.ID != nil && !exists[*e.ID] {
			e.AddError("entity id not found in storage")
			e.ID = nil
		}
	}
	return nil
}

// assignIDs splits the arena into inserts and updates and gives every ok
// entity a database id.
func (p *ImportPipeline) assignIDs(ctx context.Context, batch *Batch) error {
	var inserts, updates []*model.CatalogEntity
	for _, e := range batch.Entities {
		if !e.OK() {
			continue
		}
		if e.ID != nil {
			updates = append(updates, e)
			continue
		}
		if id, ok := batch.ExistingID(e.SKU); ok {
			stored := id
			e.ID = &stored
			updates = append(updates, e)
			continue
		}
		inserts = append(inserts, e)
	}

	if len(inserts) > 0 {
		if err := p.entityRepo.Insert(ctx, inserts); err != nil {
			return err
		}
	}
	if len(updates) > 0 {
		if err := p.entityRepo.Update(ctx, updates); err != nil {
			return err
		}
	}
	return nil
}

// writeValues flattens every ok entity's overlays into per-backend value
// rows. URL keys ride along as regular url_key varchar values.
func (p *ImportPipeline) writeValues(ctx context.Context, batch *Batch) error {
	urlKeyAttr, hasURLKeyAttr := p.meta.Attribute("url_key")

	var rows []repository.AttributeValueRow
	for _, e := range batch.Entities {
		if !e.OK() || e.ID == nil {
			continue
		}
		for _, ov := range e.Overlays {
			if ov.StoreID == nil {
				continue
			}
			for code, value := range ov.Attributes {
				attr, ok := p.meta.Attribute(code)
				if !ok || attr.BackendType == model.BackendStatic {
					continue
				}
				rows = append(rows, repository.AttributeValueRow{
					EntityID:    *e.ID,
					AttributeID: attr.ID,
					StoreID:     *ov.StoreID,
					Backend:     attr.BackendType,
					Value:       value,
				})
			}
			if hasURLKeyAttr && ov.URLKey.Value != "" {
				rows = append(rows, repository.AttributeValueRow{
					EntityID:    *e.ID,
					AttributeID: urlKeyAttr.ID,
					StoreID:     *ov.StoreID,
					Backend:     urlKeyAttr.BackendType,
					Value:       ov.URLKey.Value,
				})
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return p.valueRepo.UpsertValues(ctx, rows)
}

// writeRelations writes capability payloads for ok entities. Only payloads
// the caller actually supplied are replaced; an absent payload never wipes
// stored rows.
func (p *ImportPipeline) writeRelations(ctx context.Context, batch *Batch) error {
	for _, e := range batch.Entities {
		if !e.OK() || e.ID == nil {
			continue
		}
		entityID := *e.ID

		if len(e.WebsiteCodes) > 0 {
			if err := p.relationRepo.ReplaceWebsites(ctx, entityID, e.WebsiteIDs); err != nil {
				return err
			}
		}

		for linkType, ids := range e.LinkedIDs {
			rows := make([]repository.LinkRow, len(ids))
			for i, id := range ids {
				rows[i] = repository.LinkRow{LinkedID: id, Position: i + 1}
			}
			if err := p.relationRepo.ReplaceLinks(ctx, entityID, linkType, rows); err != nil {
				return err
			}
		}

		if len(e.GroupedMembers) > 0 {
			rows := make([]repository.LinkRow, 0, len(e.GroupedMembers))
			for _, m := range e.GroupedMembers {
				if m.ID == nil {
					continue
				}
				qty := m.Qty
				rows = append(rows, repository.LinkRow{LinkedID: *m.ID, Position: m.Position, Qty: &qty})
			}
			if err := p.relationRepo.ReplaceLinks(ctx, entityID, model.LinkGrouped, rows); err != nil {
				return err
			}
		}

		if len(e.VariantIDs) > 0 {
			if err := p.relationRepo.ReplaceVariantLinks(ctx, entityID, e.VariantIDs); err != nil {
				return err
			}
		}

		if len(e.BundleOptions) > 0 {
			if err := p.relationRepo.ReplaceBundleOptions(ctx, entityID, e.BundleOptions); err != nil {
				return err
			}
		}

		if len(e.CustomOptions) > 0 {
			if err := p.relationRepo.ReplaceCustomOptions(ctx, entityID, e.CustomOptions); err != nil {
				return err
			}
		}

		if len(e.TierPrices) > 0 {
			if err := p.relationRepo.ReplaceTierPrices(ctx, entityID, e.TierPrices); err != nil {
				return err
			}
		}

		if e.Stock != nil {
			if err := p.relationRepo.UpsertStock(ctx, entityID, *e.Stock); err != nil {
				return err
			}
		}
	}
	return nil
}
