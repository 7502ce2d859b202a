package service

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"

	"github.com/rs/zerolog/log"
)

// PlaceholderManager guarantees that every cross-entity reference in a
// batch resolves to a real id before the storage pass. SKUs referenced but
// neither present in the batch nor stored get a minimal disabled
// placeholder inserted into the arena, which then receives its id in the
// same storage round as everything else.
type PlaceholderManager struct {
	entityRepo repository.EntityRepository
}

// NewPlaceholderManager creates the manager.
func NewPlaceholderManager(entityRepo repository.EntityRepository) *PlaceholderManager {
	return &PlaceholderManager{entityRepo: entityRepo}
}

// EnsureReferencedEntitiesExist collects every SKU referenced through
// links, grouped members, bundle selections or configurable variants,
// drops those already present in the batch, bulk-looks the rest up in
// storage, and synthesizes placeholders for the remainder.
func (m *PlaceholderManager) EnsureReferencedEntitiesExist(ctx context.Context, batch *Batch) error {
	// Dedupe before querying storage: a SKU referenced from several
	// relations must resolve to one id.
	referenced := map[string]struct{}{}
	for _, e := range batch.Entities {
		for _, sku := range e.ReferencedSKUs() {
			if _, inBatch := batch.BySKU(sku); inBatch {
				continue
			}
			referenced[sku] = struct{}{}
		}
	}
	if len(referenced) == 0 {
		return nil
	}

	skus := make([]string, 0, len(referenced))
	for sku := range referenced {
		skus = append(skus, sku)
	}

	stored, err := m.entityRepo.GetExistingIDs(ctx, skus)
	if err != nil {
		return fmt.Errorf("failed to look up referenced skus: %w", err)
	}

	created := 0
	for _, sku := range skus {
		if id, ok := stored[sku]; ok {
			// Known entity: register its id for the member resolution pass.
			if batch.existingIDs == nil {
				batch.existingIDs = map[string]int64{}
			}
			batch.existingIDs[sku] = id
			continue
		}
		batch.Add(model.NewPlaceholder(sku))
		created++
	}

	if created > 0 {
		log.Info().Int("placeholders", created).Msg("Synthesized placeholder entities")
	}
	return nil
}

// ResolveMemberIDs replaces every referenced SKU with its id, after the
// insert/update split has assigned ids to the whole arena. A referenced
// batch entity that failed earlier steps downgrades only the referencing
// entity; a SKU with no batch entry and no stored id violates the manager's
// own invariant and is fatal.
func (m *PlaceholderManager) ResolveMemberIDs(batch *Batch) error {
	for _, e := range batch.Entities {
		if !e.OK() {
			continue
		}

		if len(e.LinkedSKUs) > 0 {
			e.LinkedIDs = map[model.LinkType][]int64{}
			for linkType, skus := range e.LinkedSKUs {
				ids := make([]int64, 0, len(skus))
				for _, sku := range skus {
					id, ok, err := memberID(batch, e, sku)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					ids = append(ids, id)
				}
				e.LinkedIDs[linkType] = ids
			}
		}

		for i := range e.GroupedMembers {
			id, ok, err := memberID(batch, e, e.GroupedMembers[i].SKU)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			e.GroupedMembers[i].ID = &id
		}

		for i := range e.BundleOptions {
			for j := range e.BundleOptions[i].Selections {
				sel := &e.BundleOptions[i].Selections[j]
				id, ok, err := memberID(batch, e, sel.SKU)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				sel.ID = &id
			}
		}

		if len(e.VariantSKUs) > 0 {
			ids := make([]int64, 0, len(e.VariantSKUs))
			for _, sku := range e.VariantSKUs {
				id, ok, err := memberID(batch, e, sku)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				ids = append(ids, id)
			}
			e.VariantIDs = ids
		}
	}
	return nil
}

// memberID resolves one referenced SKU to an id. A SKU owned by a batch
// entity that carries errors (or never got an id) is a per-entity problem:
// the referencing entity is downgraded and resolution continues. Only a SKU
// absent from both the batch and storage is fatal.
func memberID(batch *Batch, e *model.CatalogEntity, sku string) (int64, bool, error) {
	if ref, inBatch := batch.BySKU(sku); inBatch && (!ref.OK() || ref.ID == nil) {
		e.AddError(fmt.Sprintf("linked sku could not be resolved: %s", sku))
		return 0, false, nil
	}
	if id, ok := batch.IDForSKU(sku); ok {
		return id, true, nil
	}
	return 0, false, fmt.Errorf("%w: %s", model.ErrPlaceholderInvariant, sku)
}
