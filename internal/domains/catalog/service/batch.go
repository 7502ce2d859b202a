package service

import (
	"catalog-backend/internal/domains/catalog/model"
)

// Batch is the working arena of one flush: the caller's entities plus any
// placeholders synthesized for forward references, indexed by SKU. On
// duplicate SKUs within one batch the last write wins for the index; every
// entity still flows through validation so no row is dropped silently.
type Batch struct {
	Entities []*model.CatalogEntity

	bySKU map[string]*model.CatalogEntity

	// existingIDs caches the sku → stored id lookup for the batch's own
	// SKUs, filled once by the pipeline and reused by later steps.
	existingIDs map[string]int64
}

// NewBatch builds the arena over the given entities.
func NewBatch(entities []*model.CatalogEntity) *Batch {
	b := &Batch{
		Entities: entities,
		bySKU:    make(map[string]*model.CatalogEntity, len(entities)),
	}
	for _, e := range entities {
		b.bySKU[e.SKU] = e
	}
	return b
}

// Add appends an entity (typically a placeholder) to the arena.
func (b *Batch) Add(e *model.CatalogEntity) {
	b.Entities = append(b.Entities, e)
	b.bySKU[e.SKU] = e
}

// BySKU returns the batch entity owning the SKU, last write winning.
func (b *Batch) BySKU(sku string) (*model.CatalogEntity, bool) {
	e, ok := b.bySKU[sku]
	return e, ok
}

// SKUs returns every distinct SKU in the arena.
func (b *Batch) SKUs() []string {
	skus := make([]string, 0, len(b.bySKU))
	for sku := range b.bySKU {
		skus = append(skus, sku)
	}
	return skus
}

// SetExistingIDs merges a sku → id lookup result into the batch. Merging
// keeps ids registered earlier (referenced SKUs found in storage) alive.
func (b *Batch) SetExistingIDs(ids map[string]int64) {
	if b.existingIDs == nil {
		b.existingIDs = make(map[string]int64, len(ids))
	}
	for sku, id := range ids {
		b.existingIDs[sku] = id
	}
}

// ExistingID returns the stored id for a batch SKU, when one exists.
func (b *Batch) ExistingID(sku string) (int64, bool) {
	id, ok := b.existingIDs[sku]
	return id, ok
}

// IDForSKU resolves a referenced SKU to an id: a batch entity's assigned id
// first, then a stored id. Used after the insert/update split, when every
// batch entity has one.
func (b *Batch) IDForSKU(sku string) (int64, bool) {
	if e, ok := b.bySKU[sku]; ok && e.ID != nil {
		return *e.ID, true
	}
	if id, ok := b.existingIDs[sku]; ok {
		return id, true
	}
	return 0, false
}
