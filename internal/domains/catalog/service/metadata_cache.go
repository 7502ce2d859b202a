package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"
	"catalog-backend/pkg/cache"

	"github.com/rs/zerolog/log"
)

const (
	metadataSnapshotKey = "catalog:metadata:snapshot"
	metadataSnapshotTTL = 15 * time.Minute
)

// metadataSnapshot is the Redis-serializable form of the cache contents.
// Categories are flattened because map keys must be strings in JSON.
type metadataSnapshot struct {
	Attributes    map[string]*model.Attribute `json:"attributes"`
	AttributeSets map[string]int64            `json:"attribute_sets"`
	StoreViews    map[string]int64            `json:"store_views"`
	Websites      map[string]int64            `json:"websites"`
	TaxClasses    map[string]int64            `json:"tax_classes"`
	Categories    []*model.Category           `json:"categories"`
}

// MetadataCache is the process-lifetime read model of the external catalog
// schema. Reads take the shared lock; the auto-create paths (categories,
// attribute options) serialize under the write lock so two concurrent
// batches cannot create the same missing entry twice.
type MetadataCache struct {
	mu sync.RWMutex

	metadataRepo repository.MetadataRepository
	categoryRepo repository.CategoryRepository
	snapshots    cache.Cache // optional; nil disables the warm path

	attributes    map[string]*model.Attribute
	attributeSets map[string]int64
	storeViews    map[string]int64
	websites      map[string]int64
	taxClasses    map[string]int64
	categories    map[int64]*model.Category

	loaded bool
}

// NewMetadataCache wires the cache to its repositories. snapshots may be nil.
func NewMetadataCache(metadataRepo repository.MetadataRepository, categoryRepo repository.CategoryRepository, snapshots cache.Cache) *MetadataCache {
	return &MetadataCache{
		metadataRepo: metadataRepo,
		categoryRepo: categoryRepo,
		snapshots:    snapshots,
	}
}

// Load populates the cache once; subsequent calls are no-ops until Reload.
func (c *MetadataCache) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}
	return c.loadLocked(ctx)
}

// Reload drops the snapshot and re-reads everything from storage.
func (c *MetadataCache) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshots != nil {
		if err := c.snapshots.Delete(ctx, metadataSnapshotKey); err != nil {
			log.Warn().Err(err).Msg("Failed to drop metadata snapshot")
		}
	}
	c.loaded = false
	return c.loadLocked(ctx)
}

func (c *MetadataCache) loadLocked(ctx context.Context) error {
	// Warm path: a recent snapshot skips the five-table cold load.
	if c.snapshots != nil {
		var snap metadataSnapshot
		found, err := c.snapshots.Get(ctx, metadataSnapshotKey, &snap)
		if err != nil {
			log.Warn().Err(err).Msg("Metadata snapshot read failed, falling back to SQL")
		} else if found {
			c.apply(&snap)
			log.Debug().Msg("Metadata loaded from snapshot")
			return nil
		}
	}

	attrs, err := c.metadataRepo.LoadAttributes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load attributes: %w", err)
	}
	sets, err := c.metadataRepo.LoadAttributeSets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load attribute sets: %w", err)
	}
	stores, err := c.metadataRepo.LoadStoreViews(ctx)
	if err != nil {
		return fmt.Errorf("failed to load store views: %w", err)
	}
	websites, err := c.metadataRepo.LoadWebsites(ctx)
	if err != nil {
		return fmt.Errorf("failed to load websites: %w", err)
	}
	taxClasses, err := c.metadataRepo.LoadTaxClasses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tax classes: %w", err)
	}
	tree, err := c.categoryRepo.LoadTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load category tree: %w", err)
	}

	// The global scope is addressable even when the store table omits it.
	if _, ok := stores[model.GlobalStoreCode]; !ok {
		stores[model.GlobalStoreCode] = model.GlobalStoreID
	}

	c.attributes = attrs
	c.attributeSets = sets
	c.storeViews = stores
	c.websites = websites
	c.taxClasses = taxClasses
	c.categories = tree
	c.loaded = true

	if c.snapshots != nil {
		snap := &metadataSnapshot{
			Attributes:    attrs,
			AttributeSets: sets,
			StoreViews:    stores,
			Websites:      websites,
			TaxClasses:    taxClasses,
		}
		for _, cat := range tree {
			snap.Categories = append(snap.Categories, cat)
		}
		if err := c.snapshots.Set(ctx, metadataSnapshotKey, snap, metadataSnapshotTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to store metadata snapshot")
		}
	}

	log.Info().
		Int("attributes", len(attrs)).
		Int("categories", len(tree)).
		Int("store_views", len(stores)).
		Msg("Catalog metadata loaded")

	return nil
}

func (c *MetadataCache) apply(snap *metadataSnapshot) {
	c.attributes = snap.Attributes
	c.attributeSets = snap.AttributeSets
	c.storeViews = snap.StoreViews
	c.websites = snap.Websites
	c.taxClasses = snap.TaxClasses
	c.categories = make(map[int64]*model.Category, len(snap.Categories))
	for _, cat := range snap.Categories {
		c.categories[cat.ID] = cat
	}
	if _, ok := c.storeViews[model.GlobalStoreCode]; !ok {
		c.storeViews[model.GlobalStoreCode] = model.GlobalStoreID
	}
	c.loaded = true
}

func (c *MetadataCache) ensureLoaded() error {
	if !c.loaded {
		return model.ErrMetadataNotLoaded
	}
	return nil
}

// Attribute returns the attribute definition for the code.
func (c *MetadataCache) Attribute(code string) (*model.Attribute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.attributes[code]
	return a, ok
}

// RequiredAttributes returns the attributes flagged required, sorted by
// code so validation errors come out in a stable order.
func (c *MetadataCache) RequiredAttributes() []*model.Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var required []*model.Attribute
	for _, a := range c.attributes {
		if a.IsRequired {
			required = append(required, a)
		}
	}
	sort.Slice(required, func(i, j int) bool { return required[i].Code < required[j].Code })
	return required
}

// AttributeSetID maps an attribute set name to its id.
func (c *MetadataCache) AttributeSetID(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.attributeSets[name]
	return id, ok
}

// StoreViewID maps a store view code to its id.
func (c *MetadataCache) StoreViewID(code string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.storeViews[code]
	return id, ok
}

// WebsiteID maps a website code to its id.
func (c *MetadataCache) WebsiteID(code string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.websites[code]
	return id, ok
}

// TaxClassID maps a tax class name to its id.
func (c *MetadataCache) TaxClassID(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.taxClasses[name]
	return id, ok
}

// Category returns a tree node by id.
func (c *MetadataCache) Category(id int64) (*model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	return cat, ok
}

// RootCategory returns the tree root (level 0). Nil when the tree is empty.
func (c *MetadataCache) RootCategory() *model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.Level == 0 {
			return cat
		}
	}
	return nil
}

// ChildByName finds a direct child of parent by case-insensitive name.
func (c *MetadataCache) ChildByName(parentID int64, name string) (*model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.ParentID == parentID && strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return nil, false
}

// Ancestors returns the chain from below the root down to the category
// itself, ordered top-first. The level-0 root is excluded.
func (c *MetadataCache) Ancestors(category *model.Category) []*model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var chain []*model.Category
	for cat := category; cat != nil && cat.Level > 0; {
		chain = append([]*model.Category{cat}, chain...)
		cat = c.categories[cat.ParentID]
	}
	return chain
}

// CreateCategory creates a child under parent, serialized so concurrent
// sessions cannot duplicate the same missing node. Double-checks under the
// write lock before hitting storage.
func (c *MetadataCache) CreateCategory(ctx context.Context, parent *model.Category, name, urlKey string) (*model.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cat := range c.categories {
		if cat.ParentID == parent.ID && strings.EqualFold(cat.Name, name) {
			return cat, nil
		}
	}

	child, err := c.categoryRepo.CreateChild(ctx, parent, name, urlKey)
	if err != nil {
		return nil, err
	}
	c.categories[child.ID] = child
	return child, nil
}

// CreateOption creates a select option and updates the attribute's option
// map, serialized for the same reason as CreateCategory.
func (c *MetadataCache) CreateOption(ctx context.Context, attr *model.Attribute, label string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := attr.Options[label]; ok {
		return id, nil
	}

	id, err := c.metadataRepo.CreateOption(ctx, attr.ID, label)
	if err != nil {
		return 0, err
	}
	attr.Options[label] = id
	return id, nil
}
