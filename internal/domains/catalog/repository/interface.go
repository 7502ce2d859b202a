package repository

import (
	"context"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/shopspring/decimal"
)

// EntityRepository is the main-entity-table contract consumed by the
// pipeline. Insert assigns database ids to the given entities by SKU.
type EntityRepository interface {
	// GetExistingIDs bulk-maps SKUs to entity ids. Empty input returns an
	// empty map. SKUs with no stored entity are absent from the result.
	GetExistingIDs(ctx context.Context, skus []string) (map[string]int64, error)

	// Insert creates rows for the given entities and populates their IDs.
	Insert(ctx context.Context, entities []*model.CatalogEntity) error

	// Update refreshes type and attribute-set of already-identified rows.
	Update(ctx context.Context, entities []*model.CatalogEntity) error

	// CheckIDsExist returns the subset of ids that belong to stored rows.
	CheckIDsExist(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// MetadataRepository loads the external catalog schema consumed by the
// metadata cache, and creates attribute options on the auto-create path.
type MetadataRepository interface {
	LoadAttributes(ctx context.Context) (map[string]*model.Attribute, error)
	LoadAttributeSets(ctx context.Context) (map[string]int64, error)
	LoadStoreViews(ctx context.Context) (map[string]int64, error)
	LoadWebsites(ctx context.Context) (map[string]int64, error)
	LoadTaxClasses(ctx context.Context) (map[string]int64, error)

	// CreateOption adds an option value to a select attribute and returns
	// the new option id.
	CreateOption(ctx context.Context, attributeID int64, label string) (int64, error)
}

// CategoryRepository serves the category tree snapshot and the auto-create
// path of the reference resolver.
type CategoryRepository interface {
	// LoadTree returns every category keyed by id, with materialized path,
	// level, name and per-store URL keys populated.
	LoadTree(ctx context.Context) (map[int64]*model.Category, error)

	// CreateChild inserts a category under parent and returns it with
	// path and level materialized.
	CreateChild(ctx context.Context, parent *model.Category, name, urlKey string) (*model.Category, error)
}

// AttributeValueRow is one (entity, attribute, store) value destined for a
// per-backend-type value table.
type AttributeValueRow struct {
	EntityID    int64
	AttributeID int64
	StoreID     int64
	Backend     model.BackendType
	Value       any
}

// ValueRepository bulk-upserts attribute values into the normalized value
// tables. Idempotent: re-writing the same logical content is a no-op.
type ValueRepository interface {
	UpsertValues(ctx context.Context, rows []AttributeValueRow) error
}

// LinkRow is one resolved product-to-product link.
type LinkRow struct {
	LinkedID int64
	Position int
	// Qty is set for grouped-member links only.
	Qty *decimal.Decimal
}

// RelationRepository covers the per-relation bulk writers. Each Replace
// method swaps the stored set for the entity with the given rows.
type RelationRepository interface {
	ReplaceLinks(ctx context.Context, entityID int64, linkType model.LinkType, rows []LinkRow) error
	ReplaceVariantLinks(ctx context.Context, parentID int64, childIDs []int64) error
	ReplaceBundleOptions(ctx context.Context, entityID int64, options []model.BundleOption) error
	ReplaceCustomOptions(ctx context.Context, entityID int64, options []model.CustomOption) error
	ReplaceTierPrices(ctx context.Context, entityID int64, rows []model.TierPrice) error
	ReplaceWebsites(ctx context.Context, entityID int64, websiteIDs []int64) error
	UpsertStock(ctx context.Context, entityID int64, stock model.StockItem) error
}

// URLKeyRepository serves the URL key allocator's lookups against stored
// url_key attribute values.
type URLKeyRepository interface {
	// FindOwners maps each of the given keys to the entity id owning it in
	// the store. Keys with no owner are absent from the result.
	FindOwners(ctx context.Context, storeID int64, keys []string) (map[string]int64, error)

	// FindExistingKeys returns stored keys per entity per store id.
	FindExistingKeys(ctx context.Context, entityIDs []int64) (map[int64]map[int64]string, error)

	// FindKeysWithBase returns every stored key in the store equal to base
	// or starting with base + "-".
	FindKeysWithBase(ctx context.Context, storeID int64, base string) ([]string, error)
}

// CategoryIndexRow is one derived path→category index entry.
type CategoryIndexRow struct {
	UrlRewriteID int64
	CategoryID   int64
	ProductID    int64
}

// UrlRewriteRepository is the rewrite-table contract of the reconciler.
type UrlRewriteRepository interface {
	// FindByEntityIDs returns every stored product rewrite (canonical and
	// redirect) for the given entity ids, all stores.
	FindByEntityIDs(ctx context.Context, entityIDs []int64) ([]*model.UrlRewrite, error)

	// InsertIgnore writes the rows, skipping (store id, request path)
	// conflicts, and populates ID on every row actually inserted. Rows that
	// hit a conflict keep ID == 0.
	InsertIgnore(ctx context.Context, rows []*model.UrlRewrite) error

	// DeleteByIDs removes rewrite rows and their category index entries.
	DeleteByIDs(ctx context.Context, ids []int64) error

	// ReplaceCategoryIndex rebuilds index entries for the given rows.
	ReplaceCategoryIndex(ctx context.Context, rows []CategoryIndexRow) error
}

// MediaRepository stores gallery entries written by the media transfer
// worker after files land in object storage.
type MediaRepository interface {
	ReplaceGalleryEntries(ctx context.Context, entityID int64, urls []string) error
}
