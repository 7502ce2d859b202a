package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"

	"github.com/stretchr/testify/require"
)

// In-memory repository fakes shared by the service tests. They model just
// enough storage behavior for the pipeline contracts: id assignment,
// (store, path) uniqueness, key ownership.

type fakeMetadataRepo struct {
	attributes   map[string]*model.Attribute
	sets         map[string]int64
	stores       map[string]int64
	websites     map[string]int64
	taxClasses   map[string]int64
	nextOptionID int64
}

func (f *fakeMetadataRepo) LoadAttributes(ctx context.Context) (map[string]*model.Attribute, error) {
	return f.attributes, nil
}
func (f *fakeMetadataRepo) LoadAttributeSets(ctx context.Context) (map[string]int64, error) {
	return f.sets, nil
}
func (f *fakeMetadataRepo) LoadStoreViews(ctx context.Context) (map[string]int64, error) {
	return f.stores, nil
}
func (f *fakeMetadataRepo) LoadWebsites(ctx context.Context) (map[string]int64, error) {
	return f.websites, nil
}
func (f *fakeMetadataRepo) LoadTaxClasses(ctx context.Context) (map[string]int64, error) {
	return f.taxClasses, nil
}
func (f *fakeMetadataRepo) CreateOption(ctx context.Context, attributeID int64, label string) (int64, error) {
	f.nextOptionID++
	return f.nextOptionID, nil
}

type fakeCategoryRepo struct {
	tree   map[int64]*model.Category
	nextID int64
}

func (f *fakeCategoryRepo) LoadTree(ctx context.Context) (map[int64]*model.Category, error) {
	return f.tree, nil
}

func (f *fakeCategoryRepo) CreateChild(ctx context.Context, parent *model.Category, name, urlKey string) (*model.Category, error) {
	f.nextID++
	child := &model.Category{
		ID:       f.nextID,
		ParentID: parent.ID,
		Path:     fmt.Sprintf("%s/%d", parent.Path, f.nextID),
		Level:    parent.Level + 1,
		Name:     name,
		URLKeys:  map[int64]string{model.GlobalStoreID: urlKey},
	}
	f.tree[child.ID] = child
	return child, nil
}

type fakeEntityRepo struct {
	stored  map[string]int64
	nextID  int64
	updated []string
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{stored: map[string]int64{}, nextID: 100}
}

func (f *fakeEntityRepo) GetExistingIDs(ctx context.Context, skus []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, sku := range skus {
		if id, ok := f.stored[sku]; ok {
			out[sku] = id
		}
	}
	return out, nil
}

func (f *fakeEntityRepo) Insert(ctx context.Context, entities []*model.CatalogEntity) error {
	for _, e := range entities {
		f.nextID++
		id := f.nextID
		e.ID = &id
		f.stored[e.SKU] = id
	}
	return nil
}

func (f *fakeEntityRepo) Update(ctx context.Context, entities []*model.CatalogEntity) error {
	for _, e := range entities {
		f.updated = append(f.updated, e.SKU)
	}
	return nil
}

func (f *fakeEntityRepo) CheckIDsExist(ctx context.Context, ids []int64) (map[int64]bool, error) {
	known := map[int64]bool{}
	for _, id := range f.stored {
		known[id] = true
	}
	out := map[int64]bool{}
	for _, id := range ids {
		if known[id] {
			out[id] = true
		}
	}
	return out, nil
}

// fakeURLKeyRepo maps store id -> key -> owning entity id.
type fakeURLKeyRepo struct {
	keys map[int64]map[string]int64
}

func newFakeURLKeyRepo() *fakeURLKeyRepo {
	return &fakeURLKeyRepo{keys: map[int64]map[string]int64{}}
}

func (f *fakeURLKeyRepo) add(storeID int64, key string, entityID int64) {
	if f.keys[storeID] == nil {
		f.keys[storeID] = map[string]int64{}
	}
	f.keys[storeID][key] = entityID
}

func (f *fakeURLKeyRepo) FindOwners(ctx context.Context, storeID int64, keys []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, key := range keys {
		if owner, ok := f.keys[storeID][key]; ok {
			out[key] = owner
		}
	}
	return out, nil
}

func (f *fakeURLKeyRepo) FindExistingKeys(ctx context.Context, entityIDs []int64) (map[int64]map[int64]string, error) {
	wanted := map[int64]bool{}
	for _, id := range entityIDs {
		wanted[id] = true
	}
	out := map[int64]map[int64]string{}
	for storeID, stored := range f.keys {
		for key, owner := range stored {
			if !wanted[owner] {
				continue
			}
			if out[owner] == nil {
				out[owner] = map[int64]string{}
			}
			out[owner][storeID] = key
		}
	}
	return out, nil
}

func (f *fakeURLKeyRepo) FindKeysWithBase(ctx context.Context, storeID int64, base string) ([]string, error) {
	var out []string
	for key := range f.keys[storeID] {
		if key == base || strings.HasPrefix(key, base+"-") {
			out = append(out, key)
		}
	}
	return out, nil
}

type fakeRewriteRepo struct {
	rows      map[int64]*model.UrlRewrite
	nextID    int64
	indexRows []repository.CategoryIndexRow
}

func newFakeRewriteRepo() *fakeRewriteRepo {
	return &fakeRewriteRepo{rows: map[int64]*model.UrlRewrite{}}
}

func (f *fakeRewriteRepo) seed(rw model.UrlRewrite) *model.UrlRewrite {
	f.nextID++
	rw.ID = f.nextID
	stored := rw
	f.rows[rw.ID] = &stored
	return &stored
}

func (f *fakeRewriteRepo) FindByEntityIDs(ctx context.Context, entityIDs []int64) ([]*model.UrlRewrite, error) {
	wanted := map[int64]bool{}
	for _, id := range entityIDs {
		wanted[id] = true
	}
	var out []*model.UrlRewrite
	for _, rw := range f.rows {
		if wanted[rw.EntityID] {
			copied := *rw
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRewriteRepo) InsertIgnore(ctx context.Context, rows []*model.UrlRewrite) error {
	for _, rw := range rows {
		if f.pathTaken(rw.StoreID, rw.RequestPath) {
			rw.ID = 0
			continue
		}
		f.nextID++
		rw.ID = f.nextID
		stored := *rw
		f.rows[rw.ID] = &stored
	}
	return nil
}

func (f *fakeRewriteRepo) pathTaken(storeID int64, path string) bool {
	for _, rw := range f.rows {
		if rw.StoreID == storeID && rw.RequestPath == path {
			return true
		}
	}
	return false
}

func (f *fakeRewriteRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeRewriteRepo) ReplaceCategoryIndex(ctx context.Context, rows []repository.CategoryIndexRow) error {
	f.indexRows = rows
	return nil
}

func (f *fakeRewriteRepo) byPath(storeID int64, path string) *model.UrlRewrite {
	for _, rw := range f.rows {
		if rw.StoreID == storeID && rw.RequestPath == path {
			return rw
		}
	}
	return nil
}

type fakeValueRepo struct {
	rows []repository.AttributeValueRow
}

func (f *fakeValueRepo) UpsertValues(ctx context.Context, rows []repository.AttributeValueRow) error {
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeRelationRepo struct {
	links    map[string][]repository.LinkRow // "<entity>:<type>"
	variants map[int64][]int64
	websites map[int64][]int64
	stock    map[int64]model.StockItem
	bundles  map[int64][]model.BundleOption
	options  map[int64][]model.CustomOption
	tiers    map[int64][]model.TierPrice
}

func newFakeRelationRepo() *fakeRelationRepo {
	return &fakeRelationRepo{
		links:    map[string][]repository.LinkRow{},
		variants: map[int64][]int64{},
		websites: map[int64][]int64{},
		stock:    map[int64]model.StockItem{},
		bundles:  map[int64][]model.BundleOption{},
		options:  map[int64][]model.CustomOption{},
		tiers:    map[int64][]model.TierPrice{},
	}
}

func (f *fakeRelationRepo) ReplaceLinks(ctx context.Context, entityID int64, linkType model.LinkType, rows []repository.LinkRow) error {
	f.links[fmt.Sprintf("%d:%s", entityID, linkType)] = rows
	return nil
}
func (f *fakeRelationRepo) ReplaceVariantLinks(ctx context.Context, parentID int64, childIDs []int64) error {
	f.variants[parentID] = childIDs
	return nil
}
func (f *fakeRelationRepo) ReplaceBundleOptions(ctx context.Context, entityID int64, options []model.BundleOption) error {
	f.bundles[entityID] = options
	return nil
}
func (f *fakeRelationRepo) ReplaceCustomOptions(ctx context.Context, entityID int64, options []model.CustomOption) error {
	f.options[entityID] = options
	return nil
}
func (f *fakeRelationRepo) ReplaceTierPrices(ctx context.Context, entityID int64, rows []model.TierPrice) error {
	f.tiers[entityID] = rows
	return nil
}
func (f *fakeRelationRepo) ReplaceWebsites(ctx context.Context, entityID int64, websiteIDs []int64) error {
	f.websites[entityID] = websiteIDs
	return nil
}
func (f *fakeRelationRepo) UpsertStock(ctx context.Context, entityID int64, stock model.StockItem) error {
	f.stock[entityID] = stock
	return nil
}

// newTestMeta builds a loaded metadata cache over a small fixed schema:
// two store views (en, de), one website, a three-level category tree and a
// handful of attributes covering every backend type.
func newTestMeta(t *testing.T) *MetadataCache {
	t.Helper()

	metaRepo := &fakeMetadataRepo{
		attributes: map[string]*model.Attribute{
			"name":         {ID: 1, Code: "name", BackendType: model.BackendVarchar, IsRequired: true},
			"price":        {ID: 2, Code: "price", BackendType: model.BackendDecimal, IsRequired: true},
			"status":       {ID: 3, Code: "status", BackendType: model.BackendInt},
			"description":  {ID: 4, Code: "description", BackendType: model.BackendText},
			"url_key":      {ID: 5, Code: "url_key", BackendType: model.BackendVarchar},
			"news_from":    {ID: 6, Code: "news_from", BackendType: model.BackendDatetime},
			"tax_class_id": {ID: 7, Code: "tax_class_id", BackendType: model.BackendInt},
			"sku":          {ID: 8, Code: "sku", BackendType: model.BackendStatic},
			"color": {
				ID: 9, Code: "color", BackendType: model.BackendInt,
				FrontendInput: model.InputSelect,
				Options:       map[string]int64{"Red": 11, "Blue": 12},
			},
			"material": {
				ID: 10, Code: "material", BackendType: model.BackendVarchar,
				FrontendInput: model.InputMultiselect,
				Options:       map[string]int64{"Cotton": 21, "Wool": 22},
			},
		},
		sets:         map[string]int64{"Default": 4},
		stores:       map[string]int64{"en": 1, "de": 2},
		websites:     map[string]int64{"base": 1},
		taxClasses:   map[string]int64{"Taxable Goods": 2},
		nextOptionID: 100,
	}

	catRepo := &fakeCategoryRepo{
		tree: map[int64]*model.Category{
			1: {ID: 1, ParentID: 0, Path: "1", Level: 0, Name: "Root"},
			2: {ID: 2, ParentID: 1, Path: "1/2", Level: 1, Name: "Men",
				URLKeys: map[int64]string{model.GlobalStoreID: "men"}},
			3: {ID: 3, ParentID: 2, Path: "1/2/3", Level: 2, Name: "Shirts",
				URLKeys: map[int64]string{model.GlobalStoreID: "shirts", 2: "hemden"}},
		},
		nextID: 10,
	}

	meta := NewMetadataCache(metaRepo, catRepo, nil)
	require.NoError(t, meta.Load(context.Background()))
	return meta
}

func ptr[T any](v T) *T {
	return &v
}
