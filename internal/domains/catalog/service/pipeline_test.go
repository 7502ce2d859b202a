package service

import (
	"context"
	"errors"
	"testing"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	pipeline   *ImportPipeline
	entityRepo *fakeEntityRepo
	valueRepo  *fakeValueRepo
	relations  *fakeRelationRepo
	urlKeys    *fakeURLKeyRepo
	rewrites   *fakeRewriteRepo
}

func newPipelineFixture(t *testing.T, cfg model.ImportConfig) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		entityRepo: newFakeEntityRepo(),
		valueRepo:  &fakeValueRepo{},
		relations:  newFakeRelationRepo(),
		urlKeys:    newFakeURLKeyRepo(),
		rewrites:   newFakeRewriteRepo(),
	}
	f.pipeline = NewImportPipeline(newTestMeta(t), cfg,
		f.entityRepo, f.valueRepo, f.relations, f.urlKeys, f.rewrites)
	return f
}

func valueRow(rows []repository.AttributeValueRow, entityID, attributeID, storeID int64) *repository.AttributeValueRow {
	for i := range rows {
		r := &rows[i]
		if r.EntityID == entityID && r.AttributeID == attributeID && r.StoreID == storeID {
			return r
		}
	}
	return nil
}

func TestPipelineFlushInsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPipelineFixture(t, model.DefaultImportConfig())

	simple := model.ProductPayload{
		SKU: "SIMPLE-1", Type: "simple", AttributeSet: "Default",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Blue Shirt", "price": "19.99"},
		},
		StoreViews: map[string]model.StoreViewPayload{"en": {GenerateURLKey: true}},
		Categories: []string{"Men/Shirts"},
		Websites:   []string{"base"},
		Stock:      &model.StockItem{Qty: decimal.NewFromInt(10), IsInStock: true, ManageStock: true},
	}.ToEntity()

	grouped := model.ProductPayload{
		SKU: "GROUP-1", Type: "grouped",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Shirt Set", "price": "0"},
		},
		GroupedMembers: []model.GroupedMember{{SKU: "MEM-1", Qty: decimal.NewFromInt(2), Position: 1}},
	}.ToEntity()

	result, err := f.pipeline.Flush(ctx, []*model.CatalogEntity{simple, grouped})
	require.NoError(t, err)

	// Placeholders are invisible in the result but present in storage.
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Contains(t, f.entityRepo.stored, "MEM-1")

	require.NotNil(t, simple.ID)
	require.NotNil(t, grouped.ID)
	assert.Equal(t, int64(101), *simple.ID)
	assert.Equal(t, int64(102), *grouped.ID)

	// The generated url_key rides along as a varchar value row.
	urlKeyRow := valueRow(f.valueRepo.rows, 101, 5, 1)
	require.NotNil(t, urlKeyRow)
	assert.Equal(t, "blue-shirt", urlKeyRow.Value)

	nameRow := valueRow(f.valueRepo.rows, 101, 1, model.GlobalStoreID)
	require.NotNil(t, nameRow)
	assert.Equal(t, "Blue Shirt", nameRow.Value)
	assert.Equal(t, model.BackendVarchar, nameRow.Backend)

	priceRow := valueRow(f.valueRepo.rows, 101, 2, model.GlobalStoreID)
	require.NotNil(t, priceRow)
	assert.Equal(t, decimal.RequireFromString("19.99"), priceRow.Value)

	// Relations: grouped members resolved to the placeholder's id.
	memberRows := f.relations.links["102:grouped"]
	require.Len(t, memberRows, 1)
	assert.Equal(t, int64(103), memberRows[0].LinkedID)
	require.NotNil(t, memberRows[0].Qty)
	assert.True(t, memberRows[0].Qty.Equal(decimal.NewFromInt(2)))

	assert.Equal(t, []int64{1}, f.relations.websites[101])
	assert.True(t, f.relations.stock[101].IsInStock)

	// Rewrites: category-less canonical plus one per category.
	assert.NotNil(t, f.rewrites.byPath(1, "blue-shirt.html"))
	assert.NotNil(t, f.rewrites.byPath(1, "men/shirts/blue-shirt.html"))
}

func TestPipelineFlushUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPipelineFixture(t, model.DefaultImportConfig())
	f.entityRepo.stored["SIMPLE-1"] = 77

	// Updates may omit required attributes.
	e := model.ProductPayload{
		SKU: "SIMPLE-1", Type: "simple",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"description": "restocked"},
		},
	}.ToEntity()

	result, err := f.pipeline.Flush(ctx, []*model.CatalogEntity{e})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	require.NotNil(t, e.ID)
	assert.Equal(t, int64(77), *e.ID)
	assert.Equal(t, []string{"SIMPLE-1"}, f.entityRepo.updated)
}

func TestPipelineFlushExplicitIDNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPipelineFixture(t, model.DefaultImportConfig())

	bad := model.ProductPayload{
		SKU: "BAD-1", Type: "simple", ID: ptr(int64(999)),
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Bad", "price": "1"},
		},
	}.ToEntity()
	good := model.ProductPayload{
		SKU: "GOOD-1", Type: "simple",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Good", "price": "1"},
		},
	}.ToEntity()

	result, err := f.pipeline.Flush(ctx, []*model.CatalogEntity{bad, good})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Contains(t, bad.Errors, "entity id not found in storage")
	assert.True(t, good.OK())
	require.NotNil(t, good.ID)
}

func TestPipelineFlushURLKeyConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPipelineFixture(t, model.DefaultImportConfig())
	f.urlKeys.add(1, "blue-shirt", 999)

	e := model.ProductPayload{
		SKU: "SIMPLE-1", Type: "simple",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Blue Shirt", "price": "19.99"},
		},
		StoreViews: map[string]model.StoreViewPayload{"en": {GenerateURLKey: true}},
	}.ToEntity()

	result, err := f.pipeline.Flush(ctx, []*model.CatalogEntity{e})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, e.Errors, "url key already exists: blue-shirt in store view en")
	// Failed entities are excluded from the storage writers.
	assert.Empty(t, f.valueRepo.rows)
	assert.Empty(t, f.rewrites.rows)
}

func TestPipelineFlushMemberValidationFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPipelineFixture(t, model.DefaultImportConfig())

	// One bad member row must not take down unrelated products in the batch.
	grouped := model.ProductPayload{
		SKU: "GROUP-1", Type: "grouped",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Shirt Set", "price": "0"},
		},
		GroupedMembers: []model.GroupedMember{{SKU: "MEM-BAD", Qty: decimal.NewFromInt(1)}},
	}.ToEntity()

	badMember := model.ProductPayload{
		SKU: "MEM-BAD", Type: "simple",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Broken", "price": "not-a-number"},
		},
	}.ToEntity()

	bystander := model.ProductPayload{
		SKU: "OTHER-1", Type: "simple",
		StoreViewPayload: model.StoreViewPayload{
			Attributes: map[string]any{"name": "Fine Shirt", "price": "9.99"},
		},
	}.ToEntity()

	result, err := f.pipeline.Flush(ctx, []*model.CatalogEntity{grouped, badMember, bystander})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)

	assert.Contains(t, grouped.Errors, "linked sku could not be resolved: MEM-BAD")
	assert.True(t, bystander.OK(), "errors: %v", bystander.Errors)
	require.NotNil(t, bystander.ID)

	// The bystander's values landed; the failed rows wrote nothing.
	assert.NotNil(t, valueRow(f.valueRepo.rows, *bystander.ID, 1, model.GlobalStoreID))
	for _, row := range f.valueRepo.rows {
		assert.Equal(t, *bystander.ID, row.EntityID)
	}
}

func TestPipelineFlushEmptyBatch(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, model.DefaultImportConfig())
	_, err := f.pipeline.Flush(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrEmptyBatch)
}

// failingEntityRepo fails the bulk SKU lookup to exercise the fatal path.
type failingEntityRepo struct {
	*fakeEntityRepo
	err error
}

func (f *failingEntityRepo) GetExistingIDs(ctx context.Context, skus []string) (map[string]int64, error) {
	return nil, f.err
}

func TestPipelineFlushFatalMarksAllEntities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("connection reset")
	f := newPipelineFixture(t, model.DefaultImportConfig())
	pipeline := NewImportPipeline(newTestMeta(t), model.DefaultImportConfig(),
		&failingEntityRepo{fakeEntityRepo: f.entityRepo, err: boom},
		f.valueRepo, f.relations, f.urlKeys, f.rewrites)

	first := model.NewEntity("SKU-1", model.TypeSimple)
	second := model.NewEntity("SKU-2", model.TypeSimple)

	_, err := pipeline.Flush(ctx, []*model.CatalogEntity{first, second})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, first.Errors, "connection reset")
	assert.Contains(t, second.Errors, "connection reset")
}

func TestBuildImportResultExcludesPlaceholders(t *testing.T) {
	t.Parallel()

	ok := model.NewEntity("OK-1", model.TypeSimple)
	ok.ID = ptr(int64(101))
	failed := model.NewEntity("BAD-1", model.TypeSimple)
	failed.AddError("boom")
	placeholder := model.NewPlaceholder("PH-1")

	res := model.BuildImportResult([]*model.CatalogEntity{ok, failed, placeholder})

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.Rows[0].OK)
	assert.Equal(t, []string{"boom"}, res.Rows[1].Errors)
}
