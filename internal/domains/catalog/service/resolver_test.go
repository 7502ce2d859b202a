package service

import (
	"context"
	"testing"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverStoreViewAndSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

	t.Run("known references resolve to ids", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.AttributeSetName = "Default"
		e.WebsiteCodes = []string{"base"}
		ov := e.Overlay("en")
		ov.PendingTaxClass = "Taxable Goods"

		r.ResolveIDs(ctx, e)

		require.True(t, e.OK(), "errors: %v", e.Errors)
		require.NotNil(t, e.AttributeSetID)
		assert.Equal(t, int64(4), *e.AttributeSetID)
		assert.Equal(t, []int64{1}, e.WebsiteIDs)
		require.NotNil(t, ov.StoreID)
		assert.Equal(t, int64(1), *ov.StoreID)
		assert.Equal(t, int64(2), ov.Attributes["tax_class_id"])
		assert.Empty(t, ov.PendingTaxClass)
	})

	t.Run("global overlay resolves to the admin scope", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		r.ResolveIDs(ctx, e)

		global := e.GlobalOverlay()
		require.NotNil(t, global.StoreID)
		assert.Equal(t, model.GlobalStoreID, *global.StoreID)
	})

	t.Run("unknown references fail the entity", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.AttributeSetName = "Nope"
		e.WebsiteCodes = []string{"nope"}
		e.Overlay("fr")

		r.ResolveIDs(ctx, e)

		assert.Contains(t, e.Errors, "attribute set not found: Nope")
		assert.Contains(t, e.Errors, "website not found: nope")
		assert.Contains(t, e.Errors, "store view not found: fr")
	})
}

func TestResolverCategoryPaths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("existing path resolves case-insensitively", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.CategoryPaths = []string{"men/SHIRTS"}

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, []int64{3}, e.CategoryIDs)
	})

	t.Run("missing path fails without auto-create", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.CategoryPaths = []string{"Men/Pants"}

		r.ResolveIDs(ctx, e)
		assert.Contains(t, e.Errors, "category not found: Men/Pants")
		assert.Empty(t, e.CategoryIDs)
	})

	t.Run("auto-create builds the missing chain", func(t *testing.T) {
		t.Parallel()
		meta := newTestMeta(t)
		cfg := model.DefaultImportConfig()
		cfg.AutoCreateCategories = true
		r := NewReferenceResolver(meta, cfg)

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.CategoryPaths = []string{"Men/Pants"}

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		require.Len(t, e.CategoryIDs, 1)

		created, ok := meta.Category(e.CategoryIDs[0])
		require.True(t, ok)
		assert.Equal(t, "Pants", created.Name)
		assert.Equal(t, int64(2), created.ParentID)
		assert.Equal(t, "pants", created.URLKey(model.GlobalStoreID))
	})

	t.Run("bare root path is rejected", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.CategoryPaths = []string{" / "}

		r.ResolveIDs(ctx, e)
		assert.Contains(t, e.Errors, "category not found:  / ")
	})

	t.Run("custom separator", func(t *testing.T) {
		t.Parallel()
		cfg := model.DefaultImportConfig()
		cfg.CategoryPathSeparator = ">"
		r := NewReferenceResolver(newTestMeta(t), cfg)

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.CategoryPaths = []string{"Men > Shirts"}

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, []int64{3}, e.CategoryIDs)
	})
}

func TestResolverSelectOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("string value on a select attribute resolves to an option id", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		global := e.GlobalOverlay()
		global.Attributes["color"] = "Red"
		global.Attributes["material"] = []string{"Cotton", "Wool"}

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, int64(11), global.Attributes["color"])
		assert.Equal(t, []int64{21, 22}, global.Attributes["material"])
		assert.Nil(t, global.PendingSelects)
		assert.Nil(t, global.PendingMultiSelects)
	})

	t.Run("pending maps resolve the same way", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		global := e.GlobalOverlay()
		global.PendingSelects = map[string]string{"color": "Blue"}

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, int64(12), global.Attributes["color"])
	})

	t.Run("missing options are reported once, sorted", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.GlobalOverlay().Attributes["material"] = []string{"Silk", "Linen"}

		r.ResolveIDs(ctx, e)
		require.Len(t, e.Errors, 1)
		assert.Equal(t, "option(s) not found for attribute material: Linen, Silk", e.Errors[0])
		assert.NotContains(t, e.GlobalOverlay().Attributes, "material")
	})

	t.Run("allow-listed attribute auto-creates unknown options", func(t *testing.T) {
		t.Parallel()
		meta := newTestMeta(t)
		cfg := model.DefaultImportConfig()
		cfg.AutoCreateOptionAttributes = []string{"color"}
		r := NewReferenceResolver(meta, cfg)

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.GlobalOverlay().Attributes["color"] = "Green"

		r.ResolveIDs(ctx, e)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, int64(101), e.GlobalOverlay().Attributes["color"])

		attr, ok := meta.Attribute("color")
		require.True(t, ok)
		assert.Equal(t, int64(101), attr.Options["Green"])
	})

	t.Run("non-select attributes pass through untouched", func(t *testing.T) {
		t.Parallel()
		r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.GlobalOverlay().Attributes["description"] = "A plain description"

		r.ResolveIDs(ctx, e)
		assert.Equal(t, "A plain description", e.GlobalOverlay().Attributes["description"])
	})
}

func TestResolverTierPriceWebsites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewReferenceResolver(newTestMeta(t), model.DefaultImportConfig())

	e := model.NewEntity("SKU-1", model.TypeSimple)
	e.TierPrices = []model.TierPrice{
		{WebsiteCode: "base"},
		{WebsiteCode: "nope"},
		{},
	}

	r.ResolveIDs(ctx, e)

	require.NotNil(t, e.TierPrices[0].WebsiteID)
	assert.Equal(t, int64(1), *e.TierPrices[0].WebsiteID)
	assert.Nil(t, e.TierPrices[1].WebsiteID)
	assert.Contains(t, e.Errors, "website not found: nope")
	assert.Nil(t, e.TierPrices[2].WebsiteID)
}
