package service

import (
	"context"
	"testing"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteEntity builds an entity with a final URL key in the "en" store and
// optional category membership, the state Reconcile sees after allocation.
func rewriteEntity(id int64, key string, categoryIDs ...int64) *model.CatalogEntity {
	e := keyedEntity(id, "SKU-1")
	ov := storeOverlay(e, "en", 1)
	ov.URLKey = model.URLKeySpec{Mode: model.URLKeyExplicit, Value: key}
	e.CategoryIDs = categoryIDs
	return e
}

func TestRewriteReconcilerFreshImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRewriteRepo()
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	e := rewriteEntity(101, "blue-shirt", 3)
	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{e}))

	canonical := repo.byPath(1, "blue-shirt.html")
	require.NotNil(t, canonical)
	assert.Equal(t, "catalog/product/view/id/101", canonical.TargetPath)
	assert.Equal(t, model.RedirectTypeCanonical, canonical.RedirectType)
	assert.True(t, canonical.IsAutogenerated)
	assert.Nil(t, canonical.CategoryID)

	categoryPath := repo.byPath(1, "men/shirts/blue-shirt.html")
	require.NotNil(t, categoryPath)
	assert.Equal(t, "catalog/product/view/id/101/category/3", categoryPath.TargetPath)
	require.NotNil(t, categoryPath.CategoryID)
	assert.Equal(t, int64(3), *categoryPath.CategoryID)

	require.Len(t, repo.indexRows, 1)
	assert.Equal(t, categoryPath.ID, repo.indexRows[0].UrlRewriteID)
	assert.Equal(t, int64(3), repo.indexRows[0].CategoryID)
	assert.Equal(t, int64(101), repo.indexRows[0].ProductID)
}

func TestRewriteReconcilerUsesStoreCategoryKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRewriteRepo()
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	// The "de" store overrides the Shirts key; Men falls back to global.
	e := keyedEntity(101, "SKU-1")
	ov := storeOverlay(e, "de", 2)
	ov.URLKey = model.URLKeySpec{Mode: model.URLKeyExplicit, Value: "blaues-hemd"}
	e.CategoryIDs = []int64{3}

	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{e}))
	assert.NotNil(t, repo.byPath(2, "men/hemden/blaues-hemd.html"))
}

func TestRewriteReconcilerIdempotentReimport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRewriteRepo()
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "blue-shirt.html", TargetPath: "catalog/product/view/id/101",
		RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true,
	})
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "men/shirts/blue-shirt.html", TargetPath: "catalog/product/view/id/101/category/3",
		RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true, CategoryID: ptr(int64(3)),
	})
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	e := rewriteEntity(101, "blue-shirt", 3)
	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{e}))

	assert.Len(t, repo.rows, 2)
	assert.Empty(t, repo.indexRows)
}

func TestRewriteReconcilerRename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("history on keeps the old path as a 301", func(t *testing.T) {
		t.Parallel()
		repo := newFakeRewriteRepo()
		repo.seed(model.UrlRewrite{
			EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
			RequestPath: "old-shirt.html", TargetPath: "catalog/product/view/id/101",
			RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true,
		})
		rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

		require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{rewriteEntity(101, "blue-shirt")}))

		redirect := repo.byPath(1, "old-shirt.html")
		require.NotNil(t, redirect)
		assert.Equal(t, model.RedirectTypePermanent, redirect.RedirectType)
		assert.Equal(t, "blue-shirt.html", redirect.TargetPath)
		assert.False(t, redirect.IsAutogenerated)

		canonical := repo.byPath(1, "blue-shirt.html")
		require.NotNil(t, canonical)
		assert.Equal(t, model.RedirectTypeCanonical, canonical.RedirectType)
	})

	t.Run("history off drops the old path", func(t *testing.T) {
		t.Parallel()
		repo := newFakeRewriteRepo()
		repo.seed(model.UrlRewrite{
			EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
			RequestPath: "old-shirt.html", TargetPath: "catalog/product/view/id/101",
			RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true,
		})
		cfg := model.DefaultImportConfig()
		cfg.SaveRewriteHistory = false
		rec := NewRewriteReconciler(repo, newTestMeta(t), cfg)

		require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{rewriteEntity(101, "blue-shirt")}))

		assert.Nil(t, repo.byPath(1, "old-shirt.html"))
		assert.NotNil(t, repo.byPath(1, "blue-shirt.html"))
	})
}

func TestRewriteReconcilerCategoryRemoved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRewriteRepo()
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "blue-shirt.html", TargetPath: "catalog/product/view/id/101",
		RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true,
	})
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "men/shirts/blue-shirt.html", TargetPath: "catalog/product/view/id/101/category/3",
		RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true, CategoryID: ptr(int64(3)),
	})
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	// Re-import without the category membership.
	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{rewriteEntity(101, "blue-shirt")}))

	redirect := repo.byPath(1, "men/shirts/blue-shirt.html")
	require.NotNil(t, redirect)
	assert.Equal(t, model.RedirectTypePermanent, redirect.RedirectType)
	assert.Equal(t, "blue-shirt.html", redirect.TargetPath)

	canonical := repo.byPath(1, "blue-shirt.html")
	require.NotNil(t, canonical)
	assert.Equal(t, model.RedirectTypeCanonical, canonical.RedirectType)
}

func TestRewriteReconcilerRenameBackClearsRedirect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A previous rename left blue-shirt.html as a redirect; the product is
	// renamed back to its original key.
	repo := newFakeRewriteRepo()
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "blue-shirt.html", TargetPath: "new-shirt.html",
		RedirectType: model.RedirectTypePermanent, IsAutogenerated: false,
	})
	repo.seed(model.UrlRewrite{
		EntityType: model.RewriteEntityProduct, EntityID: 101, StoreID: 1,
		RequestPath: "new-shirt.html", TargetPath: "catalog/product/view/id/101",
		RedirectType: model.RedirectTypeCanonical, IsAutogenerated: true,
	})
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{rewriteEntity(101, "blue-shirt")}))

	canonical := repo.byPath(1, "blue-shirt.html")
	require.NotNil(t, canonical)
	assert.Equal(t, model.RedirectTypeCanonical, canonical.RedirectType)
	assert.Equal(t, "catalog/product/view/id/101", canonical.TargetPath)

	redirect := repo.byPath(1, "new-shirt.html")
	require.NotNil(t, redirect)
	assert.Equal(t, model.RedirectTypePermanent, redirect.RedirectType)
	assert.Equal(t, "blue-shirt.html", redirect.TargetPath)
}

func TestRewriteReconcilerSkipsFailedEntities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRewriteRepo()
	rec := NewRewriteReconciler(repo, newTestMeta(t), model.DefaultImportConfig())

	e := rewriteEntity(101, "blue-shirt")
	e.AddError("upstream failure")
	require.NoError(t, rec.Reconcile(ctx, []*model.CatalogEntity{e}))

	assert.Empty(t, repo.rows)
}
