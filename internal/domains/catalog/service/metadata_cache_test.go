package service

import (
	"context"
	"testing"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCacheLookups(t *testing.T) {
	t.Parallel()
	meta := newTestMeta(t)

	t.Run("global store code is always addressable", func(t *testing.T) {
		t.Parallel()
		id, ok := meta.StoreViewID(model.GlobalStoreCode)
		require.True(t, ok)
		assert.Equal(t, model.GlobalStoreID, id)
	})

	t.Run("required attributes come back sorted by code", func(t *testing.T) {
		t.Parallel()
		required := meta.RequiredAttributes()
		require.Len(t, required, 2)
		assert.Equal(t, "name", required[0].Code)
		assert.Equal(t, "price", required[1].Code)
	})

	t.Run("child lookup ignores case", func(t *testing.T) {
		t.Parallel()
		child, ok := meta.ChildByName(1, "mEn")
		require.True(t, ok)
		assert.Equal(t, int64(2), child.ID)

		_, ok = meta.ChildByName(1, "Pants")
		assert.False(t, ok)
	})

	t.Run("ancestors exclude the root, top first", func(t *testing.T) {
		t.Parallel()
		shirts, ok := meta.Category(3)
		require.True(t, ok)

		chain := meta.Ancestors(shirts)
		require.Len(t, chain, 2)
		assert.Equal(t, "Men", chain[0].Name)
		assert.Equal(t, "Shirts", chain[1].Name)
	})
}

func TestMetadataCacheCreateCategoryDoubleCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	meta := newTestMeta(t)

	root := meta.RootCategory()
	require.NotNil(t, root)

	// Creating a name that already exists under the parent returns the
	// existing node instead of duplicating it.
	existing, err := meta.CreateCategory(ctx, root, "MEN", "men-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), existing.ID)

	created, err := meta.CreateCategory(ctx, root, "Pants", "pants")
	require.NoError(t, err)
	assert.Equal(t, "Pants", created.Name)

	again, err := meta.CreateCategory(ctx, root, "Pants", "pants")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestMetadataCacheCreateOptionDoubleCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	meta := newTestMeta(t)

	attr, ok := meta.Attribute("color")
	require.True(t, ok)

	// An existing label returns its id without a storage round trip.
	id, err := meta.CreateOption(ctx, attr, "Red")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	created, err := meta.CreateOption(ctx, attr, "Green")
	require.NoError(t, err)
	assert.Equal(t, int64(101), created)
	assert.Equal(t, created, attr.Options["Green"])
}
