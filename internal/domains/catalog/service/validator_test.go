package service

import (
	"strings"
	"testing"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntity() *model.CatalogEntity {
	e := model.NewEntity("SKU-1", model.TypeSimple)
	global := e.GlobalOverlay()
	global.Attributes["name"] = "Blue Shirt"
	global.Attributes["price"] = "19.99"
	return e
}

func TestValidatorShape(t *testing.T) {
	t.Parallel()
	v := NewEntityValidator(newTestMeta(t))

	t.Run("valid entity passes", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		v.Validate(e, true)
		assert.True(t, e.OK(), "errors: %v", e.Errors)
	})

	t.Run("empty sku", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.SKU = ""
		v.Validate(e, true)
		require.NotEmpty(t, e.Errors)
		assert.Contains(t, e.Errors[0], "invalid sku")
	})

	t.Run("overlong sku", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.SKU = strings.Repeat("A", 65)
		v.Validate(e, true)
		require.NotEmpty(t, e.Errors)
		assert.Contains(t, e.Errors[0], "invalid sku")
	})

	t.Run("unknown product type", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.Type = "mystery"
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "unknown product type: mystery")
	})
}

func TestValidatorAttributes(t *testing.T) {
	t.Parallel()
	v := NewEntityValidator(newTestMeta(t))

	t.Run("unknown code is reported and dropped", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.GlobalOverlay().Attributes["no_such_attr"] = "x"
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "unknown attribute code: no_such_attr")
		assert.NotContains(t, e.GlobalOverlay().Attributes, "no_such_attr")
	})

	t.Run("values normalize to their backend type", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		global := e.GlobalOverlay()
		global.Attributes["status"] = float64(1) // JSON number
		global.Attributes["news_from"] = "2026-01-02"
		global.Attributes["description"] = "plain"

		v.Validate(e, true)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, int64(1), global.Attributes["status"])
		assert.Equal(t, "2026-01-02", global.Attributes["news_from"])
		assert.Equal(t, decimal.RequireFromString("19.99"), global.Attributes["price"])
	})

	t.Run("resolved multiselect ids join to the varchar form", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.GlobalOverlay().Attributes["material"] = []int64{21, 22}
		v.Validate(e, true)
		require.True(t, e.OK(), "errors: %v", e.Errors)
		assert.Equal(t, "21,22", e.GlobalOverlay().Attributes["material"])
	})

	t.Run("bad values are reported and dropped", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		global := e.GlobalOverlay()
		global.Attributes["status"] = "not-a-number"
		global.Attributes["news_from"] = "tomorrow"

		v.Validate(e, true)
		assert.NotContains(t, global.Attributes, "status")
		assert.NotContains(t, global.Attributes, "news_from")
		require.Len(t, e.Errors, 2)
		assert.Contains(t, e.Errors[0], "invalid value for attribute news_from")
		assert.Contains(t, e.Errors[1], "invalid value for attribute status")
	})
}

func TestValidatorRequired(t *testing.T) {
	t.Parallel()
	v := NewEntityValidator(newTestMeta(t))

	t.Run("insert without required attributes fails", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.GlobalOverlay().Attributes["name"] = "Blue Shirt"
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "missing required attribute: price")
	})

	t.Run("update may touch a subset", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		e.GlobalOverlay().Attributes["name"] = "Blue Shirt"
		v.Validate(e, false)
		assert.True(t, e.OK(), "errors: %v", e.Errors)
	})

	t.Run("store-scoped values do not satisfy global requirements", func(t *testing.T) {
		t.Parallel()
		e := model.NewEntity("SKU-1", model.TypeSimple)
		ov := e.Overlay("en")
		ov.Attributes["name"] = "Blue Shirt"
		ov.Attributes["price"] = "19.99"
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "missing required attribute: name")
		assert.Contains(t, e.Errors, "missing required attribute: price")
	})
}

func TestValidatorPayloads(t *testing.T) {
	t.Parallel()
	v := NewEntityValidator(newTestMeta(t))

	t.Run("custom option checks", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.CustomOptions = []model.CustomOption{
			{Type: "field", PriceType: "fixed"},
			{Title: "Engraving", Type: "field", PriceType: "half"},
			{Title: "Size", Type: "drop_down", Values: []model.CustomOptionValue{{Price: decimal.Zero}}},
		}
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "custom option 1: title is required")
		assert.Contains(t, e.Errors, `custom option "Engraving": unknown price type half`)
		assert.Contains(t, e.Errors, `custom option "Size": value title is required`)
	})

	t.Run("tier price checks", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.TierPrices = []model.TierPrice{
			{Qty: decimal.Zero, Price: decimal.NewFromInt(10)},
			{Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(-1)},
		}
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "tier price 1: qty must be positive")
		assert.Contains(t, e.Errors, "tier price 2: price must not be negative")
	})

	t.Run("bundle option checks", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.Type = model.TypeBundle
		e.BundleOptions = []model.BundleOption{{Title: "Pick one"}}
		v.Validate(e, true)
		assert.Contains(t, e.Errors, `bundle option "Pick one": at least one selection is required`)
	})

	t.Run("grouped member sku required", func(t *testing.T) {
		t.Parallel()
		e := validEntity()
		e.Type = model.TypeGrouped
		e.GroupedMembers = []model.GroupedMember{{Qty: decimal.NewFromInt(1)}}
		v.Validate(e, true)
		assert.Contains(t, e.Errors, "grouped member 1: sku is required")
	})
}

func TestNormalizeValueCoercions(t *testing.T) {
	t.Parallel()

	intAttr := &model.Attribute{Code: "status", BackendType: model.BackendInt}
	decAttr := &model.Attribute{Code: "price", BackendType: model.BackendDecimal}
	strAttr := &model.Attribute{Code: "name", BackendType: model.BackendVarchar}
	dtAttr := &model.Attribute{Code: "news_from", BackendType: model.BackendDatetime}

	tests := []struct {
		name    string
		attr    *model.Attribute
		value   any
		want    any
		wantErr bool
	}{
		{"int from string", intAttr, " 42 ", int64(42), false},
		{"int from whole float", intAttr, float64(7), int64(7), false},
		{"int rejects fraction", intAttr, 7.5, nil, true},
		{"int from bool", intAttr, true, int64(1), false},
		{"decimal from string", decAttr, "19.99", decimal.RequireFromString("19.99"), false},
		{"decimal from float", decAttr, 19.99, decimal.NewFromFloat(19.99), false},
		{"decimal rejects junk", decAttr, "abc", nil, true},
		{"string from float", strAttr, float64(3), "3", false},
		{"string from bool", strAttr, false, "0", false},
		{"datetime with time", dtAttr, "2026-01-02 15:04:05", "2026-01-02 15:04:05", false},
		{"datetime rfc3339", dtAttr, "2026-01-02T15:04:05Z", "2026-01-02T15:04:05Z", false},
		{"datetime rejects junk", dtAttr, "yesterday", nil, true},
		{"nil is rejected", strAttr, nil, nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeValue(tt.attr, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
