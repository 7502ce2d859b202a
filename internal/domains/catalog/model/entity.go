package model

import (
	"github.com/shopspring/decimal"
)

// GlobalStoreCode is the reserved store view code for the global (admin) scope.
// Every entity carries one overlay under this code; store-scoped overlays
// override it per store view.
const GlobalStoreCode = "admin"

// GlobalStoreID is the surrogate id of the global scope.
const GlobalStoreID int64 = 0

// EntityType is the closed set of product types the pipeline understands.
// Type-specific storage writers switch on this discriminant.
type EntityType string

const (
	TypeSimple       EntityType = "simple"
	TypeVirtual      EntityType = "virtual"
	TypeDownloadable EntityType = "downloadable"
	TypeConfigurable EntityType = "configurable"
	TypeBundle       EntityType = "bundle"
	TypeGrouped      EntityType = "grouped"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case TypeSimple, TypeVirtual, TypeDownloadable, TypeConfigurable, TypeBundle, TypeGrouped:
		return true
	}
	return false
}

// LinkType classifies a product-to-product link row.
type LinkType string

const (
	LinkRelated   LinkType = "related"
	LinkUpsell    LinkType = "upsell"
	LinkCrosssell LinkType = "crosssell"
	LinkGrouped   LinkType = "grouped"
)

// GroupedMember is one member of a grouped product, referenced by SKU until
// the placeholder pass assigns an id.
type GroupedMember struct {
	SKU      string          `json:"sku"`
	ID       *int64          `json:"-"`
	Qty      decimal.Decimal `json:"qty"`
	Position int             `json:"position"`
}

// BundleOption groups the selections of a bundle product.
type BundleOption struct {
	Title      string            `json:"title"`
	InputType  string            `json:"input_type"`
	Required   bool              `json:"required"`
	Position   int               `json:"position"`
	Selections []BundleSelection `json:"selections"`
}

// BundleSelection is one selectable product inside a bundle option.
type BundleSelection struct {
	SKU       string          `json:"sku"`
	ID        *int64          `json:"-"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	IsDefault bool            `json:"is_default"`
	Position  int             `json:"position"`
}

// CustomOptionValue is one row of a select-style custom option.
type CustomOptionValue struct {
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	PriceType string          `json:"price_type"`
	SKU       string          `json:"sku"`
	SortOrder int             `json:"sort_order"`
}

// CustomOption is a buyer-facing option attached to one product.
type CustomOption struct {
	Title     string              `json:"title"`
	Type      string              `json:"type"`
	Required  bool                `json:"required"`
	Price     decimal.Decimal     `json:"price"`
	PriceType string              `json:"price_type"`
	SKU       string              `json:"sku"`
	SortOrder int                 `json:"sort_order"`
	Values    []CustomOptionValue `json:"values,omitempty"`
}

// TierPrice is one quantity-break price row, scoped to a website.
type TierPrice struct {
	WebsiteCode     string          `json:"website"`
	WebsiteID       *int64          `json:"-"`
	CustomerGroupID int             `json:"customer_group_id"`
	Qty             decimal.Decimal `json:"qty"`
	Price           decimal.Decimal `json:"price"`
}

// StockItem holds the inventory row for one product.
type StockItem struct {
	Qty         decimal.Decimal `json:"qty"`
	IsInStock   bool            `json:"is_in_stock"`
	ManageStock bool            `json:"manage_stock"`
}

// CatalogEntity is one catalog record moving through the import pipeline.
// It is identified by its SKU (natural key); ID stays nil until the
// insert/update split assigns a database id. Natural-key references
// (category paths, website codes, linked SKUs, ...) live next to their
// resolved counterparts and are resolved in place by the pipeline.
type CatalogEntity struct {
	ID   *int64     `json:"id,omitempty"`
	SKU  string     `json:"sku"`
	Type EntityType `json:"type"`

	AttributeSetName string `json:"attribute_set,omitempty"`
	AttributeSetID   *int64 `json:"-"`

	// Overlays keyed by store view code. The global overlay is always present.
	Overlays map[string]*StoreViewOverlay `json:"overlays"`

	// Category membership by materialized path string, resolved to ids.
	CategoryPaths []string `json:"category_paths,omitempty"`
	CategoryIDs   []int64  `json:"-"`

	WebsiteCodes []string `json:"websites,omitempty"`
	WebsiteIDs   []int64  `json:"-"`

	// Capability payloads. Which of these is populated follows Type:
	// links on any type, members on grouped, options on bundle,
	// variants on configurable.
	LinkedSKUs     map[LinkType][]string `json:"links,omitempty"`
	LinkedIDs      map[LinkType][]int64  `json:"-"`
	GroupedMembers []GroupedMember       `json:"grouped_members,omitempty"`
	BundleOptions  []BundleOption        `json:"bundle_options,omitempty"`
	VariantSKUs    []string              `json:"variant_skus,omitempty"`
	VariantIDs     []int64               `json:"-"`

	CustomOptions []CustomOption `json:"custom_options,omitempty"`
	TierPrices    []TierPrice    `json:"tier_prices,omitempty"`
	Stock         *StockItem     `json:"stock,omitempty"`

	// Media source URLs, transferred out-of-band after a successful flush.
	ImageURLs []string `json:"image_urls,omitempty"`

	// IsPlaceholder marks entities synthesized to satisfy a forward reference.
	IsPlaceholder bool `json:"-"`

	// Errors accumulated by validation and resolution. An entity with
	// errors is excluded from storage writes but never dropped silently.
	Errors []string `json:"errors,omitempty"`
}

// NewEntity creates an entity with an empty global overlay.
func NewEntity(sku string, typ EntityType) *CatalogEntity {
	e := &CatalogEntity{
		SKU:      sku,
		Type:     typ,
		Overlays: map[string]*StoreViewOverlay{},
	}
	e.Overlays[GlobalStoreCode] = NewStoreViewOverlay(GlobalStoreCode)
	return e
}

// PlaceholderNamePrefix makes synthesized entities identifiable if they
// ever surface in an admin listing.
const PlaceholderNamePrefix = "Placeholder for "

// StatusEnabled / StatusDisabled are the values of the "status" attribute.
const (
	StatusEnabled  int64 = 1
	StatusDisabled int64 = 2
)

// NewPlaceholder synthesizes a minimal disabled simple product occupying an
// id slot for a SKU that is referenced but not present in the batch nor in
// storage. A later real import with the same SKU converts it in place.
func NewPlaceholder(sku string) *CatalogEntity {
	e := NewEntity(sku, TypeSimple)
	e.IsPlaceholder = true
	global := e.GlobalOverlay()
	global.Attributes["name"] = PlaceholderNamePrefix + sku
	global.Attributes["price"] = decimal.Zero
	global.Attributes["status"] = StatusDisabled
	return e
}

// AddError appends a human-readable problem description to the entity.
func (e *CatalogEntity) AddError(msg string) {
	e.Errors = append(e.Errors, msg)
}

// OK reports whether the entity has accumulated no errors.
func (e *CatalogEntity) OK() bool {
	return len(e.Errors) == 0
}

// GlobalOverlay returns the mandatory global-scope overlay, creating it if
// the entity was deserialized without one.
func (e *CatalogEntity) GlobalOverlay() *StoreViewOverlay {
	return e.Overlay(GlobalStoreCode)
}

// Overlay returns the overlay for the given store code, creating it on demand.
func (e *CatalogEntity) Overlay(storeCode string) *StoreViewOverlay {
	if e.Overlays == nil {
		e.Overlays = map[string]*StoreViewOverlay{}
	}
	ov, ok := e.Overlays[storeCode]
	if !ok {
		ov = NewStoreViewOverlay(storeCode)
		e.Overlays[storeCode] = ov
	}
	return ov
}

// Name returns the entity's name in the given store view, falling back to
// the global overlay. Empty string when no name was supplied.
func (e *CatalogEntity) Name(storeCode string) string {
	if ov, ok := e.Overlays[storeCode]; ok {
		if name, ok := ov.Attributes["name"].(string); ok && name != "" {
			return name
		}
	}
	if storeCode != GlobalStoreCode {
		return e.Name(GlobalStoreCode)
	}
	return ""
}

// ReferencedSKUs collects every SKU this entity points at through links,
// grouped members, bundle selections or configurable variants. Used by the
// placeholder pass; duplicates are not removed here.
func (e *CatalogEntity) ReferencedSKUs() []string {
	var skus []string
	for _, list := range e.LinkedSKUs {
		skus = append(skus, list...)
	}
	for _, m := range e.GroupedMembers {
		skus = append(skus, m.SKU)
	}
	for _, opt := range e.BundleOptions {
		for _, sel := range opt.Selections {
			skus = append(skus, sel.SKU)
		}
	}
	skus = append(skus, e.VariantSKUs...)
	return skus
}
