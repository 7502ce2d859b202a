package model

// StoreViewPayload is the per-store slice of an imported product in the
// JSON batch format.
type StoreViewPayload struct {
	Attributes     map[string]any      `json:"attributes,omitempty"`
	URLKey         *string             `json:"url_key,omitempty"`
	GenerateURLKey bool                `json:"generate_url_key,omitempty"`
	Selects        map[string]string   `json:"selects,omitempty"`
	Multiselects   map[string][]string `json:"multiselects,omitempty"`
	TaxClass       string              `json:"tax_class,omitempty"`
}

// ProductPayload is one product in the JSON batch format. Fields outside
// StoreViews apply to the global scope.
type ProductPayload struct {
	SKU          string `json:"sku"`
	ID           *int64 `json:"id,omitempty"`
	Type         string `json:"type"`
	AttributeSet string `json:"attribute_set,omitempty"`

	StoreViewPayload

	StoreViews map[string]StoreViewPayload `json:"store_views,omitempty"`

	Categories []string `json:"categories,omitempty"`
	Websites   []string `json:"websites,omitempty"`

	Related   []string `json:"related,omitempty"`
	Upsell    []string `json:"upsell,omitempty"`
	Crosssell []string `json:"crosssell,omitempty"`

	GroupedMembers []GroupedMember `json:"grouped_members,omitempty"`
	BundleOptions  []BundleOption  `json:"bundle_options,omitempty"`
	VariantSKUs    []string        `json:"variant_skus,omitempty"`

	CustomOptions []CustomOption `json:"custom_options,omitempty"`
	TierPrices    []TierPrice    `json:"tier_prices,omitempty"`
	Stock         *StockItem     `json:"stock,omitempty"`
	ImageURLs     []string       `json:"image_urls,omitempty"`
}

func applyStoreViewPayload(ov *StoreViewOverlay, p StoreViewPayload) {
	for code, value := range p.Attributes {
		ov.Attributes[code] = value
	}
	switch {
	case p.URLKey != nil:
		ov.SetExplicitURLKey(*p.URLKey)
	case p.GenerateURLKey:
		ov.RequestGeneratedURLKey()
	}
	if len(p.Selects) > 0 {
		ov.PendingSelects = p.Selects
	}
	if len(p.Multiselects) > 0 {
		ov.PendingMultiSelects = p.Multiselects
	}
	ov.PendingTaxClass = p.TaxClass
}

// ToEntity converts the payload into a pipeline entity.
func (p ProductPayload) ToEntity() *CatalogEntity {
	typ := EntityType(p.Type)
	if typ == "" {
		typ = TypeSimple
	}
	e := NewEntity(p.SKU, typ)
	e.ID = p.ID
	e.AttributeSetName = p.AttributeSet

	applyStoreViewPayload(e.GlobalOverlay(), p.StoreViewPayload)
	for code, sv := range p.StoreViews {
		applyStoreViewPayload(e.Overlay(code), sv)
	}

	e.CategoryPaths = p.Categories
	e.WebsiteCodes = p.Websites

	if len(p.Related)+len(p.Upsell)+len(p.Crosssell) > 0 {
		e.LinkedSKUs = map[LinkType][]string{}
		if len(p.Related) > 0 {
			e.LinkedSKUs[LinkRelated] = p.Related
		}
		if len(p.Upsell) > 0 {
			e.LinkedSKUs[LinkUpsell] = p.Upsell
		}
		if len(p.Crosssell) > 0 {
			e.LinkedSKUs[LinkCrosssell] = p.Crosssell
		}
	}

	e.GroupedMembers = p.GroupedMembers
	e.BundleOptions = p.BundleOptions
	e.VariantSKUs = p.VariantSKUs
	e.CustomOptions = p.CustomOptions
	e.TierPrices = p.TierPrices
	e.Stock = p.Stock
	e.ImageURLs = p.ImageURLs

	return e
}

// ImportRequest is the JSON batch import body. Config fields, when present,
// override the session defaults for this batch only.
type ImportRequest struct {
	Config   *ImportConfig    `json:"config,omitempty"`
	Products []ProductPayload `json:"products"`
}

// ImportResultRow reports the outcome for one entity.
type ImportResultRow struct {
	SKU    string   `json:"sku"`
	ID     *int64   `json:"id,omitempty"`
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

// ImportResult is the per-batch response body.
type ImportResult struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Rows      []ImportResultRow `json:"rows"`
}

// BuildImportResult summarizes a processed batch, placeholders excluded.
func BuildImportResult(entities []*CatalogEntity) *ImportResult {
	res := &ImportResult{}
	for _, e := range entities {
		if e.IsPlaceholder {
			continue
		}
		res.Total++
		row := ImportResultRow{SKU: e.SKU, ID: e.ID, OK: e.OK(), Errors: e.Errors}
		if row.OK {
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}
