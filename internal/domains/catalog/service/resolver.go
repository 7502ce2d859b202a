package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/shared/utils"

	"github.com/rs/zerolog/log"
)

// ReferenceResolver converts every natural-key reference on a pending
// entity into a surrogate id, in place. Failures are per-field: they
// downgrade the owning entity to not-ok and clear the field, and resolution
// continues for everything else.
//
// The resolver is session-scoped: the category path cache lives for one
// pipeline instance so repeated paths across entities cost one lookup each.
type ReferenceResolver struct {
	meta *MetadataCache
	cfg  model.ImportConfig

	// pathCache maps a full category path string to its resolved id.
	pathCache map[string]int64
}

// NewReferenceResolver creates a resolver for one import session.
func NewReferenceResolver(meta *MetadataCache, cfg model.ImportConfig) *ReferenceResolver {
	return &ReferenceResolver{
		meta:      meta,
		cfg:       cfg,
		pathCache: map[string]int64{},
	}
}

// ResolveIDs resolves every natural-key field of the entity.
func (r *ReferenceResolver) ResolveIDs(ctx context.Context, e *model.CatalogEntity) {
	r.resolveAttributeSet(e)
	r.resolveWebsites(e)
	r.resolveCategories(ctx, e)
	r.resolveTierPriceWebsites(e)

	for _, ov := range e.Overlays {
		r.resolveStoreView(e, ov)
		r.resolveTaxClass(e, ov)
		r.resolveOptions(ctx, e, ov)
	}
}

func (r *ReferenceResolver) resolveAttributeSet(e *model.CatalogEntity) {
	if e.AttributeSetName == "" {
		return
	}
	id, ok := r.meta.AttributeSetID(e.AttributeSetName)
	if !ok {
		e.AddError(fmt.Sprintf("attribute set not found: %s", e.AttributeSetName))
		e.AttributeSetName = ""
		return
	}
	e.AttributeSetID = &id
}

func (r *ReferenceResolver) resolveStoreView(e *model.CatalogEntity, ov *model.StoreViewOverlay) {
	id, ok := r.meta.StoreViewID(ov.StoreCode)
	if !ok {
		e.AddError(fmt.Sprintf("store view not found: %s", ov.StoreCode))
		return
	}
	ov.StoreID = &id
}

func (r *ReferenceResolver) resolveWebsites(e *model.CatalogEntity) {
	var ids []int64
	for _, code := range e.WebsiteCodes {
		id, ok := r.meta.WebsiteID(code)
		if !ok {
			e.AddError(fmt.Sprintf("website not found: %s", code))
			continue
		}
		ids = append(ids, id)
	}
	e.WebsiteIDs = ids
}

func (r *ReferenceResolver) resolveTierPriceWebsites(e *model.CatalogEntity) {
	for i := range e.TierPrices {
		tp := &e.TierPrices[i]
		if tp.WebsiteCode == "" {
			continue
		}
		id, ok := r.meta.WebsiteID(tp.WebsiteCode)
		if !ok {
			e.AddError(fmt.Sprintf("website not found: %s", tp.WebsiteCode))
			tp.WebsiteCode = ""
			continue
		}
		tp.WebsiteID = &id
	}
}

func (r *ReferenceResolver) resolveCategories(ctx context.Context, e *model.CatalogEntity) {
	var ids []int64
	for _, path := range e.CategoryPaths {
		id, err := r.resolvePath(ctx, path)
		if err != nil {
			e.AddError(err.Error())
			continue
		}
		ids = append(ids, id)
	}
	e.CategoryIDs = ids
}

// resolvePath walks the path segments from the tree root, looking each
// segment up by name under its resolved parent and optionally creating it.
func (r *ReferenceResolver) resolvePath(ctx context.Context, path string) (int64, error) {
	if id, ok := r.pathCache[path]; ok {
		return id, nil
	}

	parent := r.meta.RootCategory()
	if parent == nil {
		return 0, fmt.Errorf("category not found: %s", path)
	}

	for _, segment := range strings.Split(path, r.cfg.CategoryPathSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		child, ok := r.meta.ChildByName(parent.ID, segment)
		if !ok {
			if !r.cfg.AutoCreateCategories {
				return 0, fmt.Errorf("category not found: %s", path)
			}
			created, err := r.meta.CreateCategory(ctx, parent, segment, utils.Slugify(segment))
			if err != nil {
				return 0, fmt.Errorf("failed to create category %q: %w", segment, err)
			}
			child = created
		}
		parent = child
	}

	if parent.Level == 0 {
		return 0, fmt.Errorf("category not found: %s", path)
	}

	r.pathCache[path] = parent.ID
	log.Debug().Str("path", path).Int64("category_id", parent.ID).Msg("Resolved category path")
	return parent.ID, nil
}

func (r *ReferenceResolver) resolveTaxClass(e *model.CatalogEntity, ov *model.StoreViewOverlay) {
	if ov.PendingTaxClass == "" {
		return
	}
	id, ok := r.meta.TaxClassID(ov.PendingTaxClass)
	if !ok {
		e.AddError(fmt.Sprintf("tax class not found: %s", ov.PendingTaxClass))
		ov.PendingTaxClass = ""
		return
	}
	ov.Attributes["tax_class_id"] = id
	ov.PendingTaxClass = ""
}

// resolveOptions looks select and multiselect option names up in the
// attribute's option map, auto-creating them when the attribute code is on
// the allow-list. Missing options of one attribute are reported in a single
// message.
func (r *ReferenceResolver) resolveOptions(ctx context.Context, e *model.CatalogEntity, ov *model.StoreViewOverlay) {
	// Flat readers (CSV, XLSX) cannot classify columns; a string value on a
	// select attribute is an option name and joins the pending set here.
	for code, value := range ov.Attributes {
		attr, ok := r.meta.Attribute(code)
		if !ok || !attr.IsSelect() {
			continue
		}
		switch x := value.(type) {
		case string:
			if attr.FrontendInput == model.InputMultiselect {
				if ov.PendingMultiSelects == nil {
					ov.PendingMultiSelects = map[string][]string{}
				}
				ov.PendingMultiSelects[code] = []string{x}
			} else {
				if ov.PendingSelects == nil {
					ov.PendingSelects = map[string]string{}
				}
				ov.PendingSelects[code] = x
			}
			delete(ov.Attributes, code)
		case []string:
			if ov.PendingMultiSelects == nil {
				ov.PendingMultiSelects = map[string][]string{}
			}
			ov.PendingMultiSelects[code] = x
			delete(ov.Attributes, code)
		}
	}

	for code, name := range ov.PendingSelects {
		if id, ok := r.resolveOption(ctx, e, code, []string{name}); ok {
			ov.Attributes[code] = id[0]
		}
	}
	ov.PendingSelects = nil

	for code, names := range ov.PendingMultiSelects {
		if ids, ok := r.resolveOption(ctx, e, code, names); ok {
			ov.Attributes[code] = ids
		}
	}
	ov.PendingMultiSelects = nil
}

func (r *ReferenceResolver) resolveOption(ctx context.Context, e *model.CatalogEntity, code string, names []string) ([]int64, bool) {
	attr, ok := r.meta.Attribute(code)
	if !ok || !attr.IsSelect() {
		e.AddError(fmt.Sprintf("select attribute not found: %s", code))
		return nil, false
	}

	ids := make([]int64, 0, len(names))
	var missing []string
	for _, name := range names {
		if id, ok := attr.Options[name]; ok {
			ids = append(ids, id)
			continue
		}
		if r.cfg.OptionAutoCreatable(code) {
			id, err := r.meta.CreateOption(ctx, attr, name)
			if err != nil {
				e.AddError(fmt.Sprintf("failed to create option %q for attribute %s", name, code))
				return nil, false
			}
			ids = append(ids, id)
			continue
		}
		missing = append(missing, name)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		e.AddError(fmt.Sprintf("option(s) not found for attribute %s: %s",
			code, strings.Join(missing, ", ")))
		return nil, false
	}
	return ids, true
}
