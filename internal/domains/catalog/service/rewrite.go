package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"

	"github.com/rs/zerolog/log"
)

// RewriteReconciler keeps canonical storefront paths, historical 301
// redirects and the path→category index mutually consistent. It runs last
// in the pipeline, when ids, categories and URL keys are final.
type RewriteReconciler struct {
	repo repository.UrlRewriteRepository
	meta *MetadataCache
	cfg  model.ImportConfig
}

// NewRewriteReconciler creates a reconciler for one import session.
func NewRewriteReconciler(repo repository.UrlRewriteRepository, meta *MetadataCache, cfg model.ImportConfig) *RewriteReconciler {
	return &RewriteReconciler{repo: repo, meta: meta, cfg: cfg}
}

// Reconcile diffs the desired canonical set against stored rewrites and
// writes the difference: new canonical rows, 301 redirects for replaced
// paths (when history retention is on), and incremental category index
// entries for just-inserted category-scoped rows.
func (r *RewriteReconciler) Reconcile(ctx context.Context, entities []*model.CatalogEntity) error {
	desired := r.buildDesired(entities)

	var ids []int64
	for _, e := range entities {
		if e.OK() && e.ID != nil {
			ids = append(ids, *e.ID)
		}
	}
	existing, err := r.repo.FindByEntityIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load stored rewrites: %w", err)
	}

	// Slot matching considers only live autogenerated records; redirects
	// never occupy a slot and are never rewritten into further redirects.
	slots := map[string]*model.UrlRewrite{}
	var redirects []*model.UrlRewrite
	for _, ex := range existing {
		if ex.IsCanonical() && ex.IsAutogenerated {
			slots[ex.SlotKey()] = ex
		} else {
			redirects = append(redirects, ex)
		}
	}

	desiredBySlot := make(map[string]*model.UrlRewrite, len(desired))
	desiredPaths := map[string]bool{} // "store:path"
	canonicalTarget := map[string]string{}
	for _, d := range desired {
		desiredBySlot[d.SlotKey()] = d
		desiredPaths[fmt.Sprintf("%d:%s", d.StoreID, d.RequestPath)] = true
		if d.CategoryID == nil {
			canonicalTarget[fmt.Sprintf("%d:%d", d.StoreID, d.EntityID)] = d.RequestPath
		}
	}

	var toInsert []*model.UrlRewrite
	var toDelete []int64

	for _, d := range desired {
		ex, ok := slots[d.SlotKey()]
		if ok && ex.RequestPath == d.RequestPath {
			// Idempotent re-import: same slot, same path.
			continue
		}
		if ok {
			toDelete = append(toDelete, ex.ID)
			if r.cfg.SaveRewriteHistory {
				toInsert = append(toInsert, &model.UrlRewrite{
					EntityType:      model.RewriteEntityProduct,
					EntityID:        ex.EntityID,
					RequestPath:     ex.RequestPath,
					TargetPath:      d.RequestPath,
					RedirectType:    model.RedirectTypePermanent,
					StoreID:         ex.StoreID,
					IsAutogenerated: false,
					CategoryID:      ex.CategoryID,
				})
			}
		}
		toInsert = append(toInsert, d)
	}

	// Slots with no desired counterpart (membership removed, key dropped):
	// delete, redirecting to the entity's category-less canonical path so
	// no externally observable path is lost.
	for key, ex := range slots {
		if _, ok := desiredBySlot[key]; ok {
			continue
		}
		toDelete = append(toDelete, ex.ID)
		target, hasTarget := canonicalTarget[fmt.Sprintf("%d:%d", ex.StoreID, ex.EntityID)]
		if r.cfg.SaveRewriteHistory && hasTarget && target != ex.RequestPath {
			toInsert = append(toInsert, &model.UrlRewrite{
				EntityType:      model.RewriteEntityProduct,
				EntityID:        ex.EntityID,
				RequestPath:     ex.RequestPath,
				TargetPath:      target,
				RedirectType:    model.RedirectTypePermanent,
				StoreID:         ex.StoreID,
				IsAutogenerated: false,
				CategoryID:      ex.CategoryID,
			})
		}
	}

	// A stored redirect holding a path we are about to re-canonicalize
	// (rename back to an old key) would block the insert; clear it.
	for _, rd := range redirects {
		if desiredPaths[fmt.Sprintf("%d:%s", rd.StoreID, rd.RequestPath)] {
			toDelete = append(toDelete, rd.ID)
		}
	}

	if err := r.repo.DeleteByIDs(ctx, toDelete); err != nil {
		return fmt.Errorf("failed to delete stale rewrites: %w", err)
	}
	if err := r.repo.InsertIgnore(ctx, toInsert); err != nil {
		return fmt.Errorf("failed to insert rewrites: %w", err)
	}

	// Derived path→category index, rebuilt from rows actually inserted.
	var indexRows []repository.CategoryIndexRow
	for _, rw := range toInsert {
		if rw.ID == 0 || !rw.IsCanonical() || rw.CategoryID == nil {
			continue
		}
		indexRows = append(indexRows, repository.CategoryIndexRow{
			UrlRewriteID: rw.ID,
			CategoryID:   *rw.CategoryID,
			ProductID:    rw.EntityID,
		})
	}
	if err := r.repo.ReplaceCategoryIndex(ctx, indexRows); err != nil {
		return fmt.Errorf("failed to rebuild category index: %w", err)
	}

	log.Debug().
		Int("inserted", len(toInsert)).
		Int("deleted", len(toDelete)).
		Msg("URL rewrites reconciled")

	return nil
}

// buildDesired derives the full canonical set for the entities: one
// category-less path per (entity, store-with-key), plus one path per
// assigned category, built from the ancestors' store-specific (or global
// fallback) URL keys.
func (r *RewriteReconciler) buildDesired(entities []*model.CatalogEntity) []*model.UrlRewrite {
	var desired []*model.UrlRewrite

	for _, e := range entities {
		if !e.OK() || e.ID == nil {
			continue
		}
		entityID := *e.ID

		codes := make([]string, 0, len(e.Overlays))
		for code := range e.Overlays {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			ov := e.Overlays[code]
			if ov.StoreID == nil || ov.URLKey.Value == "" {
				continue
			}
			storeID := *ov.StoreID
			key := ov.URLKey.Value

			desired = append(desired, &model.UrlRewrite{
				EntityType:      model.RewriteEntityProduct,
				EntityID:        entityID,
				RequestPath:     key + r.cfg.ProductURLSuffix,
				TargetPath:      fmt.Sprintf("catalog/product/view/id/%d", entityID),
				RedirectType:    model.RedirectTypeCanonical,
				StoreID:         storeID,
				IsAutogenerated: true,
			})

			for _, categoryID := range e.CategoryIDs {
				prefix, ok := r.categoryPathPrefix(categoryID, storeID)
				if !ok {
					continue
				}
				catID := categoryID
				desired = append(desired, &model.UrlRewrite{
					EntityType:      model.RewriteEntityProduct,
					EntityID:        entityID,
					RequestPath:     prefix + "/" + key + r.cfg.ProductURLSuffix,
					TargetPath:      fmt.Sprintf("catalog/product/view/id/%d/category/%d", entityID, catID),
					RedirectType:    model.RedirectTypeCanonical,
					StoreID:         storeID,
					IsAutogenerated: true,
					CategoryID:      &catID,
				})
			}
		}
	}
	return desired
}

// categoryPathPrefix joins the ancestor chain's URL keys with "/". A chain
// containing a category with no key in any scope yields no category path.
func (r *RewriteReconciler) categoryPathPrefix(categoryID, storeID int64) (string, bool) {
	category, ok := r.meta.Category(categoryID)
	if !ok {
		return "", false
	}

	var keys []string
	for _, ancestor := range r.meta.Ancestors(category) {
		key := ancestor.URLKey(storeID)
		if key == "" {
			return "", false
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return "", false
	}
	return strings.Join(keys, "/"), true
}
