package model

import "fmt"

// Redirect types stored on url_rewrite rows.
const (
	RedirectTypeCanonical = 0
	RedirectTypePermanent = 301
)

// Rewrite entity types.
const (
	RewriteEntityProduct  = "product"
	RewriteEntityCategory = "category"
)

// UrlRewrite is one storefront path record. For a given (store id, request
// path) there is at most one live record. Canonical product records come in
// two shapes: one category-less record plus zero or more records carrying
// the owning category id in CategoryID.
type UrlRewrite struct {
	ID              int64
	EntityType      string
	EntityID        int64
	RequestPath     string
	TargetPath      string
	RedirectType    int
	StoreID         int64
	IsAutogenerated bool
	// CategoryID is set on category-scoped product paths; nil on the
	// category-less canonical record and on redirects inherited from one.
	CategoryID *int64
}

// IsCanonical reports whether the record is a live (non-redirect) path.
func (r *UrlRewrite) IsCanonical() bool {
	return r.RedirectType == RedirectTypeCanonical
}

// SlotKey identifies the logical slot a canonical record occupies: one per
// (entity, category, store), category id 0 standing for category-less.
// Redirects never occupy a slot.
func (r *UrlRewrite) SlotKey() string {
	var cat int64
	if r.CategoryID != nil {
		cat = *r.CategoryID
	}
	return fmt.Sprintf("%d:%d:%d", r.StoreID, r.EntityID, cat)
}
