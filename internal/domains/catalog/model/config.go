package model

// URLKeyScheme selects the source of auto-generated URL keys.
type URLKeyScheme string

const (
	SchemeFromName URLKeyScheme = "from-name"
	SchemeFromSKU  URLKeyScheme = "from-sku"
)

// DuplicateStrategy selects how URL key collisions are handled.
type DuplicateStrategy string

const (
	// DuplicateError rejects the entity with a conflict error.
	DuplicateError DuplicateStrategy = "error"
	// DuplicateAddSKU appends the slugged SKU to the base key.
	DuplicateAddSKU DuplicateStrategy = "add-sku"
	// DuplicateAddSerial appends the next free numeric suffix.
	DuplicateAddSerial DuplicateStrategy = "add-serial"
	// DuplicateAllow accepts the collision as-is; no uniqueness guarantee.
	DuplicateAllow DuplicateStrategy = "allow"
)

// ImportConfig is the session-scoped configuration consumed by one pipeline
// instance. Defaults come from the environment; the JSON import endpoint may
// override per request.
type ImportConfig struct {
	URLKeyScheme      URLKeyScheme      `json:"url_key_scheme"`
	DuplicateStrategy DuplicateStrategy `json:"duplicate_url_key_strategy"`

	AutoCreateCategories  bool   `json:"auto_create_categories"`
	CategoryPathSeparator string `json:"category_path_separator"`

	// SaveRewriteHistory keeps replaced canonical paths as 301 redirects;
	// when false stale paths are simply deleted.
	SaveRewriteHistory bool `json:"save_rewrite_history"`

	// AutoCreateOptionAttributes is the allow-list of select/multiselect
	// attribute codes whose unknown option names are created on the fly.
	AutoCreateOptionAttributes []string `json:"auto_create_option_attributes"`

	// ProductURLSuffix terminates every product request path.
	ProductURLSuffix string `json:"product_url_suffix"`
}

// DefaultImportConfig returns the documented defaults.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		URLKeyScheme:          SchemeFromName,
		DuplicateStrategy:     DuplicateError,
		AutoCreateCategories:  false,
		CategoryPathSeparator: "/",
		SaveRewriteHistory:    true,
		ProductURLSuffix:      ".html",
	}
}

// OptionAutoCreatable reports whether the attribute code is on the allow-list.
func (c ImportConfig) OptionAutoCreatable(attrCode string) bool {
	for _, code := range c.AutoCreateOptionAttributes {
		if code == attrCode {
			return true
		}
	}
	return false
}
