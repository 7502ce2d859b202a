package model

// URLKeyMode is the tri-state of an overlay's URL key request.
type URLKeyMode int

const (
	// URLKeyAbsent means the overlay does not request a key in this store.
	URLKeyAbsent URLKeyMode = iota
	// URLKeyExplicit means the caller supplied the key verbatim.
	URLKeyExplicit
	// URLKeyGenerate asks the allocator to derive the key from name or SKU.
	URLKeyGenerate
)

// URLKeySpec carries the request and, after allocation, the final key.
// Value is empty while Mode is URLKeyGenerate and the allocator has not run,
// and is cleared again when allocation fails.
type URLKeySpec struct {
	Mode  URLKeyMode `json:"mode"`
	Value string     `json:"value,omitempty"`
}

// StoreViewOverlay is the store-view-scoped slice of an entity's attribute
// values. Pending* fields hold natural-key references the resolver replaces
// with ids inside Attributes; after resolution they are cleared.
type StoreViewOverlay struct {
	StoreCode string `json:"store"`
	// StoreID is nil until the resolver looks the code up.
	StoreID *int64 `json:"-"`

	// Attributes maps attribute code to a resolved, typed value. Select
	// and multiselect attributes hold int64 / []int64 option ids once the
	// resolver has run.
	Attributes map[string]any `json:"attributes"`

	URLKey URLKeySpec `json:"url_key"`

	// PendingSelects / PendingMultiSelects hold option names awaiting
	// lookup against attribute metadata.
	PendingSelects      map[string]string   `json:"selects,omitempty"`
	PendingMultiSelects map[string][]string `json:"multiselects,omitempty"`

	// PendingTaxClass is the tax class name awaiting id lookup.
	PendingTaxClass string `json:"tax_class,omitempty"`
}

// NewStoreViewOverlay creates an empty overlay for one store view code.
func NewStoreViewOverlay(storeCode string) *StoreViewOverlay {
	return &StoreViewOverlay{
		StoreCode:  storeCode,
		Attributes: map[string]any{},
	}
}

// SetExplicitURLKey records a caller-supplied key.
func (ov *StoreViewOverlay) SetExplicitURLKey(key string) {
	ov.URLKey = URLKeySpec{Mode: URLKeyExplicit, Value: key}
}

// RequestGeneratedURLKey marks the overlay for auto-generation.
func (ov *StoreViewOverlay) RequestGeneratedURLKey() {
	ov.URLKey = URLKeySpec{Mode: URLKeyGenerate}
}
