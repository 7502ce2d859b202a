package model

// BackendType is the declared storage type of an attribute. Validation and
// serialization dispatch on this tag rather than on the runtime type of the
// value (no reflection in the write path).
type BackendType string

const (
	BackendVarchar  BackendType = "varchar"
	BackendText     BackendType = "text"
	BackendDecimal  BackendType = "decimal"
	BackendDatetime BackendType = "datetime"
	BackendInt      BackendType = "int"
	// BackendStatic marks columns living on the main entity table (sku,
	// type). The value writers skip these.
	BackendStatic BackendType = "static"
)

// Valid reports whether b names a known backend type.
func (b BackendType) Valid() bool {
	switch b {
	case BackendVarchar, BackendText, BackendDecimal, BackendDatetime, BackendInt, BackendStatic:
		return true
	}
	return false
}

// FrontendInput values the resolver cares about.
const (
	InputSelect      = "select"
	InputMultiselect = "multiselect"
)

// Attribute is one attribute definition from the external catalog schema.
type Attribute struct {
	ID            int64
	Code          string
	BackendType   BackendType
	FrontendInput string
	IsRequired    bool
	// Options maps option label to option id for select/multiselect
	// attributes. Mutated when an option is auto-created.
	Options map[string]int64
}

// IsSelect reports whether the attribute stores option ids.
func (a *Attribute) IsSelect() bool {
	return a.FrontendInput == InputSelect || a.FrontendInput == InputMultiselect
}

// Category is one node of the category tree snapshot. Path is the
// materialized id chain ("1/2/5"), Level its depth.
type Category struct {
	ID       int64
	ParentID int64
	Path     string
	Level    int
	Name     string
	// URLKeys maps store id to the category's URL key; GlobalStoreID holds
	// the fallback used when a store has no override.
	URLKeys map[int64]string
}

// URLKey returns the category's key for the store, falling back to global.
func (c *Category) URLKey(storeID int64) string {
	if key, ok := c.URLKeys[storeID]; ok && key != "" {
		return key
	}
	return c.URLKeys[GlobalStoreID]
}
