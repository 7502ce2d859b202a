package model

import "errors"

// Pipeline-invariant violations and fatal conditions. Per-entity problems
// never surface as Go errors; they accumulate on the entity instead.
var (
	// ErrMetadataNotLoaded is returned when a pipeline step runs before the
	// metadata cache was populated.
	ErrMetadataNotLoaded = errors.New("catalog metadata not loaded")

	// ErrPlaceholderInvariant signals that a referenced SKU is still
	// missing after placeholder creation. This is a programming or
	// configuration error, not an input problem.
	ErrPlaceholderInvariant = errors.New("referenced sku missing after placeholder creation")

	// ErrEmptyBatch is returned when a flush is requested with no entities.
	ErrEmptyBatch = errors.New("import batch is empty")
)
