package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-backend/internal/domains/catalog/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// datetime layouts accepted for datetime-backed attributes.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// EntityValidator performs shape and metadata-driven checks on a pending
// entity. Checks dispatch on the attribute's declared backend type, never on
// the runtime type of the incoming value; values are normalized in place so
// the storage writers receive exactly one representation per backend.
type EntityValidator struct {
	meta *MetadataCache
}

// NewEntityValidator creates the validator.
func NewEntityValidator(meta *MetadataCache) *EntityValidator {
	return &EntityValidator{meta: meta}
}

// Validate runs all checks, accumulating problems on the entity. isInsert
// selects the stricter rule set for records not yet in storage.
func (v *EntityValidator) Validate(e *model.CatalogEntity, isInsert bool) {
	v.validateShape(e)
	v.validateAttributes(e)
	if isInsert {
		v.validateRequired(e)
	}
	v.validatePayloads(e)
}

func (v *EntityValidator) validateShape(e *model.CatalogEntity) {
	if err := validation.Validate(e.SKU, validation.Required, validation.Length(1, 64)); err != nil {
		e.AddError(fmt.Sprintf("invalid sku: %v", err))
	}
	if !e.Type.Valid() {
		e.AddError(fmt.Sprintf("unknown product type: %s", e.Type))
	}
}

// validateAttributes checks every overlay value against metadata and
// normalizes it to the canonical in-memory type of its backend.
func (v *EntityValidator) validateAttributes(e *model.CatalogEntity) {
	for _, ov := range e.Overlays {
		codes := make([]string, 0, len(ov.Attributes))
		for code := range ov.Attributes {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			attr, ok := v.meta.Attribute(code)
			if !ok {
				e.AddError(fmt.Sprintf("unknown attribute code: %s", code))
				delete(ov.Attributes, code)
				continue
			}
			normalized, err := normalizeValue(attr, ov.Attributes[code])
			if err != nil {
				e.AddError(fmt.Sprintf("invalid value for attribute %s: %v", code, err))
				delete(ov.Attributes, code)
				continue
			}
			ov.Attributes[code] = normalized
		}
	}
}

// validateRequired enforces required attributes on the global overlay for
// records about to be inserted. Updates may legitimately touch a subset.
func (v *EntityValidator) validateRequired(e *model.CatalogEntity) {
	global := e.GlobalOverlay()
	for _, attr := range v.meta.RequiredAttributes() {
		if attr.BackendType == model.BackendStatic {
			continue
		}
		if _, ok := global.Attributes[attr.Code]; !ok {
			e.AddError(fmt.Sprintf("missing required attribute: %s", attr.Code))
		}
	}
}

// validatePayloads checks the capability payloads' shape: option titles,
// price types, tier price rows.
func (v *EntityValidator) validatePayloads(e *model.CatalogEntity) {
	for i, opt := range e.CustomOptions {
		if err := validation.Validate(opt.Title, validation.Required); err != nil {
			e.AddError(fmt.Sprintf("custom option %d: title is required", i+1))
		}
		if opt.PriceType != "" && opt.PriceType != "fixed" && opt.PriceType != "percent" {
			e.AddError(fmt.Sprintf("custom option %q: unknown price type %s", opt.Title, opt.PriceType))
		}
		for _, val := range opt.Values {
			if val.Title == "" {
				e.AddError(fmt.Sprintf("custom option %q: value title is required", opt.Title))
			}
		}
	}

	for i, tp := range e.TierPrices {
		if tp.Qty.LessThanOrEqual(decimal.Zero) {
			e.AddError(fmt.Sprintf("tier price %d: qty must be positive", i+1))
		}
		if tp.Price.IsNegative() {
			e.AddError(fmt.Sprintf("tier price %d: price must not be negative", i+1))
		}
	}

	for _, opt := range e.BundleOptions {
		if opt.Title == "" {
			e.AddError("bundle option: title is required")
		}
		if len(opt.Selections) == 0 {
			e.AddError(fmt.Sprintf("bundle option %q: at least one selection is required", opt.Title))
		}
	}

	if e.Type == model.TypeGrouped {
		for i, m := range e.GroupedMembers {
			if m.SKU == "" {
				e.AddError(fmt.Sprintf("grouped member %d: sku is required", i+1))
			}
		}
	}
}

// normalizeValue coerces a decoded value (JSON numbers arrive as float64,
// spreadsheet cells as strings) into the canonical type of the attribute's
// backend: string for varchar/text/datetime, int64 for int,
// decimal.Decimal for decimal. Multiselect id slices serialize to the
// comma-joined varchar form here.
func normalizeValue(attr *model.Attribute, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("value is empty")
	}

	if ids, ok := value.([]int64); ok {
		// Resolved multiselect option ids; stored comma-joined.
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return strings.Join(parts, ","), nil
	}

	switch attr.BackendType {
	case model.BackendVarchar, model.BackendText:
		return stringValue(value)

	case model.BackendDatetime:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		for _, layout := range datetimeLayouts {
			if _, perr := time.Parse(layout, s); perr == nil {
				return s, nil
			}
		}
		return nil, fmt.Errorf("unrecognized datetime %q", s)

	case model.BackendInt:
		return intValue(value)

	case model.BackendDecimal:
		return decimalValue(value)

	case model.BackendStatic:
		return value, nil

	default:
		return nil, fmt.Errorf("unsupported backend type %s", attr.BackendType)
	}
}

func stringValue(value any) (string, error) {
	switch x := value.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("expected string, got %T", value)
	}
}

func intValue(value any) (int64, error) {
	switch x := value.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", x)
		}
		return n, nil
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, fmt.Errorf("expected integer, got %s", x)
		}
		return x.IntPart(), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func decimalValue(value any) (decimal.Decimal, error) {
	switch x := value.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("expected number, got %q", x)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected number, got %T", value)
	}
}
