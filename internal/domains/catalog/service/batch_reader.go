package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalog-backend/internal/domains/catalog/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Reserved flat-file column names. Everything else is treated as an
// attribute code, optionally store-scoped as "<code>:<store>".
var reservedColumns = map[string]bool{
	"sku": true, "id": true, "type": true, "attribute_set": true,
	"categories": true, "websites": true,
	"related": true, "upsell": true, "crosssell": true,
	"grouped_members": true, "variant_skus": true,
	"qty": true, "is_in_stock": true, "manage_stock": true,
	"image_urls": true,
	"tier_prices": true,
}

// multiValueSeparator splits list cells ("a|b|c").
const multiValueSeparator = "|"

// BatchReader converts flat files (CSV, XLSX) into import payloads. One
// row per product; list cells are pipe-delimited; store-scoped attribute
// columns use "<code>:<store>" headers; "url_key" and "generate_url_key"
// drive the key request per scope; "tax_class" is looked up by name.
type BatchReader struct{}

// NewBatchReader creates the reader.
func NewBatchReader() *BatchReader {
	return &BatchReader{}
}

// ReadCSV parses a CSV stream. The first record is the header.
func (r *BatchReader) ReadCSV(src io.Reader) ([]model.ProductPayload, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return r.parseRows(records)
}

// ReadXLSX parses the first sheet of an XLSX stream.
func (r *BatchReader) ReadXLSX(src io.Reader) ([]model.ProductPayload, error) {
	book, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return r.parseRows(rows)
}

func (r *BatchReader) parseRows(records [][]string) ([]model.ProductPayload, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("file has no data rows")
	}

	colMap := make(map[string]int)
	for i, name := range records[0] {
		colMap[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := colMap["sku"]; !ok {
		return nil, fmt.Errorf("missing required column: sku")
	}

	payloads := make([]model.ProductPayload, 0, len(records)-1)
	for i, record := range records[1:] {
		payload, err := r.parseRow(records[0], record, colMap)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func (r *BatchReader) parseRow(header, record []string, colMap map[string]int) (model.ProductPayload, error) {
	getCol := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	var p model.ProductPayload
	p.SKU = getCol("sku")
	if p.SKU == "" {
		return p, fmt.Errorf("sku is empty")
	}
	p.Type = getCol("type")
	p.AttributeSet = getCol("attribute_set")

	if val := getCol("id"); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid id: %s", val)
		}
		p.ID = &id
	}

	p.Categories = splitMulti(getCol("categories"))
	p.Websites = splitMulti(getCol("websites"))
	p.Related = splitMulti(getCol("related"))
	p.Upsell = splitMulti(getCol("upsell"))
	p.Crosssell = splitMulti(getCol("crosssell"))
	p.VariantSKUs = splitMulti(getCol("variant_skus"))
	p.ImageURLs = splitMulti(getCol("image_urls"))

	members, err := parseGroupedMembers(getCol("grouped_members"))
	if err != nil {
		return p, err
	}
	p.GroupedMembers = members

	tiers, err := parseTierPrices(getCol("tier_prices"))
	if err != nil {
		return p, err
	}
	p.TierPrices = tiers

	stock, err := parseStock(getCol("qty"), getCol("is_in_stock"), getCol("manage_stock"))
	if err != nil {
		return p, err
	}
	p.Stock = stock

	// Remaining columns are attribute values, global or "<code>:<store>".
	for idx, name := range header {
		col := strings.TrimSpace(strings.ToLower(name))
		if col == "" || reservedColumns[col] || idx >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[idx])
		if value == "" {
			continue
		}

		code, store := col, ""
		if at := strings.LastIndex(col, ":"); at > 0 {
			code, store = col[:at], col[at+1:]
		}

		target := &p.StoreViewPayload
		if store != "" {
			if p.StoreViews == nil {
				p.StoreViews = map[string]model.StoreViewPayload{}
			}
			sv := p.StoreViews[store]
			applyCell(&sv, code, value)
			p.StoreViews[store] = sv
			continue
		}
		applyCell(target, code, value)
	}

	return p, nil
}

// applyCell routes one attribute cell into a store view payload, handling
// the special url_key / generate_url_key / tax_class columns.
func applyCell(sv *model.StoreViewPayload, code, value string) {
	switch code {
	case "url_key":
		key := value
		sv.URLKey = &key
	case "generate_url_key":
		sv.GenerateURLKey = parseBool(value)
	case "tax_class":
		sv.TaxClass = value
	default:
		if sv.Attributes == nil {
			sv.Attributes = map[string]any{}
		}
		if strings.Contains(value, multiValueSeparator) {
			sv.Attributes[code] = splitMulti(value)
		} else {
			sv.Attributes[code] = value
		}
	}
}

func splitMulti(cell string) []string {
	if cell == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(cell, multiValueSeparator) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// parseGroupedMembers parses "sku=qty|sku=qty"; qty defaults to 1.
func parseGroupedMembers(cell string) ([]model.GroupedMember, error) {
	var members []model.GroupedMember
	for i, part := range splitMulti(cell) {
		member := model.GroupedMember{Position: i + 1, Qty: decimal.NewFromInt(1)}
		if at := strings.Index(part, "="); at > 0 {
			qty, err := decimal.NewFromString(strings.TrimSpace(part[at+1:]))
			if err != nil {
				return nil, fmt.Errorf("invalid grouped member qty in %q", part)
			}
			member.Qty = qty
			part = strings.TrimSpace(part[:at])
		}
		member.SKU = part
		members = append(members, member)
	}
	return members, nil
}

// parseTierPrices parses "website;group;qty;price|..." rows.
func parseTierPrices(cell string) ([]model.TierPrice, error) {
	var tiers []model.TierPrice
	for _, part := range splitMulti(cell) {
		fields := strings.Split(part, ";")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid tier price %q, want website;group;qty;price", part)
		}
		group, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid tier price group in %q", part)
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid tier price qty in %q", part)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid tier price in %q", part)
		}
		tiers = append(tiers, model.TierPrice{
			WebsiteCode:     strings.TrimSpace(fields[0]),
			CustomerGroupID: group,
			Qty:             qty,
			Price:           price,
		})
	}
	return tiers, nil
}

func parseStock(qty, inStock, manage string) (*model.StockItem, error) {
	if qty == "" && inStock == "" && manage == "" {
		return nil, nil
	}
	stock := &model.StockItem{ManageStock: true}
	if qty != "" {
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid qty: %s", qty)
		}
		stock.Qty = d
	}
	stock.IsInStock = parseBool(inStock) || (inStock == "" && stock.Qty.IsPositive())
	if manage != "" {
		stock.ManageStock = parseBool(manage)
	}
	return stock, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
