package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
)

// Patchable order columns.
const (
	ColumnOrderDate       = "order_date"
	ColumnDescription     = "description"
	ColumnSKU             = "sku"
	ColumnProvider        = "provider"
	ColumnOrderedBy       = "ordered_by"
	ColumnProjectCode     = "project_code"
	ColumnPONumber        = "po_number"
	ColumnQuantity        = "quantity"
	ColumnUnitPrice       = "unit_price"
	ColumnStatus          = "status"
	ColumnReceivedDate    = "received_date"
	ColumnStorageLocation = "storage_location"
	ColumnIsReceived      = "is_received"
)

type columnKind int

const (
	kindText columnKind = iota
	kindDate
	kindInt
	kindDecimal
	kindStatus
	kindBool
)

var patchColumns = map[string]columnKind{
	ColumnOrderDate:       kindDate,
	ColumnDescription:     kindText,
	ColumnSKU:             kindText,
	ColumnProvider:        kindText,
	ColumnOrderedBy:       kindText,
	ColumnProjectCode:     kindText,
	ColumnPONumber:        kindText,
	ColumnQuantity:        kindInt,
	ColumnUnitPrice:       kindDecimal,
	ColumnStatus:          kindStatus,
	ColumnReceivedDate:    kindDate,
	ColumnStorageLocation: kindText,
	ColumnIsReceived:      kindBool,
}

// OrderPatch maps column names to new values for a partial update.
// A nil value clears the column.
type OrderPatch map[string]any

// Columns returns patched column names in stable order.
func (p OrderPatch) Columns() []string {
	cols := make([]string, 0, len(p))
	for col := range p {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// IsPatchColumn reports whether column may be updated.
func IsPatchColumn(column string) bool {
	_, ok := patchColumns[column]
	return ok
}

// ParsePatch converts a decoded JSON object into a typed patch.
func ParsePatch(raw map[string]any) (OrderPatch, error) {
	patch := make(OrderPatch, len(raw))
	for col, val := range raw {
		kind, ok := patchColumns[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownColumn, col)
		}
		if val == nil {
			patch[col] = nil
			continue
		}
		typed, err := coerceColumn(kind, val)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		patch[col] = typed
	}
	return patch, nil
}

func coerceColumn(kind columnKind, val any) (any, error) {
	switch kind {
	case kindText:
		s, ok := val.(string)
		if !ok {
			return nil, domainErrors.ErrInvalidOrder
		}
		return strings.TrimSpace(s), nil
	case kindDate:
		s, ok := val.(string)
		if !ok {
			return nil, domainErrors.ErrInvalidOrder
		}
		return normalizeDate(s)
	case kindInt:
		n, err := toFloat(val)
		if err != nil || n < 0 {
			return nil, domainErrors.ErrInvalidOrder
		}
		return int(math.Trunc(n)), nil
	case kindDecimal:
		d, err := toDecimal(val)
		if err != nil || d.IsNegative() {
			return nil, domainErrors.ErrInvalidOrder
		}
		return d, nil
	case kindStatus:
		s, ok := val.(string)
		if !ok || !OrderStatus(s).Valid() {
			return nil, domainErrors.ErrInvalidStatus
		}
		return OrderStatus(s), nil
	case kindBool:
		b, ok := val.(bool)
		if !ok {
			return nil, domainErrors.ErrInvalidOrder
		}
		return b, nil
	}
	return nil, domainErrors.ErrUnknownColumn
}

func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	return "", domainErrors.ErrInvalidOrder
}

func toFloat(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, domainErrors.ErrInvalidOrder
}

func toDecimal(val any) (decimal.Decimal, error) {
	switch v := val.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	}
	return decimal.Zero, domainErrors.ErrInvalidOrder
}

// Apply merges patch values into order. Unknown columns are ignored.
func (p OrderPatch) Apply(o *Order) {
	for col, val := range p {
		switch col {
		case ColumnOrderDate:
			o.OrderDate = textValue(val)
		case ColumnDescription:
			o.Description = textValue(val)
		case ColumnSKU:
			o.SKU = textValue(val)
		case ColumnProvider:
			o.Provider = textValue(val)
		case ColumnOrderedBy:
			o.OrderedBy = textValue(val)
		case ColumnProjectCode:
			o.ProjectCode = textValue(val)
		case ColumnPONumber:
			o.PONumber = textValue(val)
		case ColumnQuantity:
			o.Quantity, _ = val.(int)
		case ColumnUnitPrice:
			if d, ok := val.(decimal.Decimal); ok {
				o.UnitPrice = d
			} else {
				o.UnitPrice = decimal.Zero
			}
		case ColumnStatus:
			o.Status, _ = val.(OrderStatus)
		case ColumnReceivedDate:
			o.ReceivedDate = textValue(val)
		case ColumnStorageLocation:
			o.StorageLocation = textValue(val)
		case ColumnIsReceived:
			o.IsReceived, _ = val.(bool)
		}
	}
}

func textValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case OrderStatus:
		return string(v)
	}
	return ""
}

// PatchFromOrder builds a patch carrying every mutable column of order.
// Empty optional columns are cleared.
func PatchFromOrder(o Order) OrderPatch {
	return OrderPatch{
		ColumnOrderDate:       nullable(o.OrderDate),
		ColumnDescription:     o.Description,
		ColumnSKU:             nullable(o.SKU),
		ColumnProvider:        o.Provider,
		ColumnOrderedBy:       o.OrderedBy,
		ColumnProjectCode:     nullable(o.ProjectCode),
		ColumnPONumber:        nullable(o.PONumber),
		ColumnQuantity:        o.Quantity,
		ColumnUnitPrice:       o.UnitPrice,
		ColumnStatus:          o.Status,
		ColumnReceivedDate:    nullable(o.ReceivedDate),
		ColumnStorageLocation: nullable(o.StorageLocation),
		ColumnIsReceived:      o.IsReceived,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
