package spreadsheet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// TransformOptions controls how parsed rows become orders.
type TransformOptions struct {
	// Mapping pairs schema field keys with header text.
	Mapping          map[string]string
	DefaultOrderedBy string
	DefaultOrderDate string
	// ForceNew treats every row as a brand new request.
	ForceNew bool
}

// TransformResult holds the orders kept after transformation.
type TransformResult struct {
	Orders       []model.Order `json:"orders"`
	SkippedCount int           `json:"skipped_count"`
}

// coercion turns a raw cell into the value stored for one field.
type coercion func(val any) any

var coercions = map[string]coercion{
	"sku":           upperText,
	"unit_price":    toPrice,
	"quantity":      toQuantity,
	"order_date":    toISODate,
	"received_date": toISODate,
	"is_received":   toReceivedFlag,
}

// serialEpoch is the spreadsheet serial day of 1970-01-01.
const serialEpoch = 25569

var (
	numericPrefix   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?`)
	textDateLayouts = []string{
		model.DateLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/01/02",
		"02/01/2006",
		"2/1/2006",
		"02-01-2006",
		"02.01.2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}
)

// Transform converts mapped rows into orders, dropping rows that carry none of
// the required fields.
func Transform(rows []Row, opts TransformOptions) TransformResult {
	res := TransformResult{Orders: make([]model.Order, 0, len(rows))}
	required := RequiredFields()

	for _, row := range rows {
		order := transformRow(row, opts)
		if !hasAnyRequired(order, required) {
			res.SkippedCount++
			continue
		}
		res.Orders = append(res.Orders, order)
	}
	return res
}

func transformRow(row Row, opts TransformOptions) model.Order {
	order := model.Order{Quantity: 1, UnitPrice: decimal.Zero}

	for _, field := range fields {
		header, mapped := opts.Mapping[field.Key]
		if !mapped || header == "" {
			switch field.Key {
			case "ordered_by":
				order.OrderedBy = opts.DefaultOrderedBy
			case "order_date":
				order.OrderDate = opts.DefaultOrderDate
			}
			continue
		}

		val := row[header]
		if s, ok := val.(string); ok {
			val = strings.TrimSpace(s)
		}
		coerce, ok := coercions[field.Key]
		if !ok {
			coerce = toText
		}
		assign(&order, field.Key, coerce(val))
	}

	if opts.ForceNew {
		order.ID = ""
		order.Status = model.OrderStatusRequested
		order.IsReceived = false
		order.ReceivedDate = ""
	} else if order.Status == "" {
		order.Status = model.OrderStatusRequested
	}
	return order
}

func assign(o *model.Order, key string, v any) {
	switch key {
	case "quantity":
		o.Quantity = v.(int)
	case "unit_price":
		o.UnitPrice = v.(decimal.Decimal)
	case "is_received":
		o.IsReceived = v.(bool)
		if o.IsReceived {
			o.Status = model.OrderStatusReceived
		}
	default:
		s, _ := v.(string)
		SetText(o, key, s)
	}
}

// SetText stores s into the text column named key.
func SetText(o *model.Order, key, s string) {
	switch key {
	case "order_date":
		o.OrderDate = s
	case "ordered_by":
		o.OrderedBy = s
	case "provider":
		o.Provider = s
	case "sku":
		o.SKU = s
	case "description":
		o.Description = s
	case "project_code":
		o.ProjectCode = s
	case "po_number":
		o.PONumber = s
	case "received_date":
		o.ReceivedDate = s
	case "storage_location":
		o.StorageLocation = s
	}
}

// TextValue returns the text column named key, or "" for other columns.
func TextValue(o model.Order, key string) string {
	switch key {
	case "order_date":
		return o.OrderDate
	case "ordered_by":
		return o.OrderedBy
	case "provider":
		return o.Provider
	case "sku":
		return o.SKU
	case "description":
		return o.Description
	case "project_code":
		return o.ProjectCode
	case "po_number":
		return o.PONumber
	case "received_date":
		return o.ReceivedDate
	case "storage_location":
		return o.StorageLocation
	}
	return ""
}

func hasAnyRequired(o model.Order, required []Field) bool {
	for _, f := range required {
		if TextValue(o, f.Key) != "" {
			return true
		}
	}
	return false
}

func toText(val any) any {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	}
	return ""
}

func upperText(val any) any {
	return strings.ToUpper(toText(val).(string))
}

func leadingNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		m := numericPrefix.FindString(strings.TrimSpace(v))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		return f, err == nil
	}
	return 0, false
}

func toQuantity(val any) any {
	n, ok := leadingNumber(val)
	if !ok || n < 0 || n > math.MaxInt32 {
		return 1
	}
	return int(math.Trunc(n))
}

func toPrice(val any) any {
	switch v := val.(type) {
	case string:
		m := numericPrefix.FindString(strings.TrimSpace(v))
		if d, err := decimal.NewFromString(m); err == nil && !d.IsNegative() {
			return d
		}
		return decimal.Zero
	}
	if n, ok := leadingNumber(val); ok && n >= 0 {
		return decimal.NewFromFloat(n)
	}
	return decimal.Zero
}

func toISODate(val any) any {
	switch v := val.(type) {
	case float64:
		return SerialToDate(v)
	case string:
		if v == "" {
			return ""
		}
		for _, layout := range textDateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(model.DateLayout)
			}
		}
	}
	return ""
}

// SerialToDate converts a spreadsheet serial day number to YYYY-MM-DD in UTC.
func SerialToDate(serial float64) string {
	secs := math.Round((serial - serialEpoch) * 86400)
	return time.Unix(int64(secs), 0).UTC().Format(model.DateLayout)
}

func toReceivedFlag(val any) any {
	s, ok := val.(string)
	return ok && strings.Contains(strings.ToLower(s), "yes")
}
