package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes procurement lifecycle of an order.
type OrderStatus string

const (
	OrderStatusRequested         OrderStatus = "requested"
	OrderStatusOrdered           OrderStatus = "ordered"
	OrderStatusReceived          OrderStatus = "received"
	OrderStatusPartiallyReceived OrderStatus = "partially_received"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

// OrderStatuses lists every known status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusRequested,
	OrderStatusOrdered,
	OrderStatusReceived,
	OrderStatusPartiallyReceived,
	OrderStatusCancelled,
}

// Valid reports whether status is one of the known values.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human readable status name.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusRequested:
		return "Requested"
	case OrderStatusOrdered:
		return "Ordered"
	case OrderStatusReceived:
		return "Received"
	case OrderStatusPartiallyReceived:
		return "Partially Received"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// DateLayout is the calendar date format used for order and received dates.
const DateLayout = "2006-01-02"

// Order describes a single procurement request tracked by the lab.
// Optional text columns use the empty string for NULL.
type Order struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	OrderDate       string          `json:"order_date,omitempty"`
	Description     string          `json:"description" validate:"required"`
	SKU             string          `json:"sku,omitempty"`
	Provider        string          `json:"provider" validate:"required"`
	OrderedBy       string          `json:"ordered_by" validate:"required"`
	ProjectCode     string          `json:"project_code,omitempty"`
	PONumber        string          `json:"po_number,omitempty"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Status          OrderStatus     `json:"status,omitempty" validate:"omitempty,oneof=requested ordered received partially_received cancelled"`
	ReceivedDate    string          `json:"received_date,omitempty"`
	StorageLocation string          `json:"storage_location,omitempty"`
	IsReceived      bool            `json:"is_received"`
}

// EffectiveDate returns order date when present, otherwise creation time.
// The boolean is false when neither yields a usable date.
func (o Order) EffectiveDate() (time.Time, bool) {
	if o.OrderDate != "" {
		if t, err := time.Parse(DateLayout, o.OrderDate); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, o.OrderDate); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	if o.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return o.CreatedAt, true
}
