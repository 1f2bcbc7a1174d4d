package model

// GroupBy selects the dimension used to bucket the visible orders.
type GroupBy string

const (
	GroupByNone      GroupBy = "none"
	GroupByDate      GroupBy = "date"
	GroupByProvider  GroupBy = "provider"
	GroupByRequester GroupBy = "requester"
	GroupByStatus    GroupBy = "status"
)

// Valid reports whether g is a known grouping.
func (g GroupBy) Valid() bool {
	switch g {
	case GroupByNone, GroupByDate, GroupByProvider, GroupByRequester, GroupByStatus:
		return true
	}
	return false
}

// Dimension names a filterable order attribute.
type Dimension string

const (
	DimensionRequester Dimension = "requester"
	DimensionStatus    Dimension = "status"
	DimensionProvider  Dimension = "provider"
	DimensionDate      Dimension = "date"
)

// Dimensions lists filterable dimensions in display order.
var Dimensions = []Dimension{DimensionRequester, DimensionStatus, DimensionProvider, DimensionDate}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// SortDirection orders orders by effective date.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Column controls rendering of one table column.
type Column struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

// PageSizes lists the page sizes offered to users.
var PageSizes = []int{25, 50, 100, 250, 500, 1000, 10000}

// DefaultPageSize is used until a view picks another size.
const DefaultPageSize = 50
