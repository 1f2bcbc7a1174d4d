package state

import (
	"sort"
	"strings"
	"time"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// UnknownLabel names the bucket for orders missing the grouped value.
const UnknownLabel = "Unknown"

const displayDateLayout = "02/01/2006"

// Params holds the session parameters of one view.
type Params struct {
	Search        string                       `json:"search"`
	Filters       map[model.Dimension][]string `json:"filters"`
	SortDirection model.SortDirection          `json:"sort_direction"`
	GroupBy       model.GroupBy                `json:"group_by"`
	Page          int                          `json:"page"`
	PageSize      int                          `json:"page_size"`
}

func (p Params) clone() Params {
	out := p
	out.Filters = make(map[model.Dimension][]string, len(p.Filters))
	for k, v := range p.Filters {
		out.Filters[k] = append([]string(nil), v...)
	}
	return out
}

// Group is one bucket of the grouped view.
type Group struct {
	Key    string        `json:"key"`
	Label  string        `json:"label"`
	Orders []model.Order `json:"orders"`
}

// Option is a selectable filter value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptions lists distinct values per filterable dimension.
type FilterOptions struct {
	Requester []Option `json:"requester"`
	Status    []Option `json:"status"`
	Provider  []Option `json:"provider"`
	Date      []Option `json:"date"`
}

// View is the derived, ordered and paginated projection of a state.
type View struct {
	Filtered      []model.Order `json:"-"`
	Page          []model.Order `json:"orders"`
	Groups        []Group       `json:"groups"`
	CurrentPage   int           `json:"current_page"`
	PageSize      int           `json:"page_size"`
	TotalPages    int           `json:"total_pages"`
	FilteredCount int           `json:"filtered_count"`
	TotalCount    int           `json:"total_count"`
	FilterOptions FilterOptions `json:"filter_options"`
	Providers     []string      `json:"providers"`
}

// Derive runs the filter, sort, paginate and group pipeline.
func Derive(orders []model.Order, p Params) View {
	filtered := FilterOrders(orders, p.Search, p.Filters)
	SortOrders(filtered, p.SortDirection)
	page, current, pages := Paginate(filtered, p.Page, p.PageSize)

	return View{
		Filtered:      filtered,
		Page:          page,
		Groups:        GroupOrders(filtered, p.GroupBy, p.SortDirection),
		CurrentPage:   current,
		PageSize:      p.PageSize,
		TotalPages:    pages,
		FilteredCount: len(filtered),
		TotalCount:    len(orders),
		FilterOptions: BuildFilterOptions(orders),
		Providers:     UniqueProviders(orders),
	}
}

// DateKey returns the effective date of o as YYYY-MM-DD, or "".
func DateKey(o model.Order) string {
	t, ok := o.EffectiveDate()
	if !ok {
		return ""
	}
	return t.Format(model.DateLayout)
}

// DateLabel renders a date key for display.
func DateLabel(key string) string {
	t, err := time.Parse(model.DateLayout, key)
	if err != nil {
		return UnknownLabel
	}
	return t.Format(displayDateLayout)
}

func dimensionValue(o model.Order, d model.Dimension) string {
	switch d {
	case model.DimensionRequester:
		return o.OrderedBy
	case model.DimensionStatus:
		return string(o.Status)
	case model.DimensionProvider:
		return o.Provider
	case model.DimensionDate:
		return DateKey(o)
	}
	return ""
}

// FilterOrders keeps orders matching the search term and every active filter.
func FilterOrders(orders []model.Order, search string, filters map[model.Dimension][]string) []model.Order {
	term := strings.ToLower(search)
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if term != "" && !matchesSearch(o, term) {
			continue
		}
		if !matchesFilters(o, filters) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matchesSearch(o model.Order, term string) bool {
	for _, v := range []string{o.Description, o.Provider, o.OrderedBy, o.SKU, o.ProjectCode} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func matchesFilters(o model.Order, filters map[model.Dimension][]string) bool {
	for dim, values := range filters {
		if len(values) == 0 {
			continue
		}
		v := dimensionValue(o, dim)
		found := false
		for _, want := range values {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortTime(o model.Order) time.Time {
	t, _ := o.EffectiveDate()
	return t
}

// SortOrders orders by effective date in place. Equal dates fall back to
// ascending id.
func SortOrders(orders []model.Order, dir model.SortDirection) {
	sort.SliceStable(orders, func(i, j int) bool {
		ti, tj := sortTime(orders[i]), sortTime(orders[j])
		if !ti.Equal(tj) {
			if dir == model.SortAsc {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		return orders[i].ID < orders[j].ID
	})
}

// Paginate slices orders to the requested page, clamping page into range.
// It returns the page, the effective page number and the page count.
func Paginate(orders []model.Order, page, size int) ([]model.Order, int, int) {
	if size <= 0 {
		size = model.DefaultPageSize
	}
	pages := (len(orders) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > len(orders) {
		end = len(orders)
	}
	if start > end {
		start = end
	}
	return orders[start:end], page, pages
}

// GroupOrders buckets orders by the chosen dimension. Date buckets follow
// the sort direction, other buckets are alphabetical by label. Unknown
// buckets come last.
func GroupOrders(orders []model.Order, by model.GroupBy, dir model.SortDirection) []Group {
	if by == model.GroupByNone || by == "" {
		return []Group{}
	}

	index := make(map[string]int)
	var groups []Group
	for _, o := range orders {
		key, label := groupKey(o, by)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, Label: label})
		}
		groups[i].Orders = append(groups[i].Orders, o)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if (a.Key == "") != (b.Key == "") {
			return b.Key == ""
		}
		if by == model.GroupByDate {
			if dir == model.SortAsc {
				return a.Key < b.Key
			}
			return a.Key > b.Key
		}
		return strings.ToLower(a.Label) < strings.ToLower(b.Label)
	})
	if groups == nil {
		groups = []Group{}
	}
	return groups
}

func groupKey(o model.Order, by model.GroupBy) (string, string) {
	var key, label string
	switch by {
	case model.GroupByDate:
		key = DateKey(o)
		label = DateLabel(key)
	case model.GroupByProvider:
		key, label = o.Provider, o.Provider
	case model.GroupByRequester:
		key, label = o.OrderedBy, o.OrderedBy
	case model.GroupByStatus:
		key, label = string(o.Status), o.Status.Label()
	}
	if key == "" {
		return "", UnknownLabel
	}
	return key, label
}

// BuildFilterOptions lists distinct values per dimension. Dates are newest
// first, everything else ascending.
func BuildFilterOptions(orders []model.Order) FilterOptions {
	requesters := map[string]struct{}{}
	statuses := map[string]struct{}{}
	providers := map[string]struct{}{}
	dates := map[string]struct{}{}

	for _, o := range orders {
		if o.OrderedBy != "" {
			requesters[o.OrderedBy] = struct{}{}
		}
		if o.Status != "" {
			statuses[string(o.Status)] = struct{}{}
		}
		if o.Provider != "" {
			providers[o.Provider] = struct{}{}
		}
		if key := DateKey(o); key != "" {
			dates[key] = struct{}{}
		}
	}

	opts := FilterOptions{
		Requester: plainOptions(requesters),
		Provider:  plainOptions(providers),
	}
	for _, s := range sortedKeys(statuses) {
		opts.Status = append(opts.Status, Option{Value: s, Label: model.OrderStatus(s).Label()})
	}
	keys := sortedKeys(dates)
	for i := len(keys) - 1; i >= 0; i-- {
		opts.Date = append(opts.Date, Option{Value: keys[i], Label: DateLabel(keys[i])})
	}
	if opts.Status == nil {
		opts.Status = []Option{}
	}
	if opts.Date == nil {
		opts.Date = []Option{}
	}
	return opts
}

// UniqueProviders returns distinct providers in ascending order.
func UniqueProviders(orders []model.Order) []string {
	set := map[string]struct{}{}
	for _, o := range orders {
		if o.Provider != "" {
			set[o.Provider] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func plainOptions(set map[string]struct{}) []Option {
	keys := sortedKeys(set)
	out := make([]Option, len(keys))
	for i, k := range keys {
		out[i] = Option{Value: k, Label: k}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
