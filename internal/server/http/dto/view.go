package dto

import (
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/state"
)

// PageResponse describes everything a browser needs to render its table.
type PageResponse struct {
	View      state.View     `json:"view"`
	Params    state.Params   `json:"params"`
	Columns   []model.Column `json:"columns"`
	Selection []string       `json:"selection"`
	PageSizes []int          `json:"page_sizes"`
	Statuses  []StatusOption `json:"statuses"`
}

// StatusOption pairs a status with its display label.
type StatusOption struct {
	Value model.OrderStatus `json:"value"`
	Label string            `json:"label"`
}

// SearchRequest sets the free-text search term.
type SearchRequest struct {
	Search string `json:"search"`
}

// FilterRequest sets the selected values of one dimension.
type FilterRequest struct {
	Values []string `json:"values"`
}

// GroupRequest selects a grouping dimension.
type GroupRequest struct {
	GroupBy model.GroupBy `json:"group_by" binding:"required"`
}

// PageRequest moves to a page.
type PageRequest struct {
	Page int `json:"page" binding:"required"`
}

// PageSizeRequest changes the page size.
type PageSizeRequest struct {
	PageSize int `json:"page_size" binding:"required"`
}

// SelectRequest toggles one order in the selection.
type SelectRequest struct {
	ID string `json:"id" binding:"required"`
}
