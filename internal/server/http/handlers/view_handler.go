package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/server/http/dto"
	"github.com/polkiloo/labtracker/internal/state"
)

// ViewHandler exposes search, filtering, sorting, grouping, pagination,
// column layout and selection of the caller's view.
type ViewHandler struct {
	facade ViewFacade
}

// NewViewHandler creates ViewHandler instance.
func NewViewHandler(facade ViewFacade) *ViewHandler {
	return &ViewHandler{facade: facade}
}

func (h *ViewHandler) state(c *gin.Context) *state.OrderState {
	return h.facade.View(CurrentViewID(c))
}

// NewPageResponse renders the current state of one view.
func NewPageResponse(st *state.OrderState) dto.PageResponse {
	statuses := make([]dto.StatusOption, 0, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		statuses = append(statuses, dto.StatusOption{Value: s, Label: s.Label()})
	}
	snap := st.Snapshot()
	return dto.PageResponse{
		View:      snap.View,
		Params:    snap.Params,
		Columns:   snap.Columns,
		Selection: snap.Selection,
		PageSizes: model.PageSizes,
		Statuses:  statuses,
	}
}

func (h *ViewHandler) render(c *gin.Context) {
	c.JSON(http.StatusOK, NewPageResponse(h.state(c)))
}

// Page handles GET / and GET /orders.
func (h *ViewHandler) Page(c *gin.Context) {
	h.render(c)
}

// SetSearch handles PUT /view/search.
func (h *ViewHandler) SetSearch(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	h.state(c).SetSearch(req.Search)
	h.render(c)
}

// SetFilter handles PUT /view/filters/:dimension.
func (h *ViewHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.state(c).SetFilter(model.Dimension(c.Param("dimension")), req.Values); err != nil {
		badRequest(c, err)
		return
	}
	h.render(c)
}

// ToggleSort handles POST /view/sort.
func (h *ViewHandler) ToggleSort(c *gin.Context) {
	h.state(c).ToggleSortDirection()
	h.render(c)
}

// SetGroup handles PUT /view/group.
func (h *ViewHandler) SetGroup(c *gin.Context) {
	var req dto.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.state(c).SetGroupBy(req.GroupBy); err != nil {
		badRequest(c, err)
		return
	}
	h.render(c)
}

// SetPage handles PUT /view/page.
func (h *ViewHandler) SetPage(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	h.state(c).SetPage(req.Page)
	h.render(c)
}

// SetPageSize handles PUT /view/page-size.
func (h *ViewHandler) SetPageSize(c *gin.Context) {
	var req dto.PageSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.state(c).SetPageSize(req.PageSize); err != nil {
		badRequest(c, err)
		return
	}
	h.render(c)
}

// UpdateColumns handles PUT /view/columns.
func (h *ViewHandler) UpdateColumns(c *gin.Context) {
	var cols []model.Column
	if err := c.ShouldBindJSON(&cols); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	h.state(c).UpdateColumns(cols)
	h.render(c)
}

// ResetColumns handles DELETE /view/columns.
func (h *ViewHandler) ResetColumns(c *gin.Context) {
	h.state(c).ResetColumns()
	h.render(c)
}

// ToggleSelect handles POST /view/selection.
func (h *ViewHandler) ToggleSelect(c *gin.Context) {
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	h.state(c).ToggleSelect(req.ID)
	h.render(c)
}

// ToggleSelectAll handles POST /view/selection/all. It toggles the orders
// on the current page.
func (h *ViewHandler) ToggleSelectAll(c *gin.Context) {
	st := h.state(c)
	st.ToggleSelectAll(st.VisibleIDs())
	h.render(c)
}

// ClearSelection handles DELETE /view/selection.
func (h *ViewHandler) ClearSelection(c *gin.Context) {
	h.state(c).ClearSelection()
	h.render(c)
}
