package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/server/http/dto"
)

// OrderHandler exposes order mutations.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler creates OrderHandler instance.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Save handles POST /orders. Orders without an id are created, others are
// overwritten.
func (h *OrderHandler) Save(c *gin.Context) {
	var order model.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	stored, err := h.facade.SaveOrder(c.Request.Context(), order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

// Update handles PATCH /orders/:id with a partial column map.
func (h *OrderHandler) Update(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	patch, err := model.ParsePatch(raw)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.facade.UpdateOrder(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /orders/:id.
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.facade.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Receive handles POST /orders/:id/receive.
func (h *OrderHandler) Receive(c *gin.Context) {
	if err := h.facade.QuickReceive(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Revert handles DELETE /orders/:id/receive.
func (h *OrderHandler) Revert(c *gin.Context) {
	if err := h.facade.RevertReceive(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReceiveSelected handles POST /orders/selection/receive.
func (h *OrderHandler) ReceiveSelected(c *gin.Context) {
	n, err := h.facade.ReceiveSelected(c.Request.Context(), CurrentViewID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: n})
}

// DeleteSelected handles DELETE /orders/selection.
func (h *OrderHandler) DeleteSelected(c *gin.Context) {
	n, err := h.facade.DeleteSelected(c.Request.Context(), CurrentViewID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: n})
}

// DeleteAll handles DELETE /orders. The lab password must be repeated.
func (h *OrderHandler) DeleteAll(c *gin.Context) {
	var req dto.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.facade.DeleteAll(c.Request.Context(), req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
