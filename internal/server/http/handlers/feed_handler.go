package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FeedHandler serves the live change feed and the health probe.
type FeedHandler struct {
	facade FeedFacade
}

// NewFeedHandler creates FeedHandler instance.
func NewFeedHandler(facade FeedFacade) *FeedHandler {
	return &FeedHandler{facade: facade}
}

// Subscribe handles GET /ws. The upgrader writes its own error response.
func (h *FeedHandler) Subscribe(c *gin.Context) {
	if err := h.facade.ServeFeed(c.Writer, c.Request, CurrentViewID(c)); err != nil {
		_ = c.Error(err)
	}
}

// Health handles GET /api/health.
func (h *FeedHandler) Health(c *gin.Context) {
	if err := h.facade.HealthCheck(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
