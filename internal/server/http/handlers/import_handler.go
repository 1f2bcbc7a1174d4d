package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/server/http/dto"
	"github.com/polkiloo/labtracker/internal/usecase"
)

const (
	uploadField = "file"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImportHandler exposes the spreadsheet import wizard and export.
type ImportHandler struct {
	facade ImportFacade
}

// NewImportHandler creates ImportHandler instance.
func NewImportHandler(facade ImportFacade) *ImportHandler {
	return &ImportHandler{facade: facade}
}

// Preview handles POST /orders/import/preview.
func (h *ImportHandler) Preview(c *gin.Context) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		badRequest(c, fmt.Errorf("missing %q upload", uploadField))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	preview, err := h.facade.PreviewImport(file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewImportPreviewResponse(preview))
}

// Import handles POST /orders/import. The form carries the upload, a JSON
// column mapping and the import defaults.
func (h *ImportHandler) Import(c *gin.Context) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		badRequest(c, fmt.Errorf("missing %q upload", uploadField))
		return
	}
	req, err := importRequest(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	report, err := h.facade.Import(c.Request.Context(), file, req)
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidationFailed) && report != nil {
			c.JSON(http.StatusUnprocessableEntity, dto.NewImportReportResponse(report))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewImportReportResponse(report))
}

func importRequest(c *gin.Context) (usecase.ImportRequest, error) {
	req := usecase.ImportRequest{
		DefaultOrderedBy: c.PostForm("default_ordered_by"),
		DefaultOrderDate: c.PostForm("default_order_date"),
	}
	if raw := c.PostForm("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Mapping); err != nil {
			return req, fmt.Errorf("invalid mapping: %w", err)
		}
	}
	var err error
	if req.ForceNew, err = formBool(c, "force_new"); err != nil {
		return req, err
	}
	if req.AllowInvalid, err = formBool(c, "allow_invalid"); err != nil {
		return req, err
	}
	return req, req.Validate()
}

func formBool(c *gin.Context, key string) (bool, error) {
	raw := c.PostForm(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// Export handles GET /orders/export. Selected orders are exported when the
// view has a selection, otherwise every filtered order.
func (h *ImportHandler) Export(c *gin.Context) {
	data, name, err := h.facade.Export(CurrentViewID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxMIME, data)
}
