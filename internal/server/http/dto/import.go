package dto

import (
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/spreadsheet"
	"github.com/polkiloo/labtracker/internal/usecase"
)

// ImportField describes one importable order field.
type ImportField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// ImportPreviewResponse is returned after a sheet is uploaded for mapping.
type ImportPreviewResponse struct {
	Headers          []string          `json:"headers"`
	PreviewRows      []spreadsheet.Row `json:"preview_rows"`
	AutoMapping      map[string]string `json:"auto_mapping"`
	Fields           []ImportField     `json:"fields"`
	RowCount         int               `json:"row_count"`
	OrderedByOptions []string          `json:"ordered_by_options"`
}

// ImportReportResponse summarises a finished or rejected import.
type ImportReportResponse struct {
	ImportedCount int                          `json:"imported_count"`
	SkippedCount  int                          `json:"skipped_count"`
	Validation    spreadsheet.ValidationResult `json:"validation"`
	Message       string                       `json:"message,omitempty"`
	Orders        []model.Order                `json:"orders,omitempty"`
}

// NewImportPreviewResponse converts a preview for the wire.
func NewImportPreviewResponse(p *usecase.ImportPreview) ImportPreviewResponse {
	fields := make([]ImportField, 0, len(p.Fields))
	for _, f := range p.Fields {
		fields = append(fields, ImportField{Key: f.Key, Label: f.Label, Required: f.Required})
	}
	return ImportPreviewResponse{
		Headers:          p.Headers,
		PreviewRows:      p.PreviewRows,
		AutoMapping:      p.AutoMapping,
		Fields:           fields,
		RowCount:         p.RowCount,
		OrderedByOptions: p.OrderedByOptions,
	}
}

// NewImportReportResponse converts a report for the wire.
func NewImportReportResponse(r *usecase.ImportReport) ImportReportResponse {
	resp := ImportReportResponse{
		ImportedCount: len(r.Imported),
		SkippedCount:  r.SkippedCount,
		Validation:    r.Validation,
		Orders:        r.Imported,
	}
	if !r.Validation.Valid {
		resp.Message = spreadsheet.FormatValidationErrors(r.Validation)
	}
	return resp
}
