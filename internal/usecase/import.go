package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/spreadsheet"
)

// PredefinedOrderedBy lists the requester initials offered as import defaults.
var PredefinedOrderedBy = []string{"ARN", "MA", "FM", "DA"}

// ImportPreview describes an uploaded sheet before any order is stored.
type ImportPreview struct {
	Headers          []string
	PreviewRows      []spreadsheet.Row
	AutoMapping      map[string]string
	Fields           []spreadsheet.Field
	RowCount         int
	OrderedByOptions []string
}

// ImportRequest carries the user's choices for one import.
type ImportRequest struct {
	Mapping          map[string]string
	DefaultOrderedBy string
	DefaultOrderDate string
	ForceNew         bool
	AllowInvalid     bool
}

// Validate rejects defaults the store cannot take as is. The default order
// date must already be YYYY-MM-DD.
func (r ImportRequest) Validate() error {
	if err := checkDate(r.DefaultOrderDate); err != nil {
		return fmt.Errorf("default order date: %w", err)
	}
	return nil
}

// ImportReport summarises an import.
type ImportReport struct {
	Imported     []model.Order
	SkippedCount int
	Validation   spreadsheet.ValidationResult
}

// ImportUseCase runs the parse, transform, validate and store pipeline.
type ImportUseCase struct {
	orders *OrderUseCase
}

// NewImportUseCase constructs ImportUseCase.
func NewImportUseCase(orders *OrderUseCase) *ImportUseCase {
	return &ImportUseCase{orders: orders}
}

// Preview parses the upload and proposes a column mapping.
func (u *ImportUseCase) Preview(r io.Reader) (*ImportPreview, error) {
	parsed, err := spreadsheet.Parse(r)
	if err != nil {
		return nil, err
	}
	return &ImportPreview{
		Headers:          parsed.Headers,
		PreviewRows:      parsed.PreviewRows,
		AutoMapping:      parsed.AutoMapping,
		Fields:           spreadsheet.Fields(),
		RowCount:         len(parsed.AllRows),
		OrderedByOptions: append([]string(nil), PredefinedOrderedBy...),
	}, nil
}

// Check runs the pipeline without storing anything.
func (u *ImportUseCase) Check(r io.Reader, req ImportRequest) (*ImportReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	parsed, err := spreadsheet.Parse(r)
	if err != nil {
		return nil, err
	}
	return build(parsed, req), nil
}

// Import parses the upload, converts rows with the requested mapping and
// stores the result. Orders failing validation abort the import with
// ErrValidationFailed unless AllowInvalid is set; the report is returned in
// both cases.
func (u *ImportUseCase) Import(ctx context.Context, r io.Reader, req ImportRequest) (*ImportReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	parsed, err := spreadsheet.Parse(r)
	if err != nil {
		return nil, err
	}
	report := build(parsed, req)

	if !report.Validation.Valid && !req.AllowInvalid {
		return report, report.Validation.Err()
	}

	stored, err := u.orders.InsertMany(ctx, report.Imported)
	if err != nil {
		return report, fmt.Errorf("store imported orders: %w", err)
	}
	report.Imported = stored
	return report, nil
}

func build(parsed *spreadsheet.ParseResult, req ImportRequest) *ImportReport {
	mapping := req.Mapping
	if len(mapping) == 0 {
		mapping = parsed.AutoMapping
	}
	res := spreadsheet.Transform(parsed.AllRows, spreadsheet.TransformOptions{
		Mapping:          mapping,
		DefaultOrderedBy: req.DefaultOrderedBy,
		DefaultOrderDate: req.DefaultOrderDate,
		ForceNew:         req.ForceNew,
	})
	return &ImportReport{
		Imported:     res.Orders,
		SkippedCount: res.SkippedCount,
		Validation:   spreadsheet.Validate(res.Orders),
	}
}
