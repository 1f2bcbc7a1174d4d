package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

// ExportSheet is the name of the sheet holding exported orders.
const ExportSheet = "Orders"

// DisplayDateLayout renders calendar dates for people.
const DisplayDateLayout = "02/01/2006"

var exportColumns = []struct {
	header string
	width  float64
}{
	{"Date", 12},
	{"Provider", 20},
	{"Reference", 15},
	{"Description", 40},
	{"Amount", 10},
	{"Price per unit", 15},
	{"Project", 15},
}

// ExportFileName names an export produced at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("orders_export_%s.xlsx", now.Format(model.DateLayout))
}

// Export writes orders as an xlsx workbook. Nothing is written when orders is
// empty.
func Export(w io.Writer, orders []model.Order) error {
	if len(orders) == 0 {
		return domainErrors.ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ExportSheet, name, name, col.width); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, o := range orders {
		row := []any{
			displayDate(o),
			o.Provider,
			o.SKU,
			o.Description,
			o.Quantity,
			o.UnitPrice.InexactFloat64(),
			o.ProjectCode,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func displayDate(o model.Order) string {
	t, ok := o.EffectiveDate()
	if !ok {
		return ""
	}
	return t.Format(DisplayDateLayout)
}
