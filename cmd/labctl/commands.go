package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/polkiloo/labtracker/internal/config"
	"github.com/polkiloo/labtracker/internal/domain/model"
	"github.com/polkiloo/labtracker/internal/logger"
	"github.com/polkiloo/labtracker/internal/spreadsheet"
	"github.com/polkiloo/labtracker/internal/storage/postgres"
	"github.com/polkiloo/labtracker/internal/usecase"
)

const cellLimit = 32

var timeNow = time.Now

var errInvalidSheet = errors.New("sheet has validation errors")

// mappingFlag collects repeated -map "field=Header" pairs.
type mappingFlag map[string]string

func (m mappingFlag) String() string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (m mappingFlag) Set(raw string) error {
	field, header, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || strings.TrimSpace(header) == "" {
		return fmt.Errorf("mapping %q must look like field=Header", raw)
	}
	if _, known := spreadsheet.FieldByKey(field); !known {
		return fmt.Errorf("unknown field %q", field)
	}
	m[field] = strings.TrimSpace(header)
	return nil
}

type importFlags struct {
	mapping   mappingFlag
	orderedBy string
	orderDate string
	forceNew  bool
}

func (f *importFlags) register(fs *flag.FlagSet) {
	f.mapping = mappingFlag{}
	fs.Var(f.mapping, "map", "column mapping field=Header, repeatable; defaults to the proposed mapping")
	fs.StringVar(&f.orderedBy, "ordered-by", "", "requester for rows without one")
	fs.StringVar(&f.orderDate, "order-date", "", "order date (YYYY-MM-DD) for rows without one")
	fs.BoolVar(&f.forceNew, "force-new", false, "mark every row as newly requested")
}

func (f *importFlags) request() (usecase.ImportRequest, error) {
	req := usecase.ImportRequest{
		Mapping:          f.mapping,
		DefaultOrderedBy: f.orderedBy,
		DefaultOrderDate: f.orderDate,
		ForceNew:         f.forceNew,
	}
	return req, req.Validate()
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("labctl "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func singleFile(fs *flag.FlagSet) (*os.File, error) {
	if fs.NArg() != 1 {
		return nil, errors.New("expected exactly one spreadsheet path")
	}
	return os.Open(fs.Arg(0))
}

func runPreview(args []string, out io.Writer) error {
	fs := newFlagSet("preview")
	if err := fs.Parse(args); err != nil {
		return err
	}
	file, err := singleFile(fs)
	if err != nil {
		return err
	}
	defer file.Close()

	preview, err := usecase.NewImportUseCase(nil).Preview(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d data rows\n\n", preview.RowCount)

	mapping := tablewriter.NewWriter(out)
	mapping.Header("Field", "Key", "Required", "Column")
	for _, f := range preview.Fields {
		column := "-"
		if h, ok := preview.AutoMapping[f.Key]; ok {
			column = h
		}
		required := ""
		if f.Required {
			required = "yes"
		}
		if err := mapping.Append([]string{f.Label, f.Key, required, column}); err != nil {
			return err
		}
	}
	if err := mapping.Render(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	rows := tablewriter.NewWriter(out)
	header := make([]any, len(preview.Headers))
	for i, h := range preview.Headers {
		header[i] = h
	}
	rows.Header(header...)
	for _, row := range preview.PreviewRows {
		line := make([]string, len(preview.Headers))
		for i, h := range preview.Headers {
			if v, ok := row[h]; ok {
				line[i] = truncateText(fmt.Sprint(v), cellLimit)
			}
		}
		if err := rows.Append(line); err != nil {
			return err
		}
	}
	return rows.Render()
}

func runCheck(args []string, out io.Writer) error {
	fs := newFlagSet("check")
	var flags importFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := flags.request()
	if err != nil {
		return err
	}
	file, err := singleFile(fs)
	if err != nil {
		return err
	}
	defer file.Close()

	report, err := usecase.NewImportUseCase(nil).Check(file, req)
	if err != nil {
		return err
	}
	if err := printOrders(out, report.Imported); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d orders, %d rows skipped\n", len(report.Imported), report.SkippedCount)
	if !report.Validation.Valid {
		fmt.Fprintln(out, spreadsheet.FormatValidationErrors(report.Validation))
		return errInvalidSheet
	}
	return nil
}

func runImport(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("import")
	var flags importFlags
	flags.register(fs)
	dsn := fs.String("d", os.Getenv("DATABASE_URI"), "PostgreSQL DSN")
	allowInvalid := fs.Bool("allow-invalid", false, "store orders even when some rows fail validation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := flags.request()
	if err != nil {
		return err
	}
	file, err := singleFile(fs)
	if err != nil {
		return err
	}
	defer file.Close()

	storage, err := openStorage(ctx, *dsn)
	if err != nil {
		return err
	}
	defer storage.Close()

	req.AllowInvalid = *allowInvalid
	report, err := usecase.NewImportUseCase(usecase.NewOrderUseCase(storage.Orders())).Import(ctx, file, req)
	if err != nil {
		if report != nil && !report.Validation.Valid {
			fmt.Fprintln(out, spreadsheet.FormatValidationErrors(report.Validation))
		}
		return err
	}
	fmt.Fprintf(out, "imported %d orders, %d rows skipped\n", len(report.Imported), report.SkippedCount)
	return nil
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("export")
	dsn := fs.String("d", os.Getenv("DATABASE_URI"), "PostgreSQL DSN")
	output := fs.String("o", "", "output workbook path; defaults to the dated export name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	storage, err := openStorage(ctx, *dsn)
	if err != nil {
		return err
	}
	defer storage.Close()

	orders, err := storage.Orders().List(ctx)
	if err != nil {
		return err
	}
	return writeExport(orders, *output, out)
}

func writeExport(orders []model.Order, path string, out io.Writer) error {
	if path == "" {
		path = spreadsheet.ExportFileName(timeNow())
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := spreadsheet.Export(file, orders); err != nil {
		file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d orders to %s\n", len(orders), path)
	return nil
}

func openStorage(ctx context.Context, dsn string) (*postgres.Storage, error) {
	if dsn == "" {
		return nil, errors.New("database DSN must be provided with -d or DATABASE_URI")
	}
	return postgres.New(ctx, dsn, cliLogger())
}

func cliLogger() *slog.Logger {
	return logger.NewTo(os.Stderr, &config.Config{AppEnv: "production"}).With(slog.String("component", "labctl"))
}

func printOrders(out io.Writer, orders []model.Order) error {
	table := tablewriter.NewWriter(out)
	table.Header("#", "Order Date", "Description", "Provider", "Ordered By", "Qty", "Unit Price", "Status")
	for i, o := range orders {
		row := []string{
			fmt.Sprint(i + 1),
			o.OrderDate,
			truncateText(o.Description, cellLimit),
			truncateText(o.Provider, cellLimit),
			o.OrderedBy,
			fmt.Sprint(o.Quantity),
			o.UnitPrice.StringFixed(2),
			o.Status.Label(),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func truncateText(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
