package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PreviewSize is the number of data rows shown before import.
const PreviewSize = 5

// ErrUnreadableFile is returned when the upload is neither a workbook nor CSV.
var ErrUnreadableFile = errors.New("unreadable spreadsheet")

// Row is one data row keyed by header text. Numeric cells are float64,
// everything else is a string. Blank cells are absent.
type Row map[string]any

// ParseResult is the outcome of reading an uploaded sheet.
type ParseResult struct {
	Headers     []string          `json:"headers"`
	PreviewRows []Row             `json:"preview_rows"`
	AllRows     []Row             `json:"-"`
	AutoMapping map[string]string `json:"auto_mapping"`
}

type cell struct {
	text    string
	numeric bool
}

var zipSignature = []byte("PK")

// Parse reads the first sheet of an xlsx workbook, or a CSV file.
func Parse(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var grid [][]cell
	if bytes.HasPrefix(data, zipSignature) {
		grid, err = readWorkbook(data)
	} else {
		grid, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	return buildResult(grid), nil
}

func readWorkbook(data []byte) ([][]cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	grid := make([][]cell, len(rows))
	for i, row := range rows {
		grid[i] = make([]cell, len(row))
		for j, raw := range row {
			c := cell{text: raw}
			if raw != "" {
				c.numeric = isNumericCell(f, sheet, j+1, i+1, raw)
			}
			grid[i][j] = c
		}
	}
	return grid, nil
}

func isNumericCell(f *excelize.File, sheet string, col, row int, raw string) bool {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return false
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		_, err := strconv.ParseFloat(raw, 64)
		return err == nil
	}
	return false
}

func readCSV(data []byte) ([][]cell, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	grid := make([][]cell, len(records))
	for i, rec := range records {
		grid[i] = make([]cell, len(rec))
		for j, v := range rec {
			grid[i][j] = cell{text: v}
		}
	}
	return grid, nil
}

func buildResult(grid [][]cell) *ParseResult {
	res := &ParseResult{
		Headers:     []string{},
		PreviewRows: []Row{},
		AllRows:     []Row{},
		AutoMapping: map[string]string{},
	}

	start := -1
	for i, row := range grid {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return res
	}

	headers := headerKeys(grid[start])
	for _, row := range grid[start+1:] {
		if blankRow(row) {
			continue
		}
		for len(headers) < len(row) {
			headers = append(headers, emptyHeader(headers))
		}
		out := make(Row, len(row))
		for j, c := range row {
			if strings.TrimSpace(c.text) == "" {
				continue
			}
			out[headers[j]] = c.value()
		}
		res.AllRows = append(res.AllRows, out)
	}

	res.Headers = headers
	res.AutoMapping = AutoMap(headers, fields)
	n := len(res.AllRows)
	if n > PreviewSize {
		n = PreviewSize
	}
	res.PreviewRows = res.AllRows[:n]
	return res
}

func (c cell) value() any {
	if c.numeric {
		if v, err := strconv.ParseFloat(c.text, 64); err == nil {
			return v
		}
	}
	return c.text
}

func blankRow(row []cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.text) != "" {
			return false
		}
	}
	return true
}

func headerKeys(row []cell) []string {
	headers := make([]string, 0, len(row))
	seen := make(map[string]int, len(row))
	for _, c := range row {
		name := strings.TrimSpace(c.text)
		if name == "" {
			headers = append(headers, emptyHeader(headers))
			continue
		}
		key := name
		if n, ok := seen[name]; ok {
			key = fmt.Sprintf("%s_%d", name, n)
		}
		seen[name]++
		headers = append(headers, key)
	}
	return headers
}

func emptyHeader(existing []string) string {
	n := 0
	for _, h := range existing {
		if h == "__EMPTY" || strings.HasPrefix(h, "__EMPTY_") {
			n++
		}
	}
	if n == 0 {
		return "__EMPTY"
	}
	return fmt.Sprintf("__EMPTY_%d", n)
}

// AutoMap pairs schema fields with the first header equal to the field key,
// label or an alias, ignoring case.
func AutoMap(headers []string, schema []Field) map[string]string {
	mapping := make(map[string]string)
	for _, field := range schema {
		for _, h := range headers {
			if h != "" && matchesField(h, field) {
				mapping[field.Key] = h
				break
			}
		}
	}
	return mapping
}

func matchesField(header string, field Field) bool {
	if strings.EqualFold(header, field.Key) || strings.EqualFold(header, field.Label) {
		return true
	}
	for _, alias := range field.Aliases {
		if strings.EqualFold(header, alias) {
			return true
		}
	}
	return false
}
