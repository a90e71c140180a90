// Package spreadsheet reads BD_AGRO export workbooks.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/agrotomo/bdagro-sync/pkg/dataset"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrNotSpreadsheet = errors.New("not an xlsx workbook")

// Reader loads the first sheet of an .xlsx file. The first row is the
// header; cells keep their raw, unformatted value as a string.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) ReadTable(ctx context.Context, path string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", path, err)
	}
	if !isWorkbook(mime) {
		return nil, fmt.Errorf("%s: %w (detected %s)", path, ErrNotSpreadsheet, mime.String())
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataset.Empty(), nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}
	tbl, err := toTable(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// isWorkbook accepts OOXML spreadsheets and any other zip container.
// OOXML detection depends on zip entry order, excelize rejects the rest.
func isWorkbook(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return true
		}
	}
	return false
}

func toTable(rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return dataset.Empty(), nil
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	columns := headers(rows[0], width)

	var data [][]any
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		row := make([]any, width)
		for j, v := range r {
			if v != "" {
				row[j] = v
			}
		}
		data = append(data, row)
	}
	return dataset.New(columns, data)
}

// headers names blank header cells "Unnamed: <index>" and suffixes repeated
// names with ".1", ".2", ...
func headers(header []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)
	next := make(map[string]int, width)
	for i := range out {
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for used[name] {
			next[base]++
			name = base + "." + strconv.Itoa(next[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
