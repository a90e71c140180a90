package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/agrotomo/bdagro-sync/pkg/dataset"
)

type JSONFormat string

const (
	// JSONLines writes one object per line.
	JSONLines JSONFormat = "lines"
	// JSONArray writes a single array indented by four spaces.
	JSONArray JSONFormat = "array"
)

func ParseJSONFormat(v string) (JSONFormat, error) {
	switch f := JSONFormat(strings.ToLower(strings.TrimSpace(v))); f {
	case "":
		return JSONLines, nil
	case JSONLines, JSONArray:
		return f, nil
	default:
		return "", fmt.Errorf("invalid json format %q (expected lines|array)", v)
	}
}

// ExportStage selects which table a run serializes.
type ExportStage string

const (
	ExportNormalized ExportStage = "normalized"
	ExportMerged     ExportStage = "merged"
)

func ParseExportStage(v string) (ExportStage, error) {
	switch s := ExportStage(strings.ToLower(strings.TrimSpace(v))); s {
	case "":
		return ExportNormalized, nil
	case ExportNormalized, ExportMerged:
		return s, nil
	default:
		return "", fmt.Errorf("invalid export stage %q (expected normalized|merged)", v)
	}
}

const jsonDateLayout = "2006-01-02"

// WriteJSON serializes t as records: one object per row, keys in column
// order. Dates are written as YYYY-MM-DD and missing values as null.
func WriteJSON(w io.Writer, t *dataset.Table, format JSONFormat) error {
	bw := bufio.NewWriter(w)
	columns := t.Columns()
	keys := make([][]byte, len(columns))
	for i, c := range columns {
		k, err := marshal(c)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	array := format == JSONArray
	if array {
		bw.WriteString("[")
	}
	for i := 0; i < t.Len(); i++ {
		if array {
			if i > 0 {
				bw.WriteString(",")
			}
			bw.WriteString("\n    ")
		}
		if err := writeRecord(bw, keys, t.Row(i), array); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if !array {
			bw.WriteString("\n")
		}
	}
	if array {
		if t.Len() > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString("]\n")
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, keys [][]byte, row []any, indent bool) error {
	sep, colon, begin, end := ",", ":", "{", "}"
	if indent {
		sep, colon, begin, end = ",\n        ", ": ", "{\n        ", "\n    }"
	}
	if len(keys) == 0 {
		w.WriteString("{}")
		return nil
	}
	w.WriteString(begin)
	for j, k := range keys {
		if j > 0 {
			w.WriteString(sep)
		}
		v, err := marshal(jsonValue(row[j]))
		if err != nil {
			return fmt.Errorf("column %s: %w", k, err)
		}
		w.Write(k)
		w.WriteString(colon)
		w.Write(v)
	}
	w.WriteString(end)
	return nil
}

func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(jsonDateLayout)
	}
	return v
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExportJSON writes t to path, replacing any existing file.
func ExportJSON(path string, t *dataset.Table, format JSONFormat) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := WriteJSON(f, t, format); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
