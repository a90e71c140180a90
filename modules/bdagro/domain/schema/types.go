package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Type is one of the four semantic column types. The set is closed: only
// Text, Integer, Decimal and Date satisfy it.
//
// Coerce never fails. A value that cannot be represented in the type becomes
// nil, and a value already of the type is returned unchanged, so coercion is
// idempotent.
type Type interface {
	Name() string
	Coerce(v any) any
	semantic()
}

var (
	// Text values are Go strings.
	Text Type = textType{}
	// Integer values are int64; it is nullable unlike a float-backed column.
	Integer Type = integerType{}
	// Decimal values are float64.
	Decimal Type = decimalType{}
	// Date values are time.Time at midnight UTC.
	Date Type = dateType{}
)

// Types lists every semantic type.
func Types() []Type {
	return []Type{Text, Integer, Decimal, Date}
}

type textType struct{}

func (textType) semantic()    {}
func (textType) Name() string { return "text" }

func (textType) Coerce(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	return nil
}

type integerType struct{}

func (integerType) semantic()    {}
func (integerType) Name() string { return "integer" }

func (integerType) Coerce(v any) any {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return integral(x)
	case float32:
		return integral(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, ok := parseFloat(s); ok {
			return integral(f)
		}
	}
	return nil
}

func integral(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	return int64(f)
}

type decimalType struct{}

func (decimalType) semantic()    {}
func (decimalType) Name() string { return "decimal" }

func (decimalType) Coerce(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return decimalType{}.Coerce(float64(x))
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case string:
		if f, ok := parseFloat(strings.TrimSpace(x)); ok {
			return f
		}
	}
	return nil
}

// parseFloat accepts plain decimal notation only; NaN and Inf spellings are
// rejected.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

type dateType struct{}

func (dateType) semantic()    {}
func (dateType) Name() string { return "date" }

// Excel serials above this value fall after 9999-12-31.
const maxExcelSerial = 2958465

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	// A bare year is January 1st, not serial day 2024.
	"2006",
}

func (dateType) Coerce(v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return DateOnlyUTC(x)
	case float64:
		return fromExcelSerial(x)
	case int64:
		return fromExcelSerial(float64(x))
	case int:
		return fromExcelSerial(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return DateOnlyUTC(t)
			}
		}
		if f, ok := parseFloat(s); ok {
			return fromExcelSerial(f)
		}
	}
	return nil
}

func fromExcelSerial(f float64) any {
	if f <= 0 || f > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return nil
	}
	return DateOnlyUTC(t)
}

// DateOnlyUTC keeps the calendar date of t, as seen in t's own location, at
// midnight UTC.
func DateOnlyUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
