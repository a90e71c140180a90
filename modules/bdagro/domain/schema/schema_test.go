package schema

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBDAgro_Layout(t *testing.T) {
	s := BDAgro()
	require.Equal(t, 43, s.Len())

	names := s.OutputNames()
	require.Equal(t, "client_id", names[0])
	require.Equal(t, "chave", names[2])
	require.Equal(t, "grupo", names[len(names)-1])

	seen := map[string]bool{}
	for _, n := range names {
		require.False(t, seen[n], "duplicate column %s", n)
		seen[n] = true
	}

	c, ok := s.Lookup("tc_real")
	require.True(t, ok)
	require.Equal(t, Decimal, c.Type)

	g, ok := s.Lookup(GroupColumn)
	require.True(t, ok)
	require.True(t, g.Enriched)
}

func TestSchema_With(t *testing.T) {
	s := New(Column{Name: "a", Type: Text})
	extended := s.With(HarvestEstimate)
	require.Equal(t, 1, s.Len())
	require.Equal(t, []string{"a", HarvestEstimateName}, extended.Names())

	replaced := extended.With(Column{Name: "A", Type: Integer})
	require.Equal(t, 2, replaced.Len())
	require.Equal(t, Integer, replaced.Columns()[0].Type)
}

func TestViolationError(t *testing.T) {
	var err error = &ViolationError{Missing: []string{"CHAVE", "SAFRA"}}
	require.True(t, errors.Is(err, ErrSchemaViolation))
	require.Contains(t, err.Error(), "CHAVE, SAFRA")
}

func TestText_Coerce(t *testing.T) {
	require.Equal(t, "abc", Text.Coerce("abc"))
	require.Equal(t, "", Text.Coerce(""))
	require.Nil(t, Text.Coerce(nil))
	require.Nil(t, Text.Coerce(int64(3)))
}

func TestInteger_Coerce(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{in: "2024", want: int64(2024)},
		{in: " 2024 ", want: int64(2024)},
		{in: "2024.0", want: int64(2024)},
		{in: 2024.0, want: int64(2024)},
		{in: int64(7), want: int64(7)},
		{in: 7, want: int64(7)},
		{in: "2024.5", want: nil},
		{in: "abc", want: nil},
		{in: "", want: nil},
		{in: math.NaN(), want: nil},
		{in: "NaN", want: nil},
		{in: nil, want: nil},
		{in: true, want: nil},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Integer.Coerce(tc.in), "input %#v", tc.in)
	}
}

func TestDecimal_Coerce(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{in: "12.5", want: 12.5},
		{in: "-3", want: -3.0},
		{in: "1e3", want: 1000.0},
		{in: 2.25, want: 2.25},
		{in: int64(4), want: 4.0},
		{in: "12,5", want: nil},
		{in: "Inf", want: nil},
		{in: math.Inf(1), want: nil},
		{in: "", want: nil},
		{in: nil, want: nil},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Decimal.Coerce(tc.in), "input %#v", tc.in)
	}
}

func TestDate_Coerce(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want any
	}{
		{in: "2024-01-15", want: day},
		{in: "2024-01-15 13:45:00", want: day},
		{in: "2024-01-15T13:45:00Z", want: day},
		{in: "15/01/2024", want: day},
		{in: "45306", want: day},
		{in: 45306.75, want: day},
		{in: "2024", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: " 1999 ", want: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "367", want: time.Date(1901, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC), want: day},
		{in: day, want: day},
		{in: "2024-13-45", want: nil},
		{in: "not a date", want: nil},
		{in: "-5", want: nil},
		{in: "", want: nil},
		{in: time.Time{}, want: nil},
		{in: nil, want: nil},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Date.Coerce(tc.in), "input %#v", tc.in)
	}
}

func TestCoerce_IsIdempotent(t *testing.T) {
	inputs := []any{"2024", "12.5", "2024-01-15", "x", nil, "45306"}
	for _, typ := range Types() {
		for _, in := range inputs {
			once := typ.Coerce(in)
			require.Equal(t, once, typ.Coerce(once), "%s(%#v)", typ.Name(), in)
		}
	}
}
