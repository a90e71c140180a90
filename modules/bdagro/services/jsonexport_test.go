package services_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
)

func jsonFixture() *dataset.Table {
	return dataset.MustNew(
		[]string{"client_id", "client_name", "tc_est", "dt_corte", "grupo"},
		[][]any{
			{int64(111), "Acme & Filhos", 3.5, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nil},
			{int64(112), "Beta", nil, nil, "Sem Grupo"},
		},
	)
}

func TestWriteJSON_Lines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, services.WriteJSON(&buf, jsonFixture(), services.JSONLines))
	require.Equal(t,
		`{"client_id":111,"client_name":"Acme & Filhos","tc_est":3.5,"dt_corte":"2024-01-15","grupo":null}`+"\n"+
			`{"client_id":112,"client_name":"Beta","tc_est":null,"dt_corte":null,"grupo":"Sem Grupo"}`+"\n",
		buf.String())
}

func TestWriteJSON_Array(t *testing.T) {
	tbl := dataset.MustNew([]string{"a", "b"}, [][]any{{int64(1), "x"}, {int64(2), nil}})

	var buf bytes.Buffer
	require.NoError(t, services.WriteJSON(&buf, tbl, services.JSONArray))
	require.Equal(t, `[
    {
        "a": 1,
        "b": "x"
    },
    {
        "a": 2,
        "b": null
    }
]
`, buf.String())
}

func TestWriteJSON_Empty(t *testing.T) {
	var lines, array bytes.Buffer
	require.NoError(t, services.WriteJSON(&lines, dataset.MustNew([]string{"a"}, nil), services.JSONLines))
	require.NoError(t, services.WriteJSON(&array, dataset.Empty(), services.JSONArray))
	require.Empty(t, lines.String())
	require.Equal(t, "[]\n", array.String())
}

func TestExportJSON_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merge_bd_agro.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the export\n"), 0o644))

	tbl := dataset.MustNew([]string{"a"}, [][]any{{"x"}})
	require.NoError(t, services.ExportJSON(path, tbl, services.JSONLines))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\"a\":\"x\"}\n", string(raw))
}

func TestParseJSONFormatAndStage(t *testing.T) {
	f, err := services.ParseJSONFormat("ARRAY")
	require.NoError(t, err)
	require.Equal(t, services.JSONArray, f)
	_, err = services.ParseJSONFormat("csv")
	require.Error(t, err)

	s, err := services.ParseExportStage("")
	require.NoError(t, err)
	require.Equal(t, services.ExportNormalized, s)
	_, err = services.ParseExportStage("raw")
	require.Error(t, err)
}
