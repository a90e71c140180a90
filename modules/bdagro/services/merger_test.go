package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

func exportFile(id int64, name string) entity.ExportFile {
	return entity.ExportFile{
		Folder: entity.Folder{ID: id, Name: name, Path: "/clients/" + name},
		Path:   "/clients/" + name + "/BD_AGRO_" + name + ".xlsx",
	}
}

func TestMerger_StampsAndConcatenates(t *testing.T) {
	acme, beta, gamma := exportFile(111, "Acme"), exportFile(112, "Beta"), exportFile(113, "Gamma")
	reader := &fakeReader{tables: map[string]*dataset.Table{
		acme.Path: dataset.MustNew([]string{"CHAVE", "SAFRA"}, [][]any{{"a1", "2024"}, {"a2", "2024"}}),
		beta.Path: dataset.MustNew([]string{"CHAVE", "EXTRA"}, [][]any{{"b1", "x"}}),
	}}
	bus := eventbus.New(nil)
	events := collect(bus)

	got, stats, err := services.NewMerger(reader, bus).Merge(
		context.Background(),
		[]entity.ExportFile{acme, beta, gamma},
		entity.NewSelection(112, 111),
	)
	require.NoError(t, err)

	require.Equal(t, []string{acme.Path, beta.Path}, reader.reads)
	require.Equal(t, []string{"CHAVE", "SAFRA", "client_id", "client_name", "EXTRA"}, got.Columns())
	require.Equal(t, [][]any{
		{"a1", "2024", int64(111), "Acme", nil},
		{"a2", "2024", int64(111), "Acme", nil},
		{"b1", nil, int64(112), "Beta", "x"},
	}, got.Rows())

	require.Equal(t, []services.EntityMerged{
		{Client: acme.Folder, Rows: 2},
		{Client: beta.Folder, Rows: 1},
	}, stats)
	require.Len(t, eventsOf[services.EntityMerged](events), 2)
}

func TestMerger_OverwritesStampColumns(t *testing.T) {
	acme := exportFile(111, "Acme")
	reader := &fakeReader{tables: map[string]*dataset.Table{
		acme.Path: dataset.MustNew([]string{"client_id", "CHAVE"}, [][]any{{"999", "a1"}}),
	}}

	got, _, err := services.NewMerger(reader, nil).Merge(context.Background(), []entity.ExportFile{acme}, entity.NewSelection(111))
	require.NoError(t, err)
	require.Equal(t, []string{"client_id", "CHAVE", "client_name"}, got.Columns())
	require.Equal(t, int64(111), got.Value(0, "client_id"))
}

func TestMerger_EmptySelection(t *testing.T) {
	reader := &fakeReader{}
	files := []entity.ExportFile{exportFile(111, "Acme")}

	for _, sel := range []entity.Selection{{}, entity.NewSelection(), entity.NewSelection(5)} {
		got, stats, err := services.NewMerger(reader, nil).Merge(context.Background(), files, sel)
		require.NoError(t, err)
		require.True(t, got.IsEmpty())
		require.Empty(t, stats)
	}
	require.Empty(t, reader.reads)
}

func TestMerger_ReadErrorNamesClient(t *testing.T) {
	reader := &fakeReader{err: errors.New("corrupt zip")}

	_, _, err := services.NewMerger(reader, nil).Merge(
		context.Background(),
		[]entity.ExportFile{exportFile(111, "Acme")},
		entity.NewSelection(111),
	)
	require.ErrorContains(t, err, "client 111 (Acme)")
	require.ErrorContains(t, err, "corrupt zip")
}
