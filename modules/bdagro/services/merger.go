package services

import (
	"context"
	"fmt"
	"time"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

// TableReader loads the tabular content of an export file.
type TableReader interface {
	ReadTable(ctx context.Context, path string) (*dataset.Table, error)
}

// Merger concatenates the export files of the selected clients.
type Merger struct {
	reader TableReader
	events eventbus.EventBus
}

func NewMerger(reader TableReader, events eventbus.EventBus) *Merger {
	if events == nil {
		events = eventbus.New(nil)
	}
	return &Merger{reader: reader, events: events}
}

// Merge reads every file whose client is selected, stamps client_id and
// client_name on its rows and appends it to the result. Files keep their
// discovery order and rows their file order. Nothing selected yields an
// empty table with no columns.
func (m *Merger) Merge(ctx context.Context, files []entity.ExportFile, selection entity.Selection) (*dataset.Table, []EntityMerged, error) {
	start := time.Now()
	merged := dataset.Empty()
	var stats []EntityMerged

	for _, f := range files {
		if !selection.Contains(f.ClientID()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		tbl, err := m.reader.ReadTable(ctx, f.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("client %d (%s): %w", f.ClientID(), f.ClientName(), err)
		}
		tbl, err = stamp(tbl, f.Folder)
		if err != nil {
			return nil, nil, fmt.Errorf("client %d (%s): %w", f.ClientID(), f.ClientName(), err)
		}
		merged = merged.Concat(tbl)

		s := EntityMerged{Client: f.Folder, Rows: tbl.Len()}
		stats = append(stats, s)
		m.events.Publish(s)
	}

	m.events.Publish(StageCompleted{Stage: StageMerge, Rows: merged.Len(), Duration: time.Since(start)})
	return merged, stats, nil
}

func stamp(tbl *dataset.Table, folder entity.Folder) (*dataset.Table, error) {
	tbl, err := tbl.WithConstant(schema.ClientIDColumn, folder.ID)
	if err != nil {
		return nil, err
	}
	return tbl.WithConstant(schema.ClientNameColumn, folder.Name)
}
