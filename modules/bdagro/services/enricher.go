package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
	"github.com/agrotomo/bdagro-sync/pkg/logging"
)

// LookupError reports a failed group lookup. The table returned alongside it
// is still usable.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("group lookup: %v", e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Enricher attaches the group name of each row's client to a normalized table.
type Enricher struct {
	lookup store.GroupLookup
	events eventbus.EventBus
	log    *logrus.Entry
}

func NewEnricher(lookup store.GroupLookup, events eventbus.EventBus, log *logrus.Entry) *Enricher {
	if events == nil {
		events = eventbus.New(nil)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Enricher{lookup: lookup, events: events, log: log}
}

// Enrich sets the grupo column from the group names of the selected clients.
// Clients without a mapping get schema.NoGroup. When the lookup fails the
// grupo column is null on every row and the error is a *LookupError.
func (e *Enricher) Enrich(ctx context.Context, t *dataset.Table, selection entity.Selection) (*dataset.Table, error) {
	start := time.Now()
	clientIDs, err := t.Column(schema.ClientIDColumn)
	if err != nil {
		return nil, err
	}

	var groups map[int64]string
	if t.Len() > 0 && !selection.IsEmpty() {
		ids := selection.IDs()
		groups, err = e.lookup.GroupNames(ctx, ids)
		if err != nil {
			e.log.WithError(err).WithField("client_ids", ids).Error("group lookup failed")
			e.events.Publish(GroupLookupFailed{ClientIDs: ids, Err: err})
			out, cErr := t.WithConstant(schema.GroupColumn, nil)
			if cErr != nil {
				return nil, cErr
			}
			return out, &LookupError{Err: err}
		}
	}

	values := make([]any, len(clientIDs))
	for i, v := range clientIDs {
		values[i] = schema.NoGroup
		if id, ok := v.(int64); ok {
			if name, found := groups[id]; found {
				values[i] = name
			}
		}
	}
	out, err := t.WithColumn(schema.GroupColumn, values)
	if err != nil {
		return nil, err
	}
	e.events.Publish(StageCompleted{Stage: StageEnrich, Rows: out.Len(), Duration: time.Since(start)})
	return out, nil
}
