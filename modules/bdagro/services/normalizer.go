package services

import (
	"time"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

// Normalizer projects a merged table onto a schema, lower-cases the column
// names and coerces every value to its column type.
type Normalizer struct {
	schema schema.Schema
	events eventbus.EventBus
}

func NewNormalizer(s schema.Schema, events eventbus.EventBus) *Normalizer {
	if events == nil {
		events = eventbus.New(nil)
	}
	return &Normalizer{schema: s, events: events}
}

func (n *Normalizer) Schema() schema.Schema {
	return n.schema
}

// Normalize returns a new table whose columns are exactly the schema's output
// names in declared order. A declared column missing from t is a
// *schema.ViolationError, except for enriched columns, which are added as
// null. Values that do not coerce become null.
func (n *Normalizer) Normalize(t *dataset.Table) (*dataset.Table, error) {
	start := time.Now()
	columns := n.schema.Columns()

	if t.IsEmpty() {
		out, err := dataset.New(n.schema.OutputNames(), nil)
		if err != nil {
			return nil, err
		}
		n.events.Publish(StageCompleted{Stage: StageNormalize, Duration: time.Since(start)})
		return out, nil
	}

	var missing []string
	for _, c := range columns {
		if _, ok := t.Lookup(c.Name); ok {
			continue
		}
		if c.Enriched {
			var err error
			if t, err = t.WithConstant(c.Name, nil); err != nil {
				return nil, err
			}
			continue
		}
		missing = append(missing, c.Name)
	}
	if len(missing) > 0 {
		return nil, &schema.ViolationError{Missing: missing}
	}

	projected, err := t.Select(n.schema.Names())
	if err != nil {
		return nil, err
	}

	rows := projected.Rows()
	for _, row := range rows {
		for j, c := range columns {
			row[j] = c.Type.Coerce(row[j])
		}
	}
	out, err := dataset.New(n.schema.OutputNames(), rows)
	if err != nil {
		return nil, err
	}

	n.events.Publish(StageCompleted{Stage: StageNormalize, Rows: out.Len(), Duration: time.Since(start)})
	return out, nil
}
