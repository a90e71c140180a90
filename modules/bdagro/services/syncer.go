package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
	"github.com/agrotomo/bdagro-sync/pkg/logging"
)

type SyncMode string

const (
	// SyncTransactional deletes and inserts in one transaction.
	SyncTransactional SyncMode = "transactional"
	// SyncSplit commits the delete and the insert independently. A failed
	// insert leaves the selected clients without rows.
	SyncSplit SyncMode = "split"
)

func ParseSyncMode(v string) (SyncMode, error) {
	switch m := SyncMode(strings.ToLower(strings.TrimSpace(v))); m {
	case "":
		return SyncTransactional, nil
	case SyncTransactional, SyncSplit:
		return m, nil
	default:
		return "", fmt.Errorf("invalid sync mode %q (expected transactional|split)", v)
	}
}

// SyncResult is what a synchronization actually did.
type SyncResult struct {
	Mode     SyncMode
	Deleted  int64
	Inserted int64
	// Partial is set when rows were deleted but the replacement insert failed.
	Partial bool
	Err     error
}

// Syncer replaces the persisted rows of the selected clients.
type Syncer struct {
	repo   store.Repository
	target store.Target
	schema schema.Schema
	mode   SyncMode
	events eventbus.EventBus
	log    *logrus.Entry
}

type SyncerOptions struct {
	Target store.Target
	// Schema lists the persisted columns; defaults to schema.BDAgro().
	Schema *schema.Schema
	Mode   SyncMode
	Events eventbus.EventBus
	Logger *logrus.Entry
}

func NewSyncer(repo store.Repository, opts SyncerOptions) (*Syncer, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if err := opts.Target.Validate(); err != nil {
		return nil, err
	}
	s := &Syncer{
		repo:   repo,
		target: opts.Target,
		schema: schema.BDAgro(),
		mode:   opts.Mode,
		events: opts.Events,
		log:    opts.Logger,
	}
	if opts.Schema != nil {
		s.schema = *opts.Schema
	}
	if s.mode == "" {
		s.mode = SyncTransactional
	}
	if s.events == nil {
		s.events = eventbus.New(nil)
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	s.log = s.log.WithField("table", s.target.String())
	return s, nil
}

// WithSchema returns a copy of s persisting the columns of sc.
func (s *Syncer) WithSchema(sc schema.Schema) *Syncer {
	out := *s
	out.schema = sc
	return &out
}

// Delete removes the persisted rows of the selected clients.
func (s *Syncer) Delete(ctx context.Context, selection entity.Selection) (int64, error) {
	n, err := s.repo.DeleteClients(ctx, s.target, selection.IDs())
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", s.target, err)
	}
	s.events.Publish(RowsDeleted{Target: s.target.String(), Count: n})
	return n, nil
}

// Insert writes every row of t. Declared columns absent from t are written
// as null.
func (s *Syncer) Insert(ctx context.Context, t *dataset.Table) (int64, error) {
	columns, rows := s.rows(t)
	if len(rows) == 0 {
		s.events.Publish(RowsInserted{Target: s.target.String()})
		return 0, nil
	}
	n, err := s.repo.InsertRows(ctx, s.target, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", s.target, err)
	}
	s.events.Publish(RowsInserted{Target: s.target.String(), Count: n})
	return n, nil
}

// Sync replaces the rows of the selected clients with t according to the
// configured mode. Failures are logged, published and returned in the
// result; they are not fatal to the caller.
func (s *Syncer) Sync(ctx context.Context, t *dataset.Table, selection entity.Selection) SyncResult {
	start := time.Now()
	res := SyncResult{Mode: s.mode}
	if selection.IsEmpty() {
		s.log.Info("nothing selected, store left untouched")
		return res
	}

	switch s.mode {
	case SyncSplit:
		res = s.split(ctx, t, selection)
	default:
		res = s.replace(ctx, t, selection)
	}

	s.events.Publish(StageCompleted{Stage: StageSync, Rows: int(res.Inserted), Duration: time.Since(start)})
	return res
}

func (s *Syncer) replace(ctx context.Context, t *dataset.Table, selection entity.Selection) SyncResult {
	res := SyncResult{Mode: SyncTransactional}
	columns, rows := s.rows(t)
	deleted, inserted, err := s.repo.ReplaceClients(ctx, s.target, selection.IDs(), columns, rows)
	if err != nil {
		res.Err = fmt.Errorf("replace rows in %s: %w", s.target, err)
		s.fail(OperationReplace, 0, res.Err)
		return res
	}
	res.Deleted, res.Inserted = deleted, inserted
	s.events.Publish(RowsDeleted{Target: s.target.String(), Count: deleted})
	s.events.Publish(RowsInserted{Target: s.target.String(), Count: inserted})
	return res
}

func (s *Syncer) split(ctx context.Context, t *dataset.Table, selection entity.Selection) SyncResult {
	res := SyncResult{Mode: SyncSplit}
	deleted, err := s.Delete(ctx, selection)
	if err != nil {
		res.Err = err
		s.fail(OperationDelete, 0, err)
		return res
	}
	res.Deleted = deleted

	inserted, err := s.Insert(ctx, t)
	if err != nil {
		res.Err = err
		res.Partial = deleted > 0
		s.fail(OperationInsert, deleted, err)
		return res
	}
	res.Inserted = inserted
	return res
}

func (s *Syncer) fail(op Operation, deleted int64, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"deleted":   deleted,
	}).Error("persistence failed")
	s.events.Publish(PersistenceFailed{Target: s.target.String(), Operation: op, Deleted: deleted, Err: err})
}

// rows lays t out in the persisted column order.
func (s *Syncer) rows(t *dataset.Table) ([]string, [][]any) {
	columns := s.schema.OutputNames()
	rows := make([][]any, t.Len())
	for i := range rows {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = t.Value(i, c)
		}
		rows[i] = row
	}
	return columns, rows
}
