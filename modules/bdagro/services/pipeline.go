package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
	"github.com/agrotomo/bdagro-sync/pkg/logging"
)

var ErrNoSelection = errors.New("no clients selected")

type ExportOptions struct {
	Path   string
	Format JSONFormat
	Stage  ExportStage
}

type Options struct {
	Selection entity.Selection
	// Enrich looks up group names; without it grupo stays null.
	Enrich bool
	// HarvestEstimate adds tc_est_colheita before persisting.
	HarvestEstimate bool
	// Apply writes to the store. Without it the run stops after the export.
	Apply  bool
	Export *ExportOptions
}

// Report summarizes a run.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Discovered int
	Skipped    []EntitySkipped
	Merged     []EntityMerged
	Rows       int

	GroupLookupError error
	ExportPath       string

	Applied bool
	Sync    SyncResult
}

// PersistenceFailed reports whether the run attempted a store write that did
// not happen.
func (r Report) PersistenceFailed() bool {
	return r.Applied && r.Sync.Err != nil
}

type Pipeline struct {
	files      ExportFileProvider
	merger     *Merger
	normalizer *Normalizer
	enricher   *Enricher
	syncer     *Syncer
	events     eventbus.EventBus
	log        *logrus.Entry
}

type PipelineDeps struct {
	Files  ExportFileProvider
	Reader TableReader
	// Schema defaults to schema.BDAgro().
	Schema *schema.Schema
	// Groups may be nil when no run enriches.
	Groups store.GroupLookup
	// Syncer may be nil when no run applies.
	Syncer *Syncer
	Events eventbus.EventBus
	Logger *logrus.Entry
}

func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Files == nil {
		return nil, errors.New("export file provider is required")
	}
	if deps.Reader == nil {
		return nil, errors.New("table reader is required")
	}
	events := deps.Events
	if events == nil {
		events = eventbus.New(nil)
	}
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	sc := schema.BDAgro()
	if deps.Schema != nil {
		sc = *deps.Schema
	}
	p := &Pipeline{
		files:      deps.Files,
		merger:     NewMerger(deps.Reader, events),
		normalizer: NewNormalizer(sc, events),
		syncer:     deps.Syncer,
		events:     events,
		log:        log,
	}
	if deps.Groups != nil {
		p.enricher = NewEnricher(deps.Groups, events, log)
	}
	return p, nil
}

// Run executes discover, merge, normalize, enrich, harvest estimate, export
// and sync in that order. It returns the final table alongside the report.
// Store write failures are recorded in the report, not returned.
func (p *Pipeline) Run(ctx context.Context, opts Options) (report Report, table *dataset.Table, err error) {
	report = Report{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	log := p.log.WithField("run_id", report.RunID.String())
	defer func() {
		report.FinishedAt = time.Now().UTC()
	}()

	if opts.Apply {
		if opts.Selection.IsEmpty() {
			return report, nil, ErrNoSelection
		}
		if p.syncer == nil {
			return report, nil, errors.New("apply requested without a store")
		}
	}
	if opts.Enrich && p.enricher == nil {
		return report, nil, errors.New("enrichment requested without a group lookup")
	}

	discovery, err := p.files.Discover(ctx)
	if err != nil {
		return report, nil, fmt.Errorf("discover: %w", err)
	}
	report.Discovered = len(discovery.Files)
	report.Skipped = discovery.Skipped

	merged, stats, err := p.merger.Merge(ctx, discovery.Files, opts.Selection)
	if err != nil {
		return report, nil, fmt.Errorf("merge: %w", err)
	}
	report.Merged = stats
	log.WithFields(logrus.Fields{"clients": len(stats), "rows": merged.Len()}).Info("export files merged")

	if opts.Export != nil && opts.Export.Stage == ExportMerged {
		if err := p.export(merged, *opts.Export); err != nil {
			return report, nil, err
		}
		report.ExportPath = opts.Export.Path
	}

	out, err := p.normalizer.Normalize(merged)
	if err != nil {
		return report, nil, fmt.Errorf("normalize: %w", err)
	}

	if opts.Enrich {
		enriched, err := p.enricher.Enrich(ctx, out, opts.Selection)
		var lookupErr *LookupError
		switch {
		case errors.As(err, &lookupErr):
			report.GroupLookupError = lookupErr
		case err != nil:
			return report, nil, fmt.Errorf("enrich: %w", err)
		}
		out = enriched
	}

	persisted := p.normalizer.Schema()
	if opts.HarvestEstimate {
		start := time.Now()
		if out, err = WithHarvestEstimate(out); err != nil {
			return report, nil, fmt.Errorf("harvest estimate: %w", err)
		}
		persisted = persisted.With(schema.HarvestEstimate)
		p.events.Publish(StageCompleted{Stage: StageHarvest, Rows: out.Len(), Duration: time.Since(start)})
	}
	report.Rows = out.Len()

	if opts.Export != nil && opts.Export.Stage != ExportMerged {
		if err := p.export(out, *opts.Export); err != nil {
			return report, nil, err
		}
		report.ExportPath = opts.Export.Path
	}

	if !opts.Apply {
		log.WithField("rows", out.Len()).Info("dry run, store left untouched")
		return report, out, nil
	}

	report.Applied = true
	report.Sync = p.syncer.WithSchema(persisted).Sync(ctx, out, opts.Selection)
	return report, out, nil
}

func (p *Pipeline) export(t *dataset.Table, opts ExportOptions) error {
	start := time.Now()
	if err := ExportJSON(opts.Path, t, opts.Format); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	p.events.Publish(StageCompleted{Stage: StageExport, Rows: t.Len(), Duration: time.Since(start)})
	return nil
}
