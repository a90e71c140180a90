package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/infrastructure/persistence"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/infrastructure/spreadsheet"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
)

// openStore is replaced in tests.
var openStore = func(ctx context.Context, connString string) (persistence.DB, func(), error) {
	pool, err := persistence.Open(ctx, connString)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

type syncOptions struct {
	Root            string
	Clients         string
	Apply           bool
	SyncMode        string
	HarvestEstimate bool
	ExportJSON      bool
	Output          string
	Format          string
	Schema          string
	Table           string
	PageSize        int
}

func newSyncCmd() *cobra.Command {
	var opts syncOptions
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the selected clients' rows in the target table",
		Long:  "Merge, normalize and enrich the selected exports, then delete and re-insert the clients' rows. Without --apply the database is only read.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runSync(cmd.Context(), cmd, cmd.OutOrStdout(), rt, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Root, "root", "", "Clients folder (overrides BDAGRO_CLIENTS_FOLDER)")
	cmd.Flags().StringVar(&opts.Clients, "clients", "", "Comma separated client ids (overrides BDAGRO_CLIENT_IDS)")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Write to the database (default: dry run)")
	cmd.Flags().StringVar(&opts.SyncMode, "sync-mode", "", "transactional|split (overrides BDAGRO_SYNC_MODE)")
	cmd.Flags().BoolVar(&opts.HarvestEstimate, "harvest-estimate", false, "Add tc_est_colheita (overrides BDAGRO_HARVEST_ESTIMATE)")
	cmd.Flags().BoolVar(&opts.ExportJSON, "export-json", false, "Also write the final table as JSON (overrides BDAGRO_EXPORT_JSON)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "JSON output path (overrides BDAGRO_OUTPUT_FILE)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "JSON layout: lines|array (overrides BDAGRO_JSON_FORMAT)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Target schema (overrides BDAGRO_TARGET_SCHEMA)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Target table (overrides BDAGRO_TARGET_TABLE)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Rows per INSERT statement (overrides BDAGRO_INSERT_PAGE_SIZE)")
	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, out io.Writer, rt *runtime, opts syncOptions) error {
	cfg := rt.cfg.BDAgro
	root, err := clientsFolder(cmd, opts.Root, rt.cfg)
	if err != nil {
		return err
	}
	sel, err := selection(cmd, opts.Clients, rt.cfg)
	if err != nil {
		return err
	}
	mode, err := services.ParseSyncMode(stringFlag(cmd, "sync-mode", opts.SyncMode, cfg.SyncMode))
	if err != nil {
		return withStatus(exitUsage, err)
	}
	var export *services.ExportOptions
	if boolFlag(cmd, "export-json", opts.ExportJSON, cfg.ExportJSON) {
		if export, err = exportOptions(cmd, opts.Output, opts.Format, "", rt); err != nil {
			return err
		}
	}
	pageSize := cfg.InsertPageSize
	if cmd.Flags().Changed("page-size") {
		pageSize = opts.PageSize
	}
	target := store.Target{
		Schema: stringFlag(cmd, "schema", opts.Schema, cfg.TargetSchema),
		Table:  stringFlag(cmd, "table", opts.Table, cfg.TargetTable),
	}
	if err := target.Validate(); err != nil {
		return withStatus(exitUsage, err)
	}
	if opts.Apply && sel.IsEmpty() {
		return withStatus(exitUsage, services.ErrNoSelection)
	}

	db, closeDB, err := openStore(ctx, rt.cfg.Database.ConnectionString())
	if err != nil {
		return withStatus(exitDB, err)
	}
	defer closeDB()

	report, err := syncWith(ctx, db, rt, syncPlan{
		root:     root,
		target:   target,
		mode:     mode,
		pageSize: pageSize,
		options: services.Options{
			Selection:       sel,
			Enrich:          true,
			HarvestEstimate: boolFlag(cmd, "harvest-estimate", opts.HarvestEstimate, cfg.HarvestEstimate),
			Apply:           opts.Apply,
			Export:          export,
		},
	})
	if err != nil {
		return err
	}

	status := "dry_run"
	switch {
	case report.PersistenceFailed():
		status = "failed"
	case report.Applied:
		status = "applied"
	}
	summary := newRunSummary("sync", status, root, sel.IDs(), report)
	summary.Target = target.String()
	summary.SyncMode = string(mode)
	if err := writeJSONLine(out, summary); err != nil {
		return err
	}
	if report.PersistenceFailed() {
		return withStatus(exitDBWrite, report.Sync.Err)
	}
	return nil
}

type syncPlan struct {
	root     string
	target   store.Target
	mode     services.SyncMode
	pageSize int
	options  services.Options
}

func syncWith(ctx context.Context, db persistence.DB, rt *runtime, plan syncPlan) (services.Report, error) {
	repo := persistence.NewBDAgroRepository(db, persistence.WithPageSize(plan.pageSize))
	syncer, err := services.NewSyncer(repo, services.SyncerOptions{
		Target: plan.target,
		Mode:   plan.mode,
		Events: rt.bus,
		Logger: rt.log,
	})
	if err != nil {
		return services.Report{}, err
	}
	pipeline, err := services.NewPipeline(services.PipelineDeps{
		Files:  services.NewLocator(plan.root, rt.cfg.BDAgro.ExcludedClients, rt.bus),
		Reader: spreadsheet.NewReader(),
		Groups: repo,
		Syncer: syncer,
		Events: rt.bus,
		Logger: rt.log,
	})
	if err != nil {
		return services.Report{}, err
	}
	report, _, err := pipeline.Run(ctx, plan.options)
	return report, err
}
